// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/pkg/errutil"
)

// AvatarStore persists profile pictures under generated names.
type AvatarStore interface {
	// Save processes and stores the upload and returns the generated name.
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)

	// Remove deletes a stored picture.
	Remove(ctx context.Context, name string) error
}

// Picture is an uploaded profile picture.
type Picture struct {
	Filename string
	Content  io.Reader
}

// ProfileUpdate carries the editable account fields. Picture is optional.
type ProfileUpdate struct {
	Username string
	Email    string
	Picture  *Picture
}

// AccountService edits the profile of an authenticated user.
type AccountService struct {
	users   UserRepository
	avatars AvatarStore
	now     func() time.Time
	logger  *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserRepository, avatars AvatarStore, logger *slog.Logger) (*AccountService, error) {
	if users == nil {
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").Errorf("users repository is required")
	}
	if avatars == nil {
		return nil, oops.Code("ACCOUNT_INVALID_CONFIG").Errorf("avatar store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{users: users, avatars: avatars, now: time.Now, logger: logger}, nil
}

// UpdateProfile validates and applies upd to user and returns the stored
// result. The new picture is written first, then the record, then the old
// picture is removed; a failed removal is logged and otherwise ignored.
func (s *AccountService) UpdateProfile(ctx context.Context, user *User, upd ProfileUpdate) (*User, error) {
	if user == nil {
		return nil, oops.Code("ACCOUNT_UPDATE_FAILED").Errorf("user is required")
	}

	username := strings.TrimSpace(upd.Username)
	email := NormalizeEmail(upd.Email)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	if username != user.Username {
		if err := s.ensureFree(ctx, user.ID, username, s.users.GetByUsername, UsernameTakenError); err != nil {
			return nil, err
		}
	}
	if email != user.Email {
		if err := s.ensureFree(ctx, user.ID, email, s.users.GetByEmail, EmailTakenError); err != nil {
			return nil, err
		}
	}

	updated := *user
	updated.Username = username
	updated.Email = email
	updated.UpdatedAt = s.now().UTC()

	var newImage string
	if upd.Picture != nil && upd.Picture.Content != nil {
		name, err := s.avatars.Save(ctx, upd.Picture.Filename, upd.Picture.Content)
		if err != nil {
			return nil, err
		}
		newImage = name
		updated.ImageFile = name
	}

	if err := s.users.UpdateProfile(ctx, &updated); err != nil {
		if newImage != "" {
			if rmErr := s.avatars.Remove(ctx, newImage); rmErr != nil {
				errutil.LogError(s.logger, "failed to remove orphaned avatar", rmErr)
			}
		}
		if errors.Is(err, ErrUniqueViolation) {
			return nil, err
		}
		return nil, oops.Code("ACCOUNT_UPDATE_FAILED").With("user_id", user.ID).Wrap(err)
	}

	if newImage != "" && !user.HasDefaultImage() {
		if err := s.avatars.Remove(ctx, user.ImageFile); err != nil {
			errutil.LogError(s.logger, "failed to remove previous avatar",
				oops.With("user_id", user.ID, "image_file", user.ImageFile).Wrap(err))
		}
	}

	return &updated, nil
}

func (s *AccountService) ensureFree(
	ctx context.Context,
	selfID int64,
	value string,
	lookup func(context.Context, string) (*User, error),
	taken func(string) error,
) error {
	other, err := lookup(ctx, value)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return oops.With("operation", "check uniqueness").Wrap(err)
	case other.ID != selfID:
		return taken(value)
	default:
		return nil
	}
}

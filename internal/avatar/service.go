// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package avatar

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// DefaultName is the picture every new account starts with.
const DefaultName = "default.jpg"

// DefaultMaxUploadBytes caps the size of an upload before decoding.
const DefaultMaxUploadBytes = 4 << 20

// ErrTooLarge is returned for uploads over the size limit.
var ErrTooLarge = errors.New("upload too large")

// Service thumbnails uploads and stores them in a BlobStore.
type Service struct {
	blobs    BlobStore
	box      int
	maxBytes int64
	logger   *slog.Logger

	defaultOnce sync.Once
	defaultJPEG []byte
}

// Option configures a Service.
type Option func(*Service)

// WithBoxSize sets the thumbnail box side.
func WithBoxSize(px int) Option {
	return func(s *Service) { s.box = px }
}

// WithMaxUploadBytes sets the upload size limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over blobs.
func NewService(blobs BlobStore, opts ...Option) (*Service, error) {
	if blobs == nil {
		return nil, oops.Code("AVATAR_INVALID_CONFIG").Errorf("blob store is required")
	}
	s := &Service{
		blobs:    blobs,
		box:      DefaultBoxSize,
		maxBytes: DefaultMaxUploadBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.box <= 0 {
		return nil, oops.Code("AVATAR_INVALID_CONFIG").With("box", s.box).Errorf("box size must be positive")
	}
	if s.maxBytes <= 0 {
		return nil, oops.Code("AVATAR_INVALID_CONFIG").With("max_bytes", s.maxBytes).Errorf("upload limit must be positive")
	}
	return s, nil
}

// Save thumbnails content and stores it under a random 16 hex character
// name that keeps the lowercased extension of originalName.
func (s *Service) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	contentType, err := ContentTypeForExt(ext)
	if err != nil {
		return "", err
	}

	raw, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return "", oops.Code("AVATAR_READ_FAILED").Wrap(err)
	}
	if int64(len(raw)) > s.maxBytes {
		return "", oops.Code("AVATAR_TOO_LARGE").With("limit", s.maxBytes).Wrap(ErrTooLarge)
	}

	thumb, err := Thumbnail(bytes.NewReader(raw), contentType, s.box)
	if err != nil {
		return "", err
	}

	name, err := randomName(ext)
	if err != nil {
		return "", err
	}
	if err := s.blobs.Put(ctx, name, contentType, bytes.NewReader(thumb)); err != nil {
		return "", err
	}
	s.logger.DebugContext(ctx, "avatar stored", "name", name, "bytes", len(thumb))
	return name, nil
}

// Remove deletes a stored picture. The default picture is never removed.
func (s *Service) Remove(ctx context.Context, name string) error {
	if name == DefaultName {
		return nil
	}
	return s.blobs.Delete(ctx, name)
}

// Open returns a stored picture. When the default picture has not been
// stored it is generated.
func (s *Service) Open(ctx context.Context, name string) (io.ReadCloser, BlobInfo, error) {
	rc, info, err := s.blobs.Open(ctx, name)
	if err == nil || name != DefaultName || !errors.Is(err, ErrBlobNotFound) {
		return rc, info, err
	}
	data := s.placeholder()
	return io.NopCloser(bytes.NewReader(data)), BlobInfo{ContentType: ContentTypeJPEG, Size: int64(len(data))}, nil
}

func (s *Service) placeholder() []byte {
	s.defaultOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, s.box, s.box))
		fill := color.RGBA{R: 0xcb, G: 0xd5, B: 0xe0, A: 0xff}
		for y := range s.box {
			for x := range s.box {
				img.Set(x, y, fill)
			}
		}
		var buf bytes.Buffer
		_ = jpeg.Encode(&buf, img, nil) //nolint:errcheck // in-memory encode of a valid image
		s.defaultJPEG = buf.Bytes()
	})
	return s.defaultJPEG
}

func randomName(ext string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("AVATAR_NAME_FAILED").Wrap(err)
	}
	return hex.EncodeToString(b) + ext, nil
}

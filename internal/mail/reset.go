// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package mail

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
)

// ResetSubject is the subject line of password reset mail.
const ResetSubject = "Password Reset Request"

// ResetMailer sends password reset links. It implements auth.ResetNotifier.
type ResetMailer struct {
	sender  Sender
	from    string
	baseURL *url.URL
}

// NewResetMailer creates a ResetMailer. baseURL is the externally visible
// root of the site, e.g. "https://blog.example.com".
func NewResetMailer(sender Sender, from, baseURL string) (*ResetMailer, error) {
	if sender == nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").Errorf("sender is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("from", from).Wrap(err)
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("MAIL_INVALID_CONFIG").With("base_url", baseURL).Errorf("base URL must be absolute")
	}
	return &ResetMailer{sender: sender, from: from, baseURL: u}, nil
}

// ResetURL returns the absolute link for token.
func (m *ResetMailer) ResetURL(token string) string {
	u := *m.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/reset_password/" + url.PathEscape(token)
	u.RawQuery = ""
	return u.String()
}

// SendPasswordReset mails the reset link for token to user.
func (m *ResetMailer) SendPasswordReset(ctx context.Context, user *auth.User, token string) error {
	body := fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request then simply ignore this email and no changes will be made.
`, m.ResetURL(token))

	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{user.Email},
		Subject: ResetSubject,
		Body:    body,
	})
}

// envelopeAddress strips any display name for the SMTP envelope.
func envelopeAddress(addr string) string {
	if a, err := mail.ParseAddress(addr); err == nil {
		return a.Address
	}
	return addr
}

var _ auth.ResetNotifier = (*ResetMailer)(nil)

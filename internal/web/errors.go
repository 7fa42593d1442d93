// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/inkwell/inkwell/pkg/errutil"
)

var errorMessages = map[int]string{
	http.StatusNotFound:            "That page does not exist.",
	http.StatusForbidden:           "You don't have permission to do that.",
	http.StatusInternalServerError: "Something went wrong. Please try again later.",
}

// fieldError is a user-facing validation message attached to a form field.
type fieldError struct {
	field   string
	message string
}

// fieldErrors maps validation codes onto form fields.
var fieldErrors = map[string]fieldError{
	"USER_INVALID_USERNAME":     {"username", "Username must be 2 to 20 letters, digits, dots, dashes or underscores."},
	"USER_INVALID_EMAIL":        {"email", "Invalid email address."},
	"USER_USERNAME_TAKEN":       {"username", "That username is taken. Please choose a different one."},
	"USER_EMAIL_TAKEN":          {"email", "That email is taken. Please choose a different one."},
	"AUTH_EMPTY_PASSWORD":       {"password", "This field is required."},
	"RESET_PASSWORD_EMPTY":      {"password", "This field is required."},
	"POST_INVALID_TITLE":        {"title", "Title must be 1 to 100 printable characters."},
	"POST_INVALID_CONTENT":      {"content", "Content is required."},
	"AVATAR_UNSUPPORTED_FORMAT": {"picture", "File does not have an approved extension: jpg, png"},
	"AVATAR_TOO_LARGE":          {"picture", "File is too large."},
}

// applyFieldError attaches err to f when its code is a known validation
// failure and reports whether it did.
func applyFieldError(f *form, err error) bool {
	fe, ok := fieldErrors[errutil.Code(err)]
	if !ok {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			return false
		}
		fe = fieldErrors["AVATAR_TOO_LARGE"]
	}
	f.fail(fe.field, fe.message)
	return true
}

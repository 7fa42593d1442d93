// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package avatar

import (
	"context"
	"errors"
	"io"
	"regexp"

	"github.com/samber/oops"
)

// ErrBlobNotFound is returned when a named blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	ContentType string
	Size        int64
}

// BlobStore is flat named storage for avatar images.
type BlobStore interface {
	// Put writes content under name, replacing any existing blob.
	Put(ctx context.Context, name, contentType string, content io.Reader) error

	// Delete removes name. Deleting a missing blob returns ErrBlobNotFound.
	Delete(ctx context.Context, name string) error

	// Open returns the content of name. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, BlobInfo, error)
}

// blobNameRegex matches generated names and the shared default image.
var blobNameRegex = regexp.MustCompile(`^(?:[0-9a-f]{16}\.(?:jpg|jpeg|png)|default\.jpg)$`)

// ValidateName rejects anything that is not a name this package generates.
func ValidateName(name string) error {
	if !blobNameRegex.MatchString(name) {
		return oops.Code("AVATAR_INVALID_NAME").With("name", name).Wrap(ErrBlobNotFound)
	}
	return nil
}

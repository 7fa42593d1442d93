// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package avatar

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// FSStore is a BlobStore on a local directory.
type FSStore struct {
	dir string
}

// NewFSStore creates dir if needed and returns a store rooted there.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, oops.Code("AVATAR_STORE_INIT_FAILED").With("dir", dir).Wrap(err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Put writes content to a temporary file and renames it into place.
func (s *FSStore) Put(_ context.Context, name, _ string, content io.Reader) error {
	dst, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return oops.Code("AVATAR_WRITE_FAILED").With("name", name).Wrap(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return oops.Code("AVATAR_WRITE_FAILED").With("name", name).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.Code("AVATAR_WRITE_FAILED").With("name", name).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return oops.Code("AVATAR_WRITE_FAILED").With("name", name).Wrap(err)
	}
	return nil
}

// Delete removes name.
func (s *FSStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return oops.Code("AVATAR_NOT_FOUND").With("name", name).Wrap(ErrBlobNotFound)
		}
		return oops.Code("AVATAR_DELETE_FAILED").With("name", name).Wrap(err)
	}
	return nil
}

// Open opens name for reading.
func (s *FSStore) Open(_ context.Context, name string) (io.ReadCloser, BlobInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, BlobInfo{}, err
	}
	f, err := os.Open(p) //nolint:gosec // name is validated against a strict pattern
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, BlobInfo{}, oops.Code("AVATAR_NOT_FOUND").With("name", name).Wrap(ErrBlobNotFound)
		}
		return nil, BlobInfo{}, oops.Code("AVATAR_READ_FAILED").With("name", name).Wrap(err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, BlobInfo{}, oops.Code("AVATAR_READ_FAILED").With("name", name).Wrap(err)
	}
	ct, _ := ContentTypeForExt(filepath.Ext(name)) //nolint:errcheck // name already validated
	return f, BlobInfo{ContentType: ct, Size: st.Size()}, nil
}

var _ BlobStore = (*FSStore)(nil)

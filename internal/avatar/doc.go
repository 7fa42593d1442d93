// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package avatar stores profile pictures. Uploads are thumbnailed to fit a
// square box and written to a BlobStore under a random name.
package avatar

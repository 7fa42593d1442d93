// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package avatar

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/image/draw"
)

// DefaultBoxSize is the side of the square a thumbnail must fit in.
const DefaultBoxSize = 125

// MaxPixels bounds the decoded size of an upload. A small compressed file can
// declare huge dimensions, so the header is checked before decoding.
const MaxPixels = 4096 * 4096

// ErrUnsupportedFormat is returned for uploads that are not JPEG or PNG.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Supported content types.
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

var extContentTypes = map[string]string{
	".jpg":  ContentTypeJPEG,
	".jpeg": ContentTypeJPEG,
	".png":  ContentTypePNG,
}

var decoders = map[string]func(io.Reader) (image.Image, error){
	ContentTypeJPEG: jpeg.Decode,
	ContentTypePNG:  png.Decode,
}

var configDecoders = map[string]func(io.Reader) (image.Config, error){
	ContentTypeJPEG: jpeg.DecodeConfig,
	ContentTypePNG:  png.DecodeConfig,
}

var encoders = map[string]func(io.Writer, image.Image) error{
	ContentTypeJPEG: func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, &jpeg.Options{Quality: 90}) },
	ContentTypePNG:  png.Encode,
}

// ContentTypeForExt returns the content type for a file extension such as
// ".PNG", or ErrUnsupportedFormat.
func ContentTypeForExt(ext string) (string, error) {
	ct, ok := extContentTypes[strings.ToLower(ext)]
	if !ok {
		return "", oops.Code("AVATAR_UNSUPPORTED_FORMAT").With("ext", ext).Wrap(ErrUnsupportedFormat)
	}
	return ct, nil
}

// FitBox returns the size of a w x h image scaled down to fit a box x box
// square with its aspect ratio kept. Images that already fit are unchanged.
func FitBox(w, h, box int) (int, int) {
	if w <= box && h <= box {
		return w, h
	}
	scale := math.Min(float64(box)/float64(w), float64(box)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return min(nw, box), min(nh, box)
}

// Thumbnail decodes r as contentType, scales it to fit box and re-encodes it
// in the same format. Images over MaxPixels are rejected before decoding.
func Thumbnail(r io.Reader, contentType string, box int) ([]byte, error) {
	decode, ok := decoders[contentType]
	if !ok {
		return nil, oops.Code("AVATAR_UNSUPPORTED_FORMAT").With("content_type", contentType).Wrap(ErrUnsupportedFormat)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, oops.Code("AVATAR_READ_FAILED").Wrap(err)
	}

	cfg, err := configDecoders[contentType](bytes.NewReader(data))
	if err != nil {
		return nil, unsupported(contentType, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, oops.Code("AVATAR_TOO_LARGE").
			With("width", cfg.Width).
			With("height", cfg.Height).
			With("max_pixels", MaxPixels).
			Wrap(ErrTooLarge)
	}

	src, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, unsupported(contentType, err)
	}

	b := src.Bounds()
	w, h := FitBox(b.Dx(), b.Dy(), box)
	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := encoders[contentType](&buf, out); err != nil {
		return nil, oops.Code("AVATAR_ENCODE_FAILED").With("content_type", contentType).Wrap(err)
	}
	return buf.Bytes(), nil
}

func unsupported(contentType string, err error) error {
	return oops.Code("AVATAR_UNSUPPORTED_FORMAT").
		With("content_type", contentType).
		Wrap(errors.Join(ErrUnsupportedFormat, err))
}

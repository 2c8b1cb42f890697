//go:build vips

package codec

import (
	"fmt"

	bimg "gopkg.in/h2non/bimg.v1"
)

// VipsCodec delegates to libvips. Unlike the imaging backend it writes
// progressive JPEGs.
type VipsCodec struct{}

type vipsImage struct {
	data          []byte
	width, height int
}

func (i *vipsImage) Width() int  { return i.width }
func (i *vipsImage) Height() int { return i.height }

// New returns the default codec for this build
func New() Codec {
	return &VipsCodec{}
}

func (c *VipsCodec) Name() string {
	return "vips"
}

// Decode validates the bytes and reads the oriented dimensions. libvips
// decodes lazily, so the buffer is kept and handed to every Encode call.
func (c *VipsCodec) Decode(data []byte) (Image, error) {
	img := bimg.NewImage(data)
	meta, err := img.Metadata()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	w, h := meta.Size.Width, meta.Size.Height
	// EXIF orientations 5-8 swap the axes once auto-rotated
	if meta.Orientation >= 5 && meta.Orientation <= 8 {
		w, h = h, w
	}
	return &vipsImage{data: data, width: w, height: h}, nil
}

func (c *VipsCodec) Encode(src Image, req Request) (*Output, error) {
	vi, ok := src.(*vipsImage)
	if !ok {
		return nil, fmt.Errorf("%w: image was not decoded by %s", ErrEncode, c.Name())
	}

	w, h := CoverSize(vi.Width(), vi.Height(), req.Width, req.Height, req.AllowUpscale)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty target box %dx%d", ErrEncode, req.Width, req.Height)
	}

	opts := bimg.Options{
		Width:   w,
		Height:  h,
		Crop:    true,
		Gravity: bimg.GravityCentre,
		Enlarge: req.AllowUpscale,
		Quality: req.Quality,
	}
	switch req.Format {
	case WebP:
		opts.Type = bimg.WEBP
	case JPEG:
		opts.Type = bimg.JPEG
		opts.Interlace = req.Progressive
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrEncode, req.Format)
	}

	out, err := bimg.NewImage(vi.data).Process(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	size, err := bimg.NewImage(out).Size()
	if err != nil {
		return nil, fmt.Errorf("%w: reading encoded size: %v", ErrEncode, err)
	}

	return &Output{Data: out, Width: size.Width, Height: size.Height}, nil
}

//go:build !vips

package codec

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// ImagingCodec resizes with disintegration/imaging and encodes WebP through libwebp.
// The standard library JPEG encoder has no progressive mode: a progressive
// request is written as baseline and warned about once. Build with -tags vips
// for progressive fallbacks.
type ImagingCodec struct {
	progressiveWarning sync.Once
}

type imagingImage struct {
	img image.Image
}

func (i *imagingImage) Width() int  { return i.img.Bounds().Dx() }
func (i *imagingImage) Height() int { return i.img.Bounds().Dy() }

// New returns the default codec for this build
func New() Codec {
	return &ImagingCodec{}
}

func (c *ImagingCodec) Name() string {
	return "imaging"
}

// Decode parses JPEG/PNG bytes and applies the EXIF orientation
func (c *ImagingCodec) Decode(data []byte) (Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &imagingImage{img: img}, nil
}

// Encode cover-fits the image to the request box, anchored at center, and encodes it
func (c *ImagingCodec) Encode(src Image, req Request) (*Output, error) {
	ii, ok := src.(*imagingImage)
	if !ok {
		return nil, fmt.Errorf("%w: image was not decoded by %s", ErrEncode, c.Name())
	}

	w, h := CoverSize(ii.Width(), ii.Height(), req.Width, req.Height, req.AllowUpscale)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty target box %dx%d", ErrEncode, req.Width, req.Height)
	}

	resized := imaging.Fill(ii.img, w, h, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch req.Format {
	case WebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetPhoto, float32(req.Quality))
		if err != nil {
			return nil, fmt.Errorf("%w: webp options: %v", ErrEncode, err)
		}
		options.Method = req.Effort
		if err := webp.Encode(&buf, resized, options); err != nil {
			return nil, fmt.Errorf("%w: webp: %v", ErrEncode, err)
		}
	case JPEG:
		if req.Progressive {
			c.progressiveWarning.Do(func() {
				log.Printf("⚠️  %s backend cannot write progressive JPEG, fallbacks are baseline (build with -tags vips)", c.Name())
			})
		}
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(req.Quality)); err != nil {
			return nil, fmt.Errorf("%w: jpeg: %v", ErrEncode, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrEncode, req.Format)
	}

	return &Output{
		Data:   buf.Bytes(),
		Width:  resized.Bounds().Dx(),
		Height: resized.Bounds().Dy(),
	}, nil
}

package codec

// Raster codec adapter
//
// The pipeline never touches pixels directly. Everything goes through a Codec:
// 1. Decode the source bytes once (auto-rotated per EXIF orientation)
// 2. Encode any number of renditions from that decoded source
//
// Backends:
//   - imaging + go-webp (default build)
//   - libvips via bimg (build with -tags vips)

import (
	"errors"
	"math"
)

var (
	// ErrDecode is returned when source bytes are not a supported raster image.
	ErrDecode = errors.New("decode failed")
	// ErrEncode is returned when a resize or encode step fails.
	ErrEncode = errors.New("encode failed")
)

// Format is an output encoding
type Format string

const (
	WebP Format = "webp"
	JPEG Format = "jpeg"
)

// Ext returns the file extension (without dot) used for the format
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return "jpg"
	default:
		return string(f)
	}
}

// Request describes one rendition
type Request struct {
	Format Format

	// Target box. Height 0 derives it from the source aspect ratio.
	Width  int
	Height int

	Quality     int
	Effort      int  // WebP method 0-6, higher is smaller and slower
	Progressive bool // JPEG only, honoured when the backend supports it

	AllowUpscale bool
}

// Output is an encoded rendition
type Output struct {
	Data   []byte
	Width  int
	Height int
}

// Image is a decoded source
type Image interface {
	Width() int
	Height() int
}

// Codec decodes sources and encodes renditions from them
type Codec interface {
	Name() string
	Decode(data []byte) (Image, error)
	Encode(img Image, req Request) (*Output, error)
}

// CoverSize computes the box a cover-fit resize produces for a source of
// srcW x srcH and the requested target. The result keeps the target aspect
// ratio; without allowUpscale it is shrunk until it fits inside the source.
func CoverSize(srcW, srcH, targetW, targetH int, allowUpscale bool) (int, int) {
	if srcW <= 0 || srcH <= 0 || targetW <= 0 {
		return 0, 0
	}

	w := float64(targetW)
	h := float64(targetH)
	if targetH <= 0 {
		h = w * float64(srcH) / float64(srcW)
	}

	if !allowUpscale {
		scale := math.Min(float64(srcW)/w, float64(srcH)/h)
		if scale < 1 {
			w *= scale
			h *= scale
		}
	}

	outW := int(math.Round(w))
	outH := int(math.Round(h))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}

package common

import (
	"fmt"

	"geminialuminium/codec"
)

// FallbackTag names the single broadly-compatible rendition
const FallbackTag = "fallback"

// SizeSpec is a responsive width, e.g. small:400
type SizeSpec struct {
	Tag    string
	Width  int
	Height int // 0 keeps the source aspect ratio
}

// SourceImage describes an original as decoded
type SourceImage struct {
	Path     string
	Name     string // base name without extension
	Category string
	Width    int
	Height   int
	Size     int64

	// Fingerprint is a SHA-256 over the source bytes and the rendition settings
	Fingerprint string
}

// GeneratedVariant is one rendition written to disk
type GeneratedVariant struct {
	SizeTag    string
	Format     codec.Format
	OutputPath string
	Width      int
	Height     int
	Size       int64
}

// VariantFailure records a rendition that could not be produced
type VariantFailure struct {
	SizeTag string
	Format  codec.Format
	Err     error
}

func (f VariantFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.SizeTag, f.Format, f.Err)
}

// ImageResult is the outcome of processing one source image.
// Err is set when the source could not be read or decoded; Variants is then empty.
type ImageResult struct {
	Source   SourceImage
	Variants []GeneratedVariant
	Failures []VariantFailure
	Skipped  bool
	Err      error
}

// OptimizedBytes sums the sizes of the written variants
func (r *ImageResult) OptimizedBytes() int64 {
	var total int64
	for _, v := range r.Variants {
		total += v.Size
	}
	return total
}

// VariantFileName builds the output name for a rendition.
// The name depends only on the source base name, tag and format.
func VariantFileName(baseName, tag string, format codec.Format) string {
	return fmt.Sprintf("%s-%s.%s", baseName, tag, format.Ext())
}

// ApplicableSizes returns the specs whose width does not exceed the source width, in order
func ApplicableSizes(sizes []SizeSpec, sourceWidth int) []SizeSpec {
	out := make([]SizeSpec, 0, len(sizes))
	for _, s := range sizes {
		if s.Width <= sourceWidth {
			out = append(out, s)
		}
	}
	return out
}

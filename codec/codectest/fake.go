// Package codectest provides a codec that needs no native libraries, for tests
// of the code driving a codec.
package codectest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"geminialuminium/codec"
)

// Fake reads real JPEG/PNG headers but "encodes" a short text payload
// describing the request. It records every request it serves.
type Fake struct {
	// FailWidths makes Encode fail for requests with these target widths
	FailWidths map[int]bool

	mu       sync.Mutex
	decodes  int
	requests []codec.Request
}

type fakeImage struct {
	w, h int
}

func (i *fakeImage) Width() int  { return i.w }
func (i *fakeImage) Height() int { return i.h }

func (f *Fake) Name() string {
	return "fake"
}

func (f *Fake) Decode(data []byte) (codec.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrDecode, err)
	}

	f.mu.Lock()
	f.decodes++
	f.mu.Unlock()

	return &fakeImage{w: cfg.Width, h: cfg.Height}, nil
}

func (f *Fake) Encode(img codec.Image, req codec.Request) (*codec.Output, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.FailWidths[req.Width] {
		return nil, fmt.Errorf("%w: forced failure at %dpx", codec.ErrEncode, req.Width)
	}

	w, h := codec.CoverSize(img.Width(), img.Height(), req.Width, req.Height, req.AllowUpscale)
	payload := fmt.Sprintf("%s %dx%d q%d", req.Format, w, h, req.Quality)
	return &codec.Output{Data: []byte(payload), Width: w, Height: h}, nil
}

// Decodes returns how many sources were decoded
func (f *Fake) Decodes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decodes
}

// Requests returns a copy of the encode requests seen so far
func (f *Fake) Requests() []codec.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]codec.Request(nil), f.requests...)
}

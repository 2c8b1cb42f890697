package common

// Image processor for responsive variants
//
// For every source image:
// 1. Decode once (auto-rotated per EXIF orientation)
// 2. For each configured size not wider than the original:
//    cover-fit, encode WebP, write <name>-<tag>.webp
// 3. Always write one JPEG fallback: <name>-fallback.jpg
//
// Each rendition is its own unit: a failing size is recorded and the
// remaining sizes are still attempted. Files are written atomically so a
// failed write never leaves a truncated variant behind.

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"geminialuminium/codec"
)

// GeneratorOptions holds the rendition settings for a run
type GeneratorOptions struct {
	Sizes []SizeSpec

	WebPQuality int
	WebPEffort  int

	FallbackWidth       int
	FallbackQuality     int
	FallbackProgressive bool

	// AllowUpscale lets the fallback grow a source narrower than FallbackWidth
	AllowUpscale bool
}

// StoredRender is what a VariantStore remembers about one rendered source
type StoredRender struct {
	Width    int
	Height   int
	Variants []GeneratedVariant
}

// VariantStore remembers which variants were generated for a source
type VariantStore interface {
	Lookup(ctx context.Context, sourcePath, fingerprint string) (*StoredRender, bool, error)
	Record(ctx context.Context, src SourceImage, variants []GeneratedVariant) error
}

// Generator produces the variants of one source image at a time
type Generator struct {
	codec codec.Codec
	opts  GeneratorOptions
	store VariantStore
}

// NewGenerator creates a generator. store may be nil.
func NewGenerator(c codec.Codec, opts GeneratorOptions, store VariantStore) *Generator {
	return &Generator{codec: c, opts: opts, store: store}
}

// Sizes returns the configured size table
func (g *Generator) Sizes() []SizeSpec {
	return g.opts.Sizes
}

// Process renders every variant of the image at path into outDir
func (g *Generator) Process(ctx context.Context, path, category, outDir string) ImageResult {
	fileName := filepath.Base(path)
	res := ImageResult{
		Source: SourceImage{
			Path:     path,
			Name:     strings.TrimSuffix(fileName, filepath.Ext(fileName)),
			Category: category,
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read source: %w", err)
		return res
	}
	res.Source.Size = int64(len(data))
	res.Source.Fingerprint = g.fingerprint(data)

	if stored, ok := g.lookup(ctx, res.Source, outDir); ok {
		log.Printf("   ⏭  %s unchanged, %d variants up to date", fileName, len(stored.Variants))
		res.Source.Width = stored.Width
		res.Source.Height = stored.Height
		res.Variants = stored.Variants
		res.Skipped = true
		return res
	}

	img, err := g.codec.Decode(data)
	if err != nil {
		res.Err = err
		return res
	}
	res.Source.Width = img.Width()
	res.Source.Height = img.Height()

	log.Printf("📸 Processing: %s", fileName)
	log.Printf("   Original: %dx%d (%dKB)", img.Width(), img.Height(), kb(res.Source.Size))

	for _, s := range ApplicableSizes(g.opts.Sizes, img.Width()) {
		g.render(img, &res, s.Tag, outDir, codec.Request{
			Format:  codec.WebP,
			Width:   s.Width,
			Height:  s.Height,
			Quality: g.opts.WebPQuality,
			Effort:  g.opts.WebPEffort,
		})
	}

	g.render(img, &res, FallbackTag, outDir, codec.Request{
		Format:       codec.JPEG,
		Width:        g.opts.FallbackWidth,
		Quality:      g.opts.FallbackQuality,
		Progressive:  g.opts.FallbackProgressive,
		AllowUpscale: g.opts.AllowUpscale,
	})

	return res
}

// render encodes and writes one rendition, recording success or failure on res
func (g *Generator) render(img codec.Image, res *ImageResult, tag, outDir string, req codec.Request) {
	fail := func(err error) {
		log.Printf("   ✗ %s: %v", tag, err)
		res.Failures = append(res.Failures, VariantFailure{SizeTag: tag, Format: req.Format, Err: err})
	}

	out, err := g.codec.Encode(img, req)
	if err != nil {
		fail(err)
		return
	}

	outPath := filepath.Join(outDir, VariantFileName(res.Source.Name, tag, req.Format))
	if err := writeFile(outPath, out.Data); err != nil {
		fail(fmt.Errorf("failed to write %s: %w", outPath, err))
		return
	}

	v := GeneratedVariant{
		SizeTag:    tag,
		Format:     req.Format,
		OutputPath: outPath,
		Width:      out.Width,
		Height:     out.Height,
		Size:       int64(len(out.Data)),
	}
	res.Variants = append(res.Variants, v)
	log.Printf("   ✓ %s: %dx%d %s (%dKB)", tag, v.Width, v.Height, strings.ToUpper(string(v.Format)), kb(v.Size))
}

// lookup returns the stored render when the source is unchanged and every
// recorded file still exists at the path this run would write it to
func (g *Generator) lookup(ctx context.Context, src SourceImage, outDir string) (*StoredRender, bool) {
	if g.store == nil {
		return nil, false
	}

	stored, ok, err := g.store.Lookup(ctx, src.Path, src.Fingerprint)
	if err != nil {
		log.Printf("⚠️  Manifest lookup failed for %s: %v", src.Path, err)
		return nil, false
	}
	if !ok || stored == nil || len(stored.Variants) == 0 {
		return nil, false
	}

	for _, v := range stored.Variants {
		want := filepath.Join(outDir, VariantFileName(src.Name, v.SizeTag, v.Format))
		if filepath.Clean(v.OutputPath) != want {
			return nil, false
		}
		if _, err := os.Stat(v.OutputPath); err != nil {
			return nil, false
		}
	}
	return stored, true
}

// fingerprint hashes the source bytes together with every setting that changes the output
func (g *Generator) fingerprint(data []byte) string {
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "|%s|webp:%d:%d|fallback:%d:%d:%t|upscale:%t",
		g.codec.Name(),
		g.opts.WebPQuality, g.opts.WebPEffort,
		g.opts.FallbackWidth, g.opts.FallbackQuality, g.opts.FallbackProgressive,
		g.opts.AllowUpscale)
	for _, s := range g.opts.Sizes {
		fmt.Fprintf(h, "|%s:%dx%d", s.Tag, s.Width, s.Height)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeFile replaces path atomically. atomic.WriteFile creates new files
// with 0600, which the web server cannot read, so the mode is widened.
func writeFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, 0644)
}

func kb(n int64) int64 {
	return (n + 512) / 1024
}

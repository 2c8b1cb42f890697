package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"geminialuminium/codec"
	"geminialuminium/common"
	"geminialuminium/config"
)

// Processor turns one source directory into its category output directory
type Processor struct {
	cfg       *config.Config
	generator *common.Generator
	store     common.VariantStore
	markers   []string
	out       io.Writer
}

// NewGenerator builds the variant generator described by the config
func NewGenerator(cfg *config.Config, c codec.Codec, store common.VariantStore) *common.Generator {
	return common.NewGenerator(c, common.GeneratorOptions{
		Sizes:               SizeSpecs(cfg),
		WebPQuality:         cfg.WebP.Quality,
		WebPEffort:          cfg.WebP.Effort,
		FallbackWidth:       cfg.Fallback.Width,
		FallbackQuality:     cfg.Fallback.Quality,
		FallbackProgressive: cfg.Fallback.Progressive,
		AllowUpscale:        cfg.AllowUpscale,
	}, store)
}

// SizeSpecs converts the configured size table
func SizeSpecs(cfg *config.Config) []common.SizeSpec {
	sizes := make([]common.SizeSpec, 0, len(cfg.Sizes))
	for _, s := range cfg.Sizes {
		sizes = append(sizes, common.SizeSpec{Tag: s.Tag, Width: s.Width, Height: s.Height})
	}
	return sizes
}

// NewProcessor creates a category processor. store may be nil.
func NewProcessor(cfg *config.Config, generator *common.Generator, store common.VariantStore) *Processor {
	return &Processor{
		cfg:       cfg,
		generator: generator,
		store:     store,
		markers:   common.ReservedMarkers(generator.Sizes()),
		out:       os.Stdout,
	}
}

// SetOutput redirects the per-category summary
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
}

// CategoryName is the last path segment of the source directory
func CategoryName(sourceDir string) string {
	return filepath.Base(filepath.Clean(sourceDir))
}

// OutputDir returns where the variants of a source directory are written
func (p *Processor) OutputDir(sourceDir string) string {
	return filepath.Join(p.cfg.OutputRoot, CategoryName(sourceDir))
}

// ProcessCategory scans sourceDir and renders every qualifying image.
// A missing or unreadable source directory yields zero stats and no error;
// only a failure to create the output directory or a cancelled context is returned.
func (p *Processor) ProcessCategory(ctx context.Context, sourceDir string) (CategoryStats, []common.ImageResult, error) {
	category := CategoryName(sourceDir)
	stats := CategoryStats{Category: category, SourceDir: sourceDir}

	log.Printf("%s", strings.Repeat("=", 60))
	log.Printf("📁 Processing directory: %s", sourceDir)

	names, err := common.ScanSources(sourceDir, p.markers)
	if err != nil {
		if errors.Is(err, common.ErrMissingDirectory) {
			log.Printf("⚠️  Directory not found: %s", sourceDir)
		} else {
			log.Printf("⚠️  Could not scan %s: %v", sourceDir, err)
		}
		return stats, nil, nil
	}

	outDir := p.OutputDir(sourceDir)
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return stats, nil, fmt.Errorf("failed to create output directory %s: %w", outDir, err)
		}
		log.Printf("✓ Created output directory: %s", outDir)
	}

	stats.Found = len(names)
	log.Printf("Found %d images to process", len(names))

	var results []common.ImageResult
	if p.cfg.Workers > 1 {
		results = p.processParallel(ctx, sourceDir, category, outDir, names)
	} else {
		results = p.processSequential(ctx, sourceDir, category, outDir, names)
	}

	for _, r := range results {
		if r.Err != nil {
			log.Printf("   ✗ Error processing %s: %v", filepath.Base(r.Source.Path), r.Err)
		}
		stats.Add(r)
	}

	p.record(ctx, results)
	p.writeIndex(category, outDir, results)

	stats.Report(p.out)

	if err := ctx.Err(); err != nil {
		return stats, results, err
	}
	return stats, results, nil
}

func (p *Processor) processSequential(ctx context.Context, sourceDir, category, outDir string, names []string) []common.ImageResult {
	results := make([]common.ImageResult, 0, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.generator.Process(ctx, filepath.Join(sourceDir, name), category, outDir))
	}
	return results
}

// processParallel fans images out to a bounded pool. A single collector
// goroutine owns the result slice.
func (p *Processor) processParallel(ctx context.Context, sourceDir, category, outDir string, names []string) []common.ImageResult {
	pool := newWorkerPool(p.cfg.Workers)
	resultCh := make(chan common.ImageResult)
	collected := make(chan []common.ImageResult)

	go func() {
		all := make([]common.ImageResult, 0, len(names))
		for r := range resultCh {
			all = append(all, r)
		}
		collected <- all
	}()

	var wg sync.WaitGroup
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(sourceDir, name)
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			resultCh <- p.generator.Process(ctx, path, category, outDir)
		})
	}

	wg.Wait()
	pool.Stop()
	close(resultCh)
	results := <-collected

	sort.Slice(results, func(i, j int) bool {
		return results[i].Source.Path < results[j].Source.Path
	})
	return results
}

// record stores fully successful renders so the next run can skip them.
// Partial renders are left out and retried next time.
func (p *Processor) record(ctx context.Context, results []common.ImageResult) {
	if p.store == nil {
		return
	}
	for _, r := range results {
		if r.Skipped || r.Err != nil || len(r.Failures) > 0 || len(r.Variants) == 0 {
			continue
		}
		if err := p.store.Record(ctx, r.Source, r.Variants); err != nil {
			log.Printf("⚠️  Failed to record %s in manifest: %v", r.Source.Path, err)
		}
	}
}

func (p *Processor) writeIndex(category, outDir string, results []common.ImageResult) {
	if p.cfg.IndexFile == "" {
		return
	}
	path := filepath.Join(outDir, p.cfg.IndexFile)
	if err := common.WriteIndex(path, common.BuildIndex(category, results)); err != nil {
		log.Printf("⚠️  Failed to write index for %s: %v", category, err)
		return
	}
	log.Printf("✓ Wrote index: %s", path)
}

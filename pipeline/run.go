package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"geminialuminium/config"
)

// Notifier is told about every completed run
type Notifier interface {
	SendRunSummary(summary *RunSummary) error
}

// Runner sequences the categories of a run, then copies the brand assets
type Runner struct {
	cfg       *config.Config
	processor *Processor
	notifier  Notifier
	out       io.Writer
}

// NewRunner creates a run orchestrator
func NewRunner(cfg *config.Config, processor *Processor) *Runner {
	return &Runner{
		cfg:       cfg,
		processor: processor,
		out:       os.Stdout,
	}
}

// SetNotifier sets where run summaries are pushed
func (r *Runner) SetNotifier(n Notifier) {
	r.notifier = n
}

// SetOutput redirects the summary report
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
	r.processor.SetOutput(w)
}

// Run processes every configured source directory in order, one at a time.
// The returned summary covers whatever completed, also when err is non-nil.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	log.Printf("🚀 Image Optimization Tool")
	log.Printf("Converting to WebP and creating responsive sizes...")

	summary := &RunSummary{}

	if err := os.MkdirAll(r.cfg.OutputRoot, 0755); err != nil {
		return summary, fmt.Errorf("failed to create output root: %w", err)
	}

	for _, dir := range r.cfg.SourceDirs {
		stats, _, err := r.processor.ProcessCategory(ctx, dir)
		summary.Add(stats)
		if err != nil {
			return summary, fmt.Errorf("category %s: %w", stats.Category, err)
		}
	}

	copied, err := CopyAssets(r.cfg.Assets.Files, filepath.Join(r.cfg.OutputRoot, r.cfg.Assets.Dir))
	summary.AssetsCopied = copied
	summary.Report(r.out)
	if err != nil {
		return summary, err
	}

	r.nextSteps()

	if r.notifier != nil {
		if err := r.notifier.SendRunSummary(summary); err != nil {
			log.Printf("⚠️  Failed to send run notification: %v", err)
		}
	}

	return summary, nil
}

// nextSteps prints a <picture> snippet matching the configured layout
func (r *Runner) nextSteps() {
	if len(r.cfg.SourceDirs) == 0 {
		return
	}

	base := "/" + path.Join(filepath.ToSlash(r.cfg.OutputRoot), CategoryName(r.cfg.SourceDirs[0]))
	base = strings.TrimPrefix(base, "/public")

	var srcset []string
	for _, s := range r.cfg.Sizes {
		srcset = append(srcset, fmt.Sprintf("%s/photo-%s.webp %dw", base, s.Tag, s.Width))
	}

	fmt.Fprintln(r.out, "\n📝 Next steps:")
	fmt.Fprintln(r.out, "1. Review the generated variants under "+r.cfg.OutputRoot)
	fmt.Fprintln(r.out, "2. Reference them with <picture> and a JPEG fallback:")
	fmt.Fprintf(r.out, `
<picture>
  <source type="image/webp" srcset="%s">
  <img src="%s/photo-fallback.jpg" alt="..." loading="lazy">
</picture>
`, strings.Join(srcset, ", "), base)
}

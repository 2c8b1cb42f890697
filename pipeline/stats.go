package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"geminialuminium/common"
)

// CategoryStats accumulates the outcome of one source directory
type CategoryStats struct {
	Category  string
	SourceDir string

	Found     int
	Processed int
	Partial   int // processed, but at least one variant failed
	Skipped   int // unchanged since the last run
	Failed    int

	OriginalBytes  int64
	OptimizedBytes int64
}

// Add folds one image result into the stats. Byte totals only count images
// that produced variants in this run.
func (s *CategoryStats) Add(r common.ImageResult) {
	switch {
	case r.Skipped:
		s.Skipped++
	case r.Err != nil || len(r.Variants) == 0:
		s.Failed++
	default:
		s.Processed++
		if len(r.Failures) > 0 {
			s.Partial++
		}
		s.OriginalBytes += r.Source.Size
		s.OptimizedBytes += r.OptimizedBytes()
	}
}

// RunSummary aggregates every category of a run
type RunSummary struct {
	Categories []CategoryStats

	TotalProcessed      int
	TotalSkipped        int
	TotalFailed         int
	TotalOriginalBytes  int64
	TotalOptimizedBytes int64

	AssetsCopied int
}

// Add folds a category into the summary
func (s *RunSummary) Add(c CategoryStats) {
	s.Categories = append(s.Categories, c)
	s.TotalProcessed += c.Processed
	s.TotalSkipped += c.Skipped
	s.TotalFailed += c.Failed
	s.TotalOriginalBytes += c.OriginalBytes
	s.TotalOptimizedBytes += c.OptimizedBytes
}

// Savings is the size reduction in percent, 0 when nothing was processed
func (s *RunSummary) Savings() float64 {
	return savings(s.TotalOriginalBytes, s.TotalOptimizedBytes)
}

// Report writes the end-of-run summary
func (s *RunSummary) Report(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintln(w, "✅ Image optimization complete!")
	fmt.Fprintf(w, "   Images processed: %d", s.TotalProcessed)
	if s.TotalSkipped > 0 || s.TotalFailed > 0 {
		fmt.Fprintf(w, " (%d unchanged, %d failed)", s.TotalSkipped, s.TotalFailed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   Original total size: %s\n", humanize.Bytes(uint64(s.TotalOriginalBytes)))
	fmt.Fprintf(w, "   Optimized total size: %s\n", humanize.Bytes(uint64(s.TotalOptimizedBytes)))
	fmt.Fprintf(w, "   Space saved: %.1f%% (%s)\n", s.Savings(), signedBytes(s.TotalOriginalBytes-s.TotalOptimizedBytes))
	fmt.Fprintf(w, "   Assets copied: %d\n", s.AssetsCopied)
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// Report writes the per-directory summary block
func (s *CategoryStats) Report(w io.Writer) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("─", 60))
	fmt.Fprintf(w, "📊 Summary for %s:\n", s.SourceDir)
	fmt.Fprintf(w, "   Images processed: %d of %d", s.Processed, s.Found)
	if s.Partial > 0 {
		fmt.Fprintf(w, " (%d partial)", s.Partial)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   Original total size: %s\n", humanize.Bytes(uint64(s.OriginalBytes)))
	fmt.Fprintf(w, "   Optimized total size: %s\n", humanize.Bytes(uint64(s.OptimizedBytes)))
	fmt.Fprintf(w, "   Space saved: %.1f%% (%s)\n", savings(s.OriginalBytes, s.OptimizedBytes), signedBytes(s.OriginalBytes-s.OptimizedBytes))
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

func savings(original, optimized int64) float64 {
	if original == 0 {
		return 0
	}
	return float64(original-optimized) / float64(original) * 100
}

func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return humanize.Bytes(uint64(n))
}

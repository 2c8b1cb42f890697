package manifest

import (
	"context"
	"path/filepath"
	"testing"

	"geminialuminium/codec"
	"geminialuminium/common"
)

// setupStore opens a manifest in a temp directory and closes it on cleanup
func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "manifest.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSource() common.SourceImage {
	return common.SourceImage{
		Path:        "public/images/projects/patio.jpg",
		Name:        "patio",
		Category:    "projects",
		Width:       1600,
		Height:      1200,
		Size:        250000,
		Fingerprint: "abc123",
	}
}

func testVariants() []common.GeneratedVariant {
	return []common.GeneratedVariant{
		{SizeTag: "small", Format: codec.WebP, OutputPath: "out/projects/patio-small.webp", Width: 400, Height: 300, Size: 12000},
		{SizeTag: "xl", Format: codec.WebP, OutputPath: "out/projects/patio-xl.webp", Width: 1200, Height: 900, Size: 64000},
		{SizeTag: common.FallbackTag, Format: codec.JPEG, OutputPath: "out/projects/patio-fallback.jpg", Width: 800, Height: 600, Size: 48000},
	}
}

func TestRecordAndLookup(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	src := testSource()

	if _, ok, err := s.Lookup(ctx, src.Path, src.Fingerprint); err != nil || ok {
		t.Fatalf("Expected miss on empty store, got ok=%v err=%v", ok, err)
	}

	if err := s.Record(ctx, src, testVariants()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	stored, ok, err := s.Lookup(ctx, src.Path, src.Fingerprint)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected hit after Record")
	}
	if stored.Width != 1600 || stored.Height != 1200 {
		t.Errorf("Expected source dimensions 1600x1200, got %dx%d", stored.Width, stored.Height)
	}
	variants := stored.Variants
	if len(variants) != 3 {
		t.Fatalf("Expected 3 variants, got %d", len(variants))
	}
	for i, want := range testVariants() {
		if variants[i] != want {
			t.Errorf("Expected %+v, got %+v", want, variants[i])
		}
	}

	if _, ok, _ := s.Lookup(ctx, src.Path, "changed"); ok {
		t.Error("Expected miss for a different fingerprint")
	}
}

func TestRecordReplacesVariants(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	src := testSource()

	if err := s.Record(ctx, src, testVariants()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	src.Fingerprint = "def456"
	fallbackOnly := testVariants()[2:]
	if err := s.Record(ctx, src, fallbackOnly); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	stored, ok, err := s.Lookup(ctx, src.Path, "def456")
	if err != nil || !ok {
		t.Fatalf("Expected hit, got ok=%v err=%v", ok, err)
	}
	if len(stored.Variants) != 1 || stored.Variants[0].SizeTag != common.FallbackTag {
		t.Errorf("Expected only the fallback, got %+v", stored.Variants)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 source, got %d", n)
	}
}

func TestForget(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	src := testSource()

	if err := s.Record(ctx, src, testVariants()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Forget(ctx, src.Path); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}

	if _, ok, _ := s.Lookup(ctx, src.Path, src.Fingerprint); ok {
		t.Error("Expected miss after Forget")
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Expected 0 sources, got %d", n)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.db")
	ctx := context.Background()
	src := testSource()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Record(ctx, src, testVariants()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Lookup(ctx, src.Path, src.Fingerprint); err != nil || !ok {
		t.Errorf("Expected hit after reopen, got ok=%v err=%v", ok, err)
	}
}

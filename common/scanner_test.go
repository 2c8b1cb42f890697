package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestIsSourceCandidate(t *testing.T) {
	markers := ReservedMarkers(nil)

	tests := []struct {
		name     string
		expected bool
	}{
		{"patio.jpg", true},
		{"patio.JPG", true},
		{"storefront.jpeg", true},
		{"railing.PNG", true},
		{"drawing.svg", false},
		{"notes.txt", false},
		{"patio", false},
		{"patio-small.webp", false},
		{"patio-small.jpg", false},
		{"patio-medium.jpg", false},
		{"patio-large.png", false},
		{"patio-xl.jpg", false},
		{"patio-fallback.jpg", false},
		{"logo-optimized.png", false},
		{"optimized.jpg", false},
		{"smallwindow.jpg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSourceCandidate(tt.name, markers); got != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.name, got)
			}
		})
	}
}

func TestReservedMarkersIncludeConfiguredTags(t *testing.T) {
	markers := ReservedMarkers([]SizeSpec{{Tag: "small", Width: 400}, {Tag: "hero", Width: 1600}})

	if IsSourceCandidate("banner-hero.jpg", markers) {
		t.Error("Expected banner-hero.jpg to be reserved")
	}

	count := 0
	for _, m := range markers {
		if m == "-small" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected -small once, got %d", count)
	}
}

func TestScanSources(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		"b-window.jpg",
		"a-door.png",
		"c-gate.JPEG",
		"a-door-small.webp",
		"a-door-fallback.jpg",
		"logo-optimized.png",
		"readme.md",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, f), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "nested.jpg"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	names, err := ScanSources(tmpDir, ReservedMarkers(nil))
	if err != nil {
		t.Fatalf("ScanSources failed: %v", err)
	}

	expected := []string{"a-door.png", "b-window.jpg", "c-gate.JPEG"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %v, got %v", expected, names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Expected %s at %d, got %s", expected[i], i, names[i])
		}
	}
}

func TestScanSourcesMissingDirectory(t *testing.T) {
	names, err := ScanSources(filepath.Join(t.TempDir(), "nope"), ReservedMarkers(nil))
	if !errors.Is(err, ErrMissingDirectory) {
		t.Errorf("Expected ErrMissingDirectory, got %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected no names, got %v", names)
	}
}

package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMissingDirectory is returned when a source directory does not exist
var ErrMissingDirectory = errors.New("directory not found")

var sourceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// defaultMarkers are never valid in a source name, whatever the size table says
var defaultMarkers = []string{"-small", "-medium", "-large", "-xl", "-fallback", "optimized"}

// ReservedMarkers returns the substrings that mark a file as generated output.
// Source images must not contain any of them or they are skipped.
func ReservedMarkers(sizes []SizeSpec) []string {
	markers := append([]string(nil), defaultMarkers...)
	seen := make(map[string]bool, len(markers))
	for _, m := range markers {
		seen[m] = true
	}
	for _, s := range sizes {
		m := "-" + s.Tag
		if !seen[m] {
			seen[m] = true
			markers = append(markers, m)
		}
	}
	return markers
}

// IsSourceCandidate reports whether a file name is an original to process
func IsSourceCandidate(name string, markers []string) bool {
	if !sourceExtensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	for _, m := range markers {
		if strings.Contains(name, m) {
			return false
		}
	}
	return true
}

// ScanSources lists dir and returns the qualifying file names in lexical order
func ScanSources(dir string, markers []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsSourceCandidate(e.Name(), markers) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)
	return names, nil
}

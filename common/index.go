package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// CategoryIndex lists the generated variants of one category so the page
// templates can build <picture> sources without globbing the output tree.
type CategoryIndex struct {
	Category string       `yaml:"category"`
	Images   []IndexImage `yaml:"images"`
}

// IndexImage is one source image and its renditions
type IndexImage struct {
	Name     string         `yaml:"name"`
	Width    int            `yaml:"width,omitempty"`
	Height   int            `yaml:"height,omitempty"`
	Fallback string         `yaml:"fallback,omitempty"`
	Variants []IndexVariant `yaml:"variants"`
}

// IndexVariant is one rendition; File is relative to the category directory
type IndexVariant struct {
	Size   string `yaml:"size"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// BuildIndex collects the results that produced at least one variant
func BuildIndex(category string, results []ImageResult) *CategoryIndex {
	idx := &CategoryIndex{Category: category, Images: []IndexImage{}}

	for _, r := range results {
		if len(r.Variants) == 0 {
			continue
		}

		img := IndexImage{
			Name:     r.Source.Name,
			Width:    r.Source.Width,
			Height:   r.Source.Height,
			Variants: make([]IndexVariant, 0, len(r.Variants)),
		}
		for _, v := range r.Variants {
			file := filepath.Base(v.OutputPath)
			if v.SizeTag == FallbackTag {
				img.Fallback = file
				continue
			}
			img.Variants = append(img.Variants, IndexVariant{
				Size:   v.SizeTag,
				Format: string(v.Format),
				File:   file,
				Width:  v.Width,
				Height: v.Height,
			})
		}
		idx.Images = append(idx.Images, img)
	}

	sort.Slice(idx.Images, func(i, j int) bool {
		return idx.Images[i].Name < idx.Images[j].Name
	})
	return idx
}

// WriteIndex marshals the index to YAML and writes it atomically
func WriteIndex(path string, idx *CategoryIndex) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// ReadIndex loads an index written by WriteIndex
func ReadIndex(path string) (*CategoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	var idx CategoryIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return &idx, nil
}

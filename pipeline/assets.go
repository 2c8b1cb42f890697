package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"geminialuminium/config"
)

// ErrAssetCopy wraps a failure to copy an asset that exists
var ErrAssetCopy = errors.New("asset copy failed")

// CopyAssets copies the brand assets verbatim into destDir. Missing sources
// are optional and skipped; a failed copy is logged and the rest continue.
// Only a failure to create destDir is returned.
func CopyAssets(assets []config.AssetConfig, destDir string) (int, error) {
	log.Printf("📦 Copying brand assets to %s", destDir)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create assets directory: %w", err)
	}

	copied := 0
	for _, a := range assets {
		info, err := os.Stat(a.Src)
		if err != nil || info.IsDir() {
			log.Printf("ℹ️  Not found: %s", a.Src)
			continue
		}

		dst := filepath.Join(destDir, a.Dst)
		if err := copyFile(a.Src, dst, 0644); err != nil {
			log.Printf("⚠️  %v", fmt.Errorf("%w: %s: %v", ErrAssetCopy, a.Src, err))
			continue
		}
		log.Printf("✓ Copied %s → %s", a.Src, dst)
		copied++
	}

	return copied, nil
}

// copyFile copies a single file
func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}

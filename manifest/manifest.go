// Package manifest persists which variants were generated from which source
// content, so unchanged sources can be skipped on the next run.
//
// A record is keyed by the source path and holds the fingerprint of the bytes
// and settings it was rendered with. A lookup only hits when the fingerprint
// still matches.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"geminialuminium/codec"
	"geminialuminium/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS sources (
	path        TEXT PRIMARY KEY,
	category    TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS variants (
	source_path TEXT NOT NULL,
	size_tag    TEXT NOT NULL,
	format      TEXT NOT NULL,
	output_path TEXT NOT NULL,
	width       INTEGER NOT NULL,
	height      INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	PRIMARY KEY (source_path, size_tag)
);
`

// Store is a SQLite-backed common.VariantStore
type Store struct {
	db *sql.DB
}

// SetupSchema creates the manifest tables if they do not exist
func SetupSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create manifest schema: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the manifest database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	// SQLite allows a single writer; serialize instead of retrying on SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the render recorded for sourcePath if it was produced
// from content with the same fingerprint
func (s *Store) Lookup(ctx context.Context, sourcePath, fingerprint string) (*common.StoredRender, bool, error) {
	var stored string
	render := &common.StoredRender{}
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, width, height FROM sources WHERE path = ?`, sourcePath).
		Scan(&stored, &render.Width, &render.Height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query source: %w", err)
	}
	if stored != fingerprint {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT size_tag, format, output_path, width, height, size
		   FROM variants WHERE source_path = ? ORDER BY rowid`, sourcePath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v common.GeneratedVariant
		var format string
		if err := rows.Scan(&v.SizeTag, &format, &v.OutputPath, &v.Width, &v.Height, &v.Size); err != nil {
			return nil, false, fmt.Errorf("failed to scan variant: %w", err)
		}
		v.Format = codec.Format(format)
		render.Variants = append(render.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	return render, true, nil
}

// Record replaces whatever was stored for the source with the given variants
func (s *Store) Record(ctx context.Context, src common.SourceImage, variants []common.GeneratedVariant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (path, category, fingerprint, width, height, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			category = excluded.category,
			fingerprint = excluded.fingerprint,
			width = excluded.width,
			height = excluded.height,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		src.Path, src.Category, src.Fingerprint, src.Width, src.Height, src.Size, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE source_path = ?`, src.Path); err != nil {
		return fmt.Errorf("failed to clear variants: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO variants (source_path, size_tag, format, output_path, width, height, size)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare variant insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range variants {
		if _, err := stmt.ExecContext(ctx, src.Path, v.SizeTag, string(v.Format), v.OutputPath, v.Width, v.Height, v.Size); err != nil {
			return fmt.Errorf("failed to insert variant %s: %w", v.SizeTag, err)
		}
	}

	return tx.Commit()
}

// Forget drops the record for a source, e.g. after the source file was deleted
func (s *Store) Forget(ctx context.Context, sourcePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE source_path = ?`, sourcePath); err != nil {
		return fmt.Errorf("failed to delete variants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE path = ?`, sourcePath); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return tx.Commit()
}

// Count returns the number of sources on record
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return n, nil
}

var _ common.VariantStore = (*Store)(nil)

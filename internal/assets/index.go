package assets

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record describes one asset written to the local cache.
type Record struct {
	AssetID     string
	LocalPath   string
	SizeBytes   int64
	ContentType string
	FetchedAt   time.Time
}

// Index persists asset records in SQLite.
type Index struct {
	db *sql.DB
}

// NewIndex creates an asset index backed by db.
func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

// Put inserts or replaces the record for r.AssetID.
func (x *Index) Put(r *Record) error {
	if r.FetchedAt.IsZero() {
		r.FetchedAt = time.Now()
	}
	_, err := x.db.Exec(`
		INSERT INTO assets (asset_id, local_path, size_bytes, content_type, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET
			local_path = excluded.local_path,
			size_bytes = excluded.size_bytes,
			content_type = excluded.content_type,
			fetched_at = excluded.fetched_at`,
		r.AssetID, r.LocalPath, r.SizeBytes, r.ContentType, r.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("put asset %s: %w", r.AssetID, err)
	}
	return nil
}

// Get retrieves the record for id.
// Returns ErrNotFound if the asset is not indexed.
func (x *Index) Get(id string) (*Record, error) {
	r := &Record{}
	err := x.db.QueryRow(`
		SELECT asset_id, local_path, size_bytes, content_type, fetched_at
		FROM assets WHERE asset_id = ?`, id,
	).Scan(&r.AssetID, &r.LocalPath, &r.SizeBytes, &r.ContentType, &r.FetchedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return r, nil
}

// Delete removes the record for id.
// This operation is idempotent - no error is returned if the asset is not indexed.
func (x *Index) Delete(id string) error {
	if _, err := x.db.Exec(`DELETE FROM assets WHERE asset_id = ?`, id); err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	return nil
}

// List returns a page of records, most recently fetched first, and the total count.
func (x *Index) List(limit, offset int) ([]*Record, int, error) {
	var total int
	if err := x.db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}

	rows, err := x.db.Query(`
		SELECT asset_id, local_path, size_bytes, content_type, fetched_at
		FROM assets
		ORDER BY fetched_at DESC, asset_id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Record
	for rows.Next() {
		r := &Record{}
		if err := rows.Scan(&r.AssetID, &r.LocalPath, &r.SizeBytes, &r.ContentType, &r.FetchedAt); err != nil {
			return nil, 0, fmt.Errorf("scan asset: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate assets: %w", err)
	}
	return results, total, nil
}

// Package assets fetches remote assets into a local cache directory and
// keeps a SQLite index of what has been written.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vmunix/prefetch/internal/metrics"
)

// DefaultMaxSize caps a single transfer when no limit is configured.
const DefaultMaxSize int64 = 64 << 20

//go:generate mockgen -source=assets.go -destination=mocks/mock_assets.go -package=mocks

// Store is the asset storage collaborator used by the scheduler.
type Store interface {
	// Exists reports whether id is already present locally.
	Exists(ctx context.Context, id string) (bool, error)
	// Fetch downloads id and returns where it was written.
	Fetch(ctx context.Context, id string) (string, error)
}

// Config configures a LocalStore.
type Config struct {
	Dir     string
	MaxSize int64
}

// LocalStore downloads assets over HTTP into Dir.
type LocalStore struct {
	dir        string
	maxSize    int64
	index      *Index
	httpClient *http.Client
	log        *slog.Logger
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a store writing into cfg.Dir, creating it if needed.
func NewLocalStore(cfg Config, index *Index, log *slog.Logger) (*LocalStore, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("asset directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset directory: %w", err)
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &LocalStore{
		dir:        cfg.Dir,
		maxSize:    maxSize,
		index:      index,
		httpClient: &http.Client{},
		log:        log.With("component", "assets"),
	}, nil
}

// PathFor returns the cache path an asset id maps to. Names are SHA-1 UUIDs
// of the id, so the same id always lands in the same file.
func (s *LocalStore) PathFor(id string) string {
	name := uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
	if u, err := url.Parse(id); err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if len(ext) > 1 && len(ext) <= 6 {
			name += ext
		}
	}
	return filepath.Join(s.dir, name)
}

// Exists reports whether id is indexed and its file is still on disk.
// Index rows whose file has disappeared are dropped.
func (s *LocalStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	rec, err := s.index.Get(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(rec.LocalPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("stat %s: %w", rec.LocalPath, err)
		}
		s.log.Warn("indexed asset missing on disk", "asset_id", id, "path", rec.LocalPath)
		if err := s.index.Delete(id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// Fetch downloads id into the cache directory and indexes it.
func (s *LocalStore) Fetch(ctx context.Context, id string) (string, error) {
	u, err := url.Parse(id)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("fetch %q: %w", id, ErrInvalidID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("fetch %s: %w", id, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", id, resp.StatusCode)
	}
	if resp.ContentLength > s.maxSize {
		return "", fmt.Errorf("fetch %s: %s: %w", id, humanize.Bytes(uint64(resp.ContentLength)), ErrTooLarge)
	}

	dest := s.PathFor(id)
	size, err := s.writeFile(dest, resp.Body)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", id, err)
	}

	rec := &Record{
		AssetID:     id,
		LocalPath:   dest,
		SizeBytes:   size,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
	}
	if err := s.index.Put(rec); err != nil {
		_ = os.Remove(dest)
		return "", err
	}

	metrics.DownloadBytes.Add(float64(size))
	s.log.Debug("asset stored", "asset_id", id, "path", dest, "size", humanize.Bytes(uint64(size)))
	return dest, nil
}

// writeFile streams r into a temp file next to dest and renames it into
// place, so a partial transfer never appears under the final name.
func (s *LocalStore) writeFile(dest string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(s.dir, ".fetch-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	// read one byte past the cap to detect oversized bodies
	n, err := io.Copy(tmp, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("write asset: %w", err)
	}
	if n > s.maxSize {
		cleanup()
		return 0, ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("rename asset: %w", err)
	}
	return n, nil
}

// Index exposes the store's index for listing.
func (s *LocalStore) Index() *Index {
	return s.index
}

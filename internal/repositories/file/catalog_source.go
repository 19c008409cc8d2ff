package file

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

const defaultPollInterval = 30 * time.Second

// CatalogSource serves the catalog from a JSON export on disk and reloads it
// when the file's modification time changes.
type CatalogSource struct {
	path     string
	interval time.Duration
	skip     func(kind, id string, err error)
	onError  func(err error)
}

var _ repositories.CatalogSource = (*CatalogSource)(nil)

// NewCatalogSource watches path. interval <= 0 uses the default.
func NewCatalogSource(path string, interval time.Duration, skip func(kind, id string, err error), onError func(error)) (*CatalogSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file catalog source: path is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if skip == nil {
		skip = func(string, string, error) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &CatalogSource{path: path, interval: interval, skip: skip, onError: onError}, nil
}

func (s *CatalogSource) WatchCategories(ctx context.Context, fn func([]domain.Category)) error {
	return s.watch(ctx, func(snapshot repositories.SnapshotFile) {
		fn(repositories.ResolveCategories(snapshot.Categorias, func(id string, err error) { s.skip("category", id, err) }))
	})
}

func (s *CatalogSource) WatchProducts(ctx context.Context, fn func([]domain.Product)) error {
	return s.watch(ctx, func(snapshot repositories.SnapshotFile) {
		fn(repositories.ResolveProducts(snapshot.Produtos, func(id string, err error) { s.skip("product", id, err) }))
	})
}

func (s *CatalogSource) watch(ctx context.Context, emit func(repositories.SnapshotFile)) error {
	modTime, err := s.load(emit)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(s.path)
		if err != nil {
			s.onError(err)
			continue
		}
		if info.ModTime().Equal(modTime) {
			continue
		}
		next, err := s.load(emit)
		if err != nil {
			s.onError(err)
			continue
		}
		modTime = next
	}
}

func (s *CatalogSource) load(emit func(repositories.SnapshotFile)) (time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}, err
	}
	snapshot, err := repositories.LoadSnapshotFile(s.path)
	if err != nil {
		return time.Time{}, err
	}
	emit(snapshot)
	return info.ModTime(), nil
}

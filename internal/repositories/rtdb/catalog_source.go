package rtdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

const defaultPollInterval = 30 * time.Second

// Node is the subset of a Realtime Database reference used for polling.
// *db.Ref satisfies it.
type Node interface {
	GetWithETag(ctx context.Context, v interface{}) (string, error)
	GetIfChanged(ctx context.Context, etag string, v interface{}) (bool, string, error)
}

// CatalogSource polls the categorias and produtos nodes, pushing a snapshot
// whenever the node's ETag changes.
type CatalogSource struct {
	categories Node
	products   Node
	interval   time.Duration
	skip       func(kind, id string, err error)
	onError    func(kind string, err error)
}

var _ repositories.CatalogSource = (*CatalogSource)(nil)

// Option customises the CatalogSource.
type Option func(*CatalogSource)

// WithPollInterval sets how often the nodes are checked for changes.
func WithPollInterval(d time.Duration) Option {
	return func(s *CatalogSource) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSkipHandler receives records rejected during validation.
func WithSkipHandler(fn func(kind, id string, err error)) Option {
	return func(s *CatalogSource) {
		if fn != nil {
			s.skip = fn
		}
	}
}

// WithPollErrorHandler receives transient polling failures. Polling continues afterwards.
func WithPollErrorHandler(fn func(kind string, err error)) Option {
	return func(s *CatalogSource) {
		if fn != nil {
			s.onError = fn
		}
	}
}

// NewCatalogSource builds a polling source over two database nodes.
func NewCatalogSource(categories, products Node, opts ...Option) (*CatalogSource, error) {
	if categories == nil || products == nil {
		return nil, errors.New("rtdb catalog source: both nodes are required")
	}
	s := &CatalogSource{
		categories: categories,
		products:   products,
		interval:   defaultPollInterval,
		skip:       func(string, string, error) {},
		onError:    func(string, error) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *CatalogSource) WatchCategories(ctx context.Context, fn func([]domain.Category)) error {
	return poll(ctx, s, "category", s.categories, func(records map[string]repositories.CategoryRecord) {
		fn(repositories.ResolveCategories(records, func(id string, err error) { s.skip("category", id, err) }))
	})
}

func (s *CatalogSource) WatchProducts(ctx context.Context, fn func([]domain.Product)) error {
	return poll(ctx, s, "product", s.products, func(records map[string]repositories.ProductRecord) {
		fn(repositories.ResolveProducts(records, func(id string, err error) { s.skip("product", id, err) }))
	})
}

// poll fails only when the initial read fails; later errors are reported and retried.
func poll[R any](ctx context.Context, s *CatalogSource, kind string, node Node, emit func(map[string]R)) error {
	var records map[string]R
	etag, err := node.GetWithETag(ctx, &records)
	if err != nil {
		return fmt.Errorf("rtdb: read %s node: %w", kind, err)
	}
	emit(records)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		var next map[string]R
		changed, newTag, err := node.GetIfChanged(ctx, etag, &next)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.onError(kind, err)
			continue
		}
		if !changed {
			continue
		}
		etag = newTag
		emit(next)
	}
}

package firestore

import (
	"context"
	"errors"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	pfirestore "github.com/ViviPassos/SiteNikoTrudel/internal/platform/firestore"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
)

// CatalogSource streams the categorias and produtos collections through snapshot listeners.
type CatalogSource struct {
	categories *pfirestore.BaseRepository[repositories.CategoryRecord]
	products   *pfirestore.BaseRepository[repositories.ProductRecord]
	skip       func(kind, id string, err error)
}

var _ repositories.CatalogSource = (*CatalogSource)(nil)

// NewCatalogSource binds the listeners to the given collections. skip receives
// documents rejected while decoding or validating and may be nil.
func NewCatalogSource(provider *pfirestore.Provider, categories, products string, skip func(kind, id string, err error)) (*CatalogSource, error) {
	if provider == nil {
		return nil, errors.New("catalog source requires firestore provider")
	}
	if skip == nil {
		skip = func(string, string, error) {}
	}
	return &CatalogSource{
		categories: pfirestore.NewBaseRepository[repositories.CategoryRecord](provider, categories, nil),
		products:   pfirestore.NewBaseRepository[repositories.ProductRecord](provider, products, nil),
		skip:       skip,
	}, nil
}

func (s *CatalogSource) WatchCategories(ctx context.Context, fn func([]domain.Category)) error {
	return s.categories.Watch(ctx, nil, func(docs []pfirestore.Document[repositories.CategoryRecord]) {
		records := make(map[string]repositories.CategoryRecord, len(docs))
		for _, doc := range docs {
			records[doc.ID] = doc.Data
		}
		fn(repositories.ResolveCategories(records, s.skipper("category")))
	}, s.skipper("category"))
}

func (s *CatalogSource) WatchProducts(ctx context.Context, fn func([]domain.Product)) error {
	return s.products.Watch(ctx, nil, func(docs []pfirestore.Document[repositories.ProductRecord]) {
		records := make(map[string]repositories.ProductRecord, len(docs))
		for _, doc := range docs {
			records[doc.ID] = doc.Data
		}
		fn(repositories.ResolveProducts(records, s.skipper("product")))
	}, s.skipper("product"))
}

func (s *CatalogSource) skipper(kind string) func(string, error) {
	return func(id string, err error) { s.skip(kind, id, err) }
}

package services

import (
	"context"
	"sync"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories/memory"
)

type stubCatalog struct {
	snapshot CatalogSnapshot
}

func newStubCatalog(categories []domain.Category, products ...domain.Product) *stubCatalog {
	return &stubCatalog{snapshot: CatalogSnapshot{
		Categories:       categories,
		Products:         products,
		CategoriesLoaded: true,
		ProductsLoaded:   true,
		Version:          1,
	}}
}

func (s *stubCatalog) Snapshot() CatalogSnapshot { return s.snapshot }

func (s *stubCatalog) Product(id string) (domain.Product, bool) {
	for _, product := range s.snapshot.Products {
		if product.ID == id {
			return product, true
		}
	}
	return domain.Product{}, false
}

func (s *stubCatalog) remove(id string) {
	kept := s.snapshot.Products[:0:0]
	for _, product := range s.snapshot.Products {
		if product.ID != id {
			kept = append(kept, product)
		}
	}
	s.snapshot.Products = kept
}

func intPtr(v int) *int { return &v }

func burgerProduct() domain.Product {
	return domain.Product{
		ID:       "x-burger",
		Name:     "X-Burger",
		Price:    2000,
		Active:   true,
		Category: "lanches",
		Kind:     domain.ProductKindCustomizable,
		Groups: []domain.OptionGroup{
			{
				Key:      "ponto",
				Title:    "Ponto da carne",
				Mode:     domain.SelectionSingle,
				Required: true,
				Options: []domain.Option{
					{Key: "bem", Name: "Bem passado"},
					{Key: "mal", Name: "Mal passado"},
				},
			},
			{
				Key:   "adicionais",
				Title: "Adicionais",
				Mode:  domain.SelectionMulti,
				Max:   intPtr(2),
				Options: []domain.Option{
					{Key: "bacon", Name: "Bacon", Price: 200},
					{Key: "cheddar", Name: "Cheddar", Price: 350},
					{Key: "ovo", Name: "Ovo", Price: 150},
				},
			},
		},
	}
}

func sodaProduct() domain.Product {
	return domain.Product{ID: "refri", Name: "Refrigerante", Price: 600, Active: true, Category: "bebidas", Kind: domain.ProductKindSimple}
}

type recordingLogger struct {
	mu     sync.Mutex
	events []string
	fields []map[string]any
}

func (l *recordingLogger) log(_ context.Context, event string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	l.fields = append(l.fields, fields)
}

func (l *recordingLogger) has(event string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == event {
			return true
		}
	}
	return false
}

func newTestCartService(catalog *stubCatalog, observers ...ItemCountObserver) (CartService, *memory.CartRepository) {
	repo := memory.NewCartRepository()
	svc, err := NewCartService(CartServiceDeps{Repository: repo, Catalog: catalog, Observers: observers})
	if err != nil {
		panic(err)
	}
	return svc, repo
}

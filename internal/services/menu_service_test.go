package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/textutil"
)

type stubAssets struct {
	mu    sync.Mutex
	calls map[string]int
	urls  map[string]string
}

func (s *stubAssets) Resolve(_ context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[path]++
	if url, ok := s.urls[path]; ok {
		return url, nil
	}
	return "", fmt.Errorf("resolve %s: %w", path, ErrAssetNotFound)
}

func menuFixture() *stubCatalog {
	burger := burgerProduct()
	burger.ImagePath = "produtos/burger.jpg"
	burger.Featured = true
	soda := sodaProduct()
	soda.ImagePath = "produtos/missing.jpg"
	juice := domain.Product{ID: "suco", Name: "Suco", Price: 800, Active: true, Category: "bebidas", ImagePath: "produtos/burger.jpg"}
	return newStubCatalog([]domain.Category{
		{ID: "lanches", Name: "Lanches", Active: true, SortOrder: 1},
		{ID: "bebidas", Name: "Bebidas", Active: true, SortOrder: 2},
		{ID: "acai", Name: "", Active: true, SortOrder: 3},
	}, burger, soda, juice)
}

func TestMenuServiceRenderAllResolvesImagesWithPlaceholder(t *testing.T) {
	assets := &stubAssets{urls: map[string]string{"produtos/burger.jpg": "https://cdn.example/burger.jpg"}}
	logs := &recordingLogger{}
	svc, err := NewMenuService(MenuServiceDeps{
		Catalog:        menuFixture(),
		Assets:         assets,
		PlaceholderURL: "/img/placeholder.jpg",
		Logger:         logs.log,
	})
	if err != nil {
		t.Fatalf("NewMenuService: %v", err)
	}

	page, err := svc.Render(context.Background(), "")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if page.Empty || len(page.Sections) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	burger := page.Sections[0].Products[0]
	if burger.ImageURL != "https://cdn.example/burger.jpg" || !burger.Featured || !burger.Customizable || burger.ActionLabel != "Personalizar" {
		t.Fatalf("unexpected burger card %+v", burger)
	}
	if burger.PriceLabel != textutil.FormatBRL(2000) {
		t.Fatalf("unexpected price label %q", burger.PriceLabel)
	}

	soda := page.Sections[1].Products[0]
	if soda.ImageURL != "/img/placeholder.jpg" || soda.ActionLabel != "Adicionar" {
		t.Fatalf("expected placeholder for missing asset, got %+v", soda)
	}
	if assets.calls["produtos/burger.jpg"] != 1 {
		t.Fatalf("expected shared path resolved once, got %d", assets.calls["produtos/burger.jpg"])
	}
	if !logs.has("menu.image_not_found") {
		t.Fatalf("expected missing asset to be logged")
	}
}

func TestMenuServiceRenderEmptyCategory(t *testing.T) {
	svc, err := NewMenuService(MenuServiceDeps{Catalog: menuFixture()})
	if err != nil {
		t.Fatalf("NewMenuService: %v", err)
	}
	page, err := svc.Render(context.Background(), "sobremesas")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !page.Empty || len(page.Sections) != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestMenuServiceRenderCategoryWithoutResolver(t *testing.T) {
	svc, err := NewMenuService(MenuServiceDeps{Catalog: menuFixture()})
	if err != nil {
		t.Fatalf("NewMenuService: %v", err)
	}
	page, err := svc.Render(context.Background(), "bebidas")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(page.Sections) != 2 {
		t.Fatalf("expected Refrigerante and Suco sections, got %+v", page.Sections)
	}
	for _, section := range page.Sections {
		for _, card := range section.Products {
			if card.ImageURL != defaultPlaceholderURL {
				t.Fatalf("expected placeholder without resolver, got %q", card.ImageURL)
			}
		}
	}
}

func TestMenuServiceCategoriesAndDetail(t *testing.T) {
	svc, err := NewMenuService(MenuServiceDeps{Catalog: menuFixture()})
	if err != nil {
		t.Fatalf("NewMenuService: %v", err)
	}
	ctx := context.Background()

	categories, err := svc.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(categories) != 3 || categories[2].Label != "Açaí" {
		t.Fatalf("unexpected categories %+v", categories)
	}

	detail, err := svc.ProductDetail(ctx, "x-burger")
	if err != nil {
		t.Fatalf("ProductDetail: %v", err)
	}
	if len(detail.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %+v", detail.Groups)
	}
	ponto := detail.Groups[0]
	if ponto.Min != 1 || ponto.Max != 1 {
		t.Fatalf("expected required radio bounds 1..1, got %d..%d", ponto.Min, ponto.Max)
	}
	if extras := detail.Groups[1]; extras.Min != 0 || extras.Max != 2 || extras.Options[1].PriceLabel != textutil.FormatBRL(350) {
		t.Fatalf("unexpected extras group %+v", extras)
	}

	if _, err := svc.ProductDetail(ctx, "missing"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

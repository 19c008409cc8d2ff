package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/services"
)

type stubMenuService struct {
	categories   []services.CategoryView
	page         services.MenuPage
	detail       services.ProductDetail
	err          error
	lastCategory string
}

func (s *stubMenuService) Categories(context.Context) ([]services.CategoryView, error) {
	return s.categories, s.err
}

func (s *stubMenuService) Render(_ context.Context, categoryID string) (services.MenuPage, error) {
	s.lastCategory = categoryID
	return s.page, s.err
}

func (s *stubMenuService) ProductDetail(_ context.Context, productID string) (services.ProductDetail, error) {
	if s.err != nil {
		return services.ProductDetail{}, s.err
	}
	if productID != s.detail.Card.ID {
		return services.ProductDetail{}, services.ErrProductNotFound
	}
	return s.detail, nil
}

type stubCustomizationService struct {
	state services.CustomizationState
	err   error
	cmd   services.EvaluateCustomizationCommand
}

func (s *stubCustomizationService) Evaluate(_ context.Context, cmd services.EvaluateCustomizationCommand) (services.CustomizationState, error) {
	s.cmd = cmd
	return s.state, s.err
}

func newMenuRouter(menu services.MenuService, customization services.CustomizationService) http.Handler {
	h := NewMenuHandlers(menu, customization, nil)
	return NewRouter(WithPublicRoutes(func(r chi.Router) { h.Routes(r) }))
}

func TestMenuHandlers_RenderMenu(t *testing.T) {
	menu := &stubMenuService{page: services.MenuPage{
		CategoryID: "lanches",
		Version:    4,
		Sections: []services.MenuSection{{
			Key:   "burger",
			Label: "Burger",
			Products: []services.ProductCard{
				{ID: "p1", Name: "X-Burger", Price: 2200, PriceLabel: "R$ 22,00", Featured: true, ActionLabel: "Adicionar"},
			},
		}},
	}}
	router := newMenuRouter(menu, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/menu?category=lanches", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if menu.lastCategory != "lanches" {
		t.Fatalf("expected category lanches, got %q", menu.lastCategory)
	}
	var body menuResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Empty || body.Version != 4 || len(body.Sections) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
	card := body.Sections[0].Products[0]
	if card.Badge != featuredBadge || card.Price != 22 || card.PriceMinor != 2200 {
		t.Fatalf("unexpected card %+v", card)
	}
}

func TestMenuHandlers_RenderEmptyMenu(t *testing.T) {
	router := newMenuRouter(&stubMenuService{page: services.MenuPage{CategoryID: "bebidas", Empty: true}}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/menu?category=bebidas", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body menuResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Empty || body.Message != emptyMenuMessage || body.Sections == nil {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMenuHandlers_ListCategories(t *testing.T) {
	router := newMenuRouter(&stubMenuService{categories: []services.CategoryView{
		{ID: "lanches", Name: "lanches", Label: "Lanches", SortOrder: 1},
	}}, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/categories", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"label":"Lanches"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestMenuHandlers_ProductDetail(t *testing.T) {
	menu := &stubMenuService{detail: services.ProductDetail{
		Card: services.ProductCard{ID: "monte", Name: "Monte seu açaí", Customizable: true, ActionLabel: "Personalizar"},
		Groups: []services.GroupView{
			{Key: "tamanho", Title: "Tamanho", Mode: domain.SelectionSingle, Required: true, Min: 1, Max: 1},
			{Key: "extras", Title: "Extras", Mode: domain.SelectionMulti, Max: domain.Unbounded, Options: []services.OptionView{
				{Key: "granola", Name: "Granola", Price: 200, PriceLabel: "R$ 2,00"},
			}},
		},
	}}
	router := newMenuRouter(menu, nil)

	t.Run("found", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/products/monte", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var body productDetailResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(body.Groups))
		}
		if body.Groups[0].Max == nil || *body.Groups[0].Max != 1 {
			t.Fatalf("expected max 1 for radio group, got %v", body.Groups[0].Max)
		}
		if body.Groups[1].Max != nil {
			t.Fatalf("expected unbounded max to be null, got %v", *body.Groups[1].Max)
		}
	})

	t.Run("missing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/products/ghost", nil))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestMenuHandlers_EvaluateCustomization(t *testing.T) {
	custom := &stubCustomizationService{state: services.CustomizationState{
		ProductID: "monte",
		Selected:  domain.SelectedOptions{"extras": {"granola", "leite"}},
		Capped:    true,
		Validation: services.ValidationResult{
			Valid: true,
			Total: 2550,
			Groups: []services.GroupValidation{
				{Key: "extras", Title: "Extras", Selected: 2, Min: 0, Max: 2, Valid: true},
			},
		},
	}}
	router := newMenuRouter(nil, custom)

	payload := `{"selected":{"extras":["granola","leite"]},"toggle":{"group":"extras","option":"mel","checked":true}}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/public/products/monte/customization", strings.NewReader(payload)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if custom.cmd.ProductID != "monte" || custom.cmd.Toggle == nil || custom.cmd.Toggle.Option != "mel" || !custom.cmd.Toggle.Checked {
		t.Fatalf("unexpected command %+v", custom.cmd)
	}
	var body customizationResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Valid || !body.Capped || body.TotalMinor != 2550 || body.TotalLabel == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestMenuHandlers_EvaluateCustomizationEmptyBody(t *testing.T) {
	custom := &stubCustomizationService{state: services.CustomizationState{ProductID: "monte"}}
	router := newMenuRouter(nil, custom)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/public/products/monte/customization", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if custom.cmd.Toggle != nil {
		t.Fatalf("expected no toggle")
	}
	if !strings.Contains(rr.Body.String(), `"selected":{}`) {
		t.Fatalf("expected empty selection object, got %s", rr.Body.String())
	}
}

func TestMenuHandlers_EvaluateCustomizationInvalidJSON(t *testing.T) {
	router := newMenuRouter(nil, &stubCustomizationService{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/public/products/monte/customization", strings.NewReader("{")))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestMenuHandlers_Unavailable(t *testing.T) {
	router := newMenuRouter(nil, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/menu", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

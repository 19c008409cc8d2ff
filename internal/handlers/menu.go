package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/httpx"
	"github.com/ViviPassos/SiteNikoTrudel/internal/services"
)

const (
	featuredBadge    = "Destaque"
	emptyMenuMessage = "Nenhum produto encontrado."
)

// MenuHandlers exposes the public menu and customization endpoints.
type MenuHandlers struct {
	menu          services.MenuService
	customization services.CustomizationService
	formatPrice   PriceFormatter
}

// NewMenuHandlers constructs the menu handlers. A nil formatter renders BRL.
func NewMenuHandlers(menu services.MenuService, customization services.CustomizationService, formatPrice PriceFormatter) *MenuHandlers {
	if formatPrice == nil {
		formatPrice = defaultPriceFormatter
	}
	return &MenuHandlers{menu: menu, customization: customization, formatPrice: formatPrice}
}

// Routes wires the /public endpoints onto the provided router.
func (h *MenuHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Get("/menu", h.renderMenu)
	r.Get("/products/{productID}", h.getProduct)
	r.Post("/products/{productID}/customization", h.evaluateCustomization)
}

type categoryPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Label     string `json:"label"`
	SortOrder int    `json:"sortOrder"`
}

type productCardPayload struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Price        float64 `json:"price"`
	PriceMinor   int64   `json:"priceMinor"`
	PriceLabel   string  `json:"priceLabel"`
	ImageURL     string  `json:"imageUrl"`
	Featured     bool    `json:"featured"`
	Badge        string  `json:"badge,omitempty"`
	Customizable bool    `json:"customizable"`
	ActionLabel  string  `json:"actionLabel"`
}

type menuSectionPayload struct {
	Key          string               `json:"key"`
	Label        string               `json:"label"`
	BuildYourOwn bool                 `json:"buildYourOwn"`
	Products     []productCardPayload `json:"products"`
}

type menuResponse struct {
	Category string               `json:"category,omitempty"`
	Empty    bool                 `json:"empty"`
	Message  string               `json:"message,omitempty"`
	Version  uint64               `json:"version"`
	Sections []menuSectionPayload `json:"sections"`
}

type optionPayload struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"priceMinor"`
	PriceLabel string `json:"priceLabel"`
}

type groupPayload struct {
	Key      string          `json:"key"`
	Title    string          `json:"title"`
	Mode     string          `json:"mode"`
	Required bool            `json:"required"`
	Min      int             `json:"min"`
	Max      *int            `json:"max"`
	Options  []optionPayload `json:"options"`
}

type productDetailResponse struct {
	Product productCardPayload `json:"product"`
	Groups  []groupPayload     `json:"groups"`
}

type customizationRequest struct {
	Selected map[string][]string `json:"selected"`
	Toggle   *struct {
		Group   string `json:"group"`
		Option  string `json:"option"`
		Checked bool   `json:"checked"`
	} `json:"toggle"`
}

type customizationResponse struct {
	ProductID     string              `json:"productId"`
	Selected      map[string][]string `json:"selected"`
	Valid         bool                `json:"valid"`
	Capped        bool                `json:"capped"`
	TotalMinor    int64               `json:"totalMinor"`
	TotalLabel    string              `json:"totalLabel"`
	Groups        []groupCheckPayload `json:"groups"`
	UnknownGroups []string            `json:"unknownGroups,omitempty"`
}

func (h *MenuHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.menu == nil {
		httpx.WriteError(ctx, w, httpx.NewError("menu_unavailable", "menu service is unavailable", http.StatusServiceUnavailable))
		return
	}
	categories, err := h.menu.Categories(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]categoryPayload, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, categoryPayload{ID: category.ID, Name: category.Name, Label: category.Label, SortOrder: category.SortOrder})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": payload})
}

func (h *MenuHandlers) renderMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.menu == nil {
		httpx.WriteError(ctx, w, httpx.NewError("menu_unavailable", "menu service is unavailable", http.StatusServiceUnavailable))
		return
	}
	page, err := h.menu.Render(ctx, strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := menuResponse{
		Category: page.CategoryID,
		Empty:    page.Empty,
		Version:  page.Version,
		Sections: make([]menuSectionPayload, 0, len(page.Sections)),
	}
	if page.Empty {
		resp.Message = emptyMenuMessage
	}
	for _, section := range page.Sections {
		payload := menuSectionPayload{
			Key:          section.Key,
			Label:        section.Label,
			BuildYourOwn: section.BuildYourOwn,
			Products:     make([]productCardPayload, 0, len(section.Products)),
		}
		for _, card := range section.Products {
			payload.Products = append(payload.Products, buildCardPayload(card))
		}
		resp.Sections = append(resp.Sections, payload)
	}
	w.Header().Set("Cache-Control", "public, max-age=30")
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *MenuHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.menu == nil {
		httpx.WriteError(ctx, w, httpx.NewError("menu_unavailable", "menu service is unavailable", http.StatusServiceUnavailable))
		return
	}
	detail, err := h.menu.ProductDetail(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	resp := productDetailResponse{Product: buildCardPayload(detail.Card), Groups: make([]groupPayload, 0, len(detail.Groups))}
	for _, group := range detail.Groups {
		payload := groupPayload{
			Key:      group.Key,
			Title:    group.Title,
			Mode:     string(group.Mode),
			Required: group.Required,
			Min:      group.Min,
			Max:      maxPointer(group.Max),
			Options:  make([]optionPayload, 0, len(group.Options)),
		}
		for _, option := range group.Options {
			payload.Options = append(payload.Options, optionPayload{
				Key:        option.Key,
				Name:       option.Name,
				PriceMinor: int64(option.Price),
				PriceLabel: option.PriceLabel,
			})
		}
		resp.Groups = append(resp.Groups, payload)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *MenuHandlers) evaluateCustomization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customization == nil {
		httpx.WriteError(ctx, w, httpx.NewError("customization_unavailable", "customization service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req customizationRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	cmd := services.EvaluateCustomizationCommand{
		ProductID: chi.URLParam(r, "productID"),
		Selected:  domain.SelectedOptions(req.Selected),
	}
	if req.Toggle != nil {
		cmd.Toggle = &services.OptionToggle{Group: req.Toggle.Group, Option: req.Toggle.Option, Checked: req.Toggle.Checked}
	}

	state, err := h.customization.Evaluate(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	selected := map[string][]string(state.Selected)
	if selected == nil {
		selected = map[string][]string{}
	}
	httpx.WriteJSON(w, http.StatusOK, customizationResponse{
		ProductID:     state.ProductID,
		Selected:      selected,
		Valid:         state.Validation.Valid,
		Capped:        state.Capped,
		TotalMinor:    int64(state.Validation.Total),
		TotalLabel:    h.formatPrice(state.Validation.Total),
		Groups:        buildGroupChecks(state.Validation.Groups),
		UnknownGroups: state.Validation.UnknownGroups,
	})
}

func buildCardPayload(card services.ProductCard) productCardPayload {
	payload := productCardPayload{
		ID:           card.ID,
		Name:         card.Name,
		Description:  card.Description,
		Price:        card.Price.Float(),
		PriceMinor:   int64(card.Price),
		PriceLabel:   card.PriceLabel,
		ImageURL:     card.ImageURL,
		Featured:     card.Featured,
		Customizable: card.Customizable,
		ActionLabel:  card.ActionLabel,
	}
	if card.Featured {
		payload.Badge = featuredBadge
	}
	return payload
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/httpx"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/requestctx"
	"github.com/ViviPassos/SiteNikoTrudel/internal/services"
)

// CartHandlers exposes the visitor cart and the checkout hand-off.
type CartHandlers struct {
	carts       services.CartService
	checkout    services.CheckoutService
	formatPrice PriceFormatter
}

// CartOption customises cart handler construction.
type CartOption func(*CartHandlers)

// WithCartPriceFormatter overrides how totals are rendered.
func WithCartPriceFormatter(formatter PriceFormatter) CartOption {
	return func(h *CartHandlers) {
		if formatter != nil {
			h.formatPrice = formatter
		}
	}
}

// NewCartHandlers constructs cart handlers backed by the cart and checkout services.
func NewCartHandlers(carts services.CartService, checkout services.CheckoutService, opts ...CartOption) *CartHandlers {
	h := &CartHandlers{carts: carts, checkout: checkout, formatPrice: defaultPriceFormatter}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the cart endpoints. Callers mount it behind CartSessionMiddleware.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{index}", h.changeQuantity)
	r.Delete("/items/{index}", h.removeItem)
	r.Post("/checkout", h.prepareCheckout)
	r.Get("/checkout/redirect", h.redirectCheckout)
	r.Get("/checkout/qr", h.checkoutQRCode)
}

type cartLinePayload struct {
	Index         int                 `json:"index"`
	ProductID     string              `json:"productId"`
	Name          string              `json:"name"`
	Quantity      int                 `json:"quantity"`
	Options       map[string][]string `json:"options,omitempty"`
	OptionNames   []string            `json:"optionNames,omitempty"`
	UnitPrice     int64               `json:"unitPrice"`
	Subtotal      int64               `json:"subtotal"`
	SubtotalLabel string              `json:"subtotalLabel"`
	Available     bool                `json:"available"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	Lines      []cartLinePayload `json:"lines"`
	ItemCount  int               `json:"itemCount"`
	Total      int64             `json:"total"`
	TotalLabel string            `json:"totalLabel"`
	Empty      bool              `json:"empty"`
	UpdatedAt  string            `json:"updatedAt,omitempty"`
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type addItemRequest struct {
	ProductID string              `json:"productId"`
	Quantity  int                 `json:"quantity"`
	Options   map[string][]string `json:"options"`
}

type changeQuantityRequest struct {
	Delta int `json:"delta"`
}

type checkoutResponse struct {
	Message    string            `json:"message"`
	URL        string            `json:"url"`
	Total      int64             `json:"total"`
	TotalLabel string            `json:"totalLabel"`
	Lines      []cartLinePayload `json:"lines"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.carts.Get(ctx, cartID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeCart(w, http.StatusOK, view)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.carts.Clear(ctx, cartID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeCart(w, http.StatusOK, view)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productId is required", http.StatusBadRequest))
		return
	}
	view, err := h.carts.Add(ctx, services.AddCartItemCommand{
		CartID:    cartID,
		ProductID: productID,
		Quantity:  req.Quantity,
		Options:   domain.SelectedOptions(req.Options),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeCart(w, http.StatusCreated, view)
}

func (h *CartHandlers) changeQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var req changeQuantityRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	view, err := h.carts.ChangeQuantity(ctx, services.ChangeQuantityCommand{CartID: cartID, Index: index, Delta: req.Delta})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeCart(w, http.StatusOK, view)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	view, err := h.carts.Remove(ctx, cartID, index)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	h.writeCart(w, http.StatusOK, view)
}

func (h *CartHandlers) prepareCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is not configured", http.StatusServiceUnavailable))
		return
	}
	result, err := h.checkout.Prepare(ctx, cartID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	lines := make([]cartLinePayload, 0, len(result.Lines))
	for _, line := range result.Lines {
		lines = append(lines, h.linePayload(line))
	}
	noStore(w)
	httpx.WriteJSON(w, http.StatusOK, checkoutResponse{
		Message:    result.Message,
		URL:        result.URL,
		Total:      int64(result.Total),
		TotalLabel: h.formatPrice(result.Total),
		Lines:      lines,
	})
}

func (h *CartHandlers) redirectCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is not configured", http.StatusServiceUnavailable))
		return
	}
	result, err := h.checkout.Prepare(ctx, cartID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	noStore(w)
	http.Redirect(w, r, result.URL, http.StatusSeeOther)
}

func (h *CartHandlers) checkoutQRCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cartID, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout is not configured", http.StatusServiceUnavailable))
		return
	}
	size := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "size must be a positive integer", http.StatusBadRequest))
			return
		}
		size = parsed
	}
	png, err := h.checkout.QRCode(ctx, cartID, size)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	noStore(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *CartHandlers) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	cartID := requestctx.CartSession(ctx)
	if cartID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("missing_session", "cart session is required", http.StatusBadRequest))
		return "", false
	}
	return cartID, true
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "index")))
	if err != nil || index < 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "line index must be a non-negative integer", http.StatusBadRequest))
		return 0, false
	}
	return index, true
}

func (h *CartHandlers) writeCart(w http.ResponseWriter, status int, view services.CartView) {
	payload := cartPayload{
		ID:         view.ID,
		Lines:      make([]cartLinePayload, 0, len(view.Lines)),
		ItemCount:  view.ItemCount,
		Total:      int64(view.Total),
		TotalLabel: h.formatPrice(view.Total),
		Empty:      len(view.Lines) == 0,
	}
	if !view.UpdatedAt.IsZero() {
		payload.UpdatedAt = view.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, line := range view.Lines {
		payload.Lines = append(payload.Lines, h.linePayload(line))
	}
	noStore(w)
	w.Header().Set(cartItemCountHeader, strconv.Itoa(view.ItemCount))
	httpx.WriteJSON(w, status, cartResponse{Cart: payload})
}

func (h *CartHandlers) linePayload(line services.CartLineView) cartLinePayload {
	return cartLinePayload{
		Index:         line.Index,
		ProductID:     line.ProductID,
		Name:          line.Name,
		Quantity:      line.Quantity,
		Options:       map[string][]string(line.Options),
		OptionNames:   line.OptionNames,
		UnitPrice:     int64(line.UnitPrice),
		Subtotal:      int64(line.Subtotal),
		SubtotalLabel: h.formatPrice(line.Subtotal),
		Available:     line.Available,
	}
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

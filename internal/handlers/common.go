package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/httpx"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/textutil"
	"github.com/ViviPassos/SiteNikoTrudel/internal/services"
)

const maxBodySize = 16 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

// PriceFormatter renders an amount in minor units for display.
type PriceFormatter func(domain.Money) string

func defaultPriceFormatter(amount domain.Money) string {
	return textutil.FormatBRL(int64(amount))
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// decodeBody reads a JSON object into target, writing the error response itself.
func decodeBody(w http.ResponseWriter, r *http.Request, target any, allowEmpty bool) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errEmptyBody) && allowEmpty:
			return true
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return false
	}
	return true
}

type groupCheckPayload struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Selected int    `json:"selected"`
	Min      int    `json:"min"`
	Max      *int   `json:"max"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

func buildGroupChecks(groups []services.GroupValidation) []groupCheckPayload {
	out := make([]groupCheckPayload, 0, len(groups))
	for _, group := range groups {
		out = append(out, groupCheckPayload{
			Key:      group.Key,
			Title:    group.Title,
			Selected: group.Selected,
			Min:      group.Min,
			Max:      maxPointer(group.Max),
			Valid:    group.Valid,
			Reason:   group.Reason,
		})
	}
	return out
}

func maxPointer(limit int) *int {
	if limit == domain.Unbounded {
		return nil
	}
	return &limit
}

// writeServiceError maps service sentinels onto the JSON error envelope.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var custom *services.CustomizationError
	switch {
	case errors.As(err, &custom):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_customization", "selected options do not satisfy the product's groups", http.StatusUnprocessableEntity).WithDetails(map[string]any{
			"productId":     custom.ProductID,
			"groups":        buildGroupChecks(custom.Result.InvalidGroups()),
			"unknownGroups": custom.Result.UnknownGroups,
		}))
	case errors.Is(err, services.ErrCustomizationInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_customization", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_line_not_found", "cart line not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", services.EmptyCartNotice, http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "request failed", http.StatusInternalServerError))
	}
}

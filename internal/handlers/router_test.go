package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
)

type stubHealthRepository struct {
	report domain.HealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.HealthReport, error) {
	return s.report, s.err
}

func TestNewRouter_DefaultMounts(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	healthHandlers := NewHealthHandlers(
		WithHealthRepository(&stubHealthRepository{report: domain.HealthReport{
			Status:      domain.HealthStatusDegraded,
			GeneratedAt: now,
			Checks: map[string]domain.DependencyHealth{
				"catalog": {Status: domain.HealthStatusOK, Latency: 3 * time.Millisecond},
				"redis":   {Status: domain.HealthStatusError, Detail: "timeout"},
			},
		}}),
		WithHealthClock(func() time.Time { return now }),
		WithHealthVersion("test"),
	)

	router := NewRouter(WithHealthHandlers(healthHandlers))

	t.Run("healthz", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["status"] != domain.HealthStatusOK || body["version"] != "test" {
			t.Fatalf("unexpected body %v", body)
		}
	})

	t.Run("readyz degraded stays ready", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var body struct {
			Status string                 `json:"status"`
			Checks map[string]checkResult `json:"checks"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Status != domain.HealthStatusDegraded {
			t.Fatalf("expected degraded, got %s", body.Status)
		}
		if body.Checks["redis"].Detail != "timeout" || body.Checks["catalog"].LatencyMS != 3 {
			t.Fatalf("unexpected checks %+v", body.Checks)
		}
	})

	t.Run("default not implemented group", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/menu", nil))

		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("expected status 501, got %d", rr.Code)
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["error"] != errorNotFoundCode {
			t.Fatalf("expected %s, got %v", errorNotFoundCode, body["error"])
		}
	})
}

func TestReadyz_CriticalFailureReturns503(t *testing.T) {
	handlers := NewHealthHandlers(WithHealthRepository(&stubHealthRepository{report: domain.HealthReport{
		Status: domain.HealthStatusError,
		Checks: map[string]domain.DependencyHealth{"catalog": {Status: domain.HealthStatusError, Detail: "catalog not loaded"}},
	}}))
	router := NewRouter(WithHealthHandlers(handlers))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestReadyz_CollectError(t *testing.T) {
	handlers := NewHealthHandlers(WithHealthRepository(&stubHealthRepository{err: errors.New("boom")}))
	rr := httptest.NewRecorder()
	handlers.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestNewRouter_CartMiddlewaresOnlyApplyToCartGroup(t *testing.T) {
	var hits []string
	mark := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits = append(hits, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
	ok := func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	}

	router := NewRouter(WithPublicRoutes(ok), WithCartRoutes(ok), WithCartMiddlewares(mark))

	for _, path := range []string{"/api/v1/public/ping", "/api/v1/cart/ping"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("%s: expected status 204, got %d", path, rr.Code)
		}
	}
	if len(hits) != 1 || hits[0] != "/api/v1/cart/ping" {
		t.Fatalf("expected middleware on cart group only, got %v", hits)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(WithCORSOrigins("https://nikotrudel.example"), WithCartRoutes(func(r chi.Router) {
		r.Post("/items", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusCreated) })
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "https://nikotrudel.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://nikotrudel.example" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/requestctx"
)

func sessionEcho() (http.Handler, *string) {
	var seen string
	return CartSessionMiddleware(time.Hour, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.CartSession(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})), &seen
}

func TestCartSessionMiddleware_MintsSession(t *testing.T) {
	handler, seen := sessionEcho()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if *seen == "" {
		t.Fatalf("expected session to be minted")
	}
	if got := rr.Header().Get(cartSessionHeader); got != *seen {
		t.Fatalf("expected header %q, got %q", *seen, got)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cartSessionCookie || cookies[0].Value != *seen {
		t.Fatalf("unexpected cookies %+v", cookies)
	}
	if !cookies[0].HttpOnly || !cookies[0].Secure || cookies[0].MaxAge != 3600 {
		t.Fatalf("unexpected cookie attributes %+v", cookies[0])
	}
}

func TestCartSessionMiddleware_ReusesHeaderThenCookie(t *testing.T) {
	handler, seen := sessionEcho()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(cartSessionHeader, "from-header")
	req.AddCookie(&http.Cookie{Name: cartSessionCookie, Value: "from-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if *seen != "from-header" {
		t.Fatalf("expected header session, got %q", *seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cartSessionCookie, Value: "from-cookie"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if *seen != "from-cookie" {
		t.Fatalf("expected cookie session, got %q", *seen)
	}
}

func TestCartSessionMiddleware_RejectsMalformedIDs(t *testing.T) {
	handler, seen := sessionEcho()

	for _, raw := range []string{"carts/other", "a:b", strings.Repeat("x", maxSessionIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(cartSessionHeader, raw)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if *seen == raw || *seen == "" {
			t.Fatalf("expected %q to be replaced, got %q", raw, *seen)
		}
	}
}

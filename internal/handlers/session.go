package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/observability"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/requestctx"
)

const (
	cartSessionHeader   = "X-Cart-Session"
	cartSessionCookie   = "cart_session"
	cartItemCountHeader = "X-Cart-Item-Count"
	maxSessionIDLength  = 128
)

// CartSessionMiddleware binds a cart session id to the request. The id comes from
// the X-Cart-Session header or the cart_session cookie; a new UUID is minted when
// neither carries a usable value.
func CartSessionMiddleware(ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := validSessionID(r.Header.Get(cartSessionHeader))
			if id == "" {
				if cookie, err := r.Cookie(cartSessionCookie); err == nil {
					id = validSessionID(cookie.Value)
				}
			}
			if id == "" {
				id = uuid.NewString()
			}

			cookie := &http.Cookie{
				Name:     cartSessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			}
			if ttl > 0 {
				cookie.MaxAge = int(ttl.Seconds())
			}
			http.SetCookie(w, cookie)
			w.Header().Set(cartSessionHeader, id)

			ctx := requestctx.WithCartSession(r.Context(), id)
			ctx = requestctx.WithLogger(ctx, requestctx.Logger(ctx).With(zap.String("cart_session", observability.SanitizeSessionID(id))))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validSessionID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxSessionIDLength {
		return ""
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return ""
		}
	}
	return id
}

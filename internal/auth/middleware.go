package auth

import (
	"log/slog"
	"net/http"

	"github.com/groveauth/grove/internal/platform/httpx"
	"github.com/groveauth/grove/internal/shared"
)

// Middleware resolves the caller for every request and stores it in the
// request context. Unresolvable callers get a 401 before any handler runs.
func Middleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolver.Resolve(r)
			if err != nil {
				if shared.KindOf(err) == shared.KindStorage {
					logger.Error("caller resolution failed", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := shared.ContextWithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

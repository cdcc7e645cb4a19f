package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mercaline/tienda-backend/api/responses"
	pkgauth "github.com/mercaline/tienda-backend/pkg/auth"
	"github.com/mercaline/tienda-backend/pkg/config"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

const adminTokenHeader = "X-Admin-Token"

// Auth validates a bearer token and seeds the request context with the
// customer identity. An admin shared-secret header bypasses JWT checks
// for trusted service callers.
func Auth(cfg config.JWTConfig, adminToken string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminTokenValid(adminToken, r.Header.Get(adminTokenHeader)) {
				ctx := WithAdmin(r.Context())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user id"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly rejects callers that did not present the admin shared secret.
func AdminOnly(adminToken string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !adminTokenValid(adminToken, r.Header.Get(adminTokenHeader)) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin token required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context())))
		})
	}
}

func adminTokenValid(expected, presented string) bool {
	expected = strings.TrimSpace(expected)
	presented = strings.TrimSpace(presented)
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mercaline/tienda-backend/api/responses"
	"github.com/mercaline/tienda-backend/internal/catalog"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

type catalogSyncer interface {
	SyncAll(ctx context.Context) (catalog.SyncSummary, error)
}

// TriggerCatalogSync runs a full catalog refresh on demand. Protected by
// a shared-secret query token so the Dropi ops dashboard can call it.
func TriggerCatalogSync(syncer catalogSyncer, token string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if syncer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog sync unavailable"))
			return
		}

		expected := strings.TrimSpace(token)
		presented := strings.TrimSpace(r.URL.Query().Get("token"))
		if expected == "" || presented == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid sync token"))
			return
		}

		summary, err := syncer.SyncAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog sync"))
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

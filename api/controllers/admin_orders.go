package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercaline/tienda-backend/api/responses"
	supplierssvc "github.com/mercaline/tienda-backend/internal/suppliers"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

// ResyncOrder re-runs the supplier fan-out for one order.
func ResyncOrder(svc supplierssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "supplier sync unavailable"))
			return
		}

		result, err := svc.Resync(r.Context(), chi.URLParam(r, "orderRef"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercaline/tienda-backend/api/responses"
	"github.com/mercaline/tienda-backend/api/validators"
	paymentsvc "github.com/mercaline/tienda-backend/internal/payments"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

// CreatePaymentSession opens a mock-gateway payment session.
func CreatePaymentSession(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload paymentsvc.CreateSessionInput
		if err := validators.DecodeJSONBodyLenient(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// GetPaymentSession reports the current session state, applying lazy
// expiry on read. The storefront polls this until a terminal status.
func GetPaymentSession(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		session, err := svc.GetStatus(r.Context(), chi.URLParam(r, "paymentID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

type updatePaymentSessionRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePaymentSession forces a session status. Rejected outside dev mode.
func UpdatePaymentSession(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload updatePaymentSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "paymentID"), payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

package webhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/mercaline/tienda-backend/api/responses"
	dropiwebhook "github.com/mercaline/tienda-backend/internal/webhooks/dropi"
	pkgerrors "github.com/mercaline/tienda-backend/pkg/errors"
	"github.com/mercaline/tienda-backend/pkg/logger"
)

const dropiSignatureHeader = "X-Dropi-Signature"

// DropiWebhook handles courier shipment status callbacks.
func DropiWebhook(svc *dropiwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if err := svc.VerifySignature(body, r.Header.Get(dropiSignatureHeader)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var event dropiwebhook.Event
		if err := json.Unmarshal(body, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		if _, err := svc.HandleEvent(ctx, event); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

package controllers

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/storelinehq/storeline-backend/api/responses"
	"github.com/storelinehq/storeline-backend/internal/webhooks"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/logger"
)

const maxWebhookBody = 1 << 20

func courierTokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("X-Courier-Token")); token != "" {
		return token
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

// CourierWebhook ingests courier status callbacks. The shared token is
// checked per tenant before the payload is touched.
func CourierWebhook(svc *webhooks.CourierService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier webhook service unavailable"))
			return
		}
		t, ok := activeTenant(r, logg, w)
		if !ok {
			return
		}

		token := courierTokenFromRequest(r)
		if t.CourierToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(t.CourierToken)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid courier token"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		outcome, err := svc.Handle(r.Context(), t, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"outcome": string(outcome)})
	}
}

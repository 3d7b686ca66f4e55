package middleware

import (
	"net/http"
	"strings"

	"github.com/storelinehq/storeline-backend/api/responses"
	pkgerrors "github.com/storelinehq/storeline-backend/pkg/errors"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

const tenantIDHeader = "X-Tenant-Id"

// Tenant resolves the tenant header against the registry and stores
// the tenant handle in the request context. Every API route below the
// health endpoints requires it.
func Tenant(registry *tenant.Registry, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(tenantIDHeader))
			if id == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Tenant-Id header required"))
				return
			}

			t, err := registry.Resolve(id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := tenant.WithTenant(r.Context(), t)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, t.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

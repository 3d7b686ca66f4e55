package controllers

import (
	"net/http"

	"github.com/storelinehq/storeline-backend/api/responses"
	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	pkgredis "github.com/storelinehq/storeline-backend/pkg/redis"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storeline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every tenant database plus redis. Any failure
// flips the probe so the instance is pulled from rotation.
func HealthReady(cfg *config.Config, registry *tenant.Registry, cache *pkgredis.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storeline-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true

		if registry != nil {
			for _, id := range registry.IDs() {
				t, err := registry.Resolve(id)
				if err != nil {
					checks["db:"+id] = err.Error()
					healthy = false
					continue
				}
				if err := t.DB.Ping(r.Context()); err != nil {
					checks["db:"+id] = err.Error()
					healthy = false
				} else {
					checks["db:"+id] = "ok"
				}
			}
		}

		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, code, map[string]any{"status": status, "checks": checks})
	}
}

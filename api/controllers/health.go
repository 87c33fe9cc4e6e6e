package controllers

import (
	"context"
	"net/http"

	"github.com/kmdeleon/tahanan-backend/api/responses"
	"github.com/kmdeleon/tahanan-backend/pkg/config"
	pkgerrors "github.com/kmdeleon/tahanan-backend/pkg/errors"
	"github.com/kmdeleon/tahanan-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tahanan-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the database and redis answer pings.
// Nil dependencies are reported as skipped so optional wiring does not fail
// readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	deps := []struct {
		name string
		dep  pinger
	}{
		{"database", dbP},
		{"redis", redisP},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tahanan-Env", cfg.App.Env)

		checks := map[string]string{}
		failed := false
		for _, entry := range deps {
			if entry.dep == nil {
				checks[entry.name] = "skipped"
				continue
			}
			if err := entry.dep.Ping(r.Context()); err != nil {
				checks[entry.name] = "down"
				failed = true
				if logg != nil {
					logg.Error(logg.WithFields(r.Context(), map[string]any{"dependency": entry.name}), "health.ping", err)
				}
				continue
			}
			checks[entry.name] = "up"
		}

		if failed {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/JanssenProject/jans-sub050/internal/auth/store"
	"github.com/JanssenProject/jans-sub050/pkg/authsdk"
	"github.com/JanssenProject/jans-sub050/pkg/httpx"
	"github.com/JanssenProject/jans-sub050/pkg/jwtx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Probe
//	@Description	Returns 200 OK with uptime and version while the process is running.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Probe
//	@Description	Checks the database, the grant cache and the signing keys.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	cache store.GrantCache,
	keys *jwtx.KeySet,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		ready := true
		probe := func(err error) string {
			if err != nil {
				ready = false
				return "error: " + err.Error()
			}
			return "ok"
		}

		checks := &authsdk.HealthChecks{
			Database: probe(st.Ping(ctx)),
			Cache:    probe(cache.Ping(ctx)),
			Signer:   "ok",
		}
		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			ready = false
		}

		status, code := "ok", http.StatusOK
		if !ready {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, authsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

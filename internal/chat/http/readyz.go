package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tabchat/internal/chat/store"
	"github.com/aussiebroadwan/tabchat/pkg/chatsdk"
	"github.com/aussiebroadwan/tabchat/pkg/httpx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes the database connection and whether the encryption master key is loaded
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	chatsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	chatsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	enc EncryptionStatus,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &chatsdk.HealthChecks{
			Database:   "ok",
			Encryption: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		switch {
		case enc == nil:
			checks.Encryption = "disabled"
		case !enc.Available():
			checks.Encryption = "error: master key not loaded"
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := chatsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}

package httptransport

import (
	"net/http"
)

// handleHealth reports per-subsystem availability. The response is 200 as
// long as the process serves; individual subsystems carry their own status so
// a resolver outage is distinguishable from a dead instance.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subsystems := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			subsystems[name] = "unavailable"
			healthy = false
			continue
		}
		subsystems[name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"sml_enabled": h.smlEnabled,
		"subsystems":  subsystems,
	})
}

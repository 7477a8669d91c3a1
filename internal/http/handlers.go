package http

import (
	"encoding/json"
	"net/http"
	"time"

	applog "expenseview/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports ready once templates are parsed and a load has
// completed, successfully or not.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	snap := s.view.Snapshot()
	syncCheck := map[string]any{
		"loaded":  snap.Loaded,
		"version": snap.Version,
		"count":   len(snap.Expenses),
	}
	switch {
	case snap.Err != nil:
		syncCheck["status"] = "error: " + snap.Err.Error()
	case snap.Loaded:
		syncCheck["status"] = "ok"
		syncCheck["loaded_at"] = snap.LoadedAt.Format(time.RFC3339)
	default:
		syncCheck["status"] = "pending"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}
	checks["synchronizer"] = syncCheck

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.Hits(),
	}
	checks["security"] = map[string]any{
		"suspicious_requests": s.detector.SuspiciousRequests(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the full page, or only the load error.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	if snap.Err != nil {
		s.logger.DebugContext(r.Context(), "Rendering load error page",
			applog.FieldError, snap.Err.Error())
		s.writeTemplate(w, r, NewHTMXResponse().Status(http.StatusServiceUnavailable), "error", errorPageData{
			Error:          ErrorLoadingExpenses,
			RefreshSeconds: refreshSeconds(s.refresh),
		})
		return
	}
	s.writeTemplate(w, r, NewHTMXResponse(), "index", newPageData(snap, s.forms.View(), s.refresh))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux; the routing surface is
// small enough that a third-party router buys nothing.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewRouter creates the router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Register wires all monitor routes onto the mux.
func (r *Router) Register(h *Handler) {
	r.mux.HandleFunc("/api/v1/readings", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostReading(w, req)
	})

	r.mux.HandleFunc("/api/v1/readings/batch", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.PostReadingsBatch(w, req)
	})

	r.mux.HandleFunc("/api/v1/history/aggregate", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetAggregate(w, req)
	})

	r.mux.HandleFunc("/api/v1/history/daily", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetDaily(w, req)
	})

	r.mux.HandleFunc("/api/v1/alerts", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListAlerts(w, req)
	})

	// /api/v1/alerts/{id}/status
	r.mux.HandleFunc("/api/v1/alerts/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/alerts/")
		alertID := strings.TrimSuffix(rest, "/status")
		if alertID == "" || alertID == rest || strings.Contains(alertID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.UpdateAlertStatus(w, req, alertID)
	})

	r.mux.HandleFunc("/api/v1/realtime/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetLatest(w, req)
	})

	r.mux.HandleFunc("/health", h.Health)
	r.mux.HandleFunc("/ws", h.ServeWS)
}

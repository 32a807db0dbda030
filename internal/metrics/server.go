package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photo-curator/internal/logging"
)

// StatsProvider supplies a stats payload for the /stats endpoint.
type StatsProvider interface {
	Stats() any
}

// Serve starts a metrics listener on addr in a background goroutine.
// It exposes Prometheus metrics on /metrics and, when provider is non-nil,
// a JSON stats payload on /stats. Returns the server for shutdown.
func Serve(addr string, provider StatsProvider) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if provider != nil {
		r.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(provider.Stats()); err != nil {
				logging.Debug("Failed to encode stats: %v", err)
			}
		}).Methods("GET")
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn("Metrics server error: %v", err)
		}
	}()

	return srv
}

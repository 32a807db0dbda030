package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type fakeStats struct{}

func (fakeStats) Stats() any {
	return map[string]int{"hits": 3, "misses": 1}
}

func newTestRouter(provider StatsProvider) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if provider != nil {
		r.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(provider.Stats())
		}).Methods("GET")
	}
	return r
}

func TestMetricsEndpoint(t *testing.T) {
	CacheMissesTotal.Inc()

	srv := httptest.NewServer(newTestRouter(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(fakeStats{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats error: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if payload["hits"] != 3 || payload["misses"] != 1 {
		t.Errorf("stats payload = %v, want hits=3 misses=1", payload)
	}
}

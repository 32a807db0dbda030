package tasks

import (
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"photo-curator/internal/config"
	"photo-curator/internal/vision"
	"photo-curator/internal/worker"
)

// writeJPEG creates a small valid JPEG and returns its path.
func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := imaging.New(64, 48, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	path := filepath.Join(dir, name)
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
	return path
}

type generateReply func(prompt string) string

// modelServer fakes the Ollama endpoints: /api/generate answers via
// reply, /api/embed returns a fixed 3-dimensional vector.
func modelServer(t *testing.T, reply generateReply) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			var req struct {
				Prompt string `json:"prompt"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"response": reply(req.Prompt)})
		case "/api/embed":
			json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.1, 0.2, 0.3}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(host string) *config.Config {
	return &config.Config{
		APIHost:        host,
		APIType:        config.APITypeOllama,
		VisionModel:    "test-vision",
		EmbeddingModel: "test-embed",
		Temperature:    0.3,
		RPCTimeout:     10 * time.Second,
		Workers:        1,
		MaxImageSize:   256,
		ThumbnailSize:  64,
	}
}

func newClient(host string) *vision.Client {
	return vision.NewClient(testConfig(host))
}

// drain collects every item result and the summary from a worker run.
func drain(t *testing.T, w *worker.Worker) ([]worker.Result, worker.SummaryEvent) {
	t.Helper()
	var results []worker.Result
	var summary worker.SummaryEvent
	timeout := time.After(15 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return results, summary
			}
			switch e := ev.(type) {
			case worker.ItemEvent:
				results = append(results, e.Result)
			case worker.SummaryEvent:
				summary = e
			}
		case <-timeout:
			t.Fatal("timed out draining worker events")
		}
	}
}

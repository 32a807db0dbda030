package tasks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"photo-curator/internal/ratingstore"
	"photo-curator/internal/worker"
)

func TestPromptHash(t *testing.T) {
	h := PromptHash(DefaultRatingPrompt)
	if len(h) != 16 {
		t.Errorf("hash length = %d, want 16", len(h))
	}
	if h != PromptHash(DefaultRatingPrompt) {
		t.Error("hash is not deterministic")
	}
	if h == PromptHash(DefaultRatingPrompt+" ") {
		t.Error("hash did not change with the prompt")
	}
}

func TestEchoPrompt(t *testing.T) {
	echoed := EchoPrompt("rate this")
	if echoed != "rate this\n\n---\n\nrate this" {
		t.Errorf("EchoPrompt = %q", echoed)
	}
}

const validRatingJSON = `{
	"technical": 8,
	"composition": 7,
	"uniqueness": 6,
	"commercial": 8,
	"editorial": 5,
	"defects": [],
	"categories": ["landscape"],
	"notes": "crisp light"
}`

func TestParseRatingResponsePlainJSON(t *testing.T) {
	r, err := ParseRatingResponse(validRatingJSON)
	if err != nil {
		t.Fatalf("ParseRatingResponse: %v", err)
	}
	// 8*.25 + 7*.20 + 8*.25 + 6*.15 + 5*.15 = 7.05 -> 7.1 after rounding.
	if r.Overall != 7.1 {
		t.Errorf("overall = %v, want 7.1", r.Overall)
	}
	if r.Recommendation != "KEEP" {
		t.Errorf("recommendation = %q, want KEEP", r.Recommendation)
	}
	if r.Notes != "crisp light" || len(r.Categories) != 1 {
		t.Errorf("payload fields lost: %+v", r)
	}
}

func TestParseRatingResponseFencedBlock(t *testing.T) {
	text := "Here is my evaluation:\n```json\n" + validRatingJSON + "\n```\nHope that helps."
	if _, err := ParseRatingResponse(text); err != nil {
		t.Errorf("ParseRatingResponse: %v", err)
	}
}

func TestParseRatingResponseLastMatchWins(t *testing.T) {
	// The echoed prompt carries an example object; the real answer comes
	// after it and must win.
	example := `{"technical": 1, "composition": 1, "commercial": 1, "uniqueness": 1, "editorial": 1}`
	real := `{"technical": 9, "composition": 9, "commercial": 9, "uniqueness": 9, "editorial": 9}`
	r, err := ParseRatingResponse("Example format:\n" + example + "\n\nMy answer:\n" + real)
	if err != nil {
		t.Fatalf("ParseRatingResponse: %v", err)
	}
	if r.Technical != 9 {
		t.Errorf("technical = %v, want the later object's 9", r.Technical)
	}
}

func TestParseRatingResponseScoresClamped(t *testing.T) {
	text := `{"technical": 15, "composition": 0, "commercial": -3, "uniqueness": 5, "editorial": 5}`
	r, err := ParseRatingResponse(text)
	if err != nil {
		t.Fatalf("ParseRatingResponse: %v", err)
	}
	if r.Technical != 10 || r.Composition != 1 || r.Commercial != 1 {
		t.Errorf("clamping failed: %+v", r)
	}
}

func TestParseRatingResponseRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing criterion", `{"technical": 5, "composition": 5, "commercial": 5, "uniqueness": 5}`},
		{"no json at all", "a lovely picture of a barn"},
		{"empty", ""},
		{"non-numeric score", `{"technical": "high", "composition": 5, "commercial": 5, "uniqueness": 5, "editorial": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRatingResponse(tt.text); err == nil {
				t.Error("ParseRatingResponse succeeded, want error")
			}
		})
	}
}

func TestRecommendationThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{9, "KEEP"},
		{7, "KEEP"},
		{6.9, "REVIEW"},
		{5, "REVIEW"},
		{4.9, "DELETE"},
		{1, "DELETE"},
	}
	for _, tt := range tests {
		text := fmt.Sprintf(`{"technical": %[1]v, "composition": %[1]v, "commercial": %[1]v, "uniqueness": %[1]v, "editorial": %[1]v}`, tt.score)
		r, err := ParseRatingResponse(text)
		if err != nil {
			t.Fatalf("ParseRatingResponse(%v): %v", tt.score, err)
		}
		if r.Recommendation != tt.want {
			t.Errorf("score %v: recommendation = %q, want %q", tt.score, r.Recommendation, tt.want)
		}
	}
}

// fakeRatingCache is an in-memory RatingCache.
type fakeRatingCache struct {
	mu      sync.Mutex
	ratings map[string]ratingstore.Rating
	saves   int
}

func newFakeRatingCache() *fakeRatingCache {
	return &fakeRatingCache{ratings: make(map[string]ratingstore.Rating)}
}

func (f *fakeRatingCache) LoadAll(context.Context) (map[string]ratingstore.Rating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]ratingstore.Rating, len(f.ratings))
	for k, v := range f.ratings {
		out[k] = v
	}
	return out, nil
}

func (f *fakeRatingCache) Save(_ context.Context, r ratingstore.Rating) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings[r.Path] = r
	f.saves++
	return nil
}

func TestRateWorkerCachesByPromptHash(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg")

	var rpcCalls atomic.Int32
	srv := modelServer(t, func(string) string {
		rpcCalls.Add(1)
		return validRatingJSON
	})
	cfg := testConfig(srv.URL)
	cache := newFakeRatingCache()

	// First run rates over RPC and saves.
	w := NewRate(cfg, newClient(srv.URL), cache, "")
	if err := w.Start(context.Background(), []worker.Item{{Path: path}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, summary := drain(t, w)
	if rpcCalls.Load() != 1 || summary.Succeeded != 1 {
		t.Fatalf("first run: rpc=%d summary=%+v", rpcCalls.Load(), summary)
	}
	if cache.saves != 1 {
		t.Errorf("saves = %d, want 1", cache.saves)
	}
	if _, ok := results[0].Data.(ratingstore.Rating); !ok {
		t.Fatalf("result data = %T, want a rating", results[0].Data)
	}

	// Second run with the same prompt is served from the cache.
	w2 := NewRate(cfg, newClient(srv.URL), cache, "")
	if err := w2.Start(context.Background(), []worker.Item{{Path: path}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results2, summary2 := drain(t, w2)
	if rpcCalls.Load() != 1 {
		t.Errorf("rpc calls = %d after cached run, want still 1", rpcCalls.Load())
	}
	if summary2.FromCache != 1 || !results2[0].FromCache {
		t.Errorf("cached run: summary=%+v results=%+v", summary2, results2)
	}

	// A prompt change invalidates the cache and re-rates.
	w3 := NewRate(cfg, newClient(srv.URL), cache, "judge this image harshly")
	if err := w3.Start(context.Background(), []worker.Item{{Path: path}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, summary3 := drain(t, w3)
	if rpcCalls.Load() != 2 {
		t.Errorf("rpc calls = %d after prompt change, want 2", rpcCalls.Load())
	}
	if summary3.FromCache != 0 {
		t.Errorf("summary = %+v, want no cache hits after prompt change", summary3)
	}
}

func TestRateWorkerEchoesPrompt(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg")

	var sawEcho atomic.Bool
	srv := modelServer(t, func(prompt string) string {
		if prompt == EchoPrompt(DefaultRatingPrompt) {
			sawEcho.Store(true)
		}
		return validRatingJSON
	})

	w := NewRate(testConfig(srv.URL), newClient(srv.URL), newFakeRatingCache(), "")
	if err := w.Start(context.Background(), []worker.Item{{Path: path}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	drain(t, w)

	if !sawEcho.Load() {
		t.Error("rating request did not carry the echoed prompt")
	}
}

func TestRateWorkerUnparseableAnswerFails(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg")

	srv := modelServer(t, func(string) string { return "I cannot rate this image." })
	cache := newFakeRatingCache()
	w := NewRate(testConfig(srv.URL), newClient(srv.URL), cache, "")
	if err := w.Start(context.Background(), []worker.Item{{Path: path}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, summary := drain(t, w)

	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if cache.saves != 0 {
		t.Errorf("saves = %d, want no cache write for a failed parse", cache.saves)
	}
}

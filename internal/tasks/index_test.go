package tasks

import (
	"context"
	"sync"
	"testing"

	"photo-curator/internal/worker"
)

// fakeVectorIndex is an in-memory VectorIndex.
type fakeVectorIndex struct {
	mu      sync.Mutex
	indexed map[string]bool
	added   map[string]string
}

func newFakeVectorIndex(preindexed ...string) *fakeVectorIndex {
	f := &fakeVectorIndex{
		indexed: make(map[string]bool),
		added:   make(map[string]string),
	}
	for _, p := range preindexed {
		f.indexed[p] = true
	}
	return f
}

func (f *fakeVectorIndex) IndexedPaths(context.Context) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.indexed))
	for k, v := range f.indexed {
		out[k] = v
	}
	return out, nil
}

func (f *fakeVectorIndex) Add(_ context.Context, path, description string, embedding []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[path] = true
	f.added[path] = description
	return nil
}

func TestIndexWorkerSkipsIndexedPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeJPEG(t, dir, "a.jpg")
	b := writeJPEG(t, dir, "b.jpg")
	c := writeJPEG(t, dir, "c.jpg")

	srv := modelServer(t, func(string) string { return "a red barn under a cloudy sky" })
	index := newFakeVectorIndex(a)

	w := NewIndex(testConfig(srv.URL), newClient(srv.URL), index)
	if err := w.Start(context.Background(), []worker.Item{{Path: a}, {Path: b}, {Path: c}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	results, summary := drain(t, w)

	if summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1 (pre-indexed path)", summary.Skipped)
	}
	if summary.Succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", summary.Succeeded)
	}
	if len(index.added) != 2 {
		t.Errorf("added = %v, want b and c only", index.added)
	}
	if _, ok := index.added[a]; ok {
		t.Error("pre-indexed path was re-indexed")
	}
	for _, r := range results {
		data, ok := r.Data.(IndexData)
		if !ok || data.Description == "" {
			t.Errorf("result %s: data = %+v, want a description", r.Path, r.Data)
		}
	}
}

func TestIndexWorkerEmptyDescriptionFails(t *testing.T) {
	dir := t.TempDir()
	path := writeJPEG(t, dir, "a.jpg")

	srv := modelServer(t, func(string) string { return "" })
	index := newFakeVectorIndex()

	w := NewIndex(testConfig(srv.URL), newClient(srv.URL), index)
	if err := w.Start(context.Background(), []worker.Item{{Path: path}}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, summary := drain(t, w)

	if summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 failed", summary)
	}
	if len(index.added) != 0 {
		t.Errorf("added = %v, want nothing stored", index.added)
	}
}

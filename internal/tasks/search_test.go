package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"photo-curator/internal/vecstore"
)

type fakeSearcher struct {
	results  []vecstore.SearchResult
	gotLimit int
	gotQuery []float32
}

func (f *fakeSearcher) SearchNearest(_ context.Context, query []float32, limit int) ([]vecstore.SearchResult, error) {
	f.gotQuery = query
	f.gotLimit = limit
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}

func searchResult(path string, distance float64) vecstore.SearchResult {
	r := vecstore.SearchResult{Distance: distance}
	r.Path = path
	r.Description = "desc of " + path
	return r
}

func TestSearchDropsDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeJPEG(t, dir, "a.jpg")
	b := writeJPEG(t, dir, "b.jpg")
	gone := filepath.Join(dir, "deleted.jpg")

	srv := modelServer(t, func(string) string { return "" })
	searcher := &fakeSearcher{results: []vecstore.SearchResult{
		searchResult(a, 0.1),
		searchResult(gone, 0.2),
		searchResult(b, 0.3),
	}}

	matches, err := Search(context.Background(), newClient(srv.URL), searcher, "red barn", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("matches = %+v, want the 2 existing files", matches)
	}
	if matches[0].Path != a || matches[1].Path != b {
		t.Errorf("matches = %+v, want distance order a then b", matches)
	}
	if len(searcher.gotQuery) != 3 {
		t.Errorf("query embedding dim = %d, want the fake server's 3", len(searcher.gotQuery))
	}
	if searcher.gotLimit != 20 {
		t.Errorf("store limit = %d, want the over-fetched 20", searcher.gotLimit)
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	dir := t.TempDir()
	var results []vecstore.SearchResult
	for i := 0; i < 5; i++ {
		path := writeJPEG(t, dir, fmt.Sprintf("img-%d.jpg", i))
		results = append(results, searchResult(path, float64(i)/10))
	}

	srv := modelServer(t, func(string) string { return "" })
	matches, err := Search(context.Background(), newClient(srv.URL), &fakeSearcher{results: results}, "query", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("matches = %d, want the limit of 2", len(matches))
	}
}

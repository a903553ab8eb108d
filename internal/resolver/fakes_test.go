package resolver

import (
	"context"
	"sync"
	"time"

	"github.com/desertthunder/altplay/internal/models"
	"github.com/desertthunder/altplay/internal/providers"
)

type fakeStream struct {
	name    string
	timeout time.Duration
	fn      func(ctx context.Context, id string) (*providers.StreamSet, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeStream) Name() string           { return f.name }
func (f *fakeStream) Kind() providers.Kind   { return providers.KindInvidious }
func (f *fakeStream) Timeout() time.Duration { return f.timeout }
func (f *fakeStream) Streams(ctx context.Context, id string) (*providers.StreamSet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	return f.fn(ctx, id)
}

func (f *fakeStream) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSearch struct {
	name    string
	timeout time.Duration
	fn      func(ctx context.Context, query string) ([]models.SearchResult, error)

	mu      sync.Mutex
	queries []string
}

func (f *fakeSearch) Name() string           { return f.name }
func (f *fakeSearch) Kind() providers.Kind   { return providers.KindPiped }
func (f *fakeSearch) Timeout() time.Duration { return f.timeout }
func (f *fakeSearch) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return f.fn(ctx, query)
}

func (f *fakeSearch) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func hits(ids ...string) []models.SearchResult {
	out := make([]models.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = models.SearchResult{ID: id, Title: "Title " + id, Uploader: "Uploader " + id, Duration: 100 + i}
	}
	return out
}

package search

import (
	"context"
	"errors"
	"testing"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	docs  []store.Document
	err   error
	calls int
	lastK int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]store.Document, error) {
	f.calls++
	f.lastK = k
	return f.docs, f.err
}

type fakeReranker struct {
	scores    []float64
	err       error
	lastQuery string
}

func (f *fakeReranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	f.lastQuery = query
	return f.scores, f.err
}

type fakeWeb struct {
	docs  []store.Document
	calls int
}

func (f *fakeWeb) Search(ctx context.Context, query string) []store.Document {
	f.calls++
	return f.docs
}

func TestOrchestratorRetrieve(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()

	t.Run("fuses local results", func(t *testing.T) {
		dense := &fakeSearcher{docs: []store.Document{chunk("a"), chunk("b")}}
		sparse := &fakeSearcher{docs: []store.Document{chunk("b")}}
		o := NewOrchestrator(dense, sparse, nil, nil, DefaultConfig(), log)

		res, err := o.Retrieve(ctx, "q", "")
		require.NoError(t, err)
		assert.Equal(t, OriginLocal, res.Origin)
		assert.Equal(t, []string{"b", "a"}, ids(res.Documents))
		assert.Equal(t, "content b\n\ncontent a", res.Context())
		assert.Equal(t, DefaultOutK, dense.lastK)
	})

	t.Run("reranks with the original wording", func(t *testing.T) {
		dense := &fakeSearcher{docs: []store.Document{chunk("a"), chunk("b"), chunk("c")}}
		sparse := &fakeSearcher{}
		rr := &fakeReranker{scores: []float64{0.1, 0.2, 0.9}}
		cfg := DefaultConfig()
		cfg.UseReranker = true
		cfg.RerankTopK = 2
		o := NewOrchestrator(dense, sparse, rr, nil, cfg, log)

		res, err := o.Retrieve(ctx, "rewritten", "original")
		require.NoError(t, err)
		assert.Equal(t, "original", rr.lastQuery)
		assert.Equal(t, []string{"c", "b"}, ids(res.Documents))
		assert.Equal(t, cfg.RerankCandidates, dense.lastK)
	})

	t.Run("rerank failure is an error", func(t *testing.T) {
		dense := &fakeSearcher{docs: []store.Document{chunk("a")}}
		rr := &fakeReranker{err: errors.New("boom")}
		cfg := DefaultConfig()
		cfg.UseReranker = true
		o := NewOrchestrator(dense, &fakeSearcher{}, rr, nil, cfg, log)

		_, err := o.Retrieve(ctx, "q", "q")
		assert.Error(t, err)
	})

	t.Run("search failure is an error", func(t *testing.T) {
		o := NewOrchestrator(&fakeSearcher{err: errors.New("db down")}, &fakeSearcher{}, nil, nil, DefaultConfig(), log)
		_, err := o.Retrieve(ctx, "q", "q")
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("web fallback only when local is empty", func(t *testing.T) {
		web := &fakeWeb{docs: []store.Document{{Source: "https://ar.example.com", Content: "نص"}}}
		cfg := DefaultConfig()
		cfg.UseWebFallback = true

		o := NewOrchestrator(&fakeSearcher{docs: []store.Document{chunk("a")}}, &fakeSearcher{}, nil, web, cfg, log)
		res, err := o.Retrieve(ctx, "q", "q")
		require.NoError(t, err)
		assert.Equal(t, OriginLocal, res.Origin)
		assert.Zero(t, web.calls)

		o = NewOrchestrator(&fakeSearcher{}, &fakeSearcher{}, nil, web, cfg, log)
		res, err = o.Retrieve(ctx, "q", "q")
		require.NoError(t, err)
		assert.Equal(t, OriginWeb, res.Origin)
		assert.Equal(t, 1, web.calls)
	})

	t.Run("blank local text counts as empty", func(t *testing.T) {
		blank := store.Document{ID: "x", Content: "   ", Metadata: map[string]interface{}{store.MetaChunkID: "x"}}
		o := NewOrchestrator(&fakeSearcher{docs: []store.Document{blank}}, &fakeSearcher{}, nil, nil, DefaultConfig(), log)
		res, err := o.Retrieve(ctx, "q", "q")
		require.NoError(t, err)
		assert.Equal(t, OriginNone, res.Origin)
		assert.True(t, res.Empty())
	})

	t.Run("fallback disabled without a web searcher", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UseWebFallback = true
		o := NewOrchestrator(&fakeSearcher{}, &fakeSearcher{}, nil, nil, cfg, log)
		res, err := o.Retrieve(ctx, "q", "q")
		require.NoError(t, err)
		assert.Equal(t, OriginNone, res.Origin)
	})
}

func TestQueryTerms(t *testing.T) {
	terms := QueryTerms("ألم في الضرس مع البارد؟", 0)
	assert.Contains(t, terms, "ضرس")
	assert.Contains(t, terms, "الضرس")
	assert.Contains(t, terms, "بارد")
	assert.NotContains(t, terms, "في")
	assert.NotContains(t, terms, "مع")
	assert.IsIncreasing(t, terms)
}

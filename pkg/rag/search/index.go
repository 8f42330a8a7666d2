package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"dental-triage-be/internal/repository/contract"
	"dental-triage-be/pkg/embedding"
	"dental-triage-be/pkg/lexical"
	"dental-triage-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// DenseSearcher embeds the query and ranks chunks by cosine similarity,
// dropping anything under the threshold.
type DenseSearcher struct {
	repo      contract.KnowledgeChunkRepository
	embedder  embedding.EmbeddingProvider
	threshold float64
	cache     *cache.Cache
}

func NewDenseSearcher(repo contract.KnowledgeChunkRepository, embedder embedding.EmbeddingProvider, threshold float64) *DenseSearcher {
	return &DenseSearcher{
		repo:      repo,
		embedder:  embedder,
		threshold: threshold,
		// Rewritten queries repeat a lot within one conversation
		cache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

func (s *DenseSearcher) Search(ctx context.Context, query string, k int) ([]store.Document, error) {
	vector, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := s.repo.SearchSimilarWithScore(ctx, vector, k, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return toDocuments(scored, "similarity"), nil
}

func (s *DenseSearcher) embed(ctx context.Context, query string) ([]float32, error) {
	if v, ok := s.cache.Get(query); ok {
		return v.([]float32), nil
	}
	res, err := s.embedder.Generate(ctx, query, embedding.TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	s.cache.Set(query, res.Embedding.Values, cache.DefaultExpiration)
	return res.Embedding.Values, nil
}

// SparseSearcher is the lexical index: Postgres full-text ranking over the
// normalized chunk text, queried with every clitic variant of the query terms.
type SparseSearcher struct {
	repo     contract.KnowledgeChunkRepository
	maxTerms int
}

func NewSparseSearcher(repo contract.KnowledgeChunkRepository) *SparseSearcher {
	return &SparseSearcher{repo: repo, maxTerms: 48}
}

func (s *SparseSearcher) Search(ctx context.Context, query string, k int) ([]store.Document, error) {
	terms := QueryTerms(query, s.maxTerms)
	if len(terms) == 0 {
		return []store.Document{}, nil
	}
	scored, err := s.repo.SearchLexical(ctx, terms, k)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	return toDocuments(scored, "lexical_rank"), nil
}

var stopWords = map[string]struct{}{
	"من": {}, "في": {}, "علي": {}, "عن": {}, "مع": {}, "الي": {},
	"او": {}, "ان": {}, "هل": {}, "ما": {}, "لا": {}, "هو": {}, "هي": {},
	"هذا": {}, "هذه": {}, "كان": {}, "عند": {}, "عندي": {}, "شو": {}, "كمان": {},
	"وصف": {}, "الحاله": {}, "عمر": {}, "المريض": {},
}

// QueryTerms expands the normalized query into sorted, de-duplicated
// lexical terms safe to embed in a tsquery.
func QueryTerms(query string, max int) []string {
	set := map[string]struct{}{}
	for v := range lexical.VariantSet(query) {
		term := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, v)
		if len([]rune(term)) < 2 {
			continue
		}
		if _, stop := stopWords[term]; stop {
			continue
		}
		set[term] = struct{}{}
	}

	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	if max > 0 && len(terms) > max {
		terms = terms[:max]
	}
	return terms
}

func toDocuments(scored []*contract.ScoredKnowledgeChunk, scoreKey string) []store.Document {
	docs := make([]store.Document, 0, len(scored))
	for _, sc := range scored {
		if sc == nil || sc.Chunk == nil {
			continue
		}
		meta := map[string]interface{}{}
		for k, v := range sc.Chunk.Metadata {
			meta[k] = v
		}
		meta[store.MetaChunkID] = sc.Chunk.ChunkId
		meta[store.MetaSource] = sc.Chunk.Source
		meta[scoreKey] = sc.Score

		docs = append(docs, store.Document{
			ID:       sc.Chunk.ChunkId,
			Source:   sc.Chunk.Source,
			Content:  sc.Chunk.Content,
			Score:    float32(sc.Score),
			Metadata: meta,
		})
	}
	return docs
}

package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const moduleName = "RETRIEVER"

// Searcher is one ranked index (dense or sparse).
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]store.Document, error)
}

// Reranker scores (query, passage) pairs; higher is more relevant.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

// WebSearcher never errors: any backend problem yields an empty result.
type WebSearcher interface {
	Search(ctx context.Context, query string) []store.Document
}

type Origin string

const (
	OriginNone  Origin = "none"
	OriginLocal Origin = "local"
	OriginWeb   Origin = "web"
)

type Config struct {
	RRFK             int
	OutK             int
	UseReranker      bool
	RerankCandidates int
	RerankTopK       int
	UseWebFallback   bool
}

func DefaultConfig() Config {
	return Config{
		RRFK:             DefaultRRFK,
		OutK:             DefaultOutK,
		RerankCandidates: 8,
		RerankTopK:       4,
	}
}

type Result struct {
	Documents []store.Document
	Origin    Origin
}

// Context joins passage texts with blank lines.
func (r *Result) Context() string {
	parts := make([]string, 0, len(r.Documents))
	for _, d := range r.Documents {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

func (r *Result) Empty() bool {
	return len(r.Documents) == 0 || strings.TrimSpace(r.Context()) == ""
}

// Orchestrator runs the hybrid retrieval: dense and sparse in parallel,
// RRF fusion, optional rerank, optional web fallback.
type Orchestrator struct {
	dense    Searcher
	sparse   Searcher
	reranker Reranker
	web      WebSearcher
	config   Config
	logger   logger.ILogger
}

// NewOrchestrator disables the rerank and web stages when their
// collaborator is nil, whatever the config says.
func NewOrchestrator(dense, sparse Searcher, reranker Reranker, web WebSearcher, config Config, log logger.ILogger) *Orchestrator {
	if reranker == nil {
		config.UseReranker = false
	}
	if web == nil {
		config.UseWebFallback = false
	}
	return &Orchestrator{
		dense:    dense,
		sparse:   sparse,
		reranker: reranker,
		web:      web,
		config:   config,
		logger:   log,
	}
}

// Retrieve searches the local indexes with query. rerankQuery is what the
// cross-encoder and the web fallback see (the patient's own wording).
func (o *Orchestrator) Retrieve(ctx context.Context, query, rerankQuery string) (*Result, error) {
	ctx, span := otel.Tracer("rag.search").Start(ctx, "search.Retrieve")
	defer span.End()

	if rerankQuery == "" {
		rerankQuery = query
	}

	fused, err := o.hybrid(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if o.config.UseReranker && len(fused) > 0 {
		before := len(fused)
		fused, err = o.rerank(ctx, rerankQuery, fused)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		o.logger.Debug(moduleName, "Reranked documents", map[string]interface{}{
			"before": before,
			"after":  len(fused),
		})
	}

	result := &Result{Documents: fused, Origin: OriginLocal}
	if !result.Empty() {
		span.SetAttributes(attribute.Int("search.documents", len(fused)))
		return result, nil
	}

	if o.config.UseWebFallback {
		webDocs := o.web.Search(ctx, rerankQuery)
		o.logger.Info(moduleName, "Local retrieval empty, used web fallback", map[string]interface{}{
			"web_results": len(webDocs),
		})
		if len(webDocs) > 0 {
			span.SetAttributes(attribute.Int("search.web_documents", len(webDocs)))
			return &Result{Documents: webDocs, Origin: OriginWeb}, nil
		}
	}

	return &Result{Documents: []store.Document{}, Origin: OriginNone}, nil
}

func (o *Orchestrator) hybrid(ctx context.Context, query string) ([]store.Document, error) {
	perList := o.config.OutK
	outK := o.config.OutK
	if o.config.UseReranker && o.config.RerankCandidates > 0 {
		perList = o.config.RerankCandidates
		outK = o.config.RerankCandidates
	}

	var denseDocs, sparseDocs []store.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := o.dense.Search(gctx, query, perList)
		if err != nil {
			return fmt.Errorf("dense search failed: %w", err)
		}
		denseDocs = docs
		return nil
	})
	g.Go(func() error {
		docs, err := o.sparse.Search(gctx, query, perList)
		if err != nil {
			return fmt.Errorf("sparse search failed: %w", err)
		}
		sparseDocs = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		o.logger.Error(moduleName, "Hybrid search failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	fused := FuseRRF(o.config.RRFK, outK, denseDocs, sparseDocs)
	o.logger.Debug(moduleName, "Fused ranked lists", map[string]interface{}{
		"dense":  len(denseDocs),
		"sparse": len(sparseDocs),
		"fused":  len(fused),
	})
	return fused, nil
}

func (o *Orchestrator) rerank(ctx context.Context, query string, docs []store.Document) ([]store.Document, error) {
	passages := make([]string, len(docs))
	for i, d := range docs {
		passages[i] = d.Content
	}

	scores, err := o.reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}
	if len(scores) != len(docs) {
		return nil, fmt.Errorf("rerank returned %d scores for %d documents", len(scores), len(docs))
	}

	return ApplyRerank(docs, scores, o.config.RerankTopK), nil
}

// ApplyRerank sorts by descending score (stable on the fused order), keeps
// topK and stamps rerank_score into each document's metadata.
func ApplyRerank(docs []store.Document, scores []float64, topK int) []store.Document {
	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if topK > 0 && len(idx) > topK {
		idx = idx[:topK]
	}

	out := make([]store.Document, 0, len(idx))
	for _, i := range idx {
		out = append(out, withMeta(docs[i], store.MetaRerankScore, scores[i]))
	}
	return out
}

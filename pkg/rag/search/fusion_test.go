package search

import (
	"fmt"
	"testing"

	"dental-triage-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id string) store.Document {
	return store.Document{
		ID:       id,
		Source:   "kb.txt",
		Content:  "content " + id,
		Metadata: map[string]interface{}{store.MetaChunkID: id},
	}
}

func ids(docs []store.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestDocKey(t *testing.T) {
	assert.Equal(t, "chunk:a#0", DocKey(chunk("a#0")))

	web1 := store.Document{Source: "https://x.test", Content: "نص"}
	web2 := store.Document{Source: "https://x.test", Content: "نص"}
	web3 := store.Document{Source: "https://y.test", Content: "نص"}
	assert.Equal(t, DocKey(web1), DocKey(web2))
	assert.NotEqual(t, DocKey(web1), DocKey(web3))
	assert.Contains(t, DocKey(web1), "https://x.test:")
}

func TestFuseRRF(t *testing.T) {
	t.Run("document in both lists wins", func(t *testing.T) {
		dense := []store.Document{chunk("a"), chunk("b"), chunk("c")}
		sparse := []store.Document{chunk("c"), chunk("d")}

		fused := FuseRRF(60, 8, dense, sparse)
		require.Len(t, fused, 4)
		assert.Equal(t, "c", fused[0].ID)

		// c: 1/63 + 1/61
		assert.InDelta(t, 1.0/63+1.0/61, fused[0].Metadata[store.MetaFusedScore], 1e-12)
	})

	t.Run("ties break on key", func(t *testing.T) {
		fused := FuseRRF(60, 8, []store.Document{chunk("z")}, []store.Document{chunk("m")})
		assert.Equal(t, []string{"m", "z"}, ids(fused))
	})

	t.Run("out k truncates", func(t *testing.T) {
		var list []store.Document
		for i := 0; i < 20; i++ {
			list = append(list, chunk(fmt.Sprintf("doc%02d", i)))
		}
		fused := FuseRRF(60, 8, list, nil)
		assert.Len(t, fused, 8)
		assert.Equal(t, "doc00", fused[0].ID)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, FuseRRF(60, 8, nil, nil))
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		dense := []store.Document{chunk("a")}
		FuseRRF(60, 8, dense, nil)
		_, stamped := dense[0].Metadata[store.MetaFusedScore]
		assert.False(t, stamped)
	})
}

func TestFuseRRFMonotonicInRank(t *testing.T) {
	// For every pair where A ranks strictly better than B in both lists,
	// A's fused score must be at least B's.
	dense := []store.Document{chunk("a"), chunk("b"), chunk("c"), chunk("d"), chunk("e")}
	sparse := []store.Document{chunk("b"), chunk("a"), chunk("d"), chunk("c"), chunk("e")}

	rank := func(list []store.Document) map[string]int {
		r := map[string]int{}
		for i, d := range list {
			r[d.ID] = i
		}
		return r
	}
	dr, sr := rank(dense), rank(sparse)

	scores := map[string]float64{}
	for _, d := range FuseRRF(60, 0, dense, sparse) {
		scores[d.ID] = d.Metadata[store.MetaFusedScore].(float64)
	}

	for a := range scores {
		for b := range scores {
			if dr[a] < dr[b] && sr[a] < sr[b] {
				assert.GreaterOrEqual(t, scores[a], scores[b], "%s vs %s", a, b)
			}
		}
	}
}

func TestApplyRerank(t *testing.T) {
	docs := []store.Document{chunk("a"), chunk("b"), chunk("c"), chunk("d"), chunk("e")}
	scores := []float64{0.1, 0.9, 0.5, 0.9, 0.3}

	out := ApplyRerank(docs, scores, 4)
	assert.Equal(t, []string{"b", "d", "c", "e"}, ids(out))
	assert.Equal(t, 0.9, out[0].Metadata[store.MetaRerankScore])

	score := out[2].RelevanceScore()
	require.NotNil(t, score)
	assert.Equal(t, 0.5, *score)
}

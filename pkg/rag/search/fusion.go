package search

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"

	"dental-triage-be/pkg/store"
)

const (
	DefaultRRFK = 60
	DefaultOutK = 8
)

// DocKey prefers the chunk id; otherwise the identity is source plus a
// content hash so the same excerpt from both indexes collapses into one.
func DocKey(doc store.Document) string {
	if id := chunkID(doc); id != "" {
		return "chunk:" + id
	}
	sum := sha1.Sum([]byte(doc.Content))
	return sourceOf(doc) + ":" + hex.EncodeToString(sum[:])
}

// FuseRRF merges ranked lists with reciprocal rank fusion: a document at
// 1-based rank r contributes 1/(rrfK+r) per list. Ties break on the key.
// The fused score is stamped into each returned document's metadata.
func FuseRRF(rrfK, outK int, lists ...[]store.Document) []store.Document {
	if rrfK <= 0 {
		rrfK = DefaultRRFK
	}

	scores := map[string]float64{}
	docs := map[string]store.Document{}
	for _, list := range lists {
		for i, doc := range list {
			key := DocKey(doc)
			scores[key] += 1.0 / float64(rrfK+i+1)
			if _, ok := docs[key]; !ok {
				docs[key] = doc
			}
		}
	}

	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if scores[keys[i]] != scores[keys[j]] {
			return scores[keys[i]] > scores[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if outK > 0 && len(keys) > outK {
		keys = keys[:outK]
	}

	out := make([]store.Document, 0, len(keys))
	for _, k := range keys {
		doc := withMeta(docs[k], store.MetaFusedScore, scores[k])
		doc.Score = float32(scores[k])
		out = append(out, doc)
	}
	return out
}

func chunkID(doc store.Document) string {
	if v, ok := doc.Metadata[store.MetaChunkID].(string); ok && v != "" {
		return v
	}
	return doc.ID
}

func sourceOf(doc store.Document) string {
	if doc.Source != "" {
		return doc.Source
	}
	if v, ok := doc.Metadata[store.MetaSource].(string); ok {
		return v
	}
	return ""
}

// withMeta copies the metadata map so stamped scores never leak into the
// caller's documents.
func withMeta(doc store.Document, key string, value interface{}) store.Document {
	meta := make(map[string]interface{}, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta[key] = value
	doc.Metadata = meta
	return doc
}

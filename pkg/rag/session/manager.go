// Package session keeps the rolling description of the current dental case.
package session

import (
	"strings"

	"dental-triage-be/pkg/rag/relevance"
	"dental-triage-be/pkg/store"
)

// MaxCaseParts bounds the case, image marker included.
const MaxCaseParts = 8

// states after which a short reply is read as an answer to our question
var continuingStates = map[string]struct{}{
	store.StateNeedFollowup: {},
	store.StateNonDental:    {},
	store.StateTriaged:      {},
}

// Manager applies the case-continuity rules. It holds no per-session
// state, everything lives on the store.Session passed in.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// UpdateCase folds text into session.CaseParts and returns the new parts:
//   - dental text, or any text while the image shows disease, is appended
//   - a short reply continues an open case after a follow-up, decline or verdict
//   - anything else resets the case
//
// The image marker, when present, is pinned first and the oldest user
// parts are dropped to stay within MaxCaseParts.
func (m *Manager) UpdateCase(s *store.Session, text string) []string {
	return m.UpdateCaseFor(s, text, relevance.Classify(text))
}

// UpdateCaseFor is UpdateCase with the message already classified.
func (m *Manager) UpdateCaseFor(s *store.Session, text string, sig relevance.Signals) []string {
	text = strings.TrimSpace(text)
	marker := ImageMarker(s.ImageAI)

	parts := userParts(s.CaseParts)
	_, continuing := continuingStates[s.LastState]

	switch {
	case sig.Dental || marker != "":
		parts = append(parts, text)
	case len(s.CaseParts) > 0 && continuing && sig.ShortReply:
		parts = append(parts, text)
	default:
		parts = []string{}
	}

	limit := MaxCaseParts
	if marker != "" {
		limit--
	}
	if len(parts) > limit {
		parts = parts[len(parts)-limit:]
	}
	if marker != "" {
		parts = append([]string{marker}, parts...)
	}

	s.CaseParts = parts
	return parts
}

// MergedText is the case as one string, or the raw text when there is no case.
func MergedText(parts []string, text string) string {
	if len(parts) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(parts, " ")
}

func userParts(parts []string) []string {
	out := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if strings.HasPrefix(p, ImageMarkerPrefix) {
			continue
		}
		out = append(out, p)
	}
	return out
}

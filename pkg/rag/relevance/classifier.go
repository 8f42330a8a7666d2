// Package relevance is the cheap, deterministic gate in front of retrieval
// and generation: it tags a message as dental, as describing a trigger,
// or as being about a child.
package relevance

import (
	"strings"
	"unicode/utf8"

	"dental-triage-be/pkg/lexical"
)

const (
	shortFollowupMaxRunes  = 18
	shortFollowupMaxTokens = 4
)

// Signals is the full classification of one message, computed with a
// single normalization pass.
type Signals struct {
	Dental     bool
	Trigger    bool
	Child      bool
	Greeting   bool
	Explain    bool
	Flash      bool
	BareFlash  bool
	ShortReply bool
}

func Classify(text string) Signals {
	norm := lexical.Normalize(text)
	variants := lexical.VariantSet(text)
	trigger := matchTrigger(norm, variants)
	flash := hasAny(variants, sensitivityToken)

	return Signals{
		Dental:     trigger || matchDental(norm, variants),
		Trigger:    trigger,
		Child:      matchChild(norm, variants),
		Greeting:   IsGreeting(text),
		Explain:    matchExplain(norm),
		Flash:      flash,
		BareFlash:  flash && !trigger,
		ShortReply: isShort(text, len(strings.Fields(norm))),
	}
}

// IsDentalRelevant reports whether the text mentions a dental term or phrase,
// or describes a cold/hot/sweet/spontaneous trigger on its own.
func IsDentalRelevant(text string) bool {
	norm := lexical.Normalize(text)
	variants := lexical.VariantSet(text)
	return matchDental(norm, variants) || matchTrigger(norm, variants)
}

func HasSensitivityTrigger(text string) bool {
	return matchTrigger(lexical.Normalize(text), lexical.VariantSet(text))
}

func MentionsChild(text string) bool {
	return matchChild(lexical.Normalize(text), lexical.VariantSet(text))
}

// IsGreeting is an exact match on the trimmed message, nothing more.
func IsGreeting(text string) bool {
	t := strings.TrimSpace(text)
	_, ok := greetings[t]
	if !ok {
		_, ok = greetings[strings.ToLower(t)]
	}
	return ok
}

// isShort: at most 18 characters or at most 4 normalized tokens.
func isShort(text string, tokens int) bool {
	if utf8.RuneCountInString(strings.TrimSpace(text)) <= shortFollowupMaxRunes {
		return true
	}
	return tokens <= shortFollowupMaxTokens
}

// IsExplainRequest matches "explain/interpret" together with a reference to
// the case, the result, the image or "what I sent".
func IsExplainRequest(text string) bool {
	return matchExplain(lexical.Normalize(text))
}

func matchExplain(norm string) bool {
	return containsAny(norm, explainVerbs) && containsAny(norm, explainObjects)
}

func matchChild(norm string, variants map[string]struct{}) bool {
	for v := range variants {
		if _, ok := childTokens[v]; ok {
			return true
		}
	}
	return containsAny(norm, childPhrases)
}

func matchDental(norm string, variants map[string]struct{}) bool {
	for v := range variants {
		if _, ok := dentalTokens[v]; ok {
			return true
		}
	}
	return containsAny(norm, dentalPhrases)
}

func matchTrigger(norm string, variants map[string]struct{}) bool {
	for v := range variants {
		if _, ok := triggerTokens[v]; ok {
			return true
		}
	}
	return containsAny(norm, triggerPhrases)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasAny(set map[string]struct{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}

// Package lexical canonicalizes Arabic text so keyword and phrase
// lookups survive spelling variation.
package lexical

import (
	"strings"
	"unicode"
)

var letterFolds = map[rune]rune{
	'أ': 'ا',
	'إ': 'ا',
	'آ': 'ا',
	'ى': 'ي',
	'ؤ': 'و',
	'ئ': 'ي',
	'ة': 'ه',
}

// isDiacritic covers Quranic marks, harakat, superscript alef and tatweel.
func isDiacritic(r rune) bool {
	return (r >= 0x0617 && r <= 0x061A) ||
		(r >= 0x064B && r <= 0x0652) ||
		r == 0x0670 || r == 0x0640
}

func isArabicBlock(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// Normalize strips diacritics and tatweel, folds letter variants,
// lowercases, turns punctuation into spaces and collapses whitespace.
// It is total and idempotent.
func Normalize(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		if isDiacritic(r) {
			continue
		}
		if folded, ok := letterFolds[r]; ok {
			r = folded
		}
		r = unicode.ToLower(r)

		if unicode.IsSpace(r) || !(isWordRune(r) || isArabicBlock(r)) {
			pendingSpace = sb.Len() > 0
			continue
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Tokens splits normalized text on whitespace.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

const (
	definiteArticle = "ال"
	prepWithArticle = "بال"
	prepBa          = "ب"
)

func stripArticle(token string) string {
	if strings.HasPrefix(token, definiteArticle) && runeLen(token) > 2 {
		return strings.TrimPrefix(token, definiteArticle)
	}
	return token
}

// Variants returns the token plus its forms without a leading ال, بال or ب
// clitic, so one lexicon entry matches its common inflections.
func Variants(token string) []string {
	token = strings.TrimSpace(token)
	seen := map[string]struct{}{}
	var out []string
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(token)
	add(stripArticle(token))
	if strings.HasPrefix(token, prepWithArticle) && runeLen(token) > 3 {
		rest := strings.TrimPrefix(token, prepWithArticle)
		add(rest)
		add(stripArticle(rest))
	}
	if strings.HasPrefix(token, prepBa) && runeLen(token) > 1 {
		rest := strings.TrimPrefix(token, prepBa)
		add(rest)
		add(stripArticle(rest))
	}
	return out
}

// VariantSet normalizes text and expands every token into its clitic variants.
func VariantSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range Tokens(text) {
		for _, v := range Variants(tok) {
			set[v] = struct{}{}
		}
	}
	return set
}

func runeLen(s string) int {
	return len([]rune(s))
}

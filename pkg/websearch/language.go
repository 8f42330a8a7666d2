package websearch

import "strings"

// LanguageFilter keeps results written mostly in Arabic.
type LanguageFilter struct {
	MinArabicChars int
	// Arabic characters must be at least Ratio times the Latin letters
	// whenever any Latin letter is present.
	Ratio          float64
	RequireURLHint bool
}

func DefaultLanguageFilter() LanguageFilter {
	return LanguageFilter{MinArabicChars: 40, Ratio: 3}
}

var arabicURLHints = []string{
	"/ar/", "/arab", "lang=ar", "language=ar", "locale=ar", "/العربية", "ar.",
}

func countScripts(text string) (arabic, latin int) {
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			latin++
		}
	}
	return arabic, latin
}

func (f LanguageFilter) IsArabicText(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	arabic, latin := countScripts(text)
	if arabic < f.MinArabicChars {
		return false
	}
	if latin > 0 && float64(arabic) < float64(latin)*f.Ratio {
		return false
	}
	return true
}

func URLLooksArabic(url string) bool {
	if url == "" {
		return false
	}
	u := strings.ToLower(url)
	for _, h := range arabicURLHints {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// Accept checks title plus content and, when required, the URL hint.
func (f LanguageFilter) Accept(title, content, url string) bool {
	if !f.IsArabicText(title + "\n" + content) {
		return false
	}
	if f.RequireURLHint && !URLLooksArabic(url) {
		return false
	}
	return true
}

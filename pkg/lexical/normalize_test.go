package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "only punctuation", input: "?!...", want: ""},
		{name: "diacritics and tatweel", input: "أَسْنـــان", want: "اسنان"},
		{name: "alef variants", input: "إأآ", want: "ااا"},
		{name: "teh marbuta and alef maksura", input: "لثة مستشفى", want: "لثه مستشفي"},
		{name: "hamza carriers", input: "مؤلم سئل", want: "مولم سيل"},
		{name: "punctuation becomes space", input: "ضرس,العقل!", want: "ضرس العقل"},
		{name: "arabic punctuation kept", input: "ليش؟", want: "ليش؟"},
		{name: "latin lowercased", input: "Hello  WORLD", want: "hello world"},
		{name: "whitespace collapsed and trimmed", input: "  وجع \n\t سن  ", want: "وجع سن"},
		{name: "digits kept", input: "عمري 25 سنة", want: "عمري 25 سنه"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"ضِرْسُ العَقْلِ يوجعني من البارد!!",
		"صعوبة تنفّس وتورّم بالوجه",
		"Hello, مرحباً... كيف الحال؟",
		"İstanbul ﷺ  ـــ  ٣٤٥",
		"áb‌c",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		token string
		want  []string
	}{
		{token: "ضرس", want: []string{"ضرس"}},
		{token: "الفك", want: []string{"الفك", "فك"}},
		{token: "بالبارد", want: []string{"بالبارد", "البارد", "بارد"}},
		{token: "بسن", want: []string{"بسن", "سن"}},
		{token: "ال", want: []string{"ال"}},
		{token: "ب", want: []string{"ب"}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, Variants(tt.token))
		})
	}
}

func TestVariantSet(t *testing.T) {
	set := VariantSet("وجع بالأسنان")
	assert.Contains(t, set, "اسنان")
	assert.Contains(t, set, "وجع")
	assert.NotContains(t, set, "بالأسنان")
}

package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitTextShortInput(t *testing.T) {
	assert.Equal(t, []string{"ضرس"}, SplitText("ضرس", 800, 150))
	assert.Equal(t, []string{""}, SplitText("", 800, 150))
}

func TestSplitTextCountsRunes(t *testing.T) {
	// 500 Arabic runes are 1000 bytes; still a single chunk
	text := strings.Repeat("س", 500)
	assert.Len(t, SplitText(text, 800, 150), 1)
}

func TestSplitTextBoundsAndOverlap(t *testing.T) {
	text := strings.Repeat("ألم السن مع البارد ", 120)
	chunks := SplitText(text, 800, 150)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 800)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-150:])
		assert.True(t, strings.HasPrefix(chunks[i], tail), "chunk %d should start with the previous tail", i)
	}
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestSplitTextPrefersWhitespace(t *testing.T) {
	text := strings.Repeat("كلمة ", 50)
	chunks := SplitText(text, 32, 0)
	for _, c := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(c, " "), c)
	}
}

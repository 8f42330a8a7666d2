package prompt

import (
	"testing"

	"dental-triage-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func TestTriageKeepsParserLabels(t *testing.T) {
	p := Triage("سياق", "سؤال")
	assert.Contains(t, p, "الاختصاص الأنسب")
	assert.Contains(t, p, "أسئلة متابعة")
	assert.Contains(t, p, "سياق")
	assert.Contains(t, p, "سؤال")
}

func TestWebTriageMarksContextAsWeb(t *testing.T) {
	p := WebTriage("ctx", "q")
	assert.Contains(t, p, "مقتطفات ويب عامة وليست تشخيصاً")
	assert.Contains(t, p, "الاختصاص الأنسب")
}

func TestWebContext(t *testing.T) {
	out := WebContext([]store.Document{
		{Title: "عنوان", Source: "https://a.test", Content: " نص "},
		{Content: "آخر"},
	})
	assert.Equal(t, "[1] عنوان\nنص\nالمصدر: https://a.test\n\n[2] بدون عنوان\nآخر\nالمصدر: unknown", out)
}

func TestCaseQuery(t *testing.T) {
	assert.Equal(t, "عمر المريض: 25.\nوصف الحالة: ضرس", CaseQuery(25, "ضرس"))
}

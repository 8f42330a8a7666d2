// Package response turns generated triage text into a structured verdict.
// Extraction is best effort: anything it cannot read stays non-final.
package response

import (
	"regexp"
	"strings"
	"unicode"

	"dental-triage-be/pkg/lexical"
)

// Specialties is the closed set a verdict can name. When the labelled line
// mentions several, the one written first wins.
var Specialties = []string{
	"ترميمية",
	"لبية",
	"لثوية",
	"تعويضات ثابتة",
	"تعويضات متحركة",
	"أسنان أطفال",
}

// PediatricSpecialty is the referral target for children.
const PediatricSpecialty = "أسنان أطفال"

const (
	specialtyLabel = "الاختصاص"
	bestLabel      = "الأنسب"
	followUpLabel  = "أسئلة متابعة"
	scanWindow     = 4
)

var specialtyLine = regexp.MustCompile(`الاختصاص\s+الأنسب.*?:\s*-\s*(.+)`)

// hedgingPhrases are compared after normalization.
var hedgingPhrases = normalizeAll([]string{
	"لا يمكن تحديد",
	"لا يمكن الجزم",
	"لا أستطيع تحديد",
	"من الصعب تحديد",
	"غير كافية",
	"غير كافي",
	"معلومات ناقصة",
	"بحاجة لمزيد من المعلومات",
	"نحتاج مزيد من المعلومات",
	"يرجى التوضيح",
	"يرجى توضيح",
	"غير مؤكد",
	"cannot be determined",
	"can't be determined",
	"insufficient information",
	"not enough information",
	"please clarify",
})

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		out = append(out, lexical.Normalize(p))
	}
	return out
}

// ParseSpecialty finds the specialty named under the "الاختصاص الأنسب"
// label. It tries the inline "label: - value" form first, then scans the
// few bullet lines after the label.
func ParseSpecialty(answer string) *string {
	if strings.TrimSpace(answer) == "" {
		return nil
	}

	if m := specialtyLine.FindStringSubmatch(answer); m != nil {
		if sp := matchSpecialty(m[1]); sp != nil {
			return sp
		}
	}

	lines := nonEmptyLines(answer)
	for i, ln := range lines {
		if !strings.Contains(ln, specialtyLabel) || !strings.Contains(ln, bestLabel) {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+scanWindow; j++ {
			if !strings.HasPrefix(lines[j], "-") {
				continue
			}
			if sp := matchSpecialty(strings.TrimLeft(lines[j], "- ")); sp != nil {
				return sp
			}
		}
		break
	}
	return nil
}

// matchSpecialty reads the candidate up to its first comma.
func matchSpecialty(candidate string) *string {
	candidate = strings.TrimSpace(candidate)
	if i := strings.IndexAny(candidate, "،,"); i >= 0 {
		candidate = strings.TrimSpace(candidate[:i])
	}
	best, bestAt := "", -1
	for _, sp := range Specialties {
		at := strings.Index(candidate, sp)
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = sp, at
		}
	}
	if bestAt < 0 {
		return nil
	}
	return &best
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

// HasHedging reports uncertainty language anywhere in the answer.
func HasHedging(answer string) bool {
	norm := lexical.Normalize(answer)
	for _, p := range hedgingPhrases {
		if p != "" && strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// splitFollowUp returns the answer before the follow-up questions label
// and the section itself (label included). section is empty when there is
// no label.
func splitFollowUp(answer string) (body, section string) {
	idx := strings.Index(answer, followUpLabel)
	if idx < 0 {
		return answer, ""
	}
	start := strings.LastIndex(answer[:idx], "\n") + 1
	return answer[:start], answer[start:]
}

// StripFollowUpSection drops the follow-up questions section and anything
// after it.
func StripFollowUpSection(answer string) string {
	body, _ := splitFollowUp(answer)
	return strings.TrimRightFunc(body, unicode.IsSpace)
}

// placeholder bullets the model copies from the template
var emptyItems = map[string]struct{}{
	"":        {},
	"...":     {},
	"…":       {},
	"لا يوجد": {},
	"لا شيء":  {},
	"none":    {},
	"n/a":     {},
}

// hasSubstantiveFollowUp reports a bullet under the follow-up label that
// is more than a template placeholder.
func hasSubstantiveFollowUp(section string) bool {
	lines := nonEmptyLines(section)
	if len(lines) < 2 {
		return false
	}
	for _, ln := range lines[1:] {
		item := strings.TrimLeftFunc(ln, func(r rune) bool {
			return r == '-' || r == '•' || r == '*' || r == '.' || r == ')' || unicode.IsDigit(r) || unicode.IsSpace(r)
		})
		item = strings.ToLower(strings.TrimSpace(item))
		if _, ok := emptyItems[item]; !ok {
			return true
		}
	}
	return false
}

// Reason records which rule decided finality.
type Reason string

const (
	ReasonFinal           Reason = "final"
	ReasonNoSpecialty     Reason = "no_specialty"
	ReasonHedging         Reason = "hedging"
	ReasonFollowUpSection Reason = "follow_up_section"
	ReasonQuestionMark    Reason = "question_mark"
)

// Decision is the verdict read from one generated answer. Specialty is
// only set when IsFinal is true.
type Decision struct {
	Specialty *string
	IsFinal   bool
	Answer    string
	Reason    Reason
}

// Decide applies the finality rules in order: no specialty, hedging
// language, a follow-up section with a real question, a question mark in
// the body. A final answer loses its follow-up section.
func Decide(answer string) Decision {
	non := func(r Reason) Decision {
		return Decision{Answer: answer, Reason: r}
	}

	specialty := ParseSpecialty(answer)
	if specialty == nil {
		return non(ReasonNoSpecialty)
	}
	if HasHedging(answer) {
		return non(ReasonHedging)
	}
	body, section := splitFollowUp(answer)
	if hasSubstantiveFollowUp(section) {
		return non(ReasonFollowUpSection)
	}
	if strings.ContainsAny(body, "?؟") {
		return non(ReasonQuestionMark)
	}

	return Decision{
		Specialty: specialty,
		IsFinal:   true,
		Answer:    StripFollowUpSection(answer),
		Reason:    ReasonFinal,
	}
}

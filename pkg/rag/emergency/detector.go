// Package emergency scans the patient's own words for red-flag phrases.
// It never looks at generated text.
package emergency

import (
	"strings"

	"dental-triage-be/pkg/lexical"
)

const (
	AdviceEmergencyDepartment = "هذه علامات خطرة. يُنصح بمراجعة الطوارئ فوراً."
	AdviceUrgentDentist       = "يُنصح بزيارة طبيب الأسنان بشكل عاجل."
)

// airway terms come first; the order is preserved in Info.RedFlags.
var airwayFlags = []string{
	"صعوبه تنفس",
	"ضيق تنفس",
	"اختناق",
	"صعوبه بلع",
	"ما عم اقدر بلع",
}

var otherFlags = []string{
	"تورم",
	"انتفاخ",
	"حراره",
	"حمى",
	"قشعريره",
	"قيح",
	"خراج",
	"الم ليلي",
	"يوقظ من النوم",
}

type Info struct {
	RedFlags []string `json:"red_flags"`
	Advice   *string  `json:"advice"`
}

func (i Info) IsEmergency() bool {
	return len(i.RedFlags) > 0
}

// Detect returns an empty Info when nothing matched; Advice is set only
// when at least one red flag is present.
func Detect(text string) Info {
	norm := lexical.Normalize(text)

	info := Info{RedFlags: []string{}}
	airway := false
	for _, term := range airwayFlags {
		if strings.Contains(norm, term) {
			info.RedFlags = append(info.RedFlags, term)
			airway = true
		}
	}
	for _, term := range otherFlags {
		if strings.Contains(norm, term) {
			info.RedFlags = append(info.RedFlags, term)
		}
	}

	if !info.IsEmergency() {
		return info
	}
	advice := AdviceUrgentDentist
	if airway {
		advice = AdviceEmergencyDepartment
	}
	info.Advice = &advice
	return info
}

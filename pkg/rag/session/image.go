package session

import (
	"fmt"
	"strings"

	"dental-triage-be/pkg/store"
)

// ImageMarkerPrefix tags the synthetic case entry carrying the image result.
const ImageMarkerPrefix = "[ImageAI] "

var diseaseStatuses = map[string]struct{}{
	"disease_detected": {},
	"detected":         {},
	"positive":         {},
}

// IsDiseaseDetected reports whether the image result is a usable hint.
// reupload, error and the no-disease statuses are not.
func IsDiseaseDetected(img *store.ImageResult) bool {
	if img == nil || strings.TrimSpace(img.Prediction) == "" {
		return false
	}
	_, ok := diseaseStatuses[strings.ToLower(strings.TrimSpace(img.Status))]
	return ok
}

func confidenceSuffix(img *store.ImageResult) string {
	if img.Confidence == nil {
		return ""
	}
	return fmt.Sprintf(" (ثقة تقريباً %.2f)", *img.Confidence)
}

func describePrediction(img *store.ImageResult) string {
	pred := strings.ToLower(strings.TrimSpace(img.Prediction))
	conf := confidenceSuffix(img)
	switch pred {
	case "caries":
		return "نموذج الصورة رجّح تسوّس (caries)" + conf + "."
	case "calculus":
		return "نموذج الصورة رجّح جير/ترسّبات (calculus)" + conf + "."
	case "hypodontia":
		return "نموذج الصورة رجّح نقص/فقد أسنان (hypodontia)" + conf + "."
	default:
		return fmt.Sprintf("نتيجة نموذج الصورة: prediction=%s%s.", pred, conf)
	}
}

// ImageHint is the plain-language note folded into the case, or "" when
// the result carries no disease signal.
func ImageHint(img *store.ImageResult) string {
	if !IsDiseaseDetected(img) {
		return ""
	}
	return describePrediction(img)
}

func ImageMarker(img *store.ImageResult) string {
	hint := ImageHint(img)
	if hint == "" {
		return ""
	}
	return ImageMarkerPrefix + hint
}

// ExplainImage renders a short explanation for an "explain the result"
// request, or "" when no image result is on file.
func ExplainImage(img *store.ImageResult) string {
	if img == nil || strings.TrimSpace(img.Prediction) == "" {
		return ""
	}

	base := ImageHint(img)
	if base == "" {
		status := strings.ToLower(strings.TrimSpace(img.Status))
		if status == "" {
			base = "وصلتني نتيجة نموذج الصورة."
		} else {
			base = fmt.Sprintf("نتيجة نموذج الصورة: status=%s.", status)
		}
	}

	switch strings.ToLower(strings.TrimSpace(img.Prediction)) {
	case "calculus":
		return base + "\n" +
			"الـ calculus غالباً يعني ترسّبات/جير حول الأسنان واللثة، وهاد يرتبط كثيراً بالتهاب اللثة ونزف ورائحة.\n" +
			"التوجيه الأولي غالباً: **لثوية** (تنظيف + تقييم لثة)."
	case "caries":
		return base + "\n" +
			"الـ caries يعني تسوّس. التوجيه الأولي غالباً: **ترميمية** (حشوة) " +
			"وإذا الألم طويل/ليلي ممكن نحتاج **لبية**."
	case "hypodontia":
		return base + "\n" +
			"الـ hypodontia يعني نقص/غياب أسنان. التوجيه الأولي غالباً: **تعويضات** " +
			"(ثابتة/متحركة حسب الحالة) ومع العمر ممكن يكون **أسنان أطفال** إذا المريض صغير."
	default:
		return base
	}
}

package response

import "fmt"

// Canned replies for the turns that never reach generation.
const (
	AskAge = "تمام. قبل ما نكمل، قديش عمرك؟"

	Greeting = "أهلاً! احكيلي شو المشكلة السنية اللي عندك؟"

	ExplainSuffix = "\n\nاحكيلي كمان شوي لنثبت الاتجاه."

	ExplainNothingCached = "أكيد. بس لحتى اشرح صح، احكيلي شو الأعراض؟ (سن/ضرس/لثة/فك) ومحفّز الألم ومدته."

	NonDentalDecline = "أهلاً! فيني ساعدك، بس دوري الأساسي هو فرز حالات الأسنان. " +
		"إذا عندك مشكلة سنية احكيلي عنها (ألم/حساسية/لثة/فك/تعويضات)."

	AskTrigger = "أهلاً! لنحدد الاختصاص بدقة لازم أعرف محفّز اللمعة:\n" +
		"- هل تأتي مع البارد؟\n" +
		"- مع الحلو؟\n" +
		"- مع الحار/السخن؟\n" +
		"- أم بدون سبب واضح (عفوية)؟\n" +
		"أخبرني أيضاً عن مدة الألم بعد المحفّز."

	DescribeMore = "أهلاً! أنا مساعد فرز لحالات الأسنان. " +
		"حاول توصفلي أكثر: أين مكان الألم بالضبط؟ منذ متى بدأ؟ " +
		"هل يزداد مع البارد أو الحار أو عند العض؟ وهل يوجد تورّم أو نزف أو حرارة عامة؟"

	childReferralWithAge = "يُحوَّل مباشرة إلى اختصاص أسنان أطفال (العمر: %d سنة). يرجى المتابعة مع طبيب أسنان أطفال."
	childReferral        = "يُحوَّل مباشرة إلى اختصاص أسنان أطفال. يرجى المتابعة مع طبيب أسنان أطفال."
)

// ChildReferral names the age when the patient is under the adult cutoff;
// a child mentioned by an adult patient gets the bare referral.
func ChildReferral(age int, ageIsChild bool) string {
	if ageIsChild {
		return fmt.Sprintf(childReferralWithAge, age)
	}
	return childReferral
}

// Explain replays a cached explanation with the invite to continue.
func Explain(cached string) string {
	return cached + ExplainSuffix
}

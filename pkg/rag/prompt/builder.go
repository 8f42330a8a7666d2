// Package prompt holds the generation templates. Their wording is part of
// the contract with the response parser: the triage templates must keep
// the "الاختصاص الأنسب" and "أسئلة متابعة" section labels.
package prompt

import (
	"fmt"
	"strings"

	"dental-triage-be/pkg/store"
)

const untitled = "بدون عنوان"

var adultSpecialties = []string{
	"ترميمية",
	"لبية",
	"لثوية",
	"تعويضات ثابتة",
	"تعويضات متحركة",
}

func writeSpecialtyList(sb *strings.Builder) {
	for _, sp := range adultSpecialties {
		sb.WriteString("- " + sp + "\n")
	}
}

// Rewrite turns the patient's words into a short clinical description used
// only as the retrieval query.
func Rewrite(question string) string {
	var sb strings.Builder
	sb.WriteString("أنت مساعد لإعادة صياغة شكوى مريض في مجال طب الأسنان.\n")
	sb.WriteString("حوّل النص التالي إلى وصف طبي مختصر وواضح، ")
	sb.WriteString("بدون إضافة أعراض جديدة غير مذكورة، وبدون تغيير المعنى.\n\n")
	sb.WriteString("شكوى المريض:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nالوصف الطبي المختصر:")
	return sb.String()
}

// Triage is the main template over knowledge-base context.
func Triage(context, question string) string {
	var sb strings.Builder

	sb.WriteString("أنت مساعد فرز (triage) تفاعلي في طب الأسنان.\n")
	sb.WriteString("مهمتك قراءة شكوى المريض واستخدام السياق الطبي المرفق لتحديد أقرب اختصاص أسنان للبالغين ")
	sb.WriteString("(ترميمية/لبية/لثوية/تعويضات ثابتة/تعويضات متحركة)، ")
	sb.WriteString("وطرح أسئلة متابعة محددة إذا كانت المعلومات ناقصة.\n\n")

	sb.WriteString("قواعد الأطفال:\n")
	sb.WriteString("- إذا كان عمر المريض أقل من 13 سنة أو كان واضحاً أنه طفل → حول مباشرة إلى أسنان أطفال ")
	sb.WriteString("ولا تستعرض اختصاصات البالغين.\n\n")

	sb.WriteString("الاختصاصات المتاحة للبالغين فقط:\n")
	writeSpecialtyList(&sb)
	sb.WriteString("\n")

	sb.WriteString("قواعد خاصة بالعمر:\n")
	sb.WriteString("- إذا كان عمر المريض أقل من 13 سنة أو كان واضحاً أنه طفل، فالاختصاص: أسنان أطفال (تحويل).\n")
	sb.WriteString("- إذا لم يُذكر العمر، حلّل الأعراض فقط بدون اختراع عمر.\n\n")

	sb.WriteString("إرشادات سريعة للتمييز بين الحالات:\n")
	sb.WriteString("- حساسية/ترميمية: لمعة أو ألم خفيف/حاد قصير جداً مع البارد أو الحار أو الحلو أو الحامض، ")
	sb.WriteString("يختفي فور إزالة المؤثّر، بدون ألم تلقائي وبدون ألم يوقظ المريض من النوم → يرجّح اختصاص ترميمية ")
	sb.WriteString("(أو مع لثوية إذا كان السبب انحسار لثة أو تعرّي عنق السن).\n")
	sb.WriteString("- حالة لبيّة غير عكوسة: ألم قوي أو نابض مع البارد أو الحار يستمر بعد إزالة المؤثّر، أو ألم تلقائي ")
	sb.WriteString("يوقظ المريض من النوم، أو ألم شديد عند القرع أو المضغ، أو وجود تورّم/خراج → يرجّح اختصاص لبية.\n\n")

	sb.WriteString("التعليمات المهمة:\n")
	sb.WriteString("- اعتمد فقط على المعلومات الموجودة في السياق وعلى شكوى المريض.\n")
	sb.WriteString("- لا تستخدم معلومات من خارج السياق إلا كمعرفة عامة بسيطة.\n")
	sb.WriteString("- لا تفترض محفّزاً أو مدة أو شدة إذا لم تُذكر صراحة.\n")
	sb.WriteString("- إذا كانت المعلومات ناقصة فلا تحسم الاختصاص مباشرة؛ قدّم ترجيحاً مشروطاً واضحاً.\n")
	sb.WriteString("- في النهاية اختر اختصاصاً واحداً للبالغين، مع ذكر الشرط الذي يغيّر الاختصاص إذا لزم.\n")
	sb.WriteString("- إذا كانت الأعراض غير واضحة تماماً، أعطِ أفضل تخمين مؤقت مع السبب، واطرح 2-3 أسئلة متابعة محددة.\n")
	sb.WriteString("- نبرة ودودة ومباشرة، ردّ مختصر ثم الأسئلة.\n\n")

	sb.WriteString("السياق الطبي (من قاعدة المعرفة):\n")
	sb.WriteString(context)
	sb.WriteString("\n\nشكوى المريض أو سؤاله:\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	sb.WriteString("أعطِ الإجابة بالتنسيق التالي:\n")
	sb.WriteString("الرد المختصر:\n")
	sb.WriteString("- ...\n\n")
	sb.WriteString("الاختصاص الأنسب (للبالغين فقط، ومشروط إذا لزم):\n")
	sb.WriteString("- ...\n\n")
	sb.WriteString("أسئلة متابعة سريعة (إذا كان هناك غموض):\n")
	sb.WriteString("- ...\n")
	sb.WriteString("- ...\n")
	sb.WriteString("- ...")

	return sb.String()
}

// WebTriage marks its context as general web material, not a diagnosis.
func WebTriage(context, question string) string {
	var sb strings.Builder
	sb.WriteString("ملاحظة: السياق التالي مقتطفات ويب عامة وليست تشخيصاً.\n")
	sb.WriteString("أنت مساعد فرز أولي في طب الأسنان.\n\n")
	sb.WriteString("اختر اختصاصاً واحداً فقط من:\n")
	writeSpecialtyList(&sb)
	sb.WriteString("\n")
	sb.WriteString("إذا كانت المعلومات غير كافية، اسأل 2-3 أسئلة متابعة محددة بدون اختيار نهائي.\n")
	sb.WriteString("لا تخترع حقائق غير موجودة في الشكوى أو المقتطفات.\n\n")
	sb.WriteString("اكتب الاختصاص في سطر بعنوان \"الاختصاص الأنسب:\" يليه سطر يبدأ بـ \"- \".\n\n")
	sb.WriteString("السياق:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nالشكوى:\n")
	sb.WriteString(question)
	sb.WriteString("\n\nالرد:")
	return sb.String()
}

// General answers a non-dental message and steers back to dental triage.
func General(question string) string {
	var sb strings.Builder
	sb.WriteString("المستخدم كتب الرسالة التالية (قد لا تكون عن الأسنان):\n\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString("ردّ عليه بأسلوب ودود وبسيط بجملة أو جملتين، ")
	sb.WriteString("ثم أوضح له أن دورك الأساسي هو مساعد تكنولوجي لفرز حالات الأسنان ")
	sb.WriteString("(ألم الأسنان، الحساسية، مشاكل اللثة، التعويضات الثابتة والمتحركة، أسنان الأطفال). ")
	sb.WriteString("في النهاية اطلب منه أن يصف لك أي مشكلة سنية لو كانت موجودة.")
	return sb.String()
}

// WebContext numbers web results as "[i] title\nsnippet\nالمصدر: url".
func WebContext(docs []store.Document) string {
	parts := make([]string, 0, len(docs))
	for i, d := range docs {
		title := strings.TrimSpace(d.Title)
		if title == "" {
			title = untitled
		}
		source := d.Source
		if source == "" {
			source = "unknown"
		}
		parts = append(parts, fmt.Sprintf("[%d] %s\n%s\nالمصدر: %s", i+1, title, strings.TrimSpace(d.Content), source))
	}
	return strings.Join(parts, "\n\n")
}

// CaseQuery prefixes the merged case with the patient's age.
func CaseQuery(age int, merged string) string {
	return fmt.Sprintf("عمر المريض: %d.\nوصف الحالة: %s", age, merged)
}

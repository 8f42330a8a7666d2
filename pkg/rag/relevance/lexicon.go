package relevance

// All entries are stored in normalized form (see lexical.Normalize).
// The tables are read-only after init.

var dentalTokens = toSet(
	// teeth
	"سن", "سني", "اسنان", "ضرس", "اضراس", "لثه", "اللثه", "تسوس", "نخر",
	"طقم", "جسر", "تلبيس", "تاج", "حشوه", "عصب", "خراج", "تورم",
	"حساسيه", "حساس", "لمعه",
	// jaw joint and orofacial pain
	"فك", "الفك", "مفصل", "طقطقه", "صرير", "طحن", "شد", "تشنج", "مضغ",
	"عض", "قفل", "صداع", "صدغ",
	// dialect spellings
	"سنيه", "اسناني", "ضرص", "ضروسي",
)

var dentalPhrases = []string{
	"ضرس العقل",
	"ضرص العقل",
	"وجع سن",
	"الم سن",
	"الم ضرس",
	"تورم بالوجه",
	"مفصل الفك",
	"الم الفك",
	"فتح الفم",
	"طقطقه الفك",
	"صرير الاسنان",
	"طحن الاسنان",
}

var triggerTokens = toSet(
	"بارد", "بارده", "برد", "البارد",
	"حلو", "حلوه", "الحلو",
	"حار", "حامي", "حراره", "سخن", "ساخن", "ساخنه", "الحار",
	"عفوي", "عفويه", "بدون", "دون", "سبب",
)

var triggerPhrases = []string{
	"بدون سبب",
	"دون سبب",
	"من دون سبب",
}

var childPhrases = []string{
	"طفل",
	"طفله",
	"ابني",
	"ابني عمره",
	"بنتي",
	"طفلتي",
	"ولدي",
}

// Greetings are matched against the trimmed raw message.
var greetings = toSet(
	"مرحبا", "اهلا", "أهلا", "هاي", "السلام عليكم", "سلام",
	"hello", "hi", "كيفك", "شلونك", "كيف الحال",
)

// childTokens only match a whole token; as substrings they hit verbs
// such as "تعبني".
var childTokens = toSet("بني")

const sensitivityToken = "لمعه"

var explainVerbs = []string{"اشرح", "فسر"}

var explainObjects = []string{"حاله", "النتيجه", "الصوره", "ارسلتها"}

func toSet(items ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/llm"
	"dental-triage-be/pkg/rag/emergency"
	"dental-triage-be/pkg/rag/response"
	"dental-triage-be/pkg/rag/search"
	"dental-triage-be/pkg/rag/session"
	"dental-triage-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rewritePrefix = "أنت مساعد لإعادة صياغة"

type fakeLLM struct {
	answer    string
	err       error
	rewriteFn func() (string, error)
	prompts   []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, options...)
}

func (f *fakeLLM) Generate(_ context.Context, p string, _ ...llm.Option) (string, error) {
	f.prompts = append(f.prompts, p)
	if strings.HasPrefix(p, rewritePrefix) {
		if f.rewriteFn != nil {
			return f.rewriteFn()
		}
		return "وصف طبي مختصر", nil
	}
	return f.answer, f.err
}

type fakeRetriever struct {
	result  *search.Result
	err     error
	queries []string
	reranks []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query, rerankQuery string) (*search.Result, error) {
	f.queries = append(f.queries, query)
	f.reranks = append(f.reranks, rerankQuery)
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &search.Result{Documents: []store.Document{}, Origin: search.OriginNone}, nil
	}
	return f.result, nil
}

func localResult() *search.Result {
	return &search.Result{
		Origin: search.OriginLocal,
		Documents: []store.Document{
			{
				ID:       "pulp.md#0",
				Source:   "pulp.md",
				Content:  strings.Repeat("ألم لبي ", 60),
				Metadata: map[string]interface{}{store.MetaSource: "pulp.md", store.MetaFusedScore: 0.032},
			},
			{
				ID:       "gum.md#1",
				Content:  "نزف اللثة",
				Metadata: map[string]interface{}{store.MetaRerankScore: 0.9},
			},
		},
	}
}

const finalAnswer = "الرد المختصر:\n- ألم لبي.\n\nالاختصاص الأنسب:\n- لبية\n\nأسئلة متابعة سريعة (إذا كان هناك غموض):\n- ..."

const openAnswer = "الرد المختصر:\n- الأعراض قد تشير لحساسية.\n\nالاختصاص الأنسب:\n- ترميمية\n\nأسئلة متابعة سريعة:\n- هل يستمر الألم بعد إزالة البارد"

func newEngine(l *fakeLLM, r *fakeRetriever, opts Options) *Engine {
	return NewEngine(l, r, opts, logger.NewNopLogger())
}

func intPtr(v int) *int { return &v }

func sessionWithAge(age int) *store.Session {
	s := store.NewSession("s-1", time.Now())
	s.Age = intPtr(age)
	return s
}

func TestRunRejectsInput(t *testing.T) {
	e := newEngine(&fakeLLM{}, &fakeRetriever{}, Options{})
	s := store.NewSession("s-1", time.Now())

	_, err := e.Run(context.Background(), s, Turn{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, s.History)

	_, err = e.Run(context.Background(), s, Turn{Message: "ضرس", Age: intPtr(121)})
	assert.ErrorIs(t, err, ErrInvalidAge)
	assert.Nil(t, s.Age)

	_, err = e.Run(context.Background(), s, Turn{Message: "ضرس", Age: intPtr(-1)})
	assert.ErrorIs(t, err, ErrInvalidAge)
}

func TestRunWithoutAgeAlwaysAsksAge(t *testing.T) {
	messages := []string{"مرحبا", "ضرس العقل يوجعني من البارد", "اشرح النتيجة", "ابني عنده ألم", "شو الطقس"}
	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			l, r := &fakeLLM{}, &fakeRetriever{}
			s := store.NewSession("s-1", time.Now())

			res, err := newEngine(l, r, Options{}).Run(context.Background(), s, Turn{Message: msg})

			require.NoError(t, err)
			assert.Equal(t, store.StateNeedAge, res.State)
			assert.Equal(t, response.AskAge, res.Answer)
			assert.Len(t, res.FollowUps, 3)
			assert.Empty(t, res.Sources)
			assert.Empty(t, s.CaseParts)
			assert.Equal(t, store.StateNeedAge, s.LastState)
			assert.Empty(t, l.prompts)
			assert.Empty(t, r.queries)
		})
	}
}

func TestRunAgeOnSameTurnProceeds(t *testing.T) {
	s := store.NewSession("s-1", time.Now())
	res, err := newEngine(&fakeLLM{}, &fakeRetriever{}, Options{}).Run(context.Background(), s, Turn{Message: "مرحبا", Age: intPtr(30)})

	require.NoError(t, err)
	assert.Equal(t, BranchGreeting, res.Branch)
	require.NotNil(t, s.Age)
	assert.Equal(t, 30, *s.Age)
}

func TestRunAgeIsImmutable(t *testing.T) {
	s := sessionWithAge(30)
	_, err := newEngine(&fakeLLM{}, &fakeRetriever{}, Options{}).Run(context.Background(), s, Turn{Message: "مرحبا", Age: intPtr(8)})

	require.NoError(t, err)
	assert.Equal(t, 30, *s.Age)
}

func TestRunGreeting(t *testing.T) {
	l, r := &fakeLLM{}, &fakeRetriever{}
	res, err := newEngine(l, r, Options{}).Run(context.Background(), sessionWithAge(25), Turn{Message: "مرحبا"})

	require.NoError(t, err)
	assert.Equal(t, store.StateNeedFollowup, res.State)
	assert.Equal(t, response.Greeting, res.Answer)
	assert.Empty(t, res.Sources)
	assert.False(t, res.IsEmergency())
	assert.Empty(t, res.Emergency.RedFlags)
	assert.Len(t, res.FollowUps, 3)
	assert.Empty(t, l.prompts)
	assert.Empty(t, r.queries)
}

func TestRunEmptyKnowledgeBase(t *testing.T) {
	l, r := &fakeLLM{answer: finalAnswer}, &fakeRetriever{}
	s := sessionWithAge(25)

	res, err := newEngine(l, r, Options{}).Run(context.Background(), s, Turn{Message: "ضرس العقل يوجعني من البارد"})

	require.NoError(t, err)
	assert.Equal(t, store.StateNeedFollowup, res.State)
	assert.Equal(t, BranchNoContext, res.Branch)
	assert.Equal(t, response.DescribeMore, res.Answer)
	assert.Empty(t, res.Sources)
	assert.False(t, res.Triage.IsFinal)
	// only the rewrite call, no triage generation
	require.Len(t, l.prompts, 1)
	assert.True(t, strings.HasPrefix(l.prompts[0], rewritePrefix))
	require.Len(t, r.queries, 1)
	assert.Equal(t, "وصف طبي مختصر", r.queries[0])
	assert.Equal(t, "عمر المريض: 25.\nوصف الحالة: ضرس العقل يوجعني من البارد", r.reranks[0])
}

func TestRunChildReferral(t *testing.T) {
	l, r := &fakeLLM{}, &fakeRetriever{}
	s := sessionWithAge(10)

	res, err := newEngine(l, r, Options{}).Run(context.Background(), s, Turn{Message: "ضرس يوجعني"})

	require.NoError(t, err)
	assert.Equal(t, BranchChild, res.Branch)
	assert.NotEqual(t, store.StateTriaged, res.State)
	assert.Contains(t, res.Answer, "10")
	assert.Contains(t, res.Answer, "أسنان أطفال")
	assert.Nil(t, res.Triage.Specialty)
	assert.Empty(t, r.queries)
	assert.Empty(t, l.prompts)
}

func TestRunChildMentionedByAdult(t *testing.T) {
	r := &fakeRetriever{}
	res, err := newEngine(&fakeLLM{}, r, Options{}).Run(context.Background(), sessionWithAge(40), Turn{Message: "ابني عنده وجع سن"})

	require.NoError(t, err)
	assert.Equal(t, BranchChild, res.Branch)
	assert.NotContains(t, res.Answer, "40")
	assert.Empty(t, r.queries)
}

func TestRunEmergencyAirway(t *testing.T) {
	res, err := newEngine(&fakeLLM{}, &fakeRetriever{}, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "عندي صعوبة تنفس"})

	require.NoError(t, err)
	assert.True(t, res.IsEmergency())
	require.NotNil(t, res.Emergency.Advice)
	assert.Equal(t, emergency.AdviceEmergencyDepartment, *res.Emergency.Advice)
}

func TestRunEmergencyAlongsideVerdict(t *testing.T) {
	l := &fakeLLM{answer: finalAnswer}
	r := &fakeRetriever{result: localResult()}

	res, err := newEngine(l, r, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "ضرس يوجعني ومعه تورم بالوجه"})

	require.NoError(t, err)
	assert.Equal(t, store.StateTriaged, res.State)
	assert.True(t, res.IsEmergency())
	require.NotNil(t, res.Emergency.Advice)
	assert.Equal(t, emergency.AdviceUrgentDentist, *res.Emergency.Advice)
}

func TestRunFinalVerdict(t *testing.T) {
	l := &fakeLLM{answer: finalAnswer}
	r := &fakeRetriever{result: localResult()}
	s := sessionWithAge(30)

	res, err := newEngine(l, r, Options{}).Run(context.Background(), s, Turn{Message: "ضرس يوجعني بالليل مع الحار"})

	require.NoError(t, err)
	assert.Equal(t, store.StateTriaged, res.State)
	assert.True(t, res.Triage.IsFinal)
	require.NotNil(t, res.Triage.Specialty)
	assert.Equal(t, "لبية", *res.Triage.Specialty)
	assert.Nil(t, res.Triage.Confidence)
	assert.Empty(t, res.FollowUps)
	assert.NotContains(t, res.Answer, "أسئلة متابعة")

	require.Len(t, res.Sources, 2)
	assert.Equal(t, "pulp.md", res.Sources[0].Source)
	assert.Equal(t, 220, len([]rune(res.Sources[0].Snippet)))
	require.NotNil(t, res.Sources[0].Score)
	assert.InDelta(t, 0.032, *res.Sources[0].Score, 1e-9)
	assert.Equal(t, unknownSource, res.Sources[1].Source)
	assert.InDelta(t, 0.9, *res.Sources[1].Score, 1e-9)

	last := l.prompts[len(l.prompts)-1]
	assert.Contains(t, last, "السياق الطبي")
	assert.Contains(t, last, "عمر المريض: 30.")

	assert.Equal(t, store.StateTriaged, s.LastState)
	require.NotNil(t, s.LastTriage)
	assert.True(t, s.LastTriage.IsFinal)
	assert.Equal(t, res.Answer, s.LastAnswer)
}

func TestRunOpenVerdictKeepsFollowUps(t *testing.T) {
	l := &fakeLLM{answer: openAnswer}
	r := &fakeRetriever{result: localResult()}

	res, err := newEngine(l, r, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "ضرس يوجعني مع البارد"})

	require.NoError(t, err)
	assert.Equal(t, store.StateNeedFollowup, res.State)
	assert.False(t, res.Triage.IsFinal)
	assert.Nil(t, res.Triage.Specialty)
	assert.Len(t, res.FollowUps, 3)
	assert.Equal(t, openAnswer, res.Answer)
}

func TestRunWebFallbackPrompt(t *testing.T) {
	l := &fakeLLM{answer: finalAnswer}
	r := &fakeRetriever{result: &search.Result{
		Origin: search.OriginWeb,
		Documents: []store.Document{{
			Title:    "حساسية الأسنان",
			Source:   "https://example.org/a",
			Content:  "شرح عام",
			Metadata: map[string]interface{}{store.MetaSource: "https://example.org/a"},
		}},
	}}

	res, err := newEngine(l, r, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "ضرس يوجعني مع البارد"})

	require.NoError(t, err)
	assert.Equal(t, search.OriginWeb, res.Origin)
	last := l.prompts[len(l.prompts)-1]
	assert.Contains(t, last, "مقتطفات ويب عامة")
	assert.Contains(t, last, "[1] حساسية الأسنان")
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "https://example.org/a", res.Sources[0].Source)
	assert.Nil(t, res.Sources[0].Score)
}

func TestRunShortRepliesStayInCase(t *testing.T) {
	l := &fakeLLM{answer: openAnswer}
	r := &fakeRetriever{result: localResult()}
	e := newEngine(l, r, Options{})
	s := sessionWithAge(30)

	_, err := e.Run(context.Background(), s, Turn{Message: "ضرس يوجعني مع البارد"})
	require.NoError(t, err)

	for _, reply := range []string{"نعم", "من يومين"} {
		res, err := e.Run(context.Background(), s, Turn{Message: reply})
		require.NoError(t, err)
		assert.Equal(t, BranchTriage, res.Branch)
	}

	assert.Equal(t, []string{"ضرس يوجعني مع البارد", "نعم", "من يومين"}, s.CaseParts)
	assert.Equal(t, "عمر المريض: 30.\nوصف الحالة: ضرس يوجعني مع البارد نعم من يومين", r.reranks[2])
}

func TestRunTopicChangeResetsCase(t *testing.T) {
	l := &fakeLLM{answer: openAnswer}
	e := newEngine(l, &fakeRetriever{result: localResult()}, Options{})
	s := sessionWithAge(30)

	_, err := e.Run(context.Background(), s, Turn{Message: "ضرس يوجعني مع البارد"})
	require.NoError(t, err)

	res, err := e.Run(context.Background(), s, Turn{Message: "بدي اسألك عن مباراة كرة القدم مبارح بالليل"})
	require.NoError(t, err)

	assert.Equal(t, store.StateNonDental, res.State)
	assert.Equal(t, response.NonDentalDecline, res.Answer)
	assert.Len(t, res.FollowUps, 3)
	assert.Empty(t, s.CaseParts)
}

func TestRunGeneralReply(t *testing.T) {
	l := &fakeLLM{answer: "أهلاً، أنا مساعد أسنان."}
	res, err := newEngine(l, &fakeRetriever{}, Options{GeneralReply: true}).Run(context.Background(), sessionWithAge(30), Turn{Message: "شو أخبار الطقس اليوم عندكم"})

	require.NoError(t, err)
	assert.Equal(t, store.StateNonDental, res.State)
	assert.Equal(t, "أهلاً، أنا مساعد أسنان.", res.Answer)
	assert.Len(t, res.FollowUps, 3)
	require.Len(t, l.prompts, 1)
	assert.Contains(t, l.prompts[0], "شو أخبار الطقس اليوم عندكم")
}

func TestRunBareFlashAsksTrigger(t *testing.T) {
	r := &fakeRetriever{}
	res, err := newEngine(&fakeLLM{}, r, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "عندي لمعة بسني"})

	require.NoError(t, err)
	assert.Equal(t, BranchAskTrigger, res.Branch)
	assert.Equal(t, response.AskTrigger, res.Answer)
	assert.Empty(t, r.queries)
}

func TestRunFlashWithTriggerGoesToTriage(t *testing.T) {
	r := &fakeRetriever{result: localResult()}
	res, err := newEngine(&fakeLLM{answer: finalAnswer}, r, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "لمعة مع البارد"})

	require.NoError(t, err)
	assert.Equal(t, BranchTriage, res.Branch)
	assert.Len(t, r.queries, 1)
}

func TestRunExplain(t *testing.T) {
	conf := 0.87
	tests := []struct {
		name    string
		prepare func(s *store.Session)
		want    string
	}{
		{
			name: "image result",
			prepare: func(s *store.Session) {
				s.ImageAI = &store.ImageResult{Prediction: "caries", Confidence: &conf, Status: store.ImageStatusDiseaseDetected}
			},
			want: session.ExplainImage(&store.ImageResult{Prediction: "caries", Confidence: &conf, Status: store.ImageStatusDiseaseDetected}) + response.ExplainSuffix,
		},
		{
			name: "previous answer",
			prepare: func(s *store.Session) {
				s.LastAnswer = "جواب سابق" + response.ExplainSuffix
			},
			want: "جواب سابق" + response.ExplainSuffix,
		},
		{
			name:    "nothing cached",
			prepare: func(s *store.Session) {},
			want:    response.ExplainNothingCached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionWithAge(30)
			tt.prepare(s)
			res, err := newEngine(&fakeLLM{}, &fakeRetriever{}, Options{}).Run(context.Background(), s, Turn{Message: "اشرح الحالة"})

			require.NoError(t, err)
			assert.Equal(t, store.StateNeedFollowup, res.State)
			assert.Equal(t, tt.want, res.Answer)
		})
	}
}

func TestRunExplainAfterGreetingReplaysVerdict(t *testing.T) {
	l := &fakeLLM{answer: finalAnswer}
	e := newEngine(l, &fakeRetriever{result: localResult()}, Options{})
	s := sessionWithAge(30)

	first, err := e.Run(context.Background(), s, Turn{Message: "ضرسي يوجعني مع البارد"})
	require.NoError(t, err)
	require.Equal(t, store.StateTriaged, first.State)

	greeting, err := e.Run(context.Background(), s, Turn{Message: "مرحبا"})
	require.NoError(t, err)
	require.Equal(t, BranchGreeting, greeting.Branch)

	res, err := e.Run(context.Background(), s, Turn{Message: "اشرح النتيجة"})
	require.NoError(t, err)
	assert.Equal(t, BranchExplain, res.Branch)
	assert.Equal(t, response.Explain(strings.TrimSpace(first.Answer)), res.Answer)
	assert.NotContains(t, res.Answer, response.Greeting)
}

func TestRunAskTriggerKeepsVerdict(t *testing.T) {
	s := sessionWithAge(30)
	s.LastAnswer = "جواب سابق"

	_, err := newEngine(&fakeLLM{}, &fakeRetriever{}, Options{}).Run(context.Background(), s, Turn{Message: "عندي لمعة بسني"})

	require.NoError(t, err)
	assert.Equal(t, "جواب سابق", s.LastAnswer)
}

func TestRunImageResultPinsMarker(t *testing.T) {
	conf := 0.8
	s := sessionWithAge(30)
	r := &fakeRetriever{result: localResult()}
	_, err := newEngine(&fakeLLM{answer: openAnswer}, r, Options{}).Run(context.Background(), s, Turn{
		Message: "شو رأيك",
		ImageAI: &store.ImageResult{Prediction: "calculus", Confidence: &conf, Status: store.ImageStatusDiseaseDetected},
	})

	require.NoError(t, err)
	require.Len(t, s.CaseParts, 2)
	assert.True(t, strings.HasPrefix(s.CaseParts[0], session.ImageMarkerPrefix))
	assert.Contains(t, r.reranks[0], "calculus")
}

func TestRunUpstreamFailures(t *testing.T) {
	boom := errors.New("upstream down")
	tests := []struct {
		name string
		llm  *fakeLLM
		r    *fakeRetriever
	}{
		{"rewrite", &fakeLLM{rewriteFn: func() (string, error) { return "", boom }}, &fakeRetriever{}},
		{"retrieval", &fakeLLM{}, &fakeRetriever{err: boom}},
		{"generation", &fakeLLM{err: boom}, &fakeRetriever{result: localResult()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngine(tt.llm, tt.r, Options{}).Run(context.Background(), sessionWithAge(30), Turn{Message: "ضرس يوجعني"})
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestFinalImpliesNoFollowUps(t *testing.T) {
	answers := []string{finalAnswer, openAnswer, "لا يمكن تحديد الاختصاص", "الاختصاص الأنسب:\n- لثوية"}
	for _, a := range answers {
		res, err := newEngine(&fakeLLM{answer: a}, &fakeRetriever{result: localResult()}, Options{}).
			Run(context.Background(), sessionWithAge(30), Turn{Message: "ضرس يوجعني"})
		require.NoError(t, err)
		if res.Triage.IsFinal {
			assert.NotNil(t, res.Triage.Specialty)
			assert.Empty(t, res.FollowUps)
		} else {
			assert.Nil(t, res.Triage.Specialty)
		}
	}
}

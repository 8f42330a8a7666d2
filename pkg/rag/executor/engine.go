// Package executor runs one chat turn through the triage state machine.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/llm"
	"dental-triage-be/pkg/rag/emergency"
	"dental-triage-be/pkg/rag/prompt"
	"dental-triage-be/pkg/rag/relevance"
	"dental-triage-be/pkg/rag/response"
	"dental-triage-be/pkg/rag/search"
	"dental-triage-be/pkg/rag/session"
	"dental-triage-be/pkg/rag/state"
	"dental-triage-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const moduleName = "TRIAGE"

const (
	ChildAgeCutoff = 13
	MinAge         = 0
	MaxAge         = 120
	snippetRunes   = 220
	unknownSource  = "unknown"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrInvalidAge   = fmt.Errorf("age must be between %d and %d", MinAge, MaxAge)
)

// Branch names the rule that produced a turn's reply.
type Branch string

const (
	BranchAskAge     Branch = "ask_age"
	BranchGreeting   Branch = "greeting"
	BranchExplain    Branch = "explain"
	BranchAskTrigger Branch = "ask_trigger"
	BranchChild      Branch = "child"
	BranchNonDental  Branch = "non_dental"
	BranchNoContext  Branch = "no_context"
	BranchTriage     Branch = "triage"
)

// Retriever is the hybrid retrieval stage.
type Retriever interface {
	Retrieve(ctx context.Context, query, rerankQuery string) (*search.Result, error)
}

// Turn is one inbound chat message with its optional extras.
type Turn struct {
	Message string
	Age     *int
	ImageAI *store.ImageResult
}

type Source struct {
	Source  string
	Snippet string
	Score   *float64
}

type TurnResult struct {
	State     string
	Answer    string
	Emergency emergency.Info
	Triage    store.Triage
	FollowUps []string
	Sources   []Source
	Origin    search.Origin
	Branch    Branch
}

func (r *TurnResult) IsEmergency() bool {
	return r.Emergency.IsEmergency()
}

type Options struct {
	// GeneralReply answers non-dental turns with the general template
	// instead of the fixed decline.
	GeneralReply bool
}

// Engine holds no per-session state; everything it reads and writes lives
// on the session passed to Run.
type Engine struct {
	llm       llm.LLMProvider
	retriever Retriever
	cases     *session.Manager
	states    *state.Manager
	options   Options
	logger    logger.ILogger
}

func NewEngine(llmProvider llm.LLMProvider, retriever Retriever, options Options, log logger.ILogger) *Engine {
	return &Engine{
		llm:       llmProvider,
		retriever: retriever,
		cases:     session.NewManager(),
		states:    state.NewManager(log),
		options:   options,
		logger:    log,
	}
}

// ApplyTurn validates the input and stores age and image result on the
// session. A stored age is never overwritten.
func (e *Engine) ApplyTurn(s *store.Session, turn Turn) (string, error) {
	text := strings.TrimSpace(turn.Message)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if turn.Age != nil {
		if *turn.Age < MinAge || *turn.Age > MaxAge {
			return "", ErrInvalidAge
		}
		if s.Age == nil {
			age := *turn.Age
			s.Age = &age
		} else if *s.Age != *turn.Age {
			e.logger.Warn(moduleName, "Ignoring age change on existing session", map[string]interface{}{
				"session_id": s.ID,
				"stored":     *s.Age,
				"requested":  *turn.Age,
			})
		}
	}
	if turn.ImageAI != nil {
		img := *turn.ImageAI
		if turn.ImageAI.Confidence != nil {
			c := *turn.ImageAI.Confidence
			img.Confidence = &c
		}
		s.ImageAI = &img
	}
	return text, nil
}

// Run applies one turn to s. s is modified in place and should be saved
// only when Run returns without error.
func (e *Engine) Run(ctx context.Context, s *store.Session, turn Turn) (*TurnResult, error) {
	ctx, span := otel.Tracer("rag.executor").Start(ctx, "executor.Run")
	defer span.End()

	text, err := e.ApplyTurn(s, turn)
	if err != nil {
		return nil, err
	}
	e.states.AppendUser(s, text)

	result, err := e.decide(ctx, s, text)
	if err != nil {
		span.RecordError(err)
		e.logger.Error(moduleName, "Turn failed", map[string]interface{}{
			"session_id": s.ID,
			"error":      err.Error(),
		})
		return nil, err
	}

	result.FollowUps = state.FollowUpQuestions(result.State, result.Triage.IsFinal)
	if result.Sources == nil {
		result.Sources = []Source{}
	}

	switch result.Branch {
	case BranchAskAge:
		e.states.RecordAskAge(s)
	case BranchGreeting, BranchAskTrigger:
		// explain still replays the previous verdict
		e.states.RecordPrompt(s, result.State, result.Answer)
	default:
		e.states.Record(s, result.State, result.Answer, result.Triage)
	}

	span.SetAttributes(
		attribute.String("triage.state", result.State),
		attribute.String("triage.branch", string(result.Branch)),
		attribute.Bool("triage.emergency", result.IsEmergency()),
	)
	e.logger.Info(moduleName, "Turn completed", map[string]interface{}{
		"session_id": s.ID,
		"state":      result.State,
		"branch":     result.Branch,
		"is_final":   result.Triage.IsFinal,
		"emergency":  result.IsEmergency(),
		"sources":    len(result.Sources),
	})
	return result, nil
}

func (e *Engine) decide(ctx context.Context, s *store.Session, text string) (*TurnResult, error) {
	// early branches leave the case untouched but still screen the open case
	openCase := emergencyText(s.CaseParts, text)

	if s.Age == nil {
		return followUp(BranchAskAge, store.StateNeedAge, response.AskAge, openCase), nil
	}

	sig := relevance.Classify(text)

	if sig.Greeting {
		return followUp(BranchGreeting, store.StateNeedFollowup, response.Greeting, openCase), nil
	}

	if sig.Explain {
		return followUp(BranchExplain, store.StateNeedFollowup, e.explain(s), openCase), nil
	}

	if sig.BareFlash && !relevance.HasSensitivityTrigger(strings.Join(s.CaseParts, " ")) {
		return followUp(BranchAskTrigger, store.StateNeedFollowup, response.AskTrigger, openCase), nil
	}

	ageIsChild := *s.Age < ChildAgeCutoff
	if ageIsChild || sig.Child {
		return followUp(BranchChild, store.StateNeedFollowup, response.ChildReferral(*s.Age, ageIsChild), openCase), nil
	}

	parts := e.cases.UpdateCaseFor(s, text, sig)
	if len(parts) == 0 && !sig.Dental {
		answer, err := e.nonDental(ctx, text)
		if err != nil {
			return nil, err
		}
		return followUp(BranchNonDental, store.StateNonDental, answer, text), nil
	}

	merged := session.MergedText(parts, text)
	return e.triage(ctx, *s.Age, merged)
}

func (e *Engine) explain(s *store.Session) string {
	cached := session.ExplainImage(s.ImageAI)
	if cached == "" {
		cached = strings.TrimSuffix(strings.TrimSpace(s.LastAnswer), strings.TrimSpace(response.ExplainSuffix))
		cached = strings.TrimSpace(cached)
	}
	if cached == "" {
		return response.ExplainNothingCached
	}
	return response.Explain(cached)
}

func (e *Engine) nonDental(ctx context.Context, text string) (string, error) {
	if !e.options.GeneralReply {
		return response.NonDentalDecline, nil
	}
	answer, err := e.llm.Generate(ctx, prompt.General(text))
	if err != nil {
		return "", fmt.Errorf("general reply: %w", err)
	}
	return answer, nil
}

// triage runs rewrite, retrieval and generation over the merged case.
func (e *Engine) triage(ctx context.Context, age int, merged string) (*TurnResult, error) {
	query := prompt.CaseQuery(age, merged)
	em := emergency.Detect(merged)

	rewritten, err := e.llm.Generate(ctx, prompt.Rewrite(query))
	if err != nil {
		return nil, fmt.Errorf("rewrite query: %w", err)
	}

	retrieved, err := e.retriever.Retrieve(ctx, rewritten, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	e.logger.Debug(moduleName, "Retrieved passages", map[string]interface{}{
		"origin":    retrieved.Origin,
		"documents": len(retrieved.Documents),
	})

	if retrieved.Empty() {
		r := followUp(BranchNoContext, store.StateNeedFollowup, response.DescribeMore, "")
		r.Emergency = em
		r.Origin = search.OriginNone
		return r, nil
	}

	var generationPrompt string
	if retrieved.Origin == search.OriginWeb {
		generationPrompt = prompt.WebTriage(prompt.WebContext(retrieved.Documents), query)
	} else {
		generationPrompt = prompt.Triage(retrieved.Context(), query)
	}

	answer, err := e.llm.Generate(ctx, generationPrompt)
	if err != nil {
		return nil, fmt.Errorf("triage generation: %w", err)
	}

	decision := response.Decide(answer)
	e.logger.Debug(moduleName, "Parsed triage answer", map[string]interface{}{
		"reason":   decision.Reason,
		"is_final": decision.IsFinal,
	})

	st := store.StateNeedFollowup
	if decision.IsFinal {
		st = store.StateTriaged
	}
	return &TurnResult{
		State:     st,
		Answer:    decision.Answer,
		Emergency: em,
		Triage:    store.Triage{Specialty: decision.Specialty, IsFinal: decision.IsFinal},
		Sources:   toSources(retrieved.Documents),
		Origin:    retrieved.Origin,
		Branch:    BranchTriage,
	}, nil
}

// followUp builds a non-final reply. An empty screenText skips detection.
func followUp(branch Branch, st, answer, screenText string) *TurnResult {
	em := emergency.Info{RedFlags: []string{}}
	if screenText != "" {
		em = emergency.Detect(screenText)
	}
	return &TurnResult{
		State:     st,
		Answer:    answer,
		Emergency: em,
		Triage:    store.Triage{},
		Origin:    search.OriginNone,
		Branch:    branch,
	}
}

// emergencyText is the open case plus the new message.
func emergencyText(parts []string, text string) string {
	if len(parts) == 0 {
		return text
	}
	return strings.Join(parts, " ") + " " + text
}

func toSources(docs []store.Document) []Source {
	out := make([]Source, 0, len(docs))
	for _, d := range docs {
		src := d.Source
		if v, ok := d.Metadata[store.MetaSource].(string); ok && v != "" {
			src = v
		}
		if src == "" {
			src = unknownSource
		}
		out = append(out, Source{
			Source:  src,
			Snippet: truncateRunes(d.Content, snippetRunes),
			Score:   d.RelevanceScore(),
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

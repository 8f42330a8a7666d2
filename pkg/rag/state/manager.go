package state

import (
	"time"

	"dental-triage-be/internal/pkg/logger"
	"dental-triage-be/pkg/store"
)

// canned clarifying prompts: location, thermal trigger, swelling or night pain
var followUpQuestions = []string{
	"وين المشكلة بالضبط؟ (سن/ضرس/لثة/فك) وعلى أي جهة؟",
	"هل الألم مع البارد/الحار/الحلو؟ وكم مدته بعد المؤثر؟",
	"في تورّم/نزف/قيح أو ألم يوقظك من النوم؟",
}

// FollowUpQuestions returns the prompts shown with a reply in the given
// state. A final verdict carries none.
func FollowUpQuestions(state string, isFinal bool) []string {
	if isFinal || state == store.StateTriaged {
		return []string{}
	}
	switch state {
	case store.StateNeedAge, store.StateNeedFollowup, store.StateNonDental:
		out := make([]string, len(followUpQuestions))
		copy(out, followUpQuestions)
		return out
	}
	return []string{}
}

// Manager records turn outcomes on the session.
type Manager struct {
	logger logger.ILogger
	now    func() time.Time
}

func NewManager(log logger.ILogger) *Manager {
	return &Manager{logger: log, now: time.Now}
}

// AppendUser adds the patient's message to the history.
func (m *Manager) AppendUser(s *store.Session, text string) {
	s.History = append(s.History, store.Message{Role: store.RoleUser, Content: text})
}

// Record stores the reply and its verdict as the session's latest turn.
func (m *Manager) Record(s *store.Session, state, answer string, triage store.Triage) {
	m.recordReply(s, state, answer)
	s.LastAnswer = answer
	t := triage
	s.LastTriage = &t
}

// RecordPrompt stores a canned prompt (greeting, trigger question) in the
// history without replacing the last verdict.
func (m *Manager) RecordPrompt(s *store.Session, state, answer string) {
	m.recordReply(s, state, answer)
}

func (m *Manager) recordReply(s *store.Session, state, answer string) {
	prev := s.LastState
	s.History = append(s.History, store.Message{Role: store.RoleAssistant, Content: answer})
	s.LastState = state
	s.UpdatedAt = m.now()

	if prev != state {
		m.logger.Debug("STATE", "Transition", map[string]interface{}{
			"session_id": s.ID,
			"from":       prev,
			"to":         state,
		})
	}
}

// RecordAskAge leaves the last answer untouched so an explain request
// after the age is given still replays the previous verdict.
func (m *Manager) RecordAskAge(s *store.Session) {
	s.LastState = store.StateNeedAge
	s.UpdatedAt = m.now()
}

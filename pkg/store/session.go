package store

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionCorrupt  = errors.New("session payload is corrupt")
)

// Triage states emitted per turn.
const (
	StateNeedAge      = "need_age"
	StateNeedFollowup = "need_followup"
	StateTriaged      = "triaged"
	StateNonDental    = "non_dental"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image classifier statuses.
const (
	ImageStatusDiseaseDetected   = "disease_detected"
	ImageStatusNoDiseaseDetected = "no_disease_detected"
	ImageStatusReupload          = "reupload"
	ImageStatusError             = "error"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageResult is the last known output of the image classifier.
type ImageResult struct {
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence,omitempty"`
	Status     string   `json:"status,omitempty"`
}

type Triage struct {
	Specialty  *string  `json:"specialty"`
	IsFinal    bool     `json:"is_final"`
	Confidence *float64 `json:"confidence"`
}

// Session is everything remembered about one conversation.
// It is read at turn start and written back whole at turn end.
type Session struct {
	ID         string       `json:"id"`
	Age        *int         `json:"age"`
	History    []Message    `json:"history"`
	CaseParts  []string     `json:"case_parts"`
	LastState  string       `json:"last_state,omitempty"`
	LastAnswer string       `json:"last_answer,omitempty"`
	LastTriage *Triage      `json:"last_triage,omitempty"`
	ImageAI    *ImageResult `json:"image_ai,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		History:   []Message{},
		CaseParts: []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so a turn can mutate freely and be discarded on failure.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Age != nil {
		age := *s.Age
		c.Age = &age
	}
	c.History = append([]Message(nil), s.History...)
	c.CaseParts = append([]string(nil), s.CaseParts...)
	if s.LastTriage != nil {
		t := *s.LastTriage
		c.LastTriage = &t
	}
	if s.ImageAI != nil {
		img := *s.ImageAI
		c.ImageAI = &img
	}
	return &c
}

// Document is a retrieved knowledge excerpt (local chunk or web result).
type Document struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Source   string                 `json:"source"`
	Content  string                 `json:"content"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Metadata keys stamped by the retrieval stages.
const (
	MetaChunkID     = "chunk_id"
	MetaSource      = "source"
	MetaFusedScore  = "score"
	MetaRerankScore = "rerank_score"
	MetaURL         = "url"
	MetaTitle       = "title"
)

// RelevanceScore prefers the rerank score, then the fused score.
func (d Document) RelevanceScore() *float64 {
	for _, key := range []string{MetaRerankScore, MetaFusedScore} {
		if v, ok := d.Metadata[key]; ok {
			switch n := v.(type) {
			case float64:
				return &n
			case float32:
				f := float64(n)
				return &f
			}
		}
	}
	return nil
}

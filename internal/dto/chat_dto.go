package dto

import "time"

type ImageAIDTO struct {
	Prediction string   `json:"prediction,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Status     string   `json:"status,omitempty" validate:"omitempty,oneof=disease_detected detected positive no_disease_detected reupload error"`
}

type ChatRequest struct {
	Message   string      `json:"message" validate:"required"`
	Age       *int        `json:"age,omitempty" validate:"omitempty,gte=0,lte=120"`
	SessionId string      `json:"session_id,omitempty" validate:"omitempty,max=128"`
	ImageAI   *ImageAIDTO `json:"image_ai,omitempty"`
}

type EmergencyDTO struct {
	RedFlags []string `json:"red_flags"`
	Advice   *string  `json:"advice"`
}

type TriageDTO struct {
	Specialty  *string  `json:"specialty"`
	IsFinal    bool     `json:"is_final"`
	Confidence *float64 `json:"confidence"`
}

type FollowUpDTO struct {
	Questions []string `json:"questions"`
}

type SourceDTO struct {
	Source  string   `json:"source"`
	Snippet string   `json:"snippet"`
	Score   *float64 `json:"score"`
}

type ChatResponse struct {
	SessionId   string        `json:"session_id"`
	State       string        `json:"state"`
	Answer      string        `json:"answer"`
	IsEmergency bool          `json:"is_emergency"`
	Emergency   *EmergencyDTO `json:"emergency"`
	Triage      TriageDTO     `json:"triage"`
	FollowUp    FollowUpDTO   `json:"follow_up"`
	Sources     []SourceDTO   `json:"sources"`
}

type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionResponse struct {
	SessionId  string       `json:"session_id"`
	Age        *int         `json:"age"`
	History    []MessageDTO `json:"history"`
	CaseParts  []string     `json:"case_parts"`
	LastState  string       `json:"last_state"`
	LastTriage *TriageDTO   `json:"last_triage"`
	ImageAI    *ImageAIDTO  `json:"image_ai"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

package dto

type ImageClassifyResponse struct {
	Result ImageAIDTO `json:"result"`
	// Chat is set when the upload carried a message and ran a chat turn.
	Chat *ChatResponse `json:"chat,omitempty"`
}

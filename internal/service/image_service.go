package service

import (
	"context"
	"strings"

	"dental-triage-be/internal/dto"
	"dental-triage-be/pkg/store"
)

// ImageClassifier is the external dental photo classifier.
type ImageClassifier interface {
	Classify(ctx context.Context, filename string, data []byte) (*store.ImageResult, error)
}

type IImageService interface {
	// Classify runs the classifier and, when chat carries a message, feeds
	// the result into a chat turn on the same request.
	Classify(ctx context.Context, filename string, data []byte, chat *dto.ChatRequest) (*dto.ImageClassifyResponse, error)
}

type imageService struct {
	classifier    ImageClassifier
	triageService ITriageService
}

func NewImageService(classifier ImageClassifier, triageService ITriageService) IImageService {
	return &imageService{
		classifier:    classifier,
		triageService: triageService,
	}
}

func (s *imageService) Classify(ctx context.Context, filename string, data []byte, chat *dto.ChatRequest) (*dto.ImageClassifyResponse, error) {
	result, err := s.classifier.Classify(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	image := dto.ImageAIDTO{
		Prediction: result.Prediction,
		Confidence: result.Confidence,
		Status:     result.Status,
	}
	res := &dto.ImageClassifyResponse{Result: image}
	if chat == nil || strings.TrimSpace(chat.Message) == "" {
		return res, nil
	}

	chat.ImageAI = &image
	turn, err := s.triageService.Chat(ctx, chat)
	if err != nil {
		return nil, err
	}
	res.Chat = turn
	return res, nil
}

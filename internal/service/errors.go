package service

import (
	"errors"

	"dental-triage-be/pkg/imageai"
	"dental-triage-be/pkg/rag/executor"
	"dental-triage-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps service sentinel errors to HTTP status codes.
func StatusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, executor.ErrEmptyMessage), errors.Is(err, executor.ErrInvalidAge):
		return fiber.StatusBadRequest, true
	case errors.Is(err, store.ErrSessionNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, ErrNoDocuments):
		return fiber.StatusUnprocessableEntity, true
	case errors.Is(err, imageai.ErrNotConfigured):
		return fiber.StatusServiceUnavailable, true
	}
	return 0, false
}

package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusMapper lets services map their own sentinel errors to a status.
type StatusMapper func(err error) (int, bool)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON
// envelope. Unknown errors are reported as 500 with their raw message.
func ErrorHandlerMiddleware(mappers ...StatusMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusFor(err, mappers...)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func StatusFor(err error, mappers ...StatusMapper) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest
	}
	for _, m := range mappers {
		if code, ok := m(err); ok {
			return code
		}
	}
	return fiber.StatusInternalServerError
}

package controller

import (
	"io"
	"strconv"
	"strings"

	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/serverutils"
	"dental-triage-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IImageController interface {
	RegisterRoutes(r fiber.Router)
	Classify(ctx *fiber.Ctx) error
}

type imageController struct {
	imageService service.IImageService
}

func NewImageController(imageService service.IImageService) IImageController {
	return &imageController{
		imageService: imageService,
	}
}

func (c *imageController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/image/v1")
	h.Post("classify", c.Classify)
}

// Classify expects multipart form data: "file" plus optional "message",
// "session_id" and "age" to run a chat turn with the result.
func (c *imageController) Classify(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	file, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	chat := dto.ChatRequest{
		Message:   ctx.FormValue("message"),
		SessionId: ctx.FormValue("session_id"),
	}
	if raw := strings.TrimSpace(ctx.FormValue("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "age must be an integer")
		}
		chat.Age = &age
	}

	res, err := c.imageService.Classify(ctx.UserContext(), header.Filename, data, &chat)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success classify image", res))
}

package controller

import (
	"dental-triage-be/internal/dto"
	"dental-triage-be/internal/pkg/serverutils"
	"dental-triage-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	Reindex(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	ListChunks(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
	jwtSecret        string
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService, jwtSecret string) IKnowledgeController {
	return &knowledgeController{
		knowledgeService: knowledgeService,
		jwtSecret:        jwtSecret,
	}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Get("stats", c.Stats)
	h.Get("chunks", c.ListChunks)
	h.Post("reindex", serverutils.JwtMiddleware(c.jwtSecret), c.Reindex)
}

func (c *knowledgeController) Reindex(ctx *fiber.Ctx) error {
	var req dto.ReindexRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.RequestReindex(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Reindex queued", res))
}

func (c *knowledgeController) Stats(ctx *fiber.Ctx) error {
	res, err := c.knowledgeService.Stats(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge stats", res))
}

func (c *knowledgeController) ListChunks(ctx *fiber.Ctx) error {
	var req dto.ListChunksRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.ListChunks(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list chunks", res))
}

package rest

import (
	"context"

	"github.com/gofiber/fiber/v2"
	assistantApp "github.com/lhudash/chisa-api/assistant/application"
	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/utils"
	"github.com/lhudash/chisa-api/validations"
)

type AssistantService interface {
	Chat(ctx context.Context, in assistantApp.ChatInput) (assistantApp.ChatOutput, error)
	Tools() []domain.ToolInfo
	Availability(ctx context.Context) bool
}

type Assistant struct {
	Service AssistantService
}

func InitRestAssistant(app fiber.Router, service AssistantService) Assistant {
	rest := Assistant{Service: service}
	app.Post("/assistant/chat", rest.Chat)
	app.Get("/assistant/tools", rest.Tools)
	app.Get("/assistant/availability", rest.Availability)
	return rest
}

func (handler *Assistant) Chat(c *fiber.Ctx) error {
	var request assistantApp.ChatInput
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}
	utils.PanicIfNeeded(validations.ValidateAssistantChat(c.UserContext(), request))

	output, err := handler.Service.Chat(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success chat",
		Results: output,
	})
}

func (handler *Assistant) Tools(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get tools",
		Results: handler.Service.Tools(),
	})
}

func (handler *Assistant) Availability(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get availability",
		Results: fiber.Map{"available": handler.Service.Availability(c.UserContext())},
	})
}

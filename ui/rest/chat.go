package rest

import (
	"github.com/gofiber/fiber/v2"
	domainChat "github.com/lhudash/chisa-api/domains/chat"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/utils"
)

type Chat struct {
	Service domainChat.IChatUsecase
}

func InitRestChat(app fiber.Router, service domainChat.IChatUsecase) Chat {
	rest := Chat{Service: service}
	app.Post("/chats", rest.CreateChat)
	app.Get("/chats", rest.ListChats)
	app.Get("/chats/:id/messages", rest.History)
	app.Post("/chats/:id/messages", rest.PersistMessages)
	app.Delete("/chats/:id", rest.DeleteChat)
	return rest
}

func (handler *Chat) CreateChat(c *fiber.Ctx) error {
	var request domainChat.CreateChatRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	chat, err := handler.Service.CreateChat(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Chat created",
		Results: chat,
	})
}

func (handler *Chat) ListChats(c *fiber.Ctx) error {
	var query domainChat.ListChatsQuery
	if err := c.QueryParser(&query); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError(err.Error()))
	}

	page, err := handler.Service.ListChats(c.UserContext(), query)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get chats",
		Results: page,
	})
}

func (handler *Chat) History(c *fiber.Ctx) error {
	var query domainChat.HistoryQuery
	if err := c.QueryParser(&query); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError(err.Error()))
	}
	query.ChatID = c.Params("id")

	history, err := handler.Service.History(c.UserContext(), query)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get messages",
		Results: history,
	})
}

func (handler *Chat) PersistMessages(c *fiber.Ctx) error {
	var request domainChat.PersistMessagesRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}
	request.ChatID = c.Params("id")

	summaries, err := handler.Service.PersistMessages(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Messages saved",
		Results: summaries,
	})
}

func (handler *Chat) DeleteChat(c *fiber.Ctx) error {
	err := handler.Service.DeleteChat(c.UserContext(), c.Params("id"), c.Query("user_id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Chat deleted",
	})
}

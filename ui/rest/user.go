package rest

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	domainUser "github.com/lhudash/chisa-api/domains/user"
	"github.com/lhudash/chisa-api/integrations/lhu"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/utils"
	"github.com/lhudash/chisa-api/ui/rest/middleware"
)

// StudentPortal serves the bearer-authenticated student records.
type StudentPortal interface {
	Grades(ctx context.Context, token string) (*lhu.Transcript, error)
	Attendance(ctx context.Context, token string) json.RawMessage
	BookRoom(ctx context.Context, token string, payload map[string]any) (lhu.Booking, error)
}

type User struct {
	Service domainUser.IUserUsecase
	Portal  StudentPortal
}

func InitRestUser(app fiber.Router, service domainUser.IUserUsecase, portal StudentPortal) User {
	rest := User{Service: service, Portal: portal}
	app.Post("/user/login", rest.Login)
	app.Get("/user/info", middleware.Bearer(), rest.Info)
	app.Post("/user/logout", middleware.Bearer(), rest.Logout)
	app.Get("/grades", middleware.Bearer(), rest.Grades)
	app.Get("/attendance", middleware.Bearer(), rest.Attendance)
	app.Post("/library/bookings", middleware.Bearer(), rest.BookRoom)
	return rest
}

func (handler *User) Login(c *fiber.Ctx) error {
	var request domainUser.LoginRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}
	request.RemoteIP = c.IP()

	response, err := handler.Service.Login(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Login success",
		Results: response,
	})
}

func (handler *User) Info(c *fiber.Ctx) error {
	profile, err := handler.Service.Info(c.UserContext(), middleware.AccessToken(c))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get user info",
		Results: profile,
	})
}

func (handler *User) Logout(c *fiber.Ctx) error {
	err := handler.Service.Logout(c.UserContext(), middleware.AccessToken(c))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Logout success",
	})
}

func (handler *User) Grades(c *fiber.Ctx) error {
	transcript, err := handler.Portal.Grades(c.UserContext(), middleware.AccessToken(c))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get grades",
		Results: transcript,
	})
}

// Attendance passes the LMS payload through; upstream failures arrive as
// {"data":null} rather than an error.
func (handler *User) Attendance(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get attendance",
		Results: handler.Portal.Attendance(c.UserContext(), middleware.AccessToken(c)),
	})
}

func (handler *User) BookRoom(c *fiber.Ctx) error {
	var payload map[string]any
	if err := c.BodyParser(&payload); err != nil || len(payload) == 0 {
		utils.PanicIfNeeded(pkgError.ValidationError("booking payload is required"))
	}

	booking, err := handler.Portal.BookRoom(c.UserContext(), middleware.AccessToken(c), payload)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: booking.Message,
		Results: booking,
	})
}

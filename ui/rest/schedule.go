package rest

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/lhudash/chisa-api/integrations/lhu"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/utils"
)

type SchedulePortal interface {
	Schedule(ctx context.Context, studentID int64, dateLimit string) ([]lhu.ScheduleItem, error)
	NextClass(ctx context.Context, studentID int64) (*lhu.ScheduleItem, error)
}

type Schedule struct {
	Portal SchedulePortal
}

func InitRestSchedule(app fiber.Router, portal SchedulePortal) Schedule {
	rest := Schedule{Portal: portal}
	app.Get("/schedule/:studentID", rest.List)
	app.Get("/schedule/:studentID/next", rest.Next)
	return rest
}

func studentID(c *fiber.Ctx) int64 {
	id, err := strconv.ParseInt(c.Params("studentID"), 10, 64)
	if err != nil || id <= 0 {
		utils.PanicIfNeeded(pkgError.ValidationError("studentID: must be a positive integer"))
	}
	return id
}

func (handler *Schedule) List(c *fiber.Ctx) error {
	id := studentID(c)
	items, err := handler.Portal.Schedule(c.UserContext(), id, c.Query("date_limit"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get schedule",
		Results: items,
	})
}

func (handler *Schedule) Next(c *fiber.Ctx) error {
	id := studentID(c)
	item, err := handler.Portal.NextClass(c.UserContext(), id)
	utils.PanicIfNeeded(err)

	message := "Success get next class"
	if item == nil {
		message = "No upcoming class"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: item,
	})
}

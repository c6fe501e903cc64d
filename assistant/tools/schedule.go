package tools

import (
	"context"

	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

func scheduleTools(portal Portal) []domain.NativeTool {
	studentID := prop("number", "The ID of the student")

	return []domain.NativeTool{
		{
			Tool: domain.Tool{
				Name:        "get_student_schedule",
				Description: "Get the student schedule up to a certain date",
				InputSchema: objectSchema(map[string]any{
					"student_id": studentID,
					"date_limit": prop("string", "Optional ISO date to limit schedules"),
				}, "student_id"),
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := studentIDArg(args)
				if err != nil {
					return nil, err
				}
				return portal.Schedule(ctx, id, stringArg(args, "date_limit"))
			},
		},
		{
			Tool: domain.Tool{
				Name:        "get_next_class",
				Description: "Get the next class for a student",
				InputSchema: objectSchema(map[string]any{"student_id": studentID}, "student_id"),
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := studentIDArg(args)
				if err != nil {
					return nil, err
				}
				next, err := portal.NextClass(ctx, id)
				if err != nil {
					return nil, err
				}
				if next == nil {
					return map[string]any{"result": nil, "message": "No upcoming class"}, nil
				}
				return next, nil
			},
		},
	}
}

func studentIDArg(args map[string]any) (int64, error) {
	id, ok, err := intArg(args, "student_id")
	if err != nil {
		return 0, err
	}
	if !ok || id <= 0 {
		return 0, pkgError.ValidationError("student_id is required")
	}
	return id, nil
}

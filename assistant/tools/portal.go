package tools

import (
	"context"
	"encoding/json"

	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

// portalTools are the tools that act with the student's own session.
func portalTools(portal Portal, tokens TokenResolver) []domain.NativeTool {
	authed := func(name, description string, props map[string]any, required []string, run func(ctx context.Context, token string, args map[string]any) (any, error)) domain.NativeTool {
		if props == nil {
			props = map[string]any{}
		}
		props["access_token"] = accessTokenProp
		return domain.NativeTool{
			Tool: domain.Tool{
				Name:        name,
				Description: "[LHU - Auth required] " + description,
				InputSchema: objectSchema(props, append([]string{"access_token"}, required...)...),
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				token, err := accessToken(ctx, tokens, args)
				if err != nil {
					return nil, err
				}
				return run(ctx, token, args)
			},
		}
	}

	rawCall := func(fn func(context.Context, string) (json.RawMessage, error)) func(context.Context, string, map[string]any) (any, error) {
		return func(ctx context.Context, token string, _ map[string]any) (any, error) {
			return fn(ctx, token)
		}
	}

	timeRange := map[string]any{
		"start_time": prop("string", "ISO start time"),
		"end_time":   prop("string", "ISO end time"),
	}
	rangeCall := func(fn func(context.Context, string, string, string) (json.RawMessage, error)) func(context.Context, string, map[string]any) (any, error) {
		return func(ctx context.Context, token string, args map[string]any) (any, error) {
			return fn(ctx, token, stringArg(args, "start_time"), stringArg(args, "end_time"))
		}
	}
	copyProps := func(in map[string]any) map[string]any {
		out := make(map[string]any, len(in))
		for k, v := range in {
			out[k] = v
		}
		return out
	}

	return []domain.NativeTool{
		authed("get_attendance",
			"Get the attendance data from LMS system, "+
				"[TrangThai: 2: Attendance has been taken in class. 1: Absence with permission. Others: Unauthorized absence]",
			nil, nil,
			func(ctx context.Context, token string, _ map[string]any) (any, error) {
				return portal.Attendance(ctx, token), nil
			}),
		authed("get_library_settings", "Get ELIB system parameters (ThongSo)", nil, nil,
			rawCall(portal.LibrarySettings)),
		authed("get_room_configuration", "Get group study room configuration", nil, nil,
			rawCall(portal.RoomConfiguration)),
		authed("get_my_bookings", "Get user's personal booking list", nil, nil,
			rawCall(portal.MyBookings)),
		authed("get_bookings_by_day", "Get reservation list by a specific day",
			map[string]any{"date": prop("string", "Date in YYYY-MM-DD format")},
			[]string{"date"},
			func(ctx context.Context, token string, args map[string]any) (any, error) {
				date, err := requiredString(args, "date")
				if err != nil {
					return nil, err
				}
				return portal.BookingsByDay(ctx, token, date)
			}),
		authed("get_available_rooms", "Get available group study rooms for registration",
			copyProps(timeRange), []string{"start_time", "end_time"},
			rangeCall(portal.AvailableRooms)),
		authed("get_available_devices", "Get available devices for registration",
			copyProps(timeRange), []string{"start_time", "end_time"},
			rangeCall(portal.AvailableDevices)),
		authed("get_grades", "Get the student's grade sheet grouped by semester with accumulated credits", nil, nil,
			func(ctx context.Context, token string, _ map[string]any) (any, error) {
				transcript, err := portal.Grades(ctx, token)
				if err != nil {
					return nil, err
				}
				if transcript == nil {
					return nil, pkgError.NotFoundError("grade sheet is empty")
				}
				return transcript, nil
			}),
	}
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lhudash/chisa-api/assistant/domain"
	"github.com/lhudash/chisa-api/integrations/lhu"
	"github.com/lhudash/chisa-api/integrations/weather"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

// Portal is the slice of the university client the tools need.
type Portal interface {
	Schedule(ctx context.Context, studentID int64, dateLimit string) ([]lhu.ScheduleItem, error)
	NextClass(ctx context.Context, studentID int64) (*lhu.ScheduleItem, error)
	Attendance(ctx context.Context, token string) json.RawMessage
	Grades(ctx context.Context, token string) (*lhu.Transcript, error)
	LibrarySettings(ctx context.Context, token string) (json.RawMessage, error)
	RoomConfiguration(ctx context.Context, token string) (json.RawMessage, error)
	MyBookings(ctx context.Context, token string) (json.RawMessage, error)
	BookingsByDay(ctx context.Context, token, date string) (json.RawMessage, error)
	AvailableRooms(ctx context.Context, token, start, end string) (json.RawMessage, error)
	AvailableDevices(ctx context.Context, token, start, end string) (json.RawMessage, error)
}

type WeatherSource interface {
	Current(ctx context.Context) (json.RawMessage, error)
	Forecast(ctx context.Context) (*weather.Forecast, error)
	ForecastAt(ctx context.Context, ts int64) (json.RawMessage, error)
}

type WebSearch interface {
	Enabled() bool
	Search(ctx context.Context, query string) (json.RawMessage, error)
	Extract(ctx context.Context, urls []string) (json.RawMessage, error)
}

// TokenResolver turns the sealed token the model echoes back into the
// upstream access token.
type TokenResolver interface {
	Resolve(ctx context.Context, sealed string) (string, error)
}

// Deps are the collaborators behind the tool set. Nil sources drop their tools.
type Deps struct {
	Portal  Portal
	Weather WeatherSource
	Web     WebSearch
	Tokens  TokenResolver
}

// All returns every tool whose source is configured, in a stable order.
func All(d Deps) []domain.NativeTool {
	var out []domain.NativeTool
	if d.Web != nil && d.Web.Enabled() {
		out = append(out, webTools(d.Web)...)
	}
	if d.Portal != nil {
		out = append(out, scheduleTools(d.Portal)...)
	}
	if d.Weather != nil {
		out = append(out, weatherTools(d.Weather)...)
	}
	if d.Portal != nil && d.Tokens != nil {
		out = append(out, portalTools(d.Portal, d.Tokens)...)
	}
	return out
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

var accessTokenProp = prop("string", "The access token of the student, exactly as given in the context.")

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	}
	return ""
}

func requiredString(args map[string]any, key string) (string, error) {
	v := stringArg(args, key)
	if v == "" {
		return "", pkgError.ValidationError(fmt.Sprintf("%s is required", key))
	}
	return v, nil
}

// intArg accepts numbers and numeric strings since models send both.
func intArg(args map[string]any, key string) (int64, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, true, pkgError.ValidationError(fmt.Sprintf("%s must be an integer", key))
		}
		return int64(v), true, nil
	case int:
		return int64(v), true, nil
	case int64:
		return v, true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, true, pkgError.ValidationError(fmt.Sprintf("%s must be an integer", key))
		}
		return n, true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, true, pkgError.ValidationError(fmt.Sprintf("%s must be an integer", key))
		}
		return n, true, nil
	}
	return 0, true, pkgError.ValidationError(fmt.Sprintf("%s must be an integer", key))
}

func stringsArg(args map[string]any, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}

// accessToken resolves the sealed token argument.
func accessToken(ctx context.Context, tokens TokenResolver, args map[string]any) (string, error) {
	sealed := stringArg(args, "access_token")
	if sealed == "" {
		return "", &pkgError.UpstreamError{
			Service: "lhu",
			Code:    pkgError.CodeNoToken,
			Message: "Không tìm thấy token, vui lòng đăng nhập lại",
		}
	}
	token, err := tokens.Resolve(ctx, sealed)
	if err != nil {
		return "", &pkgError.UpstreamError{
			Service: "lhu",
			Code:    pkgError.CodeAuthInvalid,
			Message: "Token hết hạn, vui lòng đăng nhập lại",
			Err:     err,
		}
	}
	return token, nil
}

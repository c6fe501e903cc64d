package lhu

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"
)

// nullData is what callers receive when the attendance list is unavailable.
var nullData = json.RawMessage(`{"data":null}`)

var errAttendanceUnavailable = errors.New("attendance unavailable")

// Attendance returns the LMS attendance payload unchanged. Any failure
// yields {"data":null}.
func (c *Client) Attendance(ctx context.Context, token string) json.RawMessage {
	var out json.RawMessage
	resp, err := c.request(ctx, token).
		SetResult(&out).
		Get(c.cfg.AttendanceURL)
	if err != nil {
		err = c.networkError("attendance", err)
		c.record(err)
		return nullData
	}
	if resp.IsError() || len(out) == 0 {
		logrus.WithField("status", resp.StatusCode()).Warn("[LHU] attendance unavailable")
		c.record(errAttendanceUnavailable)
		return nullData
	}
	c.record(nil)
	return out
}

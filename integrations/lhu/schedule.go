package lhu

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

const schedulePageSize = 20

// ScheduleItem is one timetable slot as the portal reports it.
type ScheduleItem struct {
	ID         int    `json:"ID"`
	NhomID     int    `json:"NhomID"`
	ThoiGianBD string `json:"ThoiGianBD"`
	ThoiGianKT string `json:"ThoiGianKT"`
	TenPhong   string `json:"TenPhong"`
	TenNhom    string `json:"TenNhom"`
	TenMonHoc  string `json:"TenMonHoc"`
	GiaoVien   string `json:"GiaoVien"`
	Buoi       int    `json:"Buoi"`
	Thu        int    `json:"Thu"`
	TinhTrang  int    `json:"TinhTrang"`
	Type       int    `json:"Type"`
	TenCoSo    string `json:"TenCoSo"`
	GoogleMap  string `json:"GoogleMap"`
	OnlineLink string `json:"OnlineLink"`
	CalenType  int    `json:"CalenType"`
	SoTietBuoi int    `json:"SoTietBuoi"`
}

// Cancelled reports the portal statuses for cancelled or moved sessions.
func (s ScheduleItem) Cancelled() bool {
	switch s.TinhTrang {
	case 1, 2, 6:
		return true
	}
	return false
}

type scheduleRequest struct {
	Ngay      string `json:"Ngay"`
	PageIndex int    `json:"PageIndex"`
	PageSize  int    `json:"PageSize"`
	StudentID int64  `json:"StudentID"`
}

// The timetable endpoint answers with three result sets; the third holds
// the slots.
type scheduleResponse struct {
	Data []json.RawMessage `json:"data"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts the ISO forms the portal and clients send. Values
// without a zone are read in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, pkgError.ValidationError("invalid date: " + value)
}

// Schedule returns the student's slots. With a non-empty dateLimit only
// sessions that are not cancelled and start after the limit are kept.
func (c *Client) Schedule(ctx context.Context, studentID int64, dateLimit string) ([]ScheduleItem, error) {
	var limit time.Time
	if dateLimit != "" {
		t, err := ParseTime(dateLimit, c.cfg.Location)
		if err != nil {
			return nil, err
		}
		limit = t
	}

	items, err := c.fetchSchedule(ctx, studentID)
	c.record(err)
	if err != nil {
		return nil, err
	}
	if dateLimit == "" {
		return items, nil
	}

	kept := make([]ScheduleItem, 0, len(items))
	for _, item := range items {
		if item.Cancelled() {
			continue
		}
		start, err := ParseTime(item.ThoiGianBD, c.cfg.Location)
		if err != nil || !start.After(limit) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// NextClass returns the earliest upcoming session, or nil when there is none.
func (c *Client) NextClass(ctx context.Context, studentID int64) (*ScheduleItem, error) {
	items, err := c.Schedule(ctx, studentID, c.now().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, _ := ParseTime(items[i].ThoiGianBD, c.cfg.Location)
		b, _ := ParseTime(items[j].ThoiGianBD, c.cfg.Location)
		return a.Before(b)
	})
	next := items[0]
	return &next, nil
}

func (c *Client) fetchSchedule(ctx context.Context, studentID int64) ([]ScheduleItem, error) {
	var (
		out     scheduleResponse
		failure portalMessage
	)
	resp, err := c.request(ctx, "").
		SetBody(scheduleRequest{
			Ngay:      c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
			PageIndex: 1,
			PageSize:  schedulePageSize,
			StudentID: studentID,
		}).
		SetResult(&out).
		SetError(&failure).
		Post(c.cfg.ScheduleURL)
	if err != nil {
		return nil, c.networkError("schedule", err)
	}
	if resp.IsError() {
		return nil, c.statusError("schedule", resp, failure)
	}

	if len(out.Data) < 3 {
		return []ScheduleItem{}, nil
	}
	var items []ScheduleItem
	if err := json.Unmarshal(out.Data[2], &items); err != nil {
		return nil, &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: "unexpected schedule payload",
			Err:     err,
		}
	}
	if items == nil {
		items = []ScheduleItem{}
	}
	return items, nil
}

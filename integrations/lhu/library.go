package lhu

import (
	"context"
	"encoding/json"
	"fmt"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

// Library booking endpoints live under TAPI/elib.
const (
	elibSettings       = "DANGKY_ThongSoSelect"
	elibRoomConfig     = "DANGKY_PhongHocNhomSelect"
	elibMyBookings     = "DANGKY_LichDangKyCaNhan"
	elibBookingsByDay  = "DANGKY_LichDangKyTheoNgay"
	elibRoomsForReg    = "DANGKY_PhongHocNhomForRegSelect"
	elibDevicesForReg  = "DANGKY_ThietBiForRegSelect"
	elibRegisterRoom   = "DANGKY_PhongHocNhom"
	msgBookingAccepted = "Đăng ký phòng học nhóm thành công"
)

type dayRange struct {
	TuNgay  string `json:"TuNgay"`
	DenNgay string `json:"DenNgay"`
}

type slotRange struct {
	ThoiGianBD string `json:"ThoiGianBD"`
	ThoiGianKT string `json:"ThoiGianKT"`
}

// Booking is the result of a successful room registration.
type Booking struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	MaDatCho any    `json:"madatcho"`
}

// LibrarySettings returns the booking system parameters.
func (c *Client) LibrarySettings(ctx context.Context, token string) (json.RawMessage, error) {
	return c.elib(ctx, token, elibSettings, nil, "Lỗi khi lấy Thông Số")
}

// RoomConfiguration returns the group study room layout.
func (c *Client) RoomConfiguration(ctx context.Context, token string) (json.RawMessage, error) {
	return c.elib(ctx, token, elibRoomConfig, struct{}{}, "Lỗi khi lấy Cấu Hình Phòng Học Nhóm")
}

// MyBookings returns the caller's own reservations.
func (c *Client) MyBookings(ctx context.Context, token string) (json.RawMessage, error) {
	return c.elib(ctx, token, elibMyBookings, nil, "Lỗi khi lấy Lịch Cá Nhân")
}

// BookingsByDay lists every reservation on date (YYYY-MM-DD).
func (c *Client) BookingsByDay(ctx context.Context, token, date string) (json.RawMessage, error) {
	return c.elib(ctx, token, elibBookingsByDay, dayRange{TuNgay: date, DenNgay: date}, "Lỗi khi lấy Lịch Theo Ngày")
}

// AvailableRooms lists rooms free between start and end.
func (c *Client) AvailableRooms(ctx context.Context, token, start, end string) (json.RawMessage, error) {
	if start == "" || end == "" {
		return nil, pkgError.ValidationError("startTime and endTime are required")
	}
	return c.elib(ctx, token, elibRoomsForReg, slotRange{ThoiGianBD: start, ThoiGianKT: end}, "Lỗi khi lấy Phòng Học Cho Đăng Ký")
}

// AvailableDevices lists devices free between start and end.
func (c *Client) AvailableDevices(ctx context.Context, token, start, end string) (json.RawMessage, error) {
	if start == "" || end == "" {
		return nil, pkgError.ValidationError("ThoiGianBD and ThoiGianKT are required")
	}
	return c.elib(ctx, token, elibDevicesForReg, slotRange{ThoiGianBD: start, ThoiGianKT: end}, "Lỗi khi lấy Thiết Bị Cho Đăng Ký")
}

// BookRoom registers a group study room with the portal's own payload shape.
func (c *Client) BookRoom(ctx context.Context, token string, payload map[string]any) (Booking, error) {
	raw, err := c.elib(ctx, token, elibRegisterRoom, payload, "Lỗi khi đăng ký Phòng Học Nhóm")
	if err != nil {
		return Booking{}, err
	}

	var out struct {
		Data []struct {
			DangKyID any `json:"DangKyID"`
		} `json:"data"`
	}
	booking := Booking{Success: true, Message: msgBookingAccepted}
	if json.Unmarshal(raw, &out) == nil && len(out.Data) > 0 {
		booking.MaDatCho = out.Data[0].DangKyID
	}
	return booking, nil
}

func (c *Client) elib(ctx context.Context, token, endpoint string, body any, failureText string) (json.RawMessage, error) {
	if token == "" {
		return nil, &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeNoToken,
			Message: "No access token provided",
		}
	}

	var (
		out     json.RawMessage
		failure portalMessage
	)
	req := c.request(ctx, token).
		SetResult(&out).
		SetError(&failure)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Post(fmt.Sprintf("%s/elib/%s", c.cfg.TAPIURL, endpoint))
	if err != nil {
		err = c.networkError(endpoint, err)
		c.record(err)
		return nil, err
	}
	if resp.IsError() {
		if failure.text() == msgTokenInvalid {
			err = &pkgError.UpstreamError{
				Service: serviceName,
				Code:    pkgError.CodeAuthInvalid,
				Message: "Token hết hạn, vui lòng đăng nhập lại",
				Status:  resp.StatusCode(),
			}
		} else {
			err = &pkgError.UpstreamError{
				Service: serviceName,
				Code:    pkgError.CodeAPIError,
				Message: fmt.Sprintf("%s: %s", failureText, resp.Status()),
				Status:  resp.StatusCode(),
			}
		}
		c.record(err)
		return nil, err
	}
	c.record(nil)
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	return out, nil
}

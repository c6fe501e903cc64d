package lhu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibrary_Endpoints(t *testing.T) {
	type call struct {
		path string
		body string
	}
	var calls []call
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, call{path: r.URL.Path, body: string(body)})
		writeJSON(w, http.StatusOK, `{"data":[{"ok":true}]}`)
	})
	ctx := context.Background()

	_, err := c.LibrarySettings(ctx, "tok")
	require.NoError(t, err)
	_, err = c.RoomConfiguration(ctx, "tok")
	require.NoError(t, err)
	_, err = c.MyBookings(ctx, "tok")
	require.NoError(t, err)
	_, err = c.BookingsByDay(ctx, "tok", "2025-03-10")
	require.NoError(t, err)
	_, err = c.AvailableRooms(ctx, "tok", "2025-03-10T08:00", "2025-03-10T10:00")
	require.NoError(t, err)
	got, err := c.AvailableDevices(ctx, "tok", "2025-03-10T08:00", "2025-03-10T10:00")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"ok":true}]}`, string(got))

	require.Len(t, calls, 6)
	assert.Equal(t, "/tapi/elib/DANGKY_ThongSoSelect", calls[0].path)
	assert.Empty(t, calls[0].body)
	assert.Equal(t, "/tapi/elib/DANGKY_PhongHocNhomSelect", calls[1].path)
	assert.JSONEq(t, `{}`, calls[1].body)
	assert.Equal(t, "/tapi/elib/DANGKY_LichDangKyCaNhan", calls[2].path)
	assert.Equal(t, "/tapi/elib/DANGKY_LichDangKyTheoNgay", calls[3].path)
	assert.JSONEq(t, `{"TuNgay":"2025-03-10","DenNgay":"2025-03-10"}`, calls[3].body)
	assert.Equal(t, "/tapi/elib/DANGKY_PhongHocNhomForRegSelect", calls[4].path)
	assert.JSONEq(t, `{"ThoiGianBD":"2025-03-10T08:00","ThoiGianKT":"2025-03-10T10:00"}`, calls[4].body)
	assert.Equal(t, "/tapi/elib/DANGKY_ThietBiForRegSelect", calls[5].path)
}

func TestLibrary_NoToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	_, err := c.MyBookings(context.Background(), "")
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, pkgError.CodeNoToken, upstream.Code)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode())
}

func TestLibrary_InvalidParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	_, err := c.AvailableRooms(context.Background(), "tok", "", "2025-03-10T10:00")
	var validation pkgError.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = c.AvailableDevices(context.Background(), "tok", "2025-03-10T08:00", "")
	assert.ErrorAs(t, err, &validation)
}

func TestLibrary_AuthInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"Message":"Chứng thực của bạn không hợp lệ"}`)
	})

	_, err := c.LibrarySettings(context.Background(), "tok")
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, pkgError.CodeAuthInvalid, upstream.Code)
	assert.Equal(t, "Token hết hạn, vui lòng đăng nhập lại", upstream.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestLibrary_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"Message":"boom"}`)
	})

	_, err := c.RoomConfiguration(context.Background(), "tok")
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, pkgError.CodeAPIError, upstream.Code)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
	assert.Contains(t, upstream.Message, "Cấu Hình Phòng Học Nhóm")
}

func TestBookRoom(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tapi/elib/DANGKY_PhongHocNhom", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"data":[{"DangKyID":778}]}`)
	})

	booking, err := c.BookRoom(context.Background(), "tok", map[string]any{"PhongID": 3})
	require.NoError(t, err)
	assert.True(t, booking.Success)
	assert.Equal(t, "Đăng ký phòng học nhóm thành công", booking.Message)
	assert.Equal(t, float64(778), booking.MaDatCho)
	assert.Equal(t, float64(3), got["PhongID"])
}

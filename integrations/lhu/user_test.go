package lhu

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	var got loginRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{"Token":"portal-token"}`)
	})

	token, err := c.Login(context.Background(), "123456", "secret", `{"device":"web"}`)
	require.NoError(t, err)
	assert.Equal(t, "portal-token", token)
	assert.Equal(t, loginRequest{DeviceInfo: `{"device":"web"}`, UserID: "123456", Password: "secret"}, got)
}

func TestLogin_RejectsDeviceInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	_, err := c.Login(context.Background(), "123456", "secret", "device")
	var validation pkgError.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestLogin_MissingToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := c.Login(context.Background(), "1", "p", "{}")
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Message, "không tìm thấy token")
}

func TestLogin_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"Message":"Sai mật khẩu"}`)
	})

	_, err := c.Login(context.Background(), "1", "p", "{}")
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "Sai mật khẩu", upstream.Message)
}

func TestUserInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"data":{"UserID":"123456","FullName":"Nguyễn Văn A","Class":"22CT111","DepartmentName":"CNTT","isAuth":true}}`)
	})

	profile, err := c.UserInfo(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "123456", profile.UserID)
	assert.Equal(t, "Nguyễn Văn A", profile.FullName)
	assert.Equal(t, "22CT111", profile.Class)
	assert.True(t, profile.IsAuth)
}

func TestUserInfo_SessionExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"Message":"Chứng thực của bạn không còn hiệu lực"}`)
	})

	_, err := c.UserInfo(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, IsUnauthorized(err))
}

func TestUserInfo_EmptyData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":null}`)
	})

	_, err := c.UserInfo(context.Background(), "tok")
	var upstream *pkgError.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestUserInfo_NoToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})

	_, err := c.UserInfo(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestLogout(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/unauth", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, `{}`)
	})

	require.NoError(t, c.Logout(context.Background(), "tok"))
	assert.Equal(t, map[string]any{"SignOutAll": false}, got)
}

func TestLogout_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{}`)
	})

	err := c.Logout(context.Background(), "tok")
	var upstream *pkgError.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusServiceUnavailable, upstream.Status)
}

func TestAttendance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"data":[{"MonHoc":"Toán"}]}`)
	})

	got := c.Attendance(context.Background(), "tok")
	assert.JSONEq(t, `{"data":[{"MonHoc":"Toán"}]}`, string(got))
}

func TestAttendance_FailureYieldsNullData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"Message":"boom"}`)
	})

	got := c.Attendance(context.Background(), "tok")
	assert.JSONEq(t, `{"data":null}`, string(got))
}

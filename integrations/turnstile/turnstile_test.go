package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestVerifySuccess(t *testing.T) {
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		assert.Equal(t, "tok", r.PostForm.Get("response"))
		assert.Equal(t, "1.2.3.4", r.PostForm.Get("remoteip"))
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	v := NewVerifier(url, "secret", time.Second)
	assert.True(t, v.Enabled())
	assert.True(t, v.Verify(context.Background(), "tok", "1.2.3.4"))
}

func TestVerifyRejected(t *testing.T) {
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Empty(t, r.PostForm.Get("remoteip"))
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	})

	v := NewVerifier(url, "secret", time.Second)
	assert.False(t, v.Verify(context.Background(), "tok", ""))
}

func TestVerifyFailures(t *testing.T) {
	url := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	v := NewVerifier(url, "secret", time.Second)

	assert.False(t, v.Verify(context.Background(), "", ""), "empty token")
	assert.False(t, v.Verify(context.Background(), "tok", ""), "upstream error")

	bad := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	assert.False(t, NewVerifier(bad, "secret", time.Second).Verify(context.Background(), "tok", ""))
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewVerifier("", "", 0).Enabled())
	var v *Verifier
	assert.False(t, v.Enabled())
}

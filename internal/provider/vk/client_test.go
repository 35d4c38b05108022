package vk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaimgo/marketing-api/internal/config"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

func testClient(serverURL string) *Client {
	return NewClient(config.VKConfig{
		AccessToken: "test-token",
		BaseURL:     serverURL,
	})
}

func TestSendMessageSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications.sendMessage", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "12345", q.Get("user_ids"))
		assert.Equal(t, "Hello", q.Get("message"))
		assert.Equal(t, "offers", q.Get("fragment"))
		assert.Equal(t, "test-token", q.Get("access_token"))
		assert.Equal(t, "5.131", q.Get("v"))
		fmt.Fprint(w, `{"response":1}`)
	}))
	defer srv.Close()

	raw, err := testClient(srv.URL).SendMessage(context.Background(), 12345, "Hello", "offers")
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":1}`, string(raw))
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"error_code":15,"error_msg":"Access denied: user disabled notifications"}}`)
	}))
	defer srv.Close()

	raw, err := testClient(srv.URL).SendMessage(context.Background(), 12345, "Hello", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrProviderFailure, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Access denied")
	// The raw body comes back even on API errors for the delivery log.
	assert.Contains(t, string(raw), "error_code")
}

func TestSendMessageWithoutToken(t *testing.T) {
	client := NewClient(config.VKConfig{})

	require.Error(t, client.Ready())
	_, err := client.SendMessage(context.Background(), 12345, "Hello", "")
	assert.Equal(t, apperrors.ErrConfigurationMissing, apperrors.CodeOf(err))
}

func TestSendMessageMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>gateway error</html>`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SendMessage(context.Background(), 12345, "Hello", "")
	assert.Equal(t, apperrors.ErrProviderFailure, apperrors.CodeOf(err))
}

func TestIsNotificationsAllowed(t *testing.T) {
	allowed := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apps.isNotificationsAllowed", r.URL.Path)
		assert.Equal(t, "12345", r.URL.Query().Get("user_id"))
		fmt.Fprintf(w, `{"response":{"is_allowed":%t}}`, allowed)
	}))
	defer srv.Close()

	client := testClient(srv.URL)

	got, err := client.IsNotificationsAllowed(context.Background(), 12345)
	require.NoError(t, err)
	assert.True(t, got)

	allowed = false
	got, err = client.IsNotificationsAllowed(context.Background(), 12345)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestIsNotificationsAllowedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"error_code":5,"error_msg":"User authorization failed"}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).IsNotificationsAllowed(context.Background(), 12345)
	assert.Equal(t, apperrors.ErrProviderFailure, apperrors.CodeOf(err))
}

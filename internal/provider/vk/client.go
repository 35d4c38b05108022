package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zaimgo/marketing-api/internal/config"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

// Client talks to the VK API on behalf of the mini-app community.
//
// VK responses carry either a "response" payload on success or an
// "error" object with a human-readable error_msg. The raw body is
// returned alongside the parsed outcome so callers can persist it.
type Client struct {
	cfg        config.VKConfig
	httpClient *http.Client
}

func NewClient(cfg config.VKConfig) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "5.131"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vk.com/method"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ready reports whether the client holds the credential it needs.
func (c *Client) Ready() error {
	if c.cfg.AccessToken == "" {
		return apperrors.ConfigurationMissing("vk access token")
	}
	return nil
}

type apiEnvelope struct {
	Response json.RawMessage `json:"response"`
	Error    *apiError       `json:"error"`
}

type apiError struct {
	ErrorCode int    `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// SendMessage delivers one push notification via
// notifications.sendMessage. The VK endpoint takes user_ids (plural)
// even for a single recipient. A non-empty fragment opens the given
// in-app location on tap.
//
// The raw provider body is always returned, including on API errors, so
// the delivery log can keep it.
func (c *Client) SendMessage(ctx context.Context, vkUserID int64, message, fragment string) (json.RawMessage, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("user_ids", strconv.FormatInt(vkUserID, 10))
	params.Set("message", message)
	if fragment != "" {
		params.Set("fragment", fragment)
	}

	raw, env, err := c.call(ctx, "notifications.sendMessage", params)
	if err != nil {
		return raw, err
	}
	if env.Error != nil {
		return raw, apperrors.ProviderFailure(env.Error.ErrorMsg, nil)
	}
	return raw, nil
}

// IsNotificationsAllowed asks VK whether the user granted the app
// permission to push.
func (c *Client) IsNotificationsAllowed(ctx context.Context, vkUserID int64) (bool, error) {
	if err := c.Ready(); err != nil {
		return false, err
	}

	params := url.Values{}
	params.Set("user_id", strconv.FormatInt(vkUserID, 10))

	_, env, err := c.call(ctx, "apps.isNotificationsAllowed", params)
	if err != nil {
		return false, err
	}
	if env.Error != nil {
		return false, apperrors.ProviderFailure(env.Error.ErrorMsg, nil)
	}

	var result struct {
		IsAllowed bool `json:"is_allowed"`
	}
	if err := json.Unmarshal(env.Response, &result); err != nil {
		return false, fmt.Errorf("failed to decode permission response: %w", err)
	}
	return result.IsAllowed, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (json.RawMessage, *apiEnvelope, error) {
	params.Set("access_token", c.cfg.AccessToken)
	params.Set("v", c.cfg.APIVersion)

	endpoint := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, apperrors.ProviderFailure("vk request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperrors.ProviderFailure("failed to read vk response", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body, nil, apperrors.ProviderFailure("failed to decode vk response", err)
	}
	return body, &env, nil
}

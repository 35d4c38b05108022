package affiliate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zaimgo/marketing-api/internal/config"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

// Lead is the payload forwarded to the affiliate network when an
// attributed click converts.
type Lead struct {
	VKUserID    int64  `json:"vk_user_id"`
	OfferName   string `json:"offer_name"`
	OfferLink   string `json:"offer_link"`
	UTMSource   string `json:"utm_source,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	AdID        string `json:"ad_id,omitempty"`
	ClickedAt   string `json:"clicked_at"`
}

// Client forwards attributed clicks to the external affiliate network.
type Client struct {
	cfg        config.AffiliateConfig
	httpClient *http.Client
}

func NewClient(cfg config.AffiliateConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward posts the lead. Any non-2xx response is surfaced to the
// caller; forwarding is best-effort and never retried here.
func (c *Client) Forward(ctx context.Context, lead *Lead) error {
	if c.cfg.URL == "" {
		return apperrors.ConfigurationMissing("affiliate endpoint")
	}

	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("failed to marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to forward lead: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("affiliate network rejected lead: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

package nylas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/domain"
)

// Client fetches full message records from the Nylas v3 API. Used when a
// webhook payload is a stub or arrives with an empty body.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("provider", "nylas"),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// messageResponse mirrors the Nylas v3 message envelope.
type messageResponse struct {
	Data struct {
		ID      string `json:"id"`
		GrantID string `json:"grant_id"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
		Snippet string `json:"snippet"`
	} `json:"data"`
}

func (c *Client) FetchMessage(ctx context.Context, grantID, messageID string) (*domain.MessageRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("nylas api key not configured")
	}
	if grantID == "" || messageID == "" {
		return nil, fmt.Errorf("grant id and message id are required")
	}

	endpoint := fmt.Sprintf("%s/v3/grants/%s/messages/%s",
		c.baseURL, url.PathEscape(grantID), url.PathEscape(messageID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Nylas request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "Fetching message from Nylas", "message_id", messageID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message from Nylas: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Nylas response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "Nylas message fetch returned error status",
			"status_code", resp.StatusCode,
			"message_id", messageID,
			"body", truncate(string(respBody), 200))
		return nil, fmt.Errorf("nylas API error: status %d", resp.StatusCode)
	}

	var parsed messageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode Nylas message response: %w", err)
	}

	rec := &domain.MessageRecord{
		ID:      parsed.Data.ID,
		GrantID: parsed.Data.GrantID,
		Subject: parsed.Data.Subject,
		Body:    parsed.Data.Body,
		Snippet: parsed.Data.Snippet,
	}
	if rec.ID == "" {
		rec.ID = messageID
	}
	if rec.GrantID == "" {
		rec.GrantID = grantID
	}
	return rec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

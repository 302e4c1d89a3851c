package salesys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/viktorklasson/nylas-webhook/internal/webhook_service/domain"
)

// Config carries the Salesys credentials and schema identifiers. Field ids
// target the order form fields the extracted values land in.
type Config struct {
	BaseURL   string
	Token     string
	UserID    string
	ProjectID string
	TagIDs    []string

	CompanyFieldID  string
	DomainFieldID   string
	ResourceFieldID string

	DateOffsetDays int
}

// Client performs the single best-effort create-order call. Failures are
// logged by the caller and never retried.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	cfg        Config

	now func() time.Time
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		logger:     logger.With("provider", "salesys"),
		httpClient: httpClient,
		cfg:        cfg,
		now:        time.Now,
	}
}

type orderRequest struct {
	Date      string            `json:"date"`
	TagIDs    []string          `json:"tagIds"`
	UserID    string            `json:"userId"`
	ProjectID string            `json:"projectId"`
	Fields    []orderFieldValue `json:"fields"`
}

type orderFieldValue struct {
	FieldID string `json:"fieldId"`
	Value   string `json:"value"`
}

// CreateOrder maps the extracted fields onto the orders-v2 schema and posts
// them. Returns (false, nil) when credentials are not configured; that is
// the expected behavior for unconfigured deployments, not an error.
func (c *Client) CreateOrder(ctx context.Context, fields domain.ExtractedFields) (bool, error) {
	if c.cfg.Token == "" || c.cfg.UserID == "" || c.cfg.ProjectID == "" {
		c.logger.InfoContext(ctx, "Salesys credentials not configured, skipping order dispatch")
		return false, nil
	}

	order := orderRequest{
		Date:      c.now().AddDate(0, 0, c.cfg.DateOffsetDays).Format("2006-01-02"),
		TagIDs:    c.cfg.TagIDs,
		UserID:    c.cfg.UserID,
		ProjectID: c.cfg.ProjectID,
	}
	if fields.OrganizationName != "" {
		order.Fields = append(order.Fields, orderFieldValue{FieldID: c.cfg.CompanyFieldID, Value: fields.OrganizationName})
	}
	if fields.Domain != "" {
		order.Fields = append(order.Fields, orderFieldValue{FieldID: c.cfg.DomainFieldID, Value: fields.Domain})
	}
	if fields.SalespersonEmail != "" {
		order.Fields = append(order.Fields, orderFieldValue{FieldID: c.cfg.ResourceFieldID, Value: fields.SalespersonEmail})
	}

	reqBytes, err := json.Marshal(order)
	if err != nil {
		return false, fmt.Errorf("failed to marshal Salesys order: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/api/orders/orders-v2"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return false, fmt.Errorf("failed to create Salesys request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	c.logger.DebugContext(ctx, "Posting order to Salesys", "order_date", order.Date, "field_count", len(order.Fields))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("failed to post order to Salesys: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "Salesys order creation failed",
			"status_code", resp.StatusCode,
			"body", string(respBody))
		return false, fmt.Errorf("salesys API error: status %d", resp.StatusCode)
	}

	c.logger.InfoContext(ctx, "Salesys order created", "status_code", resp.StatusCode)
	return true, nil
}

// Package antiplagiat is the HTTP adapter for the external originality
// checking service.
package antiplagiat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"originality_sync/internal/domain/remote"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 64 << 10
)

// Client implements remote.Client over the service's JSON API. Every call
// runs under its own timeout; failures come back as *remote.Error.
type Client struct {
	httpClient *http.Client
	creds      remote.Credentials
	timeout    time.Duration
	logger     *logrus.Entry
}

func NewClient(creds remote.Credentials, timeout time.Duration, logger *logrus.Entry) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{},
		creds:      creds,
		timeout:    timeout,
		logger:     logger,
	}
}

func (c *Client) Upload(ctx context.Context, u remote.Upload) (remote.DocumentID, error) {
	req := uploadRequest{
		Data:           u.Content,
		FileName:       u.Filename,
		FileType:       u.FileType,
		ExternalUserID: u.OwnerExternalID,
		Attributes:     toAttributesDTO(u.Attributes),
	}
	var resp uploadResponse
	if err := c.do(ctx, c.creds, http.MethodPost, "/api/v1/documents", req, &resp); err != nil {
		return "", err
	}
	if len(resp.DocumentID) == 0 || string(resp.DocumentID) == "null" {
		return "", remote.TransportError(errors.New("upload response carries no document id"))
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, resp.DocumentID); err != nil {
		return "", remote.TransportError(fmt.Errorf("malformed document id: %w", err))
	}
	return remote.DocumentID(compact.String()), nil
}

func (c *Client) UpdateAttributes(ctx context.Context, id remote.DocumentID, attrs remote.Attributes) error {
	req := attributesRequest{DocumentID: handleOf(id), Attributes: toAttributesDTO(attrs)}
	return c.do(ctx, c.creds, http.MethodPut, "/api/v1/documents/attributes", req, nil)
}

func (c *Client) StartCheck(ctx context.Context, id remote.DocumentID) error {
	return c.do(ctx, c.creds, http.MethodPost, "/api/v1/checks", documentRequest{DocumentID: handleOf(id)}, nil)
}

func (c *Client) GetStatus(ctx context.Context, id remote.DocumentID) (*remote.StatusReport, error) {
	var resp statusResponse
	if err := c.do(ctx, c.creds, http.MethodPost, "/api/v1/checks/status", documentRequest{DocumentID: handleOf(id)}, &resp); err != nil {
		return nil, err
	}

	report := &remote.StatusReport{
		State:      remote.CheckState(resp.Status),
		WaitTime:   time.Duration(resp.EstimatedWaitTime) * time.Second,
		FailDetail: resp.FailureDetails,
	}
	if resp.Summary != nil {
		report.Summary = resp.Summary.toSummary()
	}
	return report, nil
}

func (c *Client) SetIndexed(ctx context.Context, id remote.DocumentID, addToIndex bool) error {
	req := indexRequest{DocumentID: handleOf(id), AddToIndex: addToIndex}
	return c.do(ctx, c.creds, http.MethodPost, "/api/v1/documents/indexed", req, nil)
}

func (c *Client) GetReport(ctx context.Context, id remote.DocumentID) (*remote.Summary, error) {
	var resp summaryDTO
	if err := c.do(ctx, c.creds, http.MethodPost, "/api/v1/reports/summary", documentRequest{DocumentID: handleOf(id)}, &resp); err != nil {
		return nil, err
	}
	return resp.toSummary(), nil
}

// CheckAccountStatus uses creds instead of the configured credentials so a
// settings form can test values before saving them.
func (c *Client) CheckAccountStatus(ctx context.Context, creds remote.Credentials) (*remote.AccountStatus, error) {
	var resp accountResponse
	if err := c.do(ctx, creds, http.MethodGet, "/api/v1/account/status", nil, &resp); err != nil {
		return nil, err
	}
	return &remote.AccountStatus{
		PlanName:        resp.Tariff,
		Expiration:      resp.SubscriptionEnd,
		TotalChecks:     resp.TotalChecks,
		RemainingChecks: resp.RemainingChecks,
	}, nil
}

// handleOf turns a stored id back into the JSON handle. Ids that are not
// JSON are sent as strings.
func handleOf(id remote.DocumentID) docHandle {
	if json.Valid([]byte(id)) {
		return docHandle(id)
	}
	quoted, _ := json.Marshal(string(id))
	return quoted
}

func (c *Client) do(ctx context.Context, creds remote.Credentials, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(creds.Endpoint, "/")+path, body)
	if err != nil {
		return remote.TransportError(fmt.Errorf("failed to build %s request: %w", path, err))
	}
	req.SetBasicAuth(creds.Login, creds.Password)
	req.Header.Set("X-Company", creds.Company)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Originality service request failed")
		return remote.TransportError(err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Originality service request")

	if resp.StatusCode >= http.StatusBadRequest {
		return classify(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remote.TransportError(fmt.Errorf("malformed %s response: %w", path, err))
	}
	return nil
}

// classify maps a failed response: 5xx and unreadable bodies are transport
// failures, 4xx carry the service's own message.
func classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if resp.StatusCode >= http.StatusInternalServerError {
		return remote.TransportError(fmt.Errorf("service returned status %d", resp.StatusCode))
	}

	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return remote.ApplicationError(e.Error.Message)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return remote.ApplicationError("Invalid login or password")
	case http.StatusTooManyRequests:
		return remote.TransportError(errors.New("rate limited by the service"))
	default:
		return remote.ApplicationError(fmt.Sprintf("Request rejected with status %d", resp.StatusCode))
	}
}

package research

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

	"github.com/agenthands/chrono/internal/core/model"
)

const createPath = "/api/research"

// APIError is the error body returned with a non-OK status.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("research api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("research api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrServiceUnavailable }

type HTTPClient struct {
	baseURL  string
	client   *http.Client
	language string
	logger   *slog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, language string, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if language == "" {
		language = model.DefaultLanguage
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		language: language,
		logger:   logger,
	}
}

func (c *HTTPClient) CreateSession(ctx context.Context, req model.ResearchRequest) (*model.ResearchProposalResponse, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return nil, ErrEmptyTopic
	}
	if req.Language == "" {
		req.Language = c.language
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create research session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := decodeAPIError(resp)
		c.logger.Warn("research session rejected", "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	var out model.ResearchProposalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode proposal: %w", err)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("failed to decode proposal: missing session_id")
	}
	c.logger.Info("research session created", "session", out.SessionID, "topic", req.Topic)
	return &out, nil
}

// decodeAPIError accepts both a bare {error, message} body and one nested
// under "detail".
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	var wrapped struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && len(wrapped.Detail) > 0 {
		var msg string
		if json.Unmarshal(wrapped.Detail, &msg) == nil {
			apiErr.Message = msg
			return apiErr
		}
		if json.Unmarshal(wrapped.Detail, apiErr) == nil && (apiErr.Code != "" || apiErr.Message != "") {
			return apiErr
		}
	}
	if json.Unmarshal(raw, apiErr) == nil && (apiErr.Code != "" || apiErr.Message != "") {
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}

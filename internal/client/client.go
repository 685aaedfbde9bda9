// Package client provides the HTTP client for the LifeOS chat API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"lifeos/internal/models"
)

// Client talks to the LifeOS server's chat endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a chat API client.
// If baseURL is empty, uses LIFEOS_SERVER_URL env var or defaults to localhost:8170.
// Timeout can be configured via LIFEOS_CLIENT_TIMEOUT env var (default 2m for LLM replies).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("LIFEOS_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8170"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("LIFEOS_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseResponse is the server's standard envelope.
type BaseResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// APIError carries the failure shape the transcript core expects: a
// human-readable message and a numeric code. Transport-level failures use
// code 0.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (code %d): %s", e.Code, e.Message)
}

// wireMessage is a history entry as the service returns it.
type wireMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SendMessage posts a user turn and returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	endpoint := c.baseURL + "/chat?" + url.Values{"message": {text}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var resp BaseResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}

	var reply string
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &reply); err != nil {
			return "", fmt.Errorf("unmarshal reply: %w", err)
		}
	}
	return reply, nil
}

// GetMessages fetches one page of chat history, newest first.
func (c *Client) GetMessages(ctx context.Context, page, limit int) ([]models.Message, error) {
	endpoint := c.baseURL + "/chat?" + url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var resp BaseResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	var wire []wireMessage
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &wire); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
	}

	msgs := make([]models.Message, len(wire))
	for i, w := range wire {
		msgs[i] = models.Message{
			ID:        w.ID,
			Role:      models.Role(w.Role),
			Content:   w.Content,
			CreatedAt: w.CreatedAt,
			State:     models.StateConfirmed,
		}
	}
	return msgs, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Code: 0, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Code: resp.StatusCode, Message: resp.Status}
	}
	return nil
}

// do executes the request and decodes the envelope, converting every failure
// into an *APIError so callers always see the {message, code} shape.
func (c *Client) do(req *http.Request, out *BaseResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Code: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Code: 0, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		// Prefer the envelope's message when the server sent one.
		var envelope BaseResponse
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr == nil && envelope.Message != "" {
			return &APIError{Code: resp.StatusCode, Message: envelope.Message}
		}
		return &APIError{Code: resp.StatusCode, Message: resp.Status}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Code: 0, Message: fmt.Sprintf("unmarshal envelope: %v", err)}
	}
	return nil
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/krau/fashiontagger/service"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ErrorBody is the JSON error body returned by the server. Only the fields
// relevant to Error are set.
type ErrorBody struct {
	Error           string `json:"error"`
	Details         string `json:"details,omitempty"`
	Message         string `json:"message,omitempty"`
	Column          string `json:"column,omitempty"`
	Index           *int   `json:"index,omitempty"`
	ExpectedOutputs int    `json:"expected_outputs,omitempty"`
	ReceivedOutputs int    `json:"received_outputs,omitempty"`
}

// APIError represents a non-2xx response.
type APIError struct {
	StatusCode int
	Body       ErrorBody
}

func (e *APIError) Error() string {
	msg := e.Body.Error
	switch {
	case e.Body.Details != "":
		msg += ": " + e.Body.Details
	case e.Body.Message != "":
		msg += ": " + e.Body.Message
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify uploads image as the "image" form field. Failures are not retried.
func (c *Client) Classify(ctx context.Context, filename string, image io.Reader) (*service.PredictionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(data, &apiErr.Body); err != nil {
			apiErr.Body.Error = string(data)
		}
		return nil, apiErr
	}

	var result service.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode prediction: %w", err)
	}
	return &result, nil
}

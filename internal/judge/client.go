// Package judge talks to the external language model that writes verdicts.
package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JustJay7/gosomi-court/pkg/logger"
)

// ErrImageProcessing marks a failure caused by the image inputs rather than
// the prompt. Callers may retry without images.
var ErrImageProcessing = errors.New("judge could not process image input")

// Image is an inline image attachment.
type Image struct {
	MimeType string
	Data     []byte
}

type Request struct {
	System string
	Prompt string
	Images []Image
}

// Client returns the judge's raw text answer for a request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError is returned for non-2xx answers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge returned status %d: %s", e.StatusCode, e.Body)
}

type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

type httpClient struct {
	opts   Options
	http   *http.Client
	logger *logger.Logger
}

// NewHTTPClient returns a Client for an OpenAI-compatible chat completions
// endpoint.
func NewHTTPClient(opts Options, log *logger.Logger) (Client, error) {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("judge base url is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("judge model is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	return &httpClient{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: log.With("component", "judge"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *httpClient) Complete(ctx context.Context, req Request) (string, error) {
	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}

	body, err := json.Marshal(chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: parts},
		},
		Temperature:    c.opts.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode judge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read judge response: %w", err)
	}

	c.logger.Debug("Judge call finished",
		"status", resp.StatusCode,
		"images", len(req.Images),
		"latency", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
		if len(req.Images) > 0 && isImageFailure(resp.StatusCode, string(raw)) {
			return "", fmt.Errorf("%w: %v", ErrImageProcessing, statusErr)
		}
		return "", statusErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode judge response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("judge response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func isImageFailure(status int, body string) bool {
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity {
		return false
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "image")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

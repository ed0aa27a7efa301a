// Package analyze submits a clip to a multimodal inference service and
// turns the response into a motion analysis document. The service
// cannot fetch remote URLs, so the full video payload is embedded
// base64 in the request; that bounds usable clip size and is why the
// tool steers users toward 5–30s sources.
package analyze

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kalambet/clip2tsx/internal/retry"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultTimeout = 300 * time.Second
	apiVersion     = "2023-06-01"

	// Retry policy for the overloaded error class only.
	maxAttempts  = 3
	attemptDelay = 5 * time.Second
)

// overloadedError is the transient service-overloaded class (HTTP 529
// or an explicit overloaded_error body). Only this class is retried.
type overloadedError struct {
	message string
}

func (e *overloadedError) Error() string {
	return fmt.Sprintf("service overloaded: %s", e.message)
}

// IsOverloaded reports whether err belongs to the overloaded class.
func IsOverloaded(err error) bool {
	var oe *overloadedError
	return errors.As(err, &oe)
}

// Client calls the multimodal messages endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	retryDelay time.Duration
	httpClient *http.Client
}

// NewClient creates a client for the given API key and model.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      model,
		maxTokens:  4096,
		retryDelay: attemptDelay,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL points the client at a custom base URL (tests).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ContentBlock is one part of a user message: text or embedded media.
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *MediaSource `json:"source,omitempty"`
}

// MediaSource embeds base64 media bytes in a request.
type MediaSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// VideoBlock builds a base64-embedded video content block.
func VideoBlock(mimeType string, data []byte) ContentBlock {
	return ContentBlock{
		Type: "video",
		Source: &MediaSource{
			Type:      "base64",
			MediaType: mimeType,
			Data:      base64.StdEncoding.EncodeToString(data),
		},
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user message and returns the concatenated text of
// the reply. Retries are bounded to the overloaded class: at most
// maxAttempts total, attemptDelay apart; any other failure surfaces
// immediately. After exhaustion the error names the attempt count and
// wraps the last overloaded error — there is no fallback model.
func (c *Client) Complete(ctx context.Context, system string, blocks []ContentBlock) (string, error) {
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		Delay:       c.retryDelay,
		Retryable:   IsOverloaded,
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return c.complete(ctx, system, blocks)
	})
}

func (c *Client) complete(ctx context.Context, system string, blocks []ContentBlock) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyFailure(resp)
	}

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from inference service")
	}
	return sb.String(), nil
}

// classifyFailure separates the retryable overloaded class from
// everything else.
func classifyFailure(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var er errorResponse
	_ = json.Unmarshal(raw, &er)

	if resp.StatusCode == 529 || er.Error.Type == "overloaded_error" {
		msg := er.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return &overloadedError{message: msg}
	}

	if er.Error.Message != "" {
		return fmt.Errorf("inference service error (%s): %s", er.Error.Type, er.Error.Message)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
}

// Analyze submits the clip with the fixed analysis prompt and parses
// the reply into a Spec.
func (c *Client) Analyze(ctx context.Context, videoPath, mimeType string) (*Spec, error) {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("reading clip: %w", err)
	}
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	blocks := []ContentBlock{
		VideoBlock(mimeType, data),
		TextBlock(analysisPrompt),
	}

	text, err := c.Complete(ctx, analysisSystem, blocks)
	if err != nil {
		return nil, fmt.Errorf("analyzing clip: %w", err)
	}

	return ParseSpec(text), nil
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Client provides HTTP client functionality for chat-completion requests
type Client struct {
	config     Config
	httpClient *http.Client

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64

	mu sync.RWMutex
}

// Config contains chat-completion client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	MaxReplyChars int
	Timeout       time.Duration
}

// message is a role-tagged entry in the chat exchange
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest mirrors the OpenAI-compatible chat-completions request body
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse mirrors the subset of the response body we consume
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
}

// NewClient creates a new chat-completion HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.Model == "" {
		config.Model = "llama-3.3-70b-versatile"
	}

	if config.MaxReplyChars <= 0 {
		config.MaxReplyChars = 500
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// systemInstruction returns the persona prompt with the configured reply ceiling.
// The ceiling is a stated target; the model is not guaranteed to honor it.
func (c *Client) systemInstruction() string {
	return fmt.Sprintf(
		"You are a loan agent. Explain the loan eligibility criteria, restrictions, "+
			"and who can or cannot apply. Always answer in the language of the user's input. "+
			"Please keep your response under %d characters.", c.config.MaxReplyChars)
}

// Generate sends the transcript through a two-message non-streaming exchange
// and returns the top completion's text trimmed of surrounding whitespace
func (c *Client) Generate(ctx context.Context, transcript string) (string, error) {
	c.incrementTotalRequests()

	reqBody := chatRequest{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: c.systemInstruction()},
			{Role: "user", Content: transcript},
		},
		Stream: false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailedRequests()
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if len(parsed.Choices) == 0 {
		c.incrementFailedRequests()
		return "", fmt.Errorf("chat response contained no choices")
	}

	c.incrementSuccessRequests()
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
	}
}

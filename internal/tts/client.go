package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// Client provides HTTP client functionality for text-to-speech requests
type Client struct {
	config     Config
	httpClient *http.Client

	totalRequests    uint64
	successRequests  uint64
	failedRequests   uint64
	bytesSynthesized uint64

	mu sync.RWMutex
}

// Config contains text-to-speech client configuration. Voice parameters
// default to the production voice profile when left zero.
type Config struct {
	Endpoint            string
	APIKey              string
	Model               string
	Speaker             string
	Pitch               float64
	Pace                float64
	Loudness            float64
	SampleRate          int
	EnablePreprocessing bool
	Timeout             time.Duration
}

// synthesisRequest mirrors the speech endpoint's JSON request body
type synthesisRequest struct {
	Inputs              []string               `json:"inputs"`
	TargetLanguageCode  string                 `json:"target_language_code"`
	Speaker             string                 `json:"speaker"`
	Pitch               float64                `json:"pitch"`
	Pace                float64                `json:"pace"`
	Loudness            float64                `json:"loudness"`
	SpeechSampleRate    int                    `json:"speech_sample_rate"`
	EnablePreprocessing bool                   `json:"enable_preprocessing"`
	Model               string                 `json:"model"`
	EngInterpolationWt  int                    `json:"eng_interpolation_wt"`
	OverrideTriplets    map[string]interface{} `json:"override_triplets"`
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests    uint64  `json:"total_requests"`
	SuccessRequests  uint64  `json:"success_requests"`
	FailedRequests   uint64  `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	BytesSynthesized uint64  `json:"bytes_synthesized"`
}

// NewClient creates a new text-to-speech HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.Model == "" {
		config.Model = "bulbul:v1"
	}

	if config.Speaker == "" {
		config.Speaker = "meera"
	}

	if config.Pace == 0 {
		config.Pace = 1.65
	}

	if config.Loudness == 0 {
		config.Loudness = 1.5
	}

	if config.SampleRate <= 0 {
		config.SampleRate = 8000
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

// Synthesize converts reply text to speech in the target locale and
// returns the raw audio bytes of the response body
func (c *Client) Synthesize(ctx context.Context, text, targetLocale string) ([]byte, error) {
	c.incrementTotalRequests()

	if text == "" {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("cannot synthesize empty text")
	}

	reqBody := synthesisRequest{
		Inputs:              []string{text},
		TargetLanguageCode:  targetLocale,
		Speaker:             c.config.Speaker,
		Pitch:               c.config.Pitch,
		Pace:                c.config.Pace,
		Loudness:            c.config.Loudness,
		SpeechSampleRate:    c.config.SampleRate,
		EnablePreprocessing: c.config.EnablePreprocessing,
		Model:               c.config.Model,
		EngInterpolationWt:  123,
		OverrideTriplets:    map[string]interface{}{},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-subscription-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(audio))
	}

	if len(audio) == 0 {
		c.incrementFailedRequests()
		return nil, fmt.Errorf("synthesis returned an empty audio body")
	}

	c.recordSuccess(len(audio))
	return audio, nil
}

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) recordSuccess(audioBytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
	c.bytesSynthesized += uint64(audioBytes)
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
		TotalRequests:    c.totalRequests,
		SuccessRequests:  c.successRequests,
		FailedRequests:   c.failedRequests,
		SuccessRate:      successRate,
		BytesSynthesized: c.bytesSynthesized,
	}
}

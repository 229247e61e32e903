package language

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// TransliterateConfig contains transliteration endpoint configuration
type TransliterateConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// transliterator renders non-default-language transcripts into the default
// locale's script via a remote transliteration endpoint. On any failure it
// degrades to the original transcript rather than failing the turn.
type transliterator struct {
	config        TransliterateConfig
	defaultLocale string
	fallback      string
	httpClient    *http.Client
	logger        *slog.Logger
}

type transliterateRequest struct {
	Input              string `json:"input"`
	SourceLanguageCode string `json:"source_language_code"`
	TargetLanguageCode string `json:"target_language_code"`
}

type transliterateResponse struct {
	TransliteratedText string `json:"transliterated_text"`
}

func newTransliterator(cfg Config, logger *slog.Logger) (*transliterator, error) {
	if cfg.Transliterate.Endpoint == "" {
		return nil, fmt.Errorf("transliteration endpoint cannot be empty")
	}

	if cfg.Transliterate.APIKey == "" {
		return nil, fmt.Errorf("transliteration API key cannot be empty")
	}

	timeout := cfg.Transliterate.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &transliterator{
		config:        cfg.Transliterate,
		defaultLocale: cfg.DefaultLocale,
		fallback:      cfg.FallbackLocale,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Normalize transliterates the transcript when the detected language
// differs from the default locale. The transcript passes through
// byte-identical when no transliteration is needed or when the remote
// call fails.
func (t *transliterator) Normalize(ctx context.Context, transcript, detectedLang, clientLang string) (Result, error) {
	target := detectedLang
	if IsAllowedLocale(clientLang) {
		target = clientLang
	}
	if target == "" {
		target = t.fallback
	}

	if detectedLang == "" || detectedLang == t.defaultLocale {
		return Result{Transcript: transcript, TargetLocale: target}, nil
	}

	romanized, err := t.transliterate(ctx, transcript, detectedLang)
	if err != nil {
		// Degrade to the original text; the turn continues.
		t.logger.Warn("Transliteration failed, keeping original transcript",
			slog.String("source_language", detectedLang),
			slog.String("error", err.Error()),
		)
		return Result{Transcript: transcript, TargetLocale: target}, nil
	}

	return Result{Transcript: romanized, TargetLocale: target}, nil
}

// transliterate performs a single request against the transliteration endpoint
func (t *transliterator) transliterate(ctx context.Context, text, sourceLang string) (string, error) {
	payload, err := json.Marshal(transliterateRequest{
		Input:              text,
		SourceLanguageCode: sourceLang,
		TargetLanguageCode: t.defaultLocale,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transliteration request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-subscription-key", t.config.APIKey)

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed transliterateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if parsed.TransliteratedText == "" {
		return "", fmt.Errorf("transliteration returned empty text")
	}

	return parsed.TransliteratedText, nil
}

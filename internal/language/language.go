package language

import (
	"context"
	"fmt"
	"log/slog"
)

// Result carries a normalized transcript and the locale the reply should
// be synthesized in
type Result struct {
	Transcript   string
	TargetLocale string
}

// Normalizer produces a normalized transcript and a target synthesis
// locale for one turn. detectedLang is the tag reported by the speech
// service; clientLang is the optional preference from the stream-end event.
type Normalizer interface {
	Normalize(ctx context.Context, transcript, detectedLang, clientLang string) (Result, error)
}

// Config contains normalizer configuration
type Config struct {
	Strategy       string
	FallbackLocale string
	DefaultLocale  string
	Transliterate  TransliterateConfig
}

// allowedLocales is the fixed set of client-selectable locale codes.
// A preference outside this set is ignored, never an error.
var allowedLocales = map[string]bool{
	"bn-IN": true,
	"gu-IN": true,
	"hi-IN": true,
	"kn-IN": true,
	"ml-IN": true,
	"mr-IN": true,
	"od-IN": true,
	"pa-IN": true,
	"ta-IN": true,
	"te-IN": true,
}

// localeByISO maps two-letter detection codes onto the locale codes the
// speech services accept. The table is closed: unmapped codes fall back
// to the configured default.
var localeByISO = map[string]string{
	"bn": "bn-IN",
	"gu": "gu-IN",
	"hi": "hi-IN",
	"kn": "kn-IN",
	"ml": "ml-IN",
	"mr": "mr-IN",
	"or": "od-IN", // sometimes reported for Oriya
	"pa": "pa-IN",
	"ta": "ta-IN",
	"te": "te-IN",
	"en": "en-US",
}

// IsAllowedLocale reports whether a client-declared locale belongs to the
// fixed allow-set
func IsAllowedLocale(locale string) bool {
	return allowedLocales[locale]
}

// New creates the normalizer selected by cfg.Strategy
func New(cfg Config, logger *slog.Logger) (Normalizer, error) {
	switch cfg.Strategy {
	case "none":
		return &passthroughNormalizer{
			fallbackLocale: cfg.FallbackLocale,
		}, nil

	case "transliterate":
		return newTransliterator(cfg, logger)

	case "detect":
		return newDetector(cfg, logger), nil

	default:
		return nil, fmt.Errorf("unknown language strategy '%s'", cfg.Strategy)
	}
}

// passthroughNormalizer returns the transcript unchanged and derives the
// target locale from the adapter-provided tag
type passthroughNormalizer struct {
	fallbackLocale string
}

func (n *passthroughNormalizer) Normalize(_ context.Context, transcript, detectedLang, clientLang string) (Result, error) {
	target := detectedLang
	if IsAllowedLocale(clientLang) {
		target = clientLang
	}
	if target == "" {
		target = n.fallbackLocale
	}

	return Result{
		Transcript:   transcript,
		TargetLocale: target,
	}, nil
}

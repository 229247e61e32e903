package language

import (
	"context"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// detector runs text-based language detection on the transcript and maps
// the detected two-letter code through the locale table. The tag reported
// by the speech adapter is deliberately ignored: the transcript text is
// the source of truth for this strategy.
type detector struct {
	fallbackLocale string
	logger         *slog.Logger
}

func newDetector(cfg Config, logger *slog.Logger) *detector {
	return &detector{
		fallbackLocale: cfg.FallbackLocale,
		logger:         logger,
	}
}

// Normalize applies the precedence rule: allow-listed client preference >
// text-based detection > fallback locale. The transcript itself is never
// altered by this strategy.
func (d *detector) Normalize(_ context.Context, transcript, _ string, clientLang string) (Result, error) {
	if IsAllowedLocale(clientLang) {
		return Result{Transcript: transcript, TargetLocale: clientLang}, nil
	}

	return Result{
		Transcript:   transcript,
		TargetLocale: d.detectLocale(transcript),
	}, nil
}

// detectLocale maps the transcript's detected language onto a locale code.
// Detection runs over whatlanggo's full language set, so a transcript in an
// unmapped language misses the locale table and falls back to the
// configured default instead of being forced onto the nearest candidate.
func (d *detector) detectLocale(transcript string) string {
	if strings.TrimSpace(transcript) == "" {
		d.logger.Warn("Language detection failed, using fallback locale",
			slog.String("fallback", d.fallbackLocale),
		)
		return d.fallbackLocale
	}

	info := whatlanggo.Detect(transcript)
	iso := info.Lang.Iso6391()

	locale, mapped := localeByISO[iso]
	if !mapped {
		d.logger.Warn("Detected language has no locale mapping, using fallback",
			slog.String("iso_code", iso),
			slog.String("fallback", d.fallbackLocale),
		)
		return d.fallbackLocale
	}

	return locale
}

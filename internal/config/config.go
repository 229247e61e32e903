package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Audio     AudioConfig     `yaml:"audio"`
	Speech    SpeechConfig    `yaml:"speech"`
	Chat      ChatConfig      `yaml:"chat"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Language  LanguageConfig  `yaml:"language"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains WebSocket server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	BindAddress    string `yaml:"bind_address"`
	Path           string `yaml:"path"`
	ReadBufferSize int    `yaml:"read_buffer_size"`
	SessionTimeout int    `yaml:"session_timeout"` // seconds
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// AudioConfig contains audio handling parameters
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	TurnGracePeriod float64 `yaml:"turn_grace_period"` // seconds
}

// SpeechConfig contains speech-to-text API configuration
type SpeechConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// ChatConfig contains chat-completion API configuration
type ChatConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	MaxReplyChars int    `yaml:"max_reply_chars"`
	Timeout       int    `yaml:"timeout"` // seconds
}

// SynthesisConfig contains text-to-speech API configuration.
// The voice parameters were hardcoded in earlier revisions; they are
// exposed here so deployments can tune them without a rebuild.
type SynthesisConfig struct {
	Endpoint            string  `yaml:"endpoint"`
	APIKey              string  `yaml:"api_key"`
	Model               string  `yaml:"model"`
	Speaker             string  `yaml:"speaker"`
	Pitch               float64 `yaml:"pitch"`
	Pace                float64 `yaml:"pace"`
	Loudness            float64 `yaml:"loudness"`
	SampleRate          int     `yaml:"sample_rate"`
	EnablePreprocessing bool    `yaml:"enable_preprocessing"`
	Timeout             int     `yaml:"timeout"` // seconds
}

// LanguageConfig controls transcript normalization and target-locale selection
type LanguageConfig struct {
	Strategy              string `yaml:"strategy"`      // "none", "transliterate" or "detect"
	TargetPolicy          string `yaml:"target_policy"` // "derived" or "forced"
	ForcedLocale          string `yaml:"forced_locale"`
	FallbackLocale        string `yaml:"fallback_locale"`
	DefaultLocale         string `yaml:"default_locale"`
	TransliterateEndpoint string `yaml:"transliterate_endpoint"`
	TransliterateAPIKey   string `yaml:"transliterate_api_key"`
	TransliterateTimeout  int    `yaml:"transliterate_timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. Environment variable
// references of the form ${VAR} are expanded before parsing so API keys
// can live outside the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyDefaults fills in values the file may omit
func (c *Config) applyDefaults() {
	if c.Server.Path == "" {
		c.Server.Path = "/ws"
	}
	if c.Server.ReadBufferSize == 0 {
		c.Server.ReadBufferSize = 65536
	}
	if c.Speech.Model == "" {
		c.Speech.Model = "saarika:v2"
	}
	if c.Chat.Model == "" {
		c.Chat.Model = "llama-3.3-70b-versatile"
	}
	if c.Chat.MaxReplyChars == 0 {
		c.Chat.MaxReplyChars = 500
	}
	if c.Synthesis.Model == "" {
		c.Synthesis.Model = "bulbul:v1"
	}
	if c.Synthesis.Speaker == "" {
		c.Synthesis.Speaker = "meera"
	}
	if c.Synthesis.Pace == 0 {
		c.Synthesis.Pace = 1.65
	}
	if c.Synthesis.Loudness == 0 {
		c.Synthesis.Loudness = 1.5
	}
	if c.Synthesis.SampleRate == 0 {
		c.Synthesis.SampleRate = 8000
	}
	if c.Language.Strategy == "" {
		c.Language.Strategy = "detect"
	}
	if c.Language.TargetPolicy == "" {
		c.Language.TargetPolicy = "derived"
	}
	if c.Language.FallbackLocale == "" {
		c.Language.FallbackLocale = "hi-IN"
	}
	if c.Language.DefaultLocale == "" {
		c.Language.DefaultLocale = "en-IN"
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}

	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Language.Validate(); err != nil {
		return fmt.Errorf("language config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.ReadBufferSize < 1024 {
		return fmt.Errorf("read_buffer_size must be at least 1024 bytes, got %d", s.ReadBufferSize)
	}

	if s.SessionTimeout < 1 {
		return fmt.Errorf("session_timeout must be at least 1 second, got %d", s.SessionTimeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.TurnGracePeriod < 0 {
		return fmt.Errorf("turn_grace_period cannot be negative, got %f", a.TurnGracePeriod)
	}

	return nil
}

// Validate validates speech-to-text configuration
func (s *SpeechConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates chat-completion configuration
func (c *ChatConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if c.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if c.MaxReplyChars < 1 {
		return fmt.Errorf("max_reply_chars must be positive, got %d", c.MaxReplyChars)
	}

	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", c.Timeout)
	}

	return nil
}

// Validate validates text-to-speech configuration
func (s *SynthesisConfig) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if s.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if s.Pace <= 0 {
		return fmt.Errorf("pace must be positive, got %f", s.Pace)
	}

	if s.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", s.SampleRate)
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates language normalization configuration
func (l *LanguageConfig) Validate() error {
	validStrategies := map[string]bool{"none": true, "transliterate": true, "detect": true}
	if !validStrategies[l.Strategy] {
		return fmt.Errorf("strategy must be one of [none, transliterate, detect], got '%s'", l.Strategy)
	}

	validPolicies := map[string]bool{"derived": true, "forced": true}
	if !validPolicies[l.TargetPolicy] {
		return fmt.Errorf("target_policy must be 'derived' or 'forced', got '%s'", l.TargetPolicy)
	}

	if l.TargetPolicy == "forced" && l.ForcedLocale == "" {
		return fmt.Errorf("forced_locale cannot be empty when target_policy is 'forced'")
	}

	if l.FallbackLocale == "" {
		return fmt.Errorf("fallback_locale cannot be empty")
	}

	if l.Strategy == "transliterate" {
		if l.TransliterateEndpoint == "" {
			return fmt.Errorf("transliterate_endpoint cannot be empty for the transliterate strategy")
		}
		if l.TransliterateAPIKey == "" {
			return fmt.Errorf("transliterate_api_key cannot be empty for the transliterate strategy")
		}
		if l.TransliterateTimeout < 1 {
			return fmt.Errorf("transliterate_timeout must be at least 1 second, got %d", l.TransliterateTimeout)
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSessionTimeoutDuration returns the session timeout as a time.Duration
func (s *ServerConfig) GetSessionTimeoutDuration() time.Duration {
	return time.Duration(s.SessionTimeout) * time.Second
}

// GetTurnGracePeriodDuration returns the turn grace period as a time.Duration
func (a *AudioConfig) GetTurnGracePeriodDuration() time.Duration {
	return time.Duration(a.TurnGracePeriod * float64(time.Second))
}

// GetTimeoutDuration returns the speech-to-text timeout as a time.Duration
func (s *SpeechConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the chat-completion timeout as a time.Duration
func (c *ChatConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// GetTimeoutDuration returns the text-to-speech timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTransliterateTimeoutDuration returns the transliteration timeout as a time.Duration
func (l *LanguageConfig) GetTransliterateTimeoutDuration() time.Duration {
	return time.Duration(l.TransliterateTimeout) * time.Second
}

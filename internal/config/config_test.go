package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           5000,
			BindAddress:    "0.0.0.0",
			Path:           "/ws",
			ReadBufferSize: 65536,
			SessionTimeout: 300,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Port:    8080,
			Address: "0.0.0.0",
		},
		Audio: AudioConfig{
			SampleRate:      8000,
			TurnGracePeriod: 0,
		},
		Speech: SpeechConfig{
			Endpoint: "https://api.example.com/speech-to-text",
			APIKey:   "test-key",
			Model:    "saarika:v2",
			Timeout:  30,
		},
		Chat: ChatConfig{
			Endpoint:      "https://api.example.com/chat/completions",
			APIKey:        "test-key",
			Model:         "llama-3.3-70b-versatile",
			MaxReplyChars: 500,
			Timeout:       30,
		},
		Synthesis: SynthesisConfig{
			Endpoint:   "https://api.example.com/text-to-speech",
			APIKey:     "test-key",
			Model:      "bulbul:v1",
			Speaker:    "meera",
			Pace:       1.65,
			Loudness:   1.5,
			SampleRate: 8000,
			Timeout:    30,
		},
		Language: LanguageConfig{
			Strategy:       "detect",
			TargetPolicy:   "derived",
			FallbackLocale: "hi-IN",
			DefaultLocale:  "en-IN",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid server port",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name: "invalid sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 0
			},
			expectError: true,
			errorMsg:    "sample_rate must be positive",
		},
		{
			name: "negative grace period",
			mutate: func(c *Config) {
				c.Audio.TurnGracePeriod = -1
			},
			expectError: true,
			errorMsg:    "turn_grace_period cannot be negative",
		},
		{
			name: "missing speech API key",
			mutate: func(c *Config) {
				c.Speech.APIKey = ""
			},
			expectError: true,
			errorMsg:    "api_key cannot be empty",
		},
		{
			name: "missing chat endpoint",
			mutate: func(c *Config) {
				c.Chat.Endpoint = ""
			},
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name: "unknown language strategy",
			mutate: func(c *Config) {
				c.Language.Strategy = "romanize"
			},
			expectError: true,
			errorMsg:    "strategy must be one of",
		},
		{
			name: "forced policy without locale",
			mutate: func(c *Config) {
				c.Language.TargetPolicy = "forced"
				c.Language.ForcedLocale = ""
			},
			expectError: true,
			errorMsg:    "forced_locale cannot be empty",
		},
		{
			name: "transliterate strategy without endpoint",
			mutate: func(c *Config) {
				c.Language.Strategy = "transliterate"
			},
			expectError: true,
			errorMsg:    "transliterate_endpoint cannot be empty",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name: "http disabled skips http validation",
			mutate: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
				c.HTTP.Address = ""
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  port: 5000
  bind_address: "0.0.0.0"
  session_timeout: 300
audio:
  sample_rate: 8000
speech:
  endpoint: "https://api.example.com/speech-to-text"
  api_key: "test-key"
  timeout: 30
chat:
  endpoint: "https://api.example.com/chat/completions"
  api_key: "test-key"
  timeout: 30
synthesis:
  endpoint: "https://api.example.com/text-to-speech"
  api_key: "test-key"
  timeout: 30
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  port: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing bind address",
			configYAML: `
server:
  port: 5000
  session_timeout: 300
`,
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadAppliesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configYAML := `
server:
  port: 5000
  bind_address: "0.0.0.0"
  session_timeout: 300
audio:
  sample_rate: 8000
speech:
  endpoint: "https://api.example.com/speech-to-text"
  api_key: "test-key"
  timeout: 30
chat:
  endpoint: "https://api.example.com/chat/completions"
  api_key: "test-key"
  timeout: 30
synthesis:
  endpoint: "https://api.example.com/text-to-speech"
  api_key: "test-key"
  timeout: 30
logging:
  level: "info"
  format: "text"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Path != "/ws" {
		t.Errorf("Expected default path /ws, got %s", config.Server.Path)
	}
	if config.Speech.Model != "saarika:v2" {
		t.Errorf("Expected default speech model saarika:v2, got %s", config.Speech.Model)
	}
	if config.Chat.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Expected default chat model, got %s", config.Chat.Model)
	}
	if config.Chat.MaxReplyChars != 500 {
		t.Errorf("Expected default max_reply_chars 500, got %d", config.Chat.MaxReplyChars)
	}
	if config.Synthesis.Speaker != "meera" {
		t.Errorf("Expected default speaker meera, got %s", config.Synthesis.Speaker)
	}
	if config.Synthesis.Pace != 1.65 {
		t.Errorf("Expected default pace 1.65, got %f", config.Synthesis.Pace)
	}
	if config.Language.Strategy != "detect" {
		t.Errorf("Expected default strategy detect, got %s", config.Language.Strategy)
	}
	if config.Language.FallbackLocale != "hi-IN" {
		t.Errorf("Expected default fallback locale hi-IN, got %s", config.Language.FallbackLocale)
	}
}

func TestConfigLoadExpandsEnvironment(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	t.Setenv("TEST_SPEECH_KEY", "secret-from-env")

	configYAML := `
server:
  port: 5000
  bind_address: "0.0.0.0"
  session_timeout: 300
audio:
  sample_rate: 8000
speech:
  endpoint: "https://api.example.com/speech-to-text"
  api_key: "${TEST_SPEECH_KEY}"
  timeout: 30
chat:
  endpoint: "https://api.example.com/chat/completions"
  api_key: "test-key"
  timeout: 30
synthesis:
  endpoint: "https://api.example.com/text-to-speech"
  api_key: "test-key"
  timeout: 30
logging:
  level: "info"
  format: "text"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Speech.APIKey != "secret-from-env" {
		t.Errorf("Expected API key from environment, got %s", config.Speech.APIKey)
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	server := ServerConfig{SessionTimeout: 300}
	if server.GetSessionTimeoutDuration() != 300*time.Second {
		t.Errorf("Expected 300 seconds, got %v", server.GetSessionTimeoutDuration())
	}

	audio := AudioConfig{TurnGracePeriod: 2.5}
	if audio.GetTurnGracePeriodDuration() != 2500*time.Millisecond {
		t.Errorf("Expected 2.5 seconds, got %v", audio.GetTurnGracePeriodDuration())
	}

	speech := SpeechConfig{Timeout: 30}
	if speech.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", speech.GetTimeoutDuration())
	}

	chat := ChatConfig{Timeout: 15}
	if chat.GetTimeoutDuration() != 15*time.Second {
		t.Errorf("Expected 15 seconds, got %v", chat.GetTimeoutDuration())
	}

	language := LanguageConfig{TransliterateTimeout: 10}
	if language.GetTransliterateTimeoutDuration() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", language.GetTransliterateTimeoutDuration())
	}
}

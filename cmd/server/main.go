package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/charankosari/voice-agent-relay/internal/config"
	"github.com/charankosari/voice-agent-relay/internal/language"
	"github.com/charankosari/voice-agent-relay/internal/llm"
	"github.com/charankosari/voice-agent-relay/internal/metrics"
	"github.com/charankosari/voice-agent-relay/internal/server"
	"github.com/charankosari/voice-agent-relay/internal/session"
	"github.com/charankosari/voice-agent-relay/internal/stt"
	"github.com/charankosari/voice-agent-relay/internal/tts"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voice-agent-relay"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load .env before the config so ${VAR} references resolve
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, relying on system environment variables")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("ws_port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.String("ws_path", cfg.Server.Path),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("speech_endpoint", cfg.Speech.Endpoint),
		slog.String("chat_model", cfg.Chat.Model),
		slog.String("synthesis_speaker", cfg.Synthesis.Speaker),
		slog.String("language_strategy", cfg.Language.Strategy),
		slog.String("target_policy", cfg.Language.TargetPolicy),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Create session manager configuration
	managerConfig := session.ManagerConfig{
		Pipeline: session.PipelineConfig{
			SampleRate:      cfg.Audio.SampleRate,
			TurnGracePeriod: cfg.Audio.GetTurnGracePeriodDuration(),
			TargetPolicy:    cfg.Language.TargetPolicy,
			ForcedLocale:    cfg.Language.ForcedLocale,
		},
		Speech: stt.Config{
			Endpoint:       cfg.Speech.Endpoint,
			APIKey:         cfg.Speech.APIKey,
			Model:          cfg.Speech.Model,
			FallbackLocale: cfg.Language.FallbackLocale,
			Timeout:        cfg.Speech.GetTimeoutDuration(),
		},
		Chat: llm.Config{
			Endpoint:      cfg.Chat.Endpoint,
			APIKey:        cfg.Chat.APIKey,
			Model:         cfg.Chat.Model,
			MaxReplyChars: cfg.Chat.MaxReplyChars,
			Timeout:       cfg.Chat.GetTimeoutDuration(),
		},
		Synthesis: tts.Config{
			Endpoint:            cfg.Synthesis.Endpoint,
			APIKey:              cfg.Synthesis.APIKey,
			Model:               cfg.Synthesis.Model,
			Speaker:             cfg.Synthesis.Speaker,
			Pitch:               cfg.Synthesis.Pitch,
			Pace:                cfg.Synthesis.Pace,
			Loudness:            cfg.Synthesis.Loudness,
			SampleRate:          cfg.Synthesis.SampleRate,
			EnablePreprocessing: cfg.Synthesis.EnablePreprocessing,
			Timeout:             cfg.Synthesis.GetTimeoutDuration(),
		},
		Language: language.Config{
			Strategy:       cfg.Language.Strategy,
			FallbackLocale: cfg.Language.FallbackLocale,
			DefaultLocale:  cfg.Language.DefaultLocale,
			Transliterate: language.TransliterateConfig{
				Endpoint: cfg.Language.TransliterateEndpoint,
				APIKey:   cfg.Language.TransliterateAPIKey,
				Timeout:  cfg.Language.GetTransliterateTimeoutDuration(),
			},
		},
	}

	// Initialize session manager
	sessionMgr, err := session.NewManager(logger, cfg.Server.GetSessionTimeoutDuration(), managerConfig, appMetrics)
	if err != nil {
		logger.Error("Failed to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Server.GetSessionTimeoutDuration()),
		slog.String("speech_endpoint", cfg.Speech.Endpoint),
		slog.String("synthesis_endpoint", cfg.Synthesis.Endpoint),
	)

	// Initialize WebSocket server
	wsServer := server.NewWSServer(&cfg.Server, logger, sessionMgr, appMetrics)
	logger.Info("WebSocket server initialized")

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, sessionMgr, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start WebSocket server
	if err := wsServer.Start(); err != nil {
		logger.Error("Failed to start WebSocket server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("ws_address", fmt.Sprintf("%s:%d%s", cfg.Server.BindAddress, cfg.Server.Port, cfg.Server.Path)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop WebSocket server (close client connections)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := wsServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping WebSocket server", slog.String("error", err.Error()))
	}

	// Stop session manager (cleanup sessions and stop background routines)
	sessionMgr.Stop()

	// Get final statistics
	stats := sessionMgr.GetStats()
	logger.Info("Final service statistics",
		slog.Uint64("speech_requests", stats.Speech.TotalRequests),
		slog.Uint64("chat_requests", stats.Chat.TotalRequests),
		slog.Uint64("synthesis_requests", stats.Synthesis.TotalRequests),
		slog.Uint64("bytes_synthesized", stats.Synthesis.BytesSynthesized),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

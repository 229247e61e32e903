package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charankosari/voice-agent-relay/internal/audio"
	"github.com/charankosari/voice-agent-relay/internal/language"
	"github.com/charankosari/voice-agent-relay/internal/llm"
	"github.com/charankosari/voice-agent-relay/internal/metrics"
	"github.com/charankosari/voice-agent-relay/internal/stt"
	"github.com/charankosari/voice-agent-relay/internal/tts"
)

// ManagerConfig contains configuration for the session manager
type ManagerConfig struct {
	Pipeline  PipelineConfig
	Speech    stt.Config
	Chat      llm.Config
	Synthesis tts.Config
	Language  language.Config
}

// Manager owns all connected client sessions, keyed by connection
// identity, and the shared remote-service clients. Idle sessions are
// closed by a background cleanup routine.
type Manager struct {
	sessions map[string]*Session
	closers  map[string]func()
	mu       sync.RWMutex

	logger  *slog.Logger
	timeout time.Duration
	config  ManagerConfig
	metrics *metrics.Metrics

	sttClient  *stt.Client
	llmClient  *llm.Client
	ttsClient  *tts.Client
	normalizer language.Normalizer

	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// ManagerStats aggregates manager and client statistics for monitoring
type ManagerStats struct {
	ActiveSessions int             `json:"active_sessions"`
	Speech         stt.ClientStats `json:"speech"`
	Chat           llm.ClientStats `json:"chat"`
	Synthesis      tts.ClientStats `json:"synthesis"`
}

// NewManager creates a session manager with shared remote-service clients
func NewManager(logger *slog.Logger, timeout time.Duration, config ManagerConfig, m *metrics.Metrics) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())

	sttClient, err := stt.NewClient(config.Speech)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create speech-to-text client: %w", err)
	}

	llmClient, err := llm.NewClient(config.Chat)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}

	ttsClient, err := tts.NewClient(config.Synthesis)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}

	normalizer, err := language.New(config.Language, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create language normalizer: %w", err)
	}

	mgr := &Manager{
		sessions:   make(map[string]*Session),
		closers:    make(map[string]func()),
		logger:     logger,
		timeout:    timeout,
		config:     config,
		metrics:    m,
		sttClient:  sttClient,
		llmClient:  llmClient,
		ttsClient:  ttsClient,
		normalizer: normalizer,
		ctx:        ctx,
		cancel:     cancel,
		cleanup:    make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr, nil
}

// CreateSession registers a new client session. closeFn is invoked when
// the manager expires the session, typically closing the transport
// connection.
func (m *Manager) CreateSession(id string, emitter Emitter, closeFn func()) *Session {
	now := time.Now()

	session := &Session{
		ID:           id,
		StartTime:    now,
		buffer:       audio.NewBuffer(m.config.Pipeline.SampleRate),
		normalizer:   m.normalizer,
		transcriber:  m.sttClient,
		generator:    m.llmClient,
		synthesizer:  m.ttsClient,
		emitter:      emitter,
		config:       m.config.Pipeline,
		logger:       m.logger,
		metrics:      m.metrics,
		lastActivity: now,
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.closers[id] = closeFn
	active := len(m.sessions)
	m.mu.Unlock()

	m.metrics.RecordSessionCreated()
	m.metrics.SetActiveSessions(active)

	m.logger.Info("Session created",
		slog.String("session_id", id),
		slog.Int("active_sessions", active),
	)

	return session
}

// GetSession retrieves an existing session
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	return session, exists
}

// RemoveSession removes a session after its connection closed
func (m *Manager) RemoveSession(id string) bool {
	m.mu.Lock()
	session, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	delete(m.closers, id)
	active := len(m.sessions)
	m.mu.Unlock()

	duration := time.Since(session.StartTime)
	m.metrics.RecordSessionDestroyed(duration.Seconds())
	m.metrics.SetActiveSessions(active)

	info := session.GetInfo()
	m.logger.Info("Session removed",
		slog.String("session_id", id),
		slog.Duration("duration", duration),
		slog.Uint64("turns_completed", info.TurnsCompleted),
		slog.Uint64("turns_failed", info.TurnsFailed),
		slog.Uint64("turns_rejected", info.TurnsRejected),
	)

	return true
}

// GetActiveSessionCount returns the number of currently connected sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessionInfo returns a snapshot of all sessions for monitoring
func (m *Manager) GetAllSessionInfo() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.GetInfo())
	}

	return infos
}

// GetStats returns aggregated manager and remote-client statistics
func (m *Manager) GetStats() ManagerStats {
	return ManagerStats{
		ActiveSessions: m.GetActiveSessionCount(),
		Speech:         m.sttClient.GetStats(),
		Chat:           m.llmClient.GetStats(),
		Synthesis:      m.ttsClient.GetStats(),
	}
}

// Stop gracefully stops the session manager
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	m.cancel()
	<-m.cleanup

	m.mu.Lock()
	for id, closeFn := range m.closers {
		if closeFn != nil {
			closeFn()
		}
		delete(m.sessions, id)
		delete(m.closers, id)
	}
	m.mu.Unlock()

	stats := m.GetStats()
	m.logger.Info("Session manager stopped",
		slog.Uint64("speech_requests", stats.Speech.TotalRequests),
		slog.Uint64("chat_requests", stats.Chat.TotalRequests),
		slog.Uint64("synthesis_requests", stats.Synthesis.TotalRequests),
	)
}

// startCleanupRoutine runs in a separate goroutine to close idle sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("timeout", m.timeout),
		slog.Duration("check_interval", 30*time.Second),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupIdleSessions()
		}
	}
}

// cleanupIdleSessions closes sessions inactive beyond the timeout. A
// session mid-turn is never expired.
func (m *Manager) cleanupIdleSessions() {
	now := time.Now()
	expired := make([]string, 0)

	m.mu.RLock()
	for id, session := range m.sessions {
		if session.Processing() {
			continue
		}
		if now.Sub(session.LastActivity()) > m.timeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	m.logger.Info("Closing idle sessions",
		slog.Int("expired_count", len(expired)),
	)

	for _, id := range expired {
		m.mu.RLock()
		closeFn := m.closers[id]
		m.mu.RUnlock()

		if closeFn != nil {
			closeFn()
		}
		m.RemoveSession(id)
	}
}

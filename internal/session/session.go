package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charankosari/voice-agent-relay/internal/audio"
	"github.com/charankosari/voice-agent-relay/internal/language"
	"github.com/charankosari/voice-agent-relay/internal/metrics"
	"github.com/charankosari/voice-agent-relay/internal/protocol"
	"github.com/charankosari/voice-agent-relay/internal/stt"
)

// Transcriber converts a WAV-framed utterance into text plus a language tag
type Transcriber interface {
	Transcribe(ctx context.Context, wavData []byte) (*stt.Result, error)
}

// Generator produces the scripted agent reply for a transcript
type Generator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

// Synthesizer converts reply text into raw audio in the target locale
type Synthesizer interface {
	Synthesize(ctx context.Context, text, targetLocale string) ([]byte, error)
}

// Emitter delivers outbound events to the client. Implemented by the
// WebSocket connection wrapper.
type Emitter interface {
	EmitControl(ev *protocol.ControlEvent) error
	EmitAudio(data []byte) error
}

// PipelineConfig contains the per-turn pipeline parameters
type PipelineConfig struct {
	SampleRate      int
	TurnGracePeriod time.Duration
	TargetPolicy    string // "derived" or "forced"
	ForcedLocale    string
}

// Session owns the state of one connected client: the utterance buffer
// and the single-flight guard. The pipeline for one turn runs to
// completion before the next may start; overlapping stream-end events are
// rejected, never queued.
type Session struct {
	ID        string
	StartTime time.Time

	buffer     *audio.Buffer
	normalizer language.Normalizer

	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
	emitter     Emitter

	config  PipelineConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Turn accounting
	turnsCompleted uint64
	turnsFailed    uint64
	turnsRejected  uint64

	inFlight     bool
	lastActivity time.Time
	mu           sync.Mutex
}

// SessionInfo represents session state for monitoring APIs
type SessionInfo struct {
	ID             string        `json:"id"`
	StartTime      time.Time     `json:"start_time"`
	LastActivity   time.Time     `json:"last_activity"`
	Duration       time.Duration `json:"duration"`
	BufferedBytes  int           `json:"buffered_bytes"`
	ChunksReceived uint64        `json:"chunks_received"`
	TurnsCompleted uint64        `json:"turns_completed"`
	TurnsFailed    uint64        `json:"turns_failed"`
	TurnsRejected  uint64        `json:"turns_rejected"`
	Processing     bool          `json:"processing"`
}

// HandleChunk appends a binary audio fragment to the utterance buffer and
// acknowledges receipt. Chunks are processed strictly in arrival order.
func (s *Session) HandleChunk(data []byte) {
	s.buffer.Append(data)
	s.touch()

	s.metrics.RecordChunk(len(data))

	if err := s.emitter.EmitControl(protocol.ChunkReceivedEvent()); err != nil {
		s.logger.Warn("Failed to acknowledge chunk",
			slog.String("session_id", s.ID),
			slog.String("error", err.Error()),
		)
	}
}

// HandleStreamEnd runs the turn pipeline for the accumulated utterance.
// Exactly one terminal event is emitted per call: a binary audio response,
// an error event, or a busy rejection. The buffer is reset on every exit
// path and the in-flight guard is always released.
func (s *Session) HandleStreamEnd(ctx context.Context, clientLang string) {
	s.touch()

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		// Reject, never queue: the overlapping utterance is discarded.
		s.buffer.Reset()
		s.recordRejected()
		s.metrics.RecordTurnRejected()

		s.logger.Warn("Stream end rejected, turn already in flight",
			slog.String("session_id", s.ID),
		)

		s.emitControl(protocol.BusyEvent())
		return
	}
	s.mu.Unlock()

	turnID := uuid.NewString()
	turnStart := time.Now()
	defer s.buffer.Reset()

	if s.config.TurnGracePeriod > 0 {
		// Fixed grace period before processing, standing in for real
		// end-of-utterance detection from the transport.
		select {
		case <-time.After(s.config.TurnGracePeriod):
		case <-ctx.Done():
			// The context only dies with the connection, so there is no
			// client left to receive a terminal event.
			return
		}
	}

	utterance := s.buffer.Drain()
	s.metrics.RecordTurnStarted(len(utterance))

	s.logger.Info("Turn started",
		slog.String("session_id", s.ID),
		slog.String("turn_id", turnID),
		slog.Int("utterance_bytes", len(utterance)),
		slog.String("client_language", clientLang),
	)

	result, err := s.transcribe(ctx, utterance)
	if err != nil || result.Transcript == "" {
		if err != nil {
			s.logger.Error("Transcription failed",
				slog.String("session_id", s.ID),
				slog.String("turn_id", turnID),
				slog.String("error", err.Error()),
			)
		}
		s.failTurn(StageTranscription, turnStart, "could not transcribe audio")
		return
	}

	// The guard is set only once there is a transcribable utterance; an
	// empty turn never blocks the next one.
	s.mu.Lock()
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	norm, err := s.normalize(ctx, result.Transcript, result.LanguageCode, clientLang)
	if err != nil {
		s.logger.Error("Normalization failed",
			slog.String("session_id", s.ID),
			slog.String("turn_id", turnID),
			slog.String("error", err.Error()),
		)
		s.failTurn(StageNormalization, turnStart, "could not normalize transcript")
		return
	}

	reply, err := s.generate(ctx, norm.Transcript)
	if err != nil || reply == "" {
		if err != nil {
			s.logger.Error("Response generation failed",
				slog.String("session_id", s.ID),
				slog.String("turn_id", turnID),
				slog.String("error", err.Error()),
			)
		}
		s.failTurn(StageGeneration, turnStart, "could not generate a reply")
		return
	}

	targetLocale := norm.TargetLocale
	if s.config.TargetPolicy == "forced" {
		targetLocale = s.config.ForcedLocale
	}

	audioReply, err := s.synthesize(ctx, reply, targetLocale)
	if err != nil {
		s.logger.Error("Speech synthesis failed",
			slog.String("session_id", s.ID),
			slog.String("turn_id", turnID),
			slog.String("target_locale", targetLocale),
			slog.String("error", err.Error()),
		)
		s.failTurn(StageSynthesis, turnStart, "could not synthesize the reply")
		return
	}

	if err := s.emitter.EmitAudio(audioReply); err != nil {
		s.logger.Warn("Failed to deliver audio response",
			slog.String("session_id", s.ID),
			slog.String("turn_id", turnID),
			slog.String("error", err.Error()),
		)
	}

	s.recordCompleted()
	s.metrics.RecordTurnSucceeded(time.Since(turnStart).Seconds(), len(audioReply))

	s.logger.Info("Turn completed",
		slog.String("session_id", s.ID),
		slog.String("turn_id", turnID),
		slog.String("transcript", result.Transcript),
		slog.String("target_locale", targetLocale),
		slog.Int("response_bytes", len(audioReply)),
		slog.Duration("duration", time.Since(turnStart)),
	)
}

// transcribe frames the utterance as WAV if needed and runs the
// speech-to-text stage
func (s *Session) transcribe(ctx context.Context, utterance []byte) (*stt.Result, error) {
	if len(utterance) == 0 {
		return &stt.Result{}, nil
	}

	wavData := utterance
	if !audio.IsWAV(utterance) {
		framed, err := audio.EncodeWAV(utterance, s.config.SampleRate)
		if err != nil {
			return nil, newStageError(StageTranscription, err)
		}
		wavData = framed
	} else if dur, err := audio.Duration(wavData); err == nil {
		s.logger.Debug("Utterance received as complete WAV",
			slog.String("session_id", s.ID),
			slog.Float64("duration_seconds", dur),
		)
	}

	stageStart := time.Now()
	result, err := s.transcriber.Transcribe(ctx, wavData)
	s.metrics.RecordStageDuration(StageTranscription, time.Since(stageStart).Seconds())

	if err != nil {
		return nil, newStageError(StageTranscription, err)
	}

	return result, nil
}

// normalize runs the configured language-normalization stage
func (s *Session) normalize(ctx context.Context, transcript, detectedLang, clientLang string) (language.Result, error) {
	stageStart := time.Now()
	result, err := s.normalizer.Normalize(ctx, transcript, detectedLang, clientLang)
	s.metrics.RecordStageDuration(StageNormalization, time.Since(stageStart).Seconds())

	if err != nil {
		return language.Result{}, newStageError(StageNormalization, err)
	}

	return result, nil
}

// generate runs the response-generation stage
func (s *Session) generate(ctx context.Context, transcript string) (string, error) {
	stageStart := time.Now()
	reply, err := s.generator.Generate(ctx, transcript)
	s.metrics.RecordStageDuration(StageGeneration, time.Since(stageStart).Seconds())

	if err != nil {
		return "", newStageError(StageGeneration, err)
	}

	return reply, nil
}

// synthesize runs the text-to-speech stage
func (s *Session) synthesize(ctx context.Context, reply, targetLocale string) ([]byte, error) {
	stageStart := time.Now()
	audioReply, err := s.synthesizer.Synthesize(ctx, reply, targetLocale)
	s.metrics.RecordStageDuration(StageSynthesis, time.Since(stageStart).Seconds())

	if err != nil {
		return nil, newStageError(StageSynthesis, err)
	}

	return audioReply, nil
}

// failTurn emits the single terminal error event for a failed turn
func (s *Session) failTurn(stage string, turnStart time.Time, message string) {
	s.recordFailed()
	s.metrics.RecordTurnFailed(stage, time.Since(turnStart).Seconds())
	s.emitControl(protocol.ErrorEvent(message))
}

// emitControl sends a control event, logging delivery failures
func (s *Session) emitControl(ev *protocol.ControlEvent) {
	if err := s.emitter.EmitControl(ev); err != nil {
		s.logger.Warn("Failed to emit control event",
			slog.String("session_id", s.ID),
			slog.String("event", ev.Event),
			slog.String("error", err.Error()),
		)
	}
}

// touch updates the last activity timestamp
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the last inbound event
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Processing reports whether a turn pipeline is currently in flight
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) recordCompleted() {
	s.mu.Lock()
	s.turnsCompleted++
	s.mu.Unlock()
}

func (s *Session) recordFailed() {
	s.mu.Lock()
	s.turnsFailed++
	s.mu.Unlock()
}

func (s *Session) recordRejected() {
	s.mu.Lock()
	s.turnsRejected++
	s.mu.Unlock()
}

// GetInfo returns session state for monitoring
func (s *Session) GetInfo() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionInfo{
		ID:             s.ID,
		StartTime:      s.StartTime,
		LastActivity:   s.lastActivity,
		Duration:       time.Since(s.StartTime),
		BufferedBytes:  s.buffer.Len(),
		ChunksReceived: s.buffer.Chunks(),
		TurnsCompleted: s.turnsCompleted,
		TurnsFailed:    s.turnsFailed,
		TurnsRejected:  s.turnsRejected,
		Processing:     s.inFlight,
	}
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/charankosari/voice-agent-relay/internal/config"
	"github.com/charankosari/voice-agent-relay/internal/language"
	"github.com/charankosari/voice-agent-relay/internal/llm"
	"github.com/charankosari/voice-agent-relay/internal/metrics"
	"github.com/charankosari/voice-agent-relay/internal/protocol"
	"github.com/charankosari/voice-agent-relay/internal/session"
	"github.com/charankosari/voice-agent-relay/internal/stt"
	"github.com/charankosari/voice-agent-relay/internal/tts"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestWSServer wires a real WSServer behind an httptest listener. The
// remote-service endpoints are unreachable; tests stay on paths that never
// contact them.
func newTestWSServer(t *testing.T) (*WSServer, *session.Manager, *httptest.Server) {
	t.Helper()

	mgr, err := session.NewManager(testLogger(), 60*time.Second, session.ManagerConfig{
		Pipeline: session.PipelineConfig{
			SampleRate:   8000,
			TargetPolicy: "derived",
		},
		Speech: stt.Config{
			Endpoint: "https://api.example.com/speech-to-text",
			APIKey:   "test-key",
		},
		Chat: llm.Config{
			Endpoint: "https://api.example.com/chat/completions",
			APIKey:   "test-key",
		},
		Synthesis: tts.Config{
			Endpoint: "https://api.example.com/text-to-speech",
			APIKey:   "test-key",
		},
		Language: language.Config{
			Strategy:       "none",
			FallbackLocale: "hi-IN",
		},
	}, metrics.NewMetricsWith(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("Failed to create session manager: %v", err)
	}

	cfg := &config.ServerConfig{
		Port:           5000,
		BindAddress:    "127.0.0.1",
		Path:           "/ws",
		ReadBufferSize: 65536,
		SessionTimeout: 300,
	}

	s := NewWSServer(cfg, testLogger(), mgr, metrics.NewMetricsWith(prometheus.NewRegistry()))

	ts := httptest.NewServer(http.HandlerFunc(s.handleConnection))
	t.Cleanup(ts.Close)

	return s, mgr, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket server: %v", err)
	}
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met in time")
}

func readControlEvent(t *testing.T, conn *websocket.Conn) *protocol.ControlEvent {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read control event: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Fatalf("Expected text frame, got type %d", messageType)
	}

	var ev protocol.ControlEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Failed to decode control event: %v", err)
	}
	return &ev
}

func TestChunkAcknowledgedOverWebSocket(t *testing.T) {
	_, mgr, ts := newTestWSServer(t)
	defer mgr.Stop()

	conn := dialWS(t, ts)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 320)); err != nil {
		t.Fatalf("Failed to send audio chunk: %v", err)
	}

	ev := readControlEvent(t, conn)
	if ev.Event != protocol.EventChunkReceived {
		t.Errorf("Expected %s, got %s", protocol.EventChunkReceived, ev.Event)
	}
	if ev.Status != "received" {
		t.Errorf("Expected status 'received', got '%s'", ev.Status)
	}
}

func TestMalformedControlFrameKeepsConnection(t *testing.T) {
	_, mgr, ts := newTestWSServer(t)
	defer mgr.Stop()

	conn := dialWS(t, ts)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event": `)); err != nil {
		t.Fatalf("Failed to send malformed frame: %v", err)
	}

	// The connection survives the malformed frame and keeps serving chunks
	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 320)); err != nil {
		t.Fatalf("Failed to send audio chunk: %v", err)
	}

	ev := readControlEvent(t, conn)
	if ev.Event != protocol.EventChunkReceived {
		t.Errorf("Expected %s after malformed frame, got %s", protocol.EventChunkReceived, ev.Event)
	}
}

func TestEmptyStreamEndEmitsError(t *testing.T) {
	_, mgr, ts := newTestWSServer(t)
	defer mgr.Stop()

	conn := dialWS(t, ts)
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"event": "audio_stream_end"}`)); err != nil {
		t.Fatalf("Failed to send stream end: %v", err)
	}

	ev := readControlEvent(t, conn)
	if ev.Event != protocol.EventError {
		t.Errorf("Expected %s for empty utterance, got %s", protocol.EventError, ev.Event)
	}
	if ev.Message != "could not transcribe audio" {
		t.Errorf("Unexpected error message: '%s'", ev.Message)
	}
}

func TestStopClosesActiveConnections(t *testing.T) {
	s, mgr, ts := newTestWSServer(t)
	defer mgr.Stop()

	conn := dialWS(t, ts)
	defer conn.Close()

	waitFor(t, func() bool { return mgr.GetActiveSessionCount() == 1 })

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		stopped <- s.Stop(ctx)
	}()

	// Stop must return while the client stays connected; http.Server's
	// Shutdown alone never terminates hijacked connections.
	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return with a connected client")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the server to close the connection")
	}

	waitFor(t, func() bool { return mgr.GetActiveSessionCount() == 0 })
}

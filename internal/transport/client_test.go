package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldertalk/foldertalk/internal/models"
)

// chatServer emulates the assistant service: a websocket endpoint when the
// streaming query parameter is set, a single-shot POST endpoint otherwise.
type chatServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	streamFn   func(conn *websocket.Conn, envelope Envelope)
	fallbackFn func(w http.ResponseWriter, envelope Envelope)

	mu             sync.Mutex
	streamHits     int
	fallbackHits   int
	streamEnvelope Envelope
	fallbackBody   Envelope
}

func newChatServer(t *testing.T) *chatServer {
	s := &chatServer{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stream") == "true" {
			s.mu.Lock()
			s.streamHits++
			s.mu.Unlock()

			conn, err := s.upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()

			var envelope Envelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			s.mu.Lock()
			s.streamEnvelope = envelope
			s.mu.Unlock()

			if s.streamFn != nil {
				s.streamFn(conn, envelope)
			}
			return
		}

		var envelope Envelope
		_ = json.NewDecoder(r.Body).Decode(&envelope)
		s.mu.Lock()
		s.fallbackHits++
		s.fallbackBody = envelope
		s.mu.Unlock()

		if s.fallbackFn != nil {
			s.fallbackFn(w, envelope)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *chatServer) client() *Client {
	return NewClient(Config{
		BaseURL:        s.srv.URL,
		ChatPath:       "/v1/chat",
		APIKey:         "token-123",
		ConnectTimeout: 2 * time.Second,
	})
}

func (s *chatServer) counts() (stream, fallback int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamHits, s.fallbackHits
}

func writeFrame(conn *websocket.Conn, payload string) {
	_ = conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func writeNormalClose(conn *websocket.Conn) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteMessage(websocket.CloseMessage, message)
}

var testMessages = []models.ChatMessage{
	{Role: models.RoleSystem, Content: "be brief"},
	{Role: models.RoleUser, Content: "hello?"},
}

func TestSendStreaming(t *testing.T) {
	t.Run("ChunksAccumulateUntilDone", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			writeFrame(conn, `{"type":"chunk","text":"Hel"}`)
			writeFrame(conn, `{"type":"chunk","text":"lo"}`)
			writeFrame(conn, `{"type":"done"}`)
		}

		var chunks []string
		result, err := server.client().Send(context.Background(), "folder summary", testMessages, func(text string) {
			chunks = append(chunks, text)
		})
		require.NoError(t, err)
		assert.Equal(t, "Hello", result.Message)
		assert.Empty(t, result.ArtifactPaths)
		assert.Equal(t, []string{"Hel", "lo"}, chunks)

		_, fallback := server.counts()
		assert.Zero(t, fallback)

		server.mu.Lock()
		envelope := server.streamEnvelope
		server.mu.Unlock()
		assert.Equal(t, "folder summary", envelope.Summary)
		assert.Equal(t, testMessages, envelope.Messages)
		assert.Equal(t, "token-123", envelope.APIKey)
	})

	t.Run("PlainTextSentinelEndsStream", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			writeFrame(conn, "Hi")
			writeFrame(conn, "[DONE]")
		}

		var chunks []string
		result, err := server.client().Send(context.Background(), "", testMessages, func(text string) {
			chunks = append(chunks, text)
		})
		require.NoError(t, err)
		assert.Equal(t, "Hi", result.Message)
		assert.Equal(t, []string{"Hi"}, chunks, "the sentinel must not reach the chunk callback")
	})

	t.Run("GracefulCloseWithTextIsSuccess", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			writeFrame(conn, `{"type":"chunk","text":"partial"}`)
			writeNormalClose(conn)
		}

		result, err := server.client().Send(context.Background(), "", testMessages, nil)
		require.NoError(t, err)
		assert.Equal(t, "partial", result.Message)

		_, fallback := server.counts()
		assert.Zero(t, fallback)
	})

	t.Run("ArtifactPathsExtractedFromFinalText", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			writeFrame(conn, `{"type":"chunk","text":"Готово.\n\nАртефакты:\n- /artifacts/report.pdf\n- /artifacts/x.csv\n\nExtra"}`)
			writeFrame(conn, `{"type":"done"}`)
		}

		result, err := server.client().Send(context.Background(), "", testMessages, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"/artifacts/report.pdf", "/artifacts/x.csv"}, result.ArtifactPaths)
	})

	t.Run("ServerErrorFrameDoesNotFallBack", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			writeFrame(conn, `{"type":"error","message":"summary too large"}`)
		}

		_, err := server.client().Send(context.Background(), "", testMessages, nil)
		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "summary too large", protoErr.Detail)

		_, fallback := server.counts()
		assert.Zero(t, fallback)
	})
}

func TestSendCancellation(t *testing.T) {
	t.Run("CancelMidStream", func(t *testing.T) {
		server := newChatServer(t)
		release := make(chan struct{})
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			writeFrame(conn, `{"type":"chunk","text":"thinking"}`)
			<-release
		}
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		firstChunk := make(chan struct{}, 1)
		go func() {
			<-firstChunk
			cancel()
		}()

		_, err := server.client().Send(ctx, "", testMessages, func(string) {
			select {
			case firstChunk <- struct{}{}:
			default:
			}
		})
		require.ErrorIs(t, err, ErrCanceled)

		_, fallback := server.counts()
		assert.Zero(t, fallback, "cancellation must never trigger fallback")
	})

	t.Run("CancelBeforeSendIsCanceled", func(t *testing.T) {
		server := newChatServer(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := server.client().Send(ctx, "", testMessages, nil)
		require.ErrorIs(t, err, ErrCanceled)

		_, fallback := server.counts()
		assert.Zero(t, fallback)
	})
}

func TestSendFallback(t *testing.T) {
	t.Run("ConnectFailureRetriesOverFallback", func(t *testing.T) {
		// The handler refuses the upgrade entirely, so the connect phase
		// fails and the one-shot POST takes over.
		server := newChatServer(t)
		refused := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("stream") == "true" {
				http.Error(w, "no streaming here", http.StatusBadGateway)
				return
			}
			var envelope Envelope
			_ = json.NewDecoder(r.Body).Decode(&envelope)
			server.mu.Lock()
			server.fallbackHits++
			server.fallbackBody = envelope
			server.mu.Unlock()
			_, _ = w.Write([]byte(`{"message":"ok"}`))
		}))
		defer refused.Close()

		client := NewClient(Config{
			BaseURL:        refused.URL,
			ChatPath:       "/v1/chat",
			ConnectTimeout: time.Second,
		})

		var chunks []string
		result, err := client.Send(context.Background(), "same summary", testMessages, func(text string) {
			chunks = append(chunks, text)
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result.Message)
		assert.Equal(t, []string{"ok"}, chunks, "fallback surfaces the text through exactly one chunk call")

		server.mu.Lock()
		body := server.fallbackBody
		hits := server.fallbackHits
		server.mu.Unlock()
		assert.Equal(t, 1, hits)
		assert.Equal(t, "same summary", body.Summary)
		assert.Equal(t, testMessages, body.Messages)
	})

	t.Run("AbnormalCloseWithNoTextFallsBack", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			// Drop the connection without a close frame or any text.
			_ = conn.Close()
		}
		server.fallbackFn = func(w http.ResponseWriter, _ Envelope) {
			_, _ = w.Write([]byte(`{"message":"recovered"}`))
		}

		result, err := server.client().Send(context.Background(), "", testMessages, nil)
		require.NoError(t, err)
		assert.Equal(t, "recovered", result.Message)

		_, fallback := server.counts()
		assert.Equal(t, 1, fallback)
	})

	t.Run("FallbackErrorFrameSurfaces", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			_ = conn.Close()
		}
		server.fallbackFn = func(w http.ResponseWriter, _ Envelope) {
			_, _ = w.Write([]byte(`{"type":"error","error":"still broken"}`))
		}

		_, err := server.client().Send(context.Background(), "", testMessages, nil)
		var protoErr *ProtocolError
		require.ErrorAs(t, err, &protoErr)
		assert.Equal(t, "still broken", protoErr.Detail)
	})

	t.Run("FallbackFailureIsTerminal", func(t *testing.T) {
		server := newChatServer(t)
		server.streamFn = func(conn *websocket.Conn, _ Envelope) {
			_ = conn.Close()
		}
		server.fallbackFn = func(w http.ResponseWriter, _ Envelope) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}

		_, err := server.client().Send(context.Background(), "", testMessages, nil)
		require.Error(t, err)

		_, fallback := server.counts()
		assert.Equal(t, 1, fallback, "no retries beyond the single fallback attempt")
	})
}

func TestStreamTimeoutClassification(t *testing.T) {
	// A server that accepts TCP but never completes the websocket handshake.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stream") == "true" {
			time.Sleep(500 * time.Millisecond)
			return
		}
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:        server.URL,
		ChatPath:       "/v1/chat",
		ConnectTimeout: 50 * time.Millisecond,
	})

	_, err := client.stream(context.Background(), "", testMessages, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "connect-phase expiry must classify as timeout, got: %v", err)
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/foldertalk/foldertalk/internal/logger"
	"github.com/foldertalk/foldertalk/internal/models"
	"github.com/foldertalk/foldertalk/internal/protocol"
)

// Envelope is the single outbound request sent once the stream opens. All
// further traffic is inbound.
type Envelope struct {
	Summary  string               `json:"summary"`
	Messages []models.ChatMessage `json:"messages"`
	APIKey   string               `json:"apiKey,omitempty"`
}

// Result is the reconstructed assistant message for one completed turn.
type Result struct {
	Message       string
	ArtifactPaths []string
}

// Config holds the endpoints and limits for the transport.
type Config struct {
	BaseURL        string
	ChatPath       string
	APIKey         string
	ConnectTimeout time.Duration
}

// Client streams one assistant turn over a duplex websocket connection,
// falling back to a single-shot POST against the same logical endpoint when
// the stream fails for any reason other than cancellation.
type Client struct {
	cfg        Config
	dialer     *websocket.Dialer
	httpClient *http.Client
}

// NewClient creates a streaming transport client.
func NewClient(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 8 * time.Second
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout},
		// No overall timeout: the fallback call may legitimately take as
		// long as the remote needs to compute.
		httpClient: &http.Client{},
	}
}

// Send performs one request/stream cycle. onChunk is invoked with each
// incremental piece of text in arrival order; the concatenation of all
// chunk texts equals Result.Message. A transport failure is retried exactly
// once over the fallback; cancellation and server error frames are not.
func (c *Client) Send(ctx context.Context, summary string, messages []models.ChatMessage, onChunk func(string)) (*Result, error) {
	result, err := c.stream(ctx, summary, messages, onChunk)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ErrCanceled) {
		return nil, err
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return nil, err
	}

	logger.Warnf("streaming transport failed, retrying over fallback: %v", err)
	return c.fallback(ctx, summary, messages, onChunk)
}

type inbound struct {
	frame protocol.Frame
	err   error
}

func (c *Client) stream(ctx context.Context, summary string, messages []models.ChatMessage, onChunk func(string)) (*Result, error) {
	endpoint, err := c.streamURL()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		if dialCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	defer conn.Close()

	// Cancellation during the connect phase must prevent the envelope from
	// ever being sent.
	if ctx.Err() != nil {
		closeGracefully(conn)
		return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
	}

	envelope := Envelope{Summary: summary, Messages: messages, APIKey: c.cfg.APIKey}
	if err := conn.WriteJSON(envelope); err != nil {
		return nil, fmt.Errorf("failed to send request envelope: %w", err)
	}

	frames := make(chan inbound, 32)
	readerDone := make(chan struct{})
	defer close(readerDone)
	go readFrames(conn, frames, readerDone)

	var accumulated strings.Builder
	deliver := func(text string) {
		accumulated.WriteString(text)
		if onChunk != nil {
			onChunk(text)
		}
	}
	finish := func() (*Result, error) {
		closeGracefully(conn)
		message := accumulated.String()
		return &Result{Message: message, ArtifactPaths: protocol.ExtractArtifactPaths(message)}, nil
	}

	for {
		select {
		case <-ctx.Done():
			closeGracefully(conn)
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())

		case in := <-frames:
			if in.err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
				}
				// A close with accumulated text counts as a completed turn;
				// anything else is a transport failure.
				if accumulated.Len() > 0 {
					return finish()
				}
				return nil, fmt.Errorf("%w: %v", ErrClosedAbnormally, in.err)
			}

			switch in.frame.Type {
			case protocol.FrameChunk:
				if in.frame.Text != "" {
					deliver(in.frame.Text)
				}
			case protocol.FrameText:
				if protocol.IsDoneSentinel(strings.TrimSpace(in.frame.Text)) {
					return finish()
				}
				if in.frame.Text != "" {
					deliver(in.frame.Text)
				}
			case protocol.FrameDone:
				return finish()
			case protocol.FrameError:
				closeGracefully(conn)
				return nil, &ProtocolError{Detail: in.frame.Detail}
			}
		}
	}
}

func readFrames(conn *websocket.Conn, frames chan<- inbound, done <-chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		var in inbound
		if err != nil {
			in = inbound{err: err}
		} else {
			in = inbound{frame: protocol.Decode(data)}
		}
		select {
		case frames <- in:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = c.cfg.ChatPath
	query := u.Query()
	query.Set("stream", "true")
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func closeGracefully(conn *websocket.Conn) {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
}

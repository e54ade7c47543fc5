package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foldertalk/foldertalk/internal/chatlog"
	"github.com/foldertalk/foldertalk/internal/logger"
	"github.com/foldertalk/foldertalk/internal/models"
	"github.com/foldertalk/foldertalk/internal/reveal"
	"github.com/foldertalk/foldertalk/internal/transport"
)

// ErrBusy is returned when a send is attempted while another request is
// outstanding. The session is strictly single-flight.
var ErrBusy = errors.New("session: a request is already in flight")

// Sender is the transport surface the session depends on.
type Sender interface {
	Send(ctx context.Context, summary string, messages []models.ChatMessage, onChunk func(string)) (*transport.Result, error)
}

// Options configures a session.
type Options struct {
	// SystemPrompt is prepended to the history. It is session-local and
	// never written to the log.
	SystemPrompt string
	// Summary is the folder summary sent with every request.
	Summary string
	// Reveal, when set, paces chunk delivery instead of passing chunks
	// straight through to the caller.
	Reveal *reveal.Scheduler
}

// Session owns one conversation: the full message history, the durable log,
// and at most one outstanding assistant request. Each request carries a
// unique token so events from a canceled request are discarded rather than
// racing a fresh one.
type Session struct {
	mu      sync.Mutex
	sender  Sender
	log     *chatlog.Store
	opts    Options
	history []models.ChatMessage
	active  *request
}

type request struct {
	token  uuid.UUID
	cancel context.CancelFunc
}

// New creates a session seeded from the existing chat log. A missing or
// corrupt log simply yields an empty history.
func New(sender Sender, log *chatlog.Store, opts Options) *Session {
	s := &Session{sender: sender, log: log, opts: opts}
	if opts.SystemPrompt != "" {
		s.history = append(s.history, models.ChatMessage{Role: models.RoleSystem, Content: opts.SystemPrompt})
	}
	for _, entry := range log.Load() {
		s.history = append(s.history, entry.Message())
	}
	return s
}

// History returns a copy of the current message history, including the
// leading system message.
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]models.ChatMessage, len(s.history))
	copy(history, s.history)
	return history
}

// Send submits one user message and blocks until the assistant turn
// completes, fails, or is canceled. The user turn is logged at submit; the
// assistant turn is logged only on successful completion. Exactly one send
// may be outstanding at a time.
func (s *Session) Send(ctx context.Context, text string, onChunk func(string)) (*transport.Result, error) {
	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	now := time.Now()
	s.history = append(s.history, models.ChatMessage{Role: models.RoleUser, Content: text})
	messages := make([]models.ChatMessage, len(s.history))
	copy(messages, s.history)

	reqCtx, cancel := context.WithCancel(ctx)
	token := uuid.New()
	s.active = &request{token: token, cancel: cancel}
	s.mu.Unlock()
	defer cancel()

	if err := s.log.Append(models.ChatLogEntry{Role: models.RoleUser, Content: text, Timestamp: now}); err != nil {
		logger.Warnf("failed to log user turn: %v", err)
	}

	if s.opts.Reveal != nil {
		s.opts.Reveal.SetTarget("")
	}

	result, err := s.sender.Send(reqCtx, s.opts.Summary, messages, func(chunk string) {
		if !s.holds(token) {
			return
		}
		if s.opts.Reveal != nil {
			s.opts.Reveal.Append(chunk)
		} else if onChunk != nil {
			onChunk(chunk)
		}
	})

	completed := s.release(token)

	if err != nil {
		return nil, err
	}
	if !completed {
		// The request was canceled while a fallback retry was completing;
		// its late result must not be adopted.
		return nil, fmt.Errorf("%w: request superseded by cancellation", transport.ErrCanceled)
	}

	s.mu.Lock()
	s.history = append(s.history, models.ChatMessage{Role: models.RoleAssistant, Content: result.Message})
	s.mu.Unlock()

	if err := s.log.Append(models.ChatLogEntry{Role: models.RoleAssistant, Content: result.Message, Timestamp: time.Now()}); err != nil {
		logger.Warnf("failed to log assistant turn: %v", err)
	}

	if s.opts.Reveal != nil {
		s.waitForReveal(ctx)
	}

	return result, nil
}

// Cancel aborts the outstanding request, if any. Canceling a completed
// request is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	s.active.cancel()
	s.active = nil
}

// holds reports whether token still identifies the outstanding request.
func (s *Session) holds(token uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.token == token
}

// release clears the outstanding request and reports whether the token was
// still the active one (false when a cancel won the race).
func (s *Session) release(token uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.token != token {
		return false
	}
	s.active = nil
	return true
}

// waitForReveal blocks until the scheduler has revealed the full message,
// so the finalized rendering never interrupts the character animation.
func (s *Session) waitForReveal(ctx context.Context) {
	done := make(chan struct{})
	s.opts.Reveal.Finalize(func() { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
	}
}

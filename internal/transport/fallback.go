package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/foldertalk/foldertalk/internal/models"
	"github.com/foldertalk/foldertalk/internal/protocol"
)

// fallback performs the single-shot request/response retry against the same
// logical endpoint with the same body. The full text is surfaced through
// one synthetic onChunk call so the caller-visible chunk contract holds
// even without progressive delivery. No retries beyond this one attempt.
func (c *Client) fallback(ctx context.Context, summary string, messages []models.ChatMessage, onChunk func(string)) (*Result, error) {
	envelope := Envelope{Summary: summary, Messages: messages, APIKey: c.cfg.APIKey}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fallback request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.ChatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build fallback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
		}
		return nil, fmt.Errorf("fallback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fallback request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fallback response: %w", err)
	}

	frame := protocol.Decode(payload)
	var message string
	switch frame.Type {
	case protocol.FrameError:
		return nil, &ProtocolError{Detail: frame.Detail}
	case protocol.FrameChunk:
		message = frame.Text
	case protocol.FrameText:
		if !protocol.IsDoneSentinel(strings.TrimSpace(frame.Text)) {
			message = frame.Text
		}
	}

	if message != "" && onChunk != nil {
		onChunk(message)
	}
	return &Result{Message: message, ArtifactPaths: protocol.ExtractArtifactPaths(message)}, nil
}

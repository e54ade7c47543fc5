package transport

import "errors"

var (
	// ErrTimeout is returned when the duplex connection fails to establish
	// within the connect timeout. Connect is the only phase with a deadline;
	// an open stream may idle while the remote computes.
	ErrTimeout = errors.New("transport: connect timeout")

	// ErrClosedAbnormally is returned when the stream closes with no
	// accumulated text and no cancellation. The close code does not matter:
	// a normal-closure frame before any text still classifies here, since an
	// empty turn is indistinguishable from a dropped one and the fallback
	// can recover either way.
	ErrClosedAbnormally = errors.New("transport: connection closed abnormally")

	// ErrCanceled is returned for caller-initiated cancellation. It never
	// triggers the fallback transport.
	ErrCanceled = errors.New("transport: request canceled")
)

// ProtocolError carries a server-supplied error frame. It surfaces to the
// caller directly, without fallback or retry.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return "transport: assistant service error: " + e.Detail
}

package protocol

// FrameType classifies one decoded unit of inbound streaming data.
type FrameType string

const (
	// FrameChunk carries incremental (or, for non-streaming backends, full)
	// assistant text.
	FrameChunk FrameType = "chunk"
	// FrameDone signals the end of the assistant message.
	FrameDone FrameType = "done"
	// FrameError carries a server-reported failure.
	FrameError FrameType = "error"
	// FrameText is an untyped plain-text delivery: the unit was not valid
	// JSON or had no recognized shape.
	FrameText FrameType = "text"
)

// Frame is the decoded form of one inbound unit. Frames are transient and
// never persisted.
type Frame struct {
	Type   FrameType
	Text   string
	Detail string
}

// Done sentinels some backends emit as plain text instead of a structured
// done frame. Compared case-sensitively against the trimmed unit.
const (
	DoneSentinelBracket    = "[DONE]"
	DoneSentinelUnderscore = "__DONE__"
)

// IsDoneSentinel reports whether a plain-text unit terminates the stream.
func IsDoneSentinel(text string) bool {
	return text == DoneSentinelBracket || text == DoneSentinelUnderscore
}

package protocol

import "encoding/json"

const genericErrorDetail = "assistant service reported an error"

// Decode classifies a raw inbound unit into a Frame. Binary units are
// interpreted as UTF-8 text. The unit is tried as JSON first; parse failure
// or an unrecognized shape degrades to a plain-text frame.
//
// Structured shapes are recognized in a fixed priority order, since several
// fields can coexist in one frame:
//  1. type == "error"            -> FrameError
//  2. type == "chunk"            -> FrameChunk with the "text" field
//  3. type == "done" or done     -> FrameDone
//  4. first non-empty of message/response/content/text -> full-text chunk
func Decode(raw []byte) Frame {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Frame{Type: FrameText, Text: string(raw)}
	}

	if typ, _ := obj["type"].(string); typ == "error" {
		detail := stringField(obj, "message")
		if detail == "" {
			detail = stringField(obj, "error")
		}
		if detail == "" {
			detail = genericErrorDetail
		}
		return Frame{Type: FrameError, Detail: detail}
	}

	if typ, _ := obj["type"].(string); typ == "chunk" {
		return Frame{Type: FrameChunk, Text: stringField(obj, "text")}
	}

	if typ, _ := obj["type"].(string); typ == "done" {
		return Frame{Type: FrameDone}
	}
	if done, _ := obj["done"].(bool); done {
		return Frame{Type: FrameDone}
	}

	// Non-incremental backends return the whole message in one unit.
	for _, key := range []string{"message", "response", "content", "text"} {
		if text := stringField(obj, key); text != "" {
			return Frame{Type: FrameChunk, Text: text}
		}
	}

	return Frame{Type: FrameText, Text: string(raw)}
}

func stringField(obj map[string]interface{}, key string) string {
	value, _ := obj[key].(string)
	return value
}

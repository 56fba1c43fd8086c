package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

const (
	TypeMessage = "message"
	TypeStatus  = "status"
	TypeTyping  = "typing"
	TypeError   = "error"
)

const (
	InvalidFormatMessage = "Invalid message format"
	timestampLayout      = "2006-01-02T15:04:05.000Z"
)

var ErrInvalidFrame = errors.New(InvalidFormatMessage)

// Frame is the envelope exchanged in both directions.
type Frame struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	SessionId *string                `json:"sessionId,omitempty"`
}

type rawFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	SessionId *string         `json:"sessionId"`
}

// ParseFrame decodes an inbound frame. The type must be a non-empty string and
// data, when present, a JSON object. A missing or null data becomes an empty object.
func ParseFrame(raw []byte) (*Frame, error) {
	var rf rawFrame
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, ErrInvalidFrame
	}
	if rf.Type == "" {
		return nil, ErrInvalidFrame
	}

	data := map[string]interface{}{}
	trimmed := bytes.TrimSpace(rf.Data)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if trimmed[0] != '{' {
			return nil, ErrInvalidFrame
		}
		if err := json.Unmarshal(trimmed, &data); err != nil {
			return nil, ErrInvalidFrame
		}
	}

	return &Frame{Type: rf.Type, Data: data, SessionId: rf.SessionId}, nil
}

func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func ConnectedFrame(now time.Time) Frame {
	return Frame{
		Type: TypeStatus,
		Data: map[string]interface{}{
			"status":    "connected",
			"timestamp": Timestamp(now),
		},
	}
}

func ErrorFrame() Frame {
	return Frame{
		Type: TypeError,
		Data: map[string]interface{}{"error": InvalidFormatMessage},
	}
}

// EchoFrame answers a message frame with its own data plus echo and a fresh timestamp.
func EchoFrame(in *Frame, now time.Time) Frame {
	data := make(map[string]interface{}, len(in.Data)+2)
	for k, v := range in.Data {
		data[k] = v
	}
	data["echo"] = true
	data["timestamp"] = Timestamp(now)

	out := Frame{Type: TypeMessage, Data: data}
	if in.SessionId != nil {
		sid := *in.SessionId
		out.SessionId = &sid
	}
	return out
}

package nats

import (
	"testing"
	"time"

	"flowchat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.CHAT_TURN_COMPLETED", Subject(events.ChatTurnCompleted))
}

func TestDecodeEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 42, time.UTC)

	evt, err := DecodeEvent(Subject(events.ChatTurnFailed), at.Format(time.RFC3339Nano), []byte(`{"session_id":"s1"}`))
	require.NoError(t, err)
	assert.Equal(t, events.ChatTurnFailed, evt.Type)
	assert.Equal(t, "s1", evt.Data["session_id"])
	assert.True(t, at.Equal(evt.OccurredAt))
}

func TestDecodeEvent_MissingHeaderUsesNow(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	evt, err := DecodeEvent("events.X", "", []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, evt.OccurredAt.After(before))
}

func TestDecodeEvent_Rejects(t *testing.T) {
	_, err := DecodeEvent("other.X", "", []byte(`{}`))
	assert.Error(t, err)

	_, err = DecodeEvent("events.", "", []byte(`{}`))
	assert.Error(t, err)

	_, err = DecodeEvent("events.X", "", []byte(`not json`))
	assert.Error(t, err)
}

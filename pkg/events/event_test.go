package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := Marshal(BaseEvent{
		Type:       ChatTurnCompleted,
		Data:       map[string]interface{}{"session_id": "s1"},
		OccurredAt: at,
	})
	require.NoError(t, err)

	evt, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, ChatTurnCompleted, evt.EventType())
	assert.Equal(t, "s1", evt.Payload()["session_id"])
	assert.True(t, at.Equal(evt.Timestamp()))
}

func TestUnmarshal_Rejects(t *testing.T) {
	_, err := Unmarshal([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}

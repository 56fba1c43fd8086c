package websocket

import (
	"testing"
	"time"

	"flowchat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, <-chan struct{}) {
	t.Helper()
	hub := NewHub(logger.NewNopLogger())
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		hub.Run()
	}()
	return hub, exited
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub, exited := runHub(t)
	defer func() {
		hub.Stop()
		<-exited
	}()

	client := newClient(hub, nil, logger.NewNopLogger())
	require.True(t, hub.add(client))
	assert.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)

	hub.remove(client)
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open, "unregister closes the send channel")
}

func TestHub_StopEndsRun(t *testing.T) {
	hub, exited := runHub(t)

	hub.Stop()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.NotPanics(t, hub.Stop)
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub, exited := runHub(t)
	hub.Stop()
	<-exited

	client := newClient(hub, nil, logger.NewNopLogger())
	done := make(chan bool, 1)
	go func() {
		ok := hub.add(client)
		hub.remove(client)
		done <- ok
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("register blocked on a stopped hub")
	}
}

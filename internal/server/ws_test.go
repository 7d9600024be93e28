package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ChristChad-mv/careflow-sub000/internal/session"
)

type fakeWSWriter struct {
	messages chan []byte
}

func (f *fakeWSWriter) Write(_ context.Context, _ websocket.MessageType, data []byte) error {
	f.messages <- data
	return nil
}

func TestStreamFeedWriter(t *testing.T) {
	reg := session.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := &fakeWSWriter{messages: make(chan []byte, 8)}
	go func() {
		_ = streamFeed(ctx, reg, writer)
	}()

	// Give the subscriber a moment to register before publishing.
	time.Sleep(20 * time.Millisecond)
	reg.Open("call-1")
	reg.AppendChunk("call-1", "hello")

	for _, want := range []string{session.FeedOpened, session.FeedChunk} {
		select {
		case payload := <-writer.messages:
			var evt session.FeedEvent
			if err := json.Unmarshal(payload, &evt); err != nil {
				t.Fatalf("decode feed payload: %v", err)
			}
			if evt.Kind != want || evt.CallID != "call-1" {
				t.Fatalf("event = %+v, want kind %s", evt, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

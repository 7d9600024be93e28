package a2aclient

import (
	"context"
	"fmt"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/idgen"
)

// Dispatch streams one task instruction to a peer agent and returns the
// text of its final status message. A stream that ends in a failed or
// canceled state, or without a final event, is an error so the caller can
// treat the subject as not contacted.
func (c *Client) Dispatch(ctx context.Context, serverURL, taskText string) (string, error) {
	msg := a2a.NewTextMessage(idgen.New(), a2a.RoleUser, taskText)

	var finalText string
	var finalState a2a.TaskState
	sawFinal := false
	err := c.SendMessageStream(ctx, serverURL, msg, func(evt StreamEvent) {
		if evt.Status == nil || !evt.Status.Final {
			return
		}
		sawFinal = true
		finalState = evt.Status.Status.State
		finalText = evt.Status.Status.Message.Text()
	})
	if err != nil {
		return "", err
	}
	if !sawFinal {
		return "", fmt.Errorf("stream from %s ended without a final event", serverURL)
	}
	switch finalState {
	case a2a.TaskStateCompleted, a2a.TaskStateInputRequired:
		return finalText, nil
	default:
		return "", fmt.Errorf("remote task ended %s: %s", finalState, finalText)
	}
}

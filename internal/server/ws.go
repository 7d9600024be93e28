package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ChristChad-mv/careflow-sub000/internal/session"
)

type wsWriter interface {
	Write(ctx context.Context, msgType websocket.MessageType, data []byte) error
}

// handleSessionsWS streams the live session feed to a dashboard client.
func (s *Server) handleSessionsWS(w http.ResponseWriter, r *http.Request) {
	if s.Sessions == nil {
		writeError(w, http.StatusInternalServerError, errNotFound("session feed"))
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	if err := streamFeed(ctx, s.Sessions, conn); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "feed error")
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func streamFeed(ctx context.Context, reg *session.Registry, writer wsWriter) error {
	feed := reg.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-feed:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				return err
			}
			if err := writer.Write(ctx, websocket.MessageText, payload); err != nil {
				return err
			}
		}
	}
}

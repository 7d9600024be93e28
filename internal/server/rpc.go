package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ChristChad-mv/careflow-sub000/internal/a2a"
	"github.com/ChristChad-mv/careflow-sub000/internal/executor"
	"github.com/ChristChad-mv/careflow-sub000/internal/identity"
)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, errNotFound("route"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req a2a.Request
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(nil, a2a.CodeParseError, "parse request: "+err.Error()))
		return
	}
	if req.JSONRPC != a2a.Version {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInvalidRequest, "unsupported jsonrpc version"))
		return
	}

	switch req.Method {
	case a2a.MethodMessageSend:
		s.handleMessageSend(w, r, &req)
	case a2a.MethodMessageStream:
		s.handleMessageStream(w, r, &req)
	case a2a.MethodTasksGet:
		s.handleTasksGet(w, &req)
	case a2a.MethodTasksCancel:
		s.handleTasksCancel(w, r, &req)
	default:
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method)))
	}
}

// prepare validates send params and builds the execution request context,
// resuming an existing task when the message addresses one.
func (s *Server) prepare(req *a2a.Request) (*executor.RequestContext, *a2a.RPCError) {
	var params a2a.MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, &a2a.RPCError{Code: a2a.CodeInvalidParams, Message: "decode params: " + err.Error()}
	}
	if params.Message == nil || len(params.Message.Parts) == 0 {
		return nil, &a2a.RPCError{Code: a2a.CodeInvalidParams, Message: "message with at least one part required"}
	}

	var existing *a2a.Task
	if params.Message.TaskID != "" {
		task, ok := s.registry.get(params.Message.TaskID)
		if !ok {
			return nil, &a2a.RPCError{Code: a2a.CodeTaskNotFound, Message: "task " + params.Message.TaskID + " not found"}
		}
		if task.Status.State.Terminal() {
			return nil, &a2a.RPCError{
				Code:    a2a.CodeInvalidParams,
				Message: fmt.Sprintf("task %s is %s and accepts no more messages", task.ID, task.Status.State),
			}
		}
		existing = task
		if s.Sessions != nil {
			// A new utterance against a task still speaking is a
			// barge-in; keep the partial as an interrupted turn.
			if task.Status.State == a2a.TaskStateWorking {
				s.Sessions.MarkInterrupted(task.ID)
			}
			s.Sessions.AppendTurn(task.ID, a2a.RoleUser, params.Message.Text())
		}
	}

	return executor.BuildRequestContext(params.Message, existing, identity.Ambient{}), nil
}

// run drives one execution to completion, applying every event to the
// task registry and forwarding it to emit.
func (s *Server) run(ctx context.Context, rc *executor.RequestContext, emit func(executor.Event)) {
	q := executor.NewQueue()
	go func() {
		defer q.Close()
		if err := s.Exec.Execute(ctx, rc, q); err != nil {
			s.logger().Error("executor failed", "task", rc.TaskID, "error", err)
		}
	}()
	for evt := range q.Events() {
		s.registry.apply(evt)
		if emit != nil {
			emit(evt)
		}
	}
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request, req *a2a.Request) {
	rc, rpcErr := s.prepare(req)
	if rpcErr != nil {
		writeJSON(w, http.StatusOK, &a2a.Response{JSONRPC: a2a.Version, ID: req.ID, Error: rpcErr})
		return
	}

	s.run(r.Context(), rc, nil)

	task, ok := s.registry.get(rc.TaskID)
	if !ok {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, "execution produced no task"))
		return
	}
	resp, err := a2a.NewResponse(req.ID, task)
	if err != nil {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request, req *a2a.Request) {
	rc, rpcErr := s.prepare(req)
	if rpcErr != nil {
		writeJSON(w, http.StatusOK, &a2a.Response{JSONRPC: a2a.Version, ID: req.ID, Error: rpcErr})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	s.run(r.Context(), rc, func(evt executor.Event) {
		var result any
		switch {
		case evt.Task != nil:
			result = evt.Task
		case evt.Status != nil:
			result = evt.Status
		default:
			return
		}
		resp, err := a2a.NewResponse(req.ID, result)
		if err != nil {
			s.logger().Error("encode stream event", "task", rc.TaskID, "error", err)
			return
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			s.logger().Error("encode stream event", "task", rc.TaskID, "error", err)
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	})
}

func (s *Server) handleTasksGet(w http.ResponseWriter, req *a2a.Request) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInvalidParams, "task id required"))
		return
	}
	task, ok := s.registry.get(params.ID)
	if !ok {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeTaskNotFound, "task "+params.ID+" not found"))
		return
	}
	resp, err := a2a.NewResponse(req.ID, task)
	if err != nil {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTasksCancel(w http.ResponseWriter, r *http.Request, req *a2a.Request) {
	var params a2a.TaskIDParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.ID == "" {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInvalidParams, "task id required"))
		return
	}
	task, ok := s.registry.get(params.ID)
	if !ok {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeTaskNotFound, "task "+params.ID+" not found"))
		return
	}
	// Cancellation of a settled task is a no-op; the snapshot answers.
	if !task.Status.State.Terminal() {
		if err := s.Exec.Cancel(r.Context(), params.ID); err != nil {
			writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, err.Error()))
			return
		}
	}
	resp, err := a2a.NewResponse(req.ID, task)
	if err != nil {
		writeJSON(w, http.StatusOK, a2a.NewErrorResponse(req.ID, a2a.CodeInternalError, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Package a2a defines the wire types for the Agent-to-Agent JSON-RPC
// protocol spoken between the pulse orchestrator and the caller voice agent.
package a2a

import (
	"strings"
	"time"
)

// TaskState enumerates the mutually exclusive states of a task. The zero
// value is treated as unknown.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateUnknown       TaskState = "unknown"
)

// Terminal reports whether no further transitions are allowed out of state.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part is one typed content element of a message. Exactly one of Text,
// File, or Data is meaningful, selected by Kind.
type Part struct {
	Kind string         `json:"kind"`
	Text string         `json:"text,omitempty"`
	File *FilePart      `json:"file,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

type FilePart struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
}

const (
	PartKindText = "text"
	PartKindFile = "file"
	PartKindData = "data"
)

func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

func DataPart(data map[string]any) Part {
	return Part{Kind: PartKindData, Data: data}
}

// Message is one turn in a conversation. Immutable once created.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	TaskID    string         `json:"taskId,omitempty"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

const KindMessage = "message"

func NewTextMessage(id string, role Role, text string) *Message {
	return &Message{
		Kind:      KindMessage,
		MessageID: id,
		Role:      role,
		Parts:     []Part{TextPart(text)},
	}
}

// Text flattens all text parts of the message in order.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// TaskStatus is the current status of a task plus the message, if any,
// that accompanied the transition.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Task is one tracked unit of conversational work.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

const KindTask = "task"

// StatusUpdateEvent is one streamed task status transition. Final marks the
// last event of the stream for its task.
type StatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

const KindStatusUpdate = "status-update"

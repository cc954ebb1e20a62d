// Package domain defines the core domain models for the chat orchestrator.
package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Direction marks which side of the model a piece of text sits on when it is
// screened.
type Direction string

const (
	DirectionInput  Direction = "INPUT"
	DirectionOutput Direction = "OUTPUT"
)

// ChatMessage is a single message within a session. Immutable once stored.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
	SessionID string `json:"sessionId,omitempty"`
}

// ChatRequest is one inbound chat turn. SessionID is optional; the server
// generates one when it is absent.
type ChatRequest struct {
	SessionID string        `json:"sessionId,omitempty"`
	Message   string        `json:"message"`
	ModelID   string        `json:"modelId"`
	History   []ChatMessage `json:"history,omitempty"`
}

// ChatResponse is the reply for a completed turn. SessionID is always set,
// even when it was generated server-side for this turn.
type ChatResponse struct {
	Message          ChatMessage       `json:"message"`
	SessionID        string            `json:"sessionId"`
	GuardrailsScores *GuardrailsScores `json:"guardrailsScores,omitempty"`
}

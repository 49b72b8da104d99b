package generation

import (
	"context"
)

// Role of a conversation message.
type Role string

// Supported roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation context.
type Message struct {
	Role    Role
	Content string
}

// Request describes one model call.
type Request struct {
	// Model overrides the provider's default model id when set.
	Model string

	// System is an optional system instruction.
	System string

	// Messages are prior turns; Prompt is appended as the final user turn.
	Messages []Message
	Prompt   string

	Temperature     *float32
	MaxOutputTokens int32

	// JSONSchema optionally constrains structured output. It must marshal
	// to a JSON Schema document.
	JSONSchema any

	// SessionID and TaskID tag telemetry parts.
	SessionID string
	TaskID    string
}

// Provider is implemented by language model backends.
type Provider interface {
	// PromptStream starts a streaming completion. The returned channel is
	// closed when the completion ends, fails, or ctx is cancelled; a failure
	// mid-stream arrives as a PartError part.
	PromptStream(ctx context.Context, req Request) (<-chan Part, error)

	// GenerateStructured requests a JSON response and decodes it into out,
	// which must be a pointer. Struct results are validated with their
	// validate tags.
	GenerateStructured(ctx context.Context, req Request, out any) error
}

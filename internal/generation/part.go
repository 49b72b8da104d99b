package generation

// PartType discriminates streamed parts.
type PartType string

// Supported part types.
const (
	PartText  PartType = "text"
	PartTool  PartType = "tool"
	PartUsage PartType = "usage"
	PartError PartType = "error"
)

// ToolStatus is the state of a tool call.
type ToolStatus string

// Supported tool states.
const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// ToolCall reports a tool invocation requested by the model.
type ToolCall struct {
	CallID string         `json:"callId"`
	Name   string         `json:"tool"`
	Status ToolStatus     `json:"status"`
	Input  map[string]any `json:"input,omitempty"`
	Output string         `json:"output,omitempty"`
}

// Usage reports token accounting for a completion step.
type Usage struct {
	InputTokens       int32 `json:"inputTokens"`
	OutputTokens      int32 `json:"outputTokens"`
	TotalTokens       int32 `json:"totalTokens"`
	ReasoningTokens   int32 `json:"reasoningTokens"`
	CachedInputTokens int32 `json:"cachedInputTokens"`
}

// Add accumulates u2 into u.
func (u *Usage) Add(u2 Usage) {
	u.InputTokens += u2.InputTokens
	u.OutputTokens += u2.OutputTokens
	u.TotalTokens += u2.TotalTokens
	u.ReasoningTokens += u2.ReasoningTokens
	u.CachedInputTokens += u2.CachedInputTokens
}

// Part is one element of a streamed completion. Text carries a delta, not
// the accumulated text.
type Part struct {
	Type      PartType  `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	TaskID    string    `json:"taskId,omitempty"`
	Text      string    `json:"text,omitempty"`
	Tool      *ToolCall `json:"tool,omitempty"`
	Usage     *Usage    `json:"usage,omitempty"`
	Err       error     `json:"-"`
}

// TextPart builds a text delta part.
func TextPart(delta string) Part { return Part{Type: PartText, Text: delta} }

// ErrorPart builds an error part.
func ErrorPart(err error) Part { return Part{Type: PartError, Err: err} }

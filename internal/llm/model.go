// Package llm is the boundary to the external language model. A Model turns
// a request into an ordered stream of text fragments and tool calls.
package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Role identifies who produced a history message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a raw, undecoded tool call emitted by the model
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult answers one ToolCall in the history
type ToolResult struct {
	CallID  string `json:"callId,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Message is one entry of the conversation history
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// Request is everything the model needs for one turn
type Request struct {
	System   string
	History  []Message
	UserText string
	Tools    []llms.Tool
}

// Chunk is one element of a model stream. Exactly one of Text, ToolCall, Err
// is set, or Final marks the clean end of the stream.
type Chunk struct {
	Text       string
	ToolCall   *ToolCall
	Err        error
	Final      bool
	StopReason string
}

// Model streams a turn. The returned channel is closed when the stream ends;
// a failure is delivered as a Chunk with Err set.
type Model interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

func send(ctx context.Context, out chan<- Chunk, c Chunk) error {
	select {
	case out <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package llm

import (
	"bytes"
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
	"github.com/tmc/langchaingo/llms"

	"tableside/internal/models"
)

// LangChain adapts any langchaingo model to the Model interface
type LangChain struct {
	model  llms.Model
	stream bool
	opts   []llms.CallOption
	buffer int
}

// NewLangChain wraps model. When stream is true text is forwarded as the
// provider produces it; otherwise it arrives in one chunk with the tool calls.
func NewLangChain(model llms.Model, stream bool, opts ...llms.CallOption) *LangChain {
	return &LangChain{model: model, stream: stream, opts: opts, buffer: 64}
}

// Stream implements Model
func (l *LangChain) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	if l.model == nil {
		return nil, &models.TransportError{Err: errors.New("no model configured")}
	}

	messages := toMessageContent(req)
	out := make(chan Chunk, l.buffer)

	go func() {
		defer close(out)

		opts := append([]llms.CallOption{}, l.opts...)
		if len(req.Tools) > 0 {
			opts = append(opts, llms.WithTools(req.Tools))
		}

		streamed := false
		if l.stream {
			opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 || looksLikeToolDelta(chunk) {
					return nil
				}
				streamed = true
				return send(ctx, out, Chunk{Text: string(chunk)})
			}))
		}

		resp, err := l.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			_ = send(ctx, out, Chunk{Err: &models.TransportError{Err: err}})
			return
		}
		if resp == nil || len(resp.Choices) == 0 {
			_ = send(ctx, out, Chunk{Err: &models.TransportError{Err: errors.New("empty response from model")}})
			return
		}

		// Some providers split text and tool use across choices.
		var stop string
		for _, choice := range resp.Choices {
			if choice == nil {
				continue
			}
			if !streamed && choice.Content != "" {
				if send(ctx, out, Chunk{Text: choice.Content}) != nil {
					return
				}
			}
			for _, tc := range choice.ToolCalls {
				if tc.FunctionCall == nil {
					continue
				}
				call := &ToolCall{ID: tc.ID, Name: tc.FunctionCall.Name, Arguments: tc.FunctionCall.Arguments}
				if send(ctx, out, Chunk{ToolCall: call}) != nil {
					return
				}
			}
			if len(choice.ToolCalls) == 0 && choice.FuncCall != nil {
				call := &ToolCall{Name: choice.FuncCall.Name, Arguments: choice.FuncCall.Arguments}
				if send(ctx, out, Chunk{ToolCall: call}) != nil {
					return
				}
			}
			if choice.StopReason != "" {
				stop = choice.StopReason
			}
		}
		_ = send(ctx, out, Chunk{Final: true, StopReason: stop})
	}()

	return out, nil
}

// looksLikeToolDelta catches providers that push tool call deltas through the
// streaming callback as a JSON array
func looksLikeToolDelta(chunk []byte) bool {
	trimmed := bytes.TrimSpace(chunk)
	return len(trimmed) > 1 && trimmed[0] == '[' && trimmed[1] == '{' && jsoniter.Valid(trimmed)
}

func toMessageContent(req Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}

	for _, msg := range req.History {
		switch msg.Role {
		case RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, msg.Text))
		case RoleAssistant:
			parts := make([]llms.ContentPart, 0, len(msg.ToolCalls)+1)
			if msg.Text != "" {
				parts = append(parts, llms.TextContent{Text: msg.Text})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, llms.ToolCall{
					ID:           tc.ID,
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
				})
			}
			if len(parts) > 0 {
				messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
			}
		case RoleTool:
			for _, tr := range msg.ToolResults {
				messages = append(messages, llms.MessageContent{
					Role: llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{llms.ToolCallResponse{
						ToolCallID: tr.CallID,
						Name:       tr.Name,
						Content:    tr.Content,
					}},
				})
			}
		}
	}

	if req.UserText != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.UserText))
	}
	return messages
}

package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"tableside/internal/models"
)

// fakeModel is a scripted langchaingo model
type fakeModel struct {
	chunks   []string
	response *llms.ContentResponse
	err      error

	gotMessages []llms.MessageContent
	gotOptions  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.gotMessages = messages
	for _, opt := range options {
		opt(&f.gotOptions)
	}
	if f.gotOptions.StreamingFunc != nil {
		for _, c := range f.chunks {
			if err := f.gotOptions.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return f.response, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func drain(t *testing.T, ch <-chan Chunk) []Chunk {
	t.Helper()
	var out []Chunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestStreamTextThenToolCalls(t *testing.T) {
	fake := &fakeModel{
		chunks: []string{"Got it, ", `[{"id":"call_1","type":"function"}]`, "one burger."},
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
			Content:    "Got it, one burger.",
			StopReason: "tool_calls",
			ToolCalls: []llms.ToolCall{{
				ID:           "call_1",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: "addToCart", Arguments: `{"name":"Burger","price":12}`},
			}},
		}}},
	}
	model := NewLangChain(fake, true)

	ch, err := model.Stream(context.Background(), Request{
		System:   "be a waiter",
		UserText: "a burger please",
		Tools:    []llms.Tool{{Type: "function", Function: &llms.FunctionDefinition{Name: "addToCart"}}},
	})
	require.NoError(t, err)
	chunks := drain(t, ch)

	require.Len(t, chunks, 4)
	assert.Equal(t, "Got it, ", chunks[0].Text)
	assert.Equal(t, "one burger.", chunks[1].Text)
	require.NotNil(t, chunks[2].ToolCall)
	assert.Equal(t, "addToCart", chunks[2].ToolCall.Name)
	assert.Equal(t, "call_1", chunks[2].ToolCall.ID)
	assert.True(t, chunks[3].Final)
	assert.Equal(t, "tool_calls", chunks[3].StopReason)

	assert.Len(t, fake.gotOptions.Tools, 1)
	require.Len(t, fake.gotMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.gotMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.gotMessages[1].Role)
}

func TestNonStreamingDeliversContentOnce(t *testing.T) {
	fake := &fakeModel{
		response: &llms.ContentResponse{Choices: []*llms.ContentChoice{
			{Content: "Coming right up."},
			{ToolCalls: []llms.ToolCall{{ID: "t1", FunctionCall: &llms.FunctionCall{Name: "showItem", Arguments: `{}`}}}},
		}},
	}
	ch, err := NewLangChain(fake, false).Stream(context.Background(), Request{UserText: "hi"})
	require.NoError(t, err)
	chunks := drain(t, ch)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Coming right up.", chunks[0].Text)
	assert.Equal(t, "showItem", chunks[1].ToolCall.Name)
	assert.True(t, chunks[2].Final)
	assert.Nil(t, fake.gotOptions.StreamingFunc)
}

func TestStreamFailureIsTransportError(t *testing.T) {
	fake := &fakeModel{err: errors.New("503 overloaded")}
	ch, err := NewLangChain(fake, true).Stream(context.Background(), Request{UserText: "hi"})
	require.NoError(t, err)
	chunks := drain(t, ch)

	require.Len(t, chunks, 1)
	assert.True(t, models.IsTransport(chunks[0].Err))
}

func TestHistoryConversion(t *testing.T) {
	msgs := toMessageContent(Request{
		History: []Message{
			{Role: RoleUser, Text: "a burger"},
			{Role: RoleAssistant, Text: "Sure thing", ToolCalls: []ToolCall{{ID: "c1", Name: "addToCart", Arguments: `{}`}}},
			{Role: RoleTool, ToolResults: []ToolResult{{CallID: "c1", Name: "addToCart", Content: `{"ok":true}`}}},
			{Role: RoleAssistant},
		},
		UserText: "that's all",
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[1].Role)
	require.Len(t, msgs[1].Parts, 2)
	call, ok := msgs[1].Parts[1].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "c1", call.ID)
	assert.Equal(t, llms.ChatMessageTypeTool, msgs[2].Role)
	resp, ok := msgs[2].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "c1", resp.ToolCallID)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[3].Role)
}

func TestNilModel(t *testing.T) {
	_, err := NewLangChain(nil, true).Stream(context.Background(), Request{})
	assert.True(t, models.IsTransport(err))
}

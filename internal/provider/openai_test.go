package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petasbytes/simplechat/internal/provider"
	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

const openAIText = `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`

const openAIToolCall = `{"id":"c2","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"X","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`

type openAIRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role       string `json:"role"`
		Content    string `json:"content"`
		Name       string `json:"name"`
		ToolCallID string `json:"tool_call_id"`
		ToolCalls  []struct {
			ID       string `json:"id"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"messages"`
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	} `json:"tools"`
	ToolChoice any `json:"tool_choice"`
}

func newOpenAI(t *testing.T, responses ...cannedResponse) (*fakeTransport, *provider.OpenAI) {
	t.Helper()
	ft, hc := replay(responses...)
	return ft, provider.NewOpenAI(provider.Config{APIKey: "test-key", HTTPClient: hc})
}

func TestOpenAI_CompleteMapsHistory(t *testing.T) {
	ft, b := newOpenAI(t, cannedResponse{200, openAIText})

	call := memory.ToolCall{ID: "call_0", Name: "current_time", Arguments: "{}"}
	req := provider.Request{
		Model:  "gpt-test",
		System: "be brief",
		Messages: []memory.Message{
			memory.UserMessage("Ann Lee", "what time is it?"),
			memory.ToolCallMessage("Botto", []memory.ToolCall{call}),
			memory.FunctionResult(call, "noon"),
		},
		Tools:          tools.Registry(time.UTC),
		AllowToolCalls: true,
	}
	got, err := b.Complete(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "hello there", got.Content)
	require.Equal(t, "stop", got.FinishReason)
	require.False(t, got.WantsTools())

	calls := ft.calls()
	require.Len(t, calls, 1)
	require.True(t, strings.HasSuffix(calls[0].path, "/chat/completions"), calls[0].path)

	var sent openAIRequest
	require.NoError(t, json.Unmarshal(calls[0].body, &sent))
	require.Equal(t, "gpt-test", sent.Model)
	require.Len(t, sent.Messages, 4)
	require.Equal(t, "system", sent.Messages[0].Role)
	require.Equal(t, "be brief", sent.Messages[0].Content)
	require.Equal(t, "user", sent.Messages[1].Role)
	require.Equal(t, "Ann_Lee", sent.Messages[1].Name)
	require.Equal(t, "assistant", sent.Messages[2].Role)
	require.Len(t, sent.Messages[2].ToolCalls, 1)
	require.Equal(t, "current_time", sent.Messages[2].ToolCalls[0].Function.Name)
	require.Equal(t, "tool", sent.Messages[3].Role)
	require.Equal(t, "call_0", sent.Messages[3].ToolCallID)
	require.Equal(t, "noon", sent.Messages[3].Content)

	require.Len(t, sent.Tools, 1)
	require.Equal(t, "function", sent.Tools[0].Type)
	require.Equal(t, "current_time", sent.Tools[0].Function.Name)
	require.Equal(t, "object", sent.Tools[0].Function.Parameters["type"])
	require.Equal(t, "auto", sent.ToolChoice)
}

func TestOpenAI_ToolChoiceNoneWhenCallsExhausted(t *testing.T) {
	ft, b := newOpenAI(t, cannedResponse{200, openAIText})
	_, err := b.Complete(context.Background(), provider.Request{
		Messages: []memory.Message{memory.UserMessage("u", "hi")},
		Tools:    tools.Registry(time.UTC),
	})
	require.NoError(t, err)

	var sent openAIRequest
	require.NoError(t, json.Unmarshal(ft.calls()[0].body, &sent))
	require.Equal(t, provider.DefaultOpenAIModel, sent.Model)
	require.Equal(t, "none", sent.ToolChoice)
}

func TestOpenAI_NoToolsOmitsToolChoice(t *testing.T) {
	ft, b := newOpenAI(t, cannedResponse{200, openAIText})
	_, err := b.Complete(context.Background(), provider.Request{
		Messages: []memory.Message{memory.UserMessage("u", "hi")},
	})
	require.NoError(t, err)
	require.NotContains(t, string(ft.calls()[0].body), "tool_choice")
}

func TestOpenAI_ToolCallsParsed(t *testing.T) {
	_, b := newOpenAI(t, cannedResponse{200, openAIToolCall})
	got, err := b.Complete(context.Background(), provider.Request{
		Messages:       []memory.Message{memory.UserMessage("u", "call X")},
		AllowToolCalls: true,
	})
	require.NoError(t, err)
	require.True(t, got.WantsTools())
	require.Equal(t, []memory.ToolCall{{ID: "call_1", Name: "X", Arguments: "{}"}}, got.ToolCalls)
	require.Equal(t, "tool_calls", got.FinishReason)
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	_, b := newOpenAI(t, cannedResponse{200, `{"id":"c","object":"chat.completion","choices":[]}`})
	_, err := b.Complete(context.Background(), provider.Request{Messages: []memory.Message{memory.UserMessage("u", "hi")}})
	require.ErrorIs(t, err, provider.ErrNoChoices)
}

func TestOpenAI_APIErrorMessage(t *testing.T) {
	_, b := newOpenAI(t, cannedResponse{401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`})
	_, err := b.Complete(context.Background(), provider.Request{Messages: []memory.Message{memory.UserMessage("u", "hi")}})
	require.Error(t, err)
	require.Equal(t, "Incorrect API key provided", provider.APIErrorMessage(err))
	require.Equal(t, 401, provider.StatusCode(err))
	require.False(t, provider.Retryable(err))
}

func TestOpenAI_GenerateImage(t *testing.T) {
	ft, b := newOpenAI(t, cannedResponse{200, `{"created":1,"data":[{"url":"https://images.example/cat.png"}]}`})
	url, err := b.GenerateImage(context.Background(), provider.ImageRequest{Prompt: "a cat", Style: "natural"})
	require.NoError(t, err)
	require.Equal(t, "https://images.example/cat.png", url)

	var sent map[string]any
	calls := ft.calls()
	require.True(t, strings.HasSuffix(calls[0].path, "/images/generations"), calls[0].path)
	require.NoError(t, json.Unmarshal(calls[0].body, &sent))
	require.Equal(t, "a cat", sent["prompt"])
	require.Equal(t, "dall-e-3", sent["model"])
	require.Equal(t, "1024x1024", sent["size"])
	require.Equal(t, "hd", sent["quality"])
	require.Equal(t, "natural", sent["style"])
	require.Equal(t, "url", sent["response_format"])
}

func TestOpenAI_GenerateImageEmptyData(t *testing.T) {
	_, b := newOpenAI(t, cannedResponse{200, `{"created":1,"data":[]}`})
	_, err := b.GenerateImage(context.Background(), provider.ImageRequest{Prompt: "x"})
	require.True(t, errors.Is(err, provider.ErrNoChoices))
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"Ann":       "Ann",
		"Ann Lee":   "Ann_Lee",
		"a.b@c":     "a_b_c",
		"ok-name_1": "ok-name_1",
	}
	for in, want := range cases {
		require.Equal(t, want, provider.SanitizeName(in), "input %q", in)
	}
	require.Len(t, provider.SanitizeName(strings.Repeat("x", 100)), 64)
}

package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

const (
	DefaultOpenAIModel = openai.GPT4o
	DefaultImageModel  = openai.CreateImageModelDallE3
)

// OpenAI talks to the chat completions and image generation endpoints.
type OpenAI struct {
	client *openai.Client
}

func NewOpenAI(cfg Config) *OpenAI {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(c)}
}

func (o *OpenAI) Name() string { return NameOpenAI }

func (o *OpenAI) Complete(ctx context.Context, req Request) (Completion, error) {
	model := req.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: openAIMessages(req.System, req.Messages),
	}
	if len(req.Tools) > 0 {
		creq.Tools = openAITools(req.Tools)
		creq.ToolChoice = "none"
		if req.AllowToolCalls {
			creq.ToolChoice = "auto"
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return Completion{}, ErrNoChoices
	}
	choice := resp.Choices[0]
	out := Completion{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, memory.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (o *OpenAI) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}
	style := req.Style
	if style == "" {
		style = openai.CreateImageStyleVivid
	}
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		Quality:        openai.CreateImageQualityHD,
		Style:          style,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", ErrNoChoices
	}
	return resp.Data[0].URL, nil
}

func openAIMessages(system string, msgs []memory.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleSystem:
			// already sent ahead of the history
		case memory.RoleUser:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
				Name:    SanitizeName(m.Name),
			})
		case memory.RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
				Name:    SanitizeName(m.Name),
			}
			for _, c := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:       c.ID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: c.Name, Arguments: c.Arguments},
				})
			}
			out = append(out, msg)
		case memory.RoleFunction:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

func openAITools(defs []tools.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters(),
			},
		})
	}
	return out
}

// SanitizeName maps an author name onto the characters the API accepts in
// the name field ([A-Za-z0-9_-], at most 64), replacing others with '_'.
func SanitizeName(name string) string {
	if name == "" {
		return ""
	}
	var sb strings.Builder
	for _, r := range name {
		if sb.Len() >= 64 {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func openAIErrorMessage(err error) (string, bool) {
	var apiErr *openai.APIError
	if asError(err, &apiErr) {
		return apiErr.Message, true
	}
	var reqErr *openai.RequestError
	if asError(err, &reqErr) {
		return fmt.Sprintf("request failed with status %d: %v", reqErr.HTTPStatusCode, reqErr.Err), true
	}
	return "", false
}

func openAIStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if asError(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if asError(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

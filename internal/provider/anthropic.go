package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

const defaultMaxTokens int64 = 1024

// Anthropic talks to the Messages API. It has no image endpoint.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
}

// NewAnthropic builds a client; an empty APIKey falls back to ANTHROPIC_API_KEY.
// SDK retries are off; wrap the backend with WithRetry instead.
func NewAnthropic(cfg Config) *Anthropic {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{client: anthropic.NewClient(opts...), maxTokens: maxTokens}
}

func (a *Anthropic) Name() string { return NameAnthropic }

func (a *Anthropic) Complete(ctx context.Context, req Request) (Completion, error) {
	model := req.Model
	if model == "" {
		model = string(DefaultAnthropicModel)
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: a.maxTokens,
		Messages:  anthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
		if !req.AllowToolCalls {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, err
	}
	if len(msg.Content) == 0 {
		return Completion{}, ErrNoChoices
	}
	var (
		out  Completion
		text []string
	)
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, v.Text)
		case anthropic.ToolUseBlock:
			out.ToolCalls = append(out.ToolCalls, memory.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: v.JSON.Input.Raw(),
			})
		}
	}
	out.Content = strings.Join(text, "\n")
	out.FinishReason = string(msg.StopReason)
	return out, nil
}

func (a *Anthropic) GenerateImage(context.Context, ImageRequest) (string, error) {
	return "", ErrImagesUnsupported
}

// anthropicMessages maps the history onto user/assistant turns. Function
// results become tool_result blocks in a user turn; user authors are
// inlined as "name: text" since the API has no name field. The API requires
// a user turn first, so anything before the first user message is dropped.
func anthropicMessages(msgs []memory.Message) []anthropic.MessageParam {
	for len(msgs) > 0 && msgs[0].Role != memory.RoleUser {
		msgs = msgs[1:]
	}
	out := make([]anthropic.MessageParam, 0, len(msgs))
	var results []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(results) > 0 {
			out = append(out, anthropic.NewUserMessage(results...))
			results = nil
		}
	}
	for _, m := range msgs {
		switch m.Role {
		case memory.RoleFunction:
			results = append(results, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case memory.RoleUser:
			flush()
			text := m.Content
			if m.Name != "" {
				text = m.Name + ": " + text
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		case memory.RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, c := range m.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    c.ID,
					Name:  c.Name,
					Input: rawArguments(c.Arguments),
				}})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

func anthropicTools(defs []tools.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters()
		required, _ := params["required"].([]string)
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: params["properties"],
				Required:   required,
			},
		}})
	}
	return out
}

func rawArguments(args string) json.RawMessage {
	if strings.TrimSpace(args) == "" {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(args)
}

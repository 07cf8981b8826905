package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

var (
	// ErrImagesUnsupported is returned by backends without an image endpoint.
	ErrImagesUnsupported = errors.New("image generation is not supported by this provider")
	// ErrNoChoices is returned when the API answers 200 with nothing usable in it.
	ErrNoChoices = errors.New("no response from provider")
)

// Provider names accepted by New.
const (
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
)

// Request is one chat completion call. System is sent ahead of Messages.
type Request struct {
	Model    string
	System   string
	Messages []memory.Message
	Tools    []tools.ToolDefinition
	// AllowToolCalls sets tool choice to auto; when false tools are still
	// advertised (history may reference them) but the model may not call them.
	AllowToolCalls bool
}

// Completion is the first choice of a chat completion.
type Completion struct {
	Content      string
	ToolCalls    []memory.ToolCall
	FinishReason string
}

// WantsTools reports whether the model asked for tool calls.
func (c Completion) WantsTools() bool { return len(c.ToolCalls) > 0 }

type ImageRequest struct {
	Model  string
	Prompt string
	Style  string // "vivid" or "natural"
}

// Backend is an external chat (and optionally image) API.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// Config carries credentials and transport overrides for a backend.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	// MaxTokens bounds completion length where the API requires it (Anthropic).
	MaxTokens int64
}

// New returns the backend registered under name.
func New(name string, cfg Config) (Backend, error) {
	switch strings.ToLower(name) {
	case "", NameOpenAI:
		return NewOpenAI(cfg), nil
	case NameAnthropic:
		return NewAnthropic(cfg), nil
	}
	return nil, fmt.Errorf("unknown provider %q", name)
}

// DefaultModel returns the chat model used when none is configured.
func DefaultModel(name string) string {
	if strings.ToLower(name) == NameAnthropic {
		return string(DefaultAnthropicModel)
	}
	return DefaultOpenAIModel
}

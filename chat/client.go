package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/simplechat/internal/metrics"
	"github.com/petasbytes/simplechat/internal/provider"
	"github.com/petasbytes/simplechat/internal/ratelimit"
	"github.com/petasbytes/simplechat/internal/runner"
	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

var (
	ErrMissingAPIKey = errors.New("api key is required")
	ErrInvalidStyle  = errors.New("image style must be vivid or natural")
)

// Client holds conversations and the tools available to them. It is safe
// for concurrent use; calls on one conversation run one at a time.
type Client struct {
	runner     *runner.Runner
	store      *memory.Store
	tools      *tools.Dispatcher
	log        zerolog.Logger
	imageModel string
	limiter    *ratelimit.Keyed
	stop       context.CancelFunc

	mu     sync.RWMutex
	system string
}

// New returns a client for the configured provider.
func New(apiKey, systemMessage string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}

	backend := s.backend
	if backend == nil && s.storagePath != "" {
		fb, err := memory.NewFileBackend(s.storagePath, s.storageFormat)
		if err != nil {
			return nil, err
		}
		backend = fb
	}
	store := memory.NewStore(backend, memory.WithMaxMessages(s.maxHistory))

	pb, err := provider.New(s.provider, provider.Config{
		APIKey:     apiKey,
		BaseURL:    s.baseURL,
		HTTPClient: s.httpClient,
		MaxTokens:  s.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	pb = provider.WithRetry(provider.Instrument(pb), provider.RetryPolicy{
		MaxRetries:      s.retries,
		InitialInterval: provider.DefaultRetryPolicy().InitialInterval,
		MaxInterval:     provider.DefaultRetryPolicy().MaxInterval,
		MaxElapsedTime:  s.retryFor,
	})

	model := s.model
	if model == "" {
		model = provider.DefaultModel(s.provider)
	}
	dispatcher := tools.NewDispatcher()
	ropts := []runner.Option{
		runner.WithModel(model),
		runner.WithBotName(s.botName),
		runner.WithLocation(s.loc),
		runner.WithTokenBudget(s.tokenBudget),
		runner.WithLogger(s.log),
	}
	c := &Client{
		store:      store,
		tools:      dispatcher,
		log:        s.log,
		imageModel: s.imageModel,
		system:     systemMessage,
		stop:       func() {},
	}
	if s.rateLimit > 0 {
		c.limiter = ratelimit.PerMinute(s.rateLimit)
		ropts = append(ropts, runner.WithRateLimiter(c.limiter))
		if s.limiterIdle > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			c.stop = cancel
			c.limiter.StartCleanup(ctx, limiterSweep(s.limiterIdle), s.limiterIdle)
		}
	}
	c.runner = runner.New(pb, dispatcher, store, ropts...)

	s.log.Debug().Str("provider", pb.Name()).Str("model", model).Msg("chat client ready")
	return c, nil
}

// limiterSweep is how often idle limiters are looked for.
func limiterSweep(idle time.Duration) time.Duration {
	if d := idle / 2; d > 0 {
		return d
	}
	return idle
}

// Close stops pruning idle rate limiters. It may be called more than once.
func (c *Client) Close() {
	c.stop()
}

// RegisterTool makes def callable by the model in every conversation.
func (c *Client) RegisterTool(def tools.ToolDefinition) error {
	return c.tools.Register(def)
}

// UpdateSystemMessage replaces the system message sent with later calls.
func (c *Client) UpdateSystemMessage(msg string) {
	c.mu.Lock()
	c.system = msg
	c.mu.Unlock()
}

func (c *Client) systemMessage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.system
}

// Chat sends prompt, authored by name, and returns the model's reply.
func (c *Client) Chat(ctx context.Context, prompt, name string, opts ...ChatOption) (resp Response) {
	cs := chatSettings{conversation: DefaultConversation, maxToolCalls: 1}
	for _, opt := range opts {
		opt(&cs)
	}
	defer func() {
		if r := recover(); r != nil {
			resp = failure(fmt.Errorf("chat panicked: %v", r))
		}
		metrics.ObserveResponse("chat", resp.Success)
	}()

	reply, err := c.runner.Chat(ctx, runner.Turn{
		ConversationID: cs.conversation,
		Name:           name,
		Prompt:         prompt,
		System:         c.systemMessage(),
		DateTime:       cs.dateTime,
		MaxToolCalls:   cs.maxToolCalls,
	})
	if err != nil {
		c.log.Error().Err(err).Str("conversation_id", cs.conversation).Msg("chat failed")
		return failure(err)
	}
	return success(reply)
}

// ChatAsync runs Chat in a goroutine; the channel yields one Response and closes.
func (c *Client) ChatAsync(ctx context.Context, prompt, name string, opts ...ChatOption) <-chan Response {
	out := make(chan Response, 1)
	go func() {
		defer close(out)
		out <- c.Chat(ctx, prompt, name, opts...)
	}()
	return out
}

// Image generates one image for prompt and returns its URL.
func (c *Client) Image(ctx context.Context, prompt string, opts ...ImageOption) (resp Response) {
	is := imageSettings{style: StyleVivid}
	for _, opt := range opts {
		opt(&is)
	}
	defer func() {
		if r := recover(); r != nil {
			resp = failure(fmt.Errorf("image panicked: %v", r))
		}
		metrics.ObserveResponse("image", resp.Success)
	}()
	if is.style != StyleVivid && is.style != StyleNatural {
		return failure(fmt.Errorf("%w: %q", ErrInvalidStyle, is.style))
	}

	url, err := c.runner.Image(ctx, "image", provider.ImageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		Style:  is.style,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("image failed")
		return failure(err)
	}
	return success(url)
}

// ImageAsync runs Image in a goroutine; the channel yields one Response and closes.
func (c *Client) ImageAsync(ctx context.Context, prompt string, opts ...ImageOption) <-chan Response {
	out := make(chan Response, 1)
	go func() {
		defer close(out)
		out <- c.Image(ctx, prompt, opts...)
	}()
	return out
}

// History renders conversation id as "name: content" lines.
func (c *Client) History(id string) (string, error) {
	return c.store.Transcript(id)
}

// TruncatedHistory is History limited to its last TruncatedHistoryLength characters.
func (c *Client) TruncatedHistory(id string) (string, error) {
	return c.store.TruncatedTranscript(id, TruncatedHistoryLength)
}

// Messages returns a copy of the stored messages of conversation id.
func (c *Client) Messages(id string) ([]memory.Message, error) {
	conv, err := c.store.GetOrCreate(id)
	return conv.Messages, err
}

// Clear deletes the history of conversation id.
func (c *Client) Clear(id string) error {
	return c.store.Clear(id)
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petasbytes/simplechat/internal/metrics"
	"github.com/petasbytes/simplechat/internal/provider"
	"github.com/petasbytes/simplechat/internal/ratelimit"
	"github.com/petasbytes/simplechat/internal/telemetry"
	"github.com/petasbytes/simplechat/internal/windowing"
	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

// NoResponse replaces an empty final reply.
const NoResponse = "No response"

const DefaultBotName = "Botto"

// ErrOverBudget is returned when the newest message group alone exceeds the token budget.
var ErrOverBudget = errors.New("newest message group exceeds the token budget")

// Turn is one user prompt in one conversation.
type Turn struct {
	ConversationID string
	Name           string
	Prompt         string
	System         string
	// DateTime prefixes the system message with the current date and time.
	DateTime bool
	// MaxToolCalls is the number of tool-call rounds honoured before tool
	// choice is forced to none. Zero disables tool calls for the turn.
	MaxToolCalls int
}

type Runner struct {
	backend provider.Backend
	tools   *tools.Dispatcher
	store   *memory.Store

	log     zerolog.Logger
	model   string
	botName string
	loc     *time.Location
	budget  int
	counter windowing.TokenCounter
	limiter *ratelimit.Keyed
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]chan struct{}
}

type Option func(*Runner)

func WithModel(model string) Option { return func(r *Runner) { r.model = model } }

func WithBotName(name string) Option { return func(r *Runner) { r.botName = name } }

func WithLocation(loc *time.Location) Option { return func(r *Runner) { r.loc = loc } }

// WithTokenBudget bounds the history sent per request; budget <= 0 sends everything.
func WithTokenBudget(budget int) Option { return func(r *Runner) { r.budget = budget } }

// WithRateLimiter throttles external calls per conversation id.
func WithRateLimiter(l *ratelimit.Keyed) Option { return func(r *Runner) { r.limiter = l } }

func WithLogger(log zerolog.Logger) Option { return func(r *Runner) { r.log = log } }

// WithClock overrides time.Now for the date/time prefix.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func New(backend provider.Backend, dispatcher *tools.Dispatcher, store *memory.Store, opts ...Option) *Runner {
	if dispatcher == nil {
		dispatcher = tools.NewDispatcher()
	}
	if store == nil {
		store = memory.NewStore(nil)
	}
	r := &Runner{
		backend: backend,
		tools:   dispatcher,
		store:   store,
		log:     zerolog.Nop(),
		botName: DefaultBotName,
		loc:     time.UTC,
		counter: windowing.HeuristicCounter{},
		now:     time.Now,
		locks:   make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lock serialises turns of one conversation. It gives up when ctx is done.
func (r *Runner) lock(ctx context.Context, id string) (func(), error) {
	r.mu.Lock()
	ch, ok := r.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		r.locks[id] = ch
	}
	r.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Chat appends the prompt to the conversation, runs tool calls the model
// asks for and stores and returns the final reply.
func (r *Runner) Chat(ctx context.Context, turn Turn) (string, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	id := turn.ConversationID
	log := r.log.With().Str("conversation_id", id).Str("turn_id", turnID).Logger()

	unlock, err := r.lock(ctx, id)
	if err != nil {
		return "", err
	}
	defer unlock()

	telemetry.EmitLocalFeatures(ctx, id, turn.Prompt)
	if err := r.store.Append(id, memory.UserMessage(turn.Name, turn.Prompt)); err != nil {
		return "", fmt.Errorf("store user message: %w", err)
	}

	for round := 0; ; round++ {
		allow := round < turn.MaxToolCalls
		comp, err := r.complete(ctx, log, turn, allow)
		if err != nil {
			return "", err
		}
		if !allow || !comp.WantsTools() {
			reply := comp.Content
			if strings.TrimSpace(reply) == "" {
				reply = NoResponse
			}
			if err := r.store.Append(id, memory.AssistantMessage(r.botName, reply)); err != nil {
				return "", fmt.Errorf("store reply: %w", err)
			}
			log.Debug().Int("tool_rounds", round).Msg("turn complete")
			return reply, nil
		}
		if err := r.runTools(ctx, log, id, comp); err != nil {
			return "", err
		}
	}
}

func (r *Runner) systemPrompt(turn Turn) string {
	if !turn.DateTime {
		return turn.System
	}
	now := r.now().In(r.loc)
	return fmt.Sprintf("The date and time is %s give answers in timezone %s.\n%s",
		now.Format(time.RFC3339), r.loc.String(), turn.System)
}

func (r *Runner) complete(ctx context.Context, log zerolog.Logger, turn Turn, allowTools bool) (provider.Completion, error) {
	id := turn.ConversationID
	conv, err := r.store.GetOrCreate(id)
	if err != nil {
		return provider.Completion{}, fmt.Errorf("load conversation: %w", err)
	}
	window, stats := windowing.PrepareSendWindow(conv.Messages, r.budget, r.counter)
	telemetry.EmitContext(ctx, "request_prepared", map[string]any{
		"conversation_id":    id,
		"provider":           r.backend.Name(),
		"model":              r.model,
		"history":            conv.Len(),
		"messages":           stats.Messages,
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
		"tools_allowed":      allowTools,
	})
	if stats.OverBudgetNewest {
		return provider.Completion{}, ErrOverBudget
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, id); err != nil {
			return provider.Completion{}, fmt.Errorf("rate limit: %w", err)
		}
	}

	req := provider.Request{
		Model:          r.model,
		System:         r.systemPrompt(turn),
		Messages:       window,
		AllowToolCalls: allowTools,
	}
	if r.tools.Len() > 0 {
		req.Tools = r.tools.Definitions()
	}
	log.Debug().
		Int("messages", len(window)).
		Int("skipped_groups", stats.SkippedGroups).
		Bool("tools_allowed", allowTools).
		Msg("sending request")
	comp, err := r.backend.Complete(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("completion failed")
		return provider.Completion{}, err
	}
	return comp, nil
}

// runTools answers every call of comp and stores the request and its
// results together. A failing call stores its error text as the result and
// the first such error fails the turn.
func (r *Runner) runTools(ctx context.Context, log zerolog.Logger, id string, comp provider.Completion) error {
	calls := make([]memory.ToolCall, len(comp.ToolCalls))
	copy(calls, comp.ToolCalls)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
	request := memory.ToolCallMessage(r.botName, calls)
	request.Content = comp.Content
	msgs := []memory.Message{request}

	var firstErr error
	for _, c := range calls {
		out, err := r.execTool(ctx, c)
		if err != nil {
			log.Warn().Str("tool", c.Name).Err(err).Msg("tool dispatch failed")
			msgs = append(msgs, memory.FunctionError(c, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		msgs = append(msgs, memory.FunctionResult(c, out))
	}
	if err := r.store.Append(id, msgs...); err != nil {
		return fmt.Errorf("store tool results: %w", err)
	}
	return firstErr
}

func (r *Runner) execTool(ctx context.Context, call memory.ToolCall) (string, error) {
	emit := func(durationMs int64, inputSize int, outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   call.Name,
			"tool_call":   call.ID,
			"duration_ms": durationMs,
			"input_size":  inputSize,
			"output_size": outputSize,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		telemetry.EmitContext(ctx, "tool_exec", fields)
	}

	start := time.Now()
	out, err := r.tools.Dispatch(tools.Call{ID: call.ID, Name: call.Name, Arguments: []byte(call.Arguments)})
	metrics.ObserveToolDispatch(call.Name, err)
	switch {
	case errors.Is(err, tools.ErrNotFound):
		emit(time.Since(start).Milliseconds(), len(call.Arguments), 0, "tool not found")
	case err != nil:
		// payloads stay out of telemetry
		emit(time.Since(start).Milliseconds(), len(call.Arguments), 0, "tool error")
	default:
		emit(time.Since(start).Milliseconds(), len(call.Arguments), len(out), "")
	}
	return out, err
}

// Image asks the backend for one image, subject to the same per-key rate limit as chat.
func (r *Runner) Image(ctx context.Context, key string, req provider.ImageRequest) (string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, key); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}
	url, err := r.backend.GenerateImage(ctx, req)
	if err != nil {
		r.log.Warn().Err(err).Str("backend", r.backend.Name()).Msg("image generation failed")
		return "", err
	}
	return url, nil
}

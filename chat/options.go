package chat

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/simplechat/memory"
)

const (
	DefaultConversation = "default"
	DefaultBotName      = "Botto"
	// TruncatedHistoryLength is the number of trailing characters TruncatedHistory keeps.
	TruncatedHistoryLength = 4000
	// DefaultLimiterIdle is how long a conversation's rate limiter survives unused.
	DefaultLimiterIdle = 10 * time.Minute
)

type settings struct {
	backend       memory.Backend
	storagePath   string
	storageFormat memory.Format

	provider   string
	model      string
	imageModel string
	baseURL    string
	httpClient *http.Client
	maxTokens  int64

	loc         *time.Location
	maxHistory  int
	botName     string
	tokenBudget int
	rateLimit   float64
	limiterIdle time.Duration

	retries  uint64
	retryFor time.Duration
	log      zerolog.Logger
}

func defaults() settings {
	return settings{
		provider:    "openai",
		loc:         time.UTC,
		maxHistory:  memory.DefaultMaxMessages,
		botName:     DefaultBotName,
		limiterIdle: DefaultLimiterIdle,
		retries:     3,
		retryFor:    10 * time.Second,
		log:         zerolog.Nop(),
	}
}

// Option configures a Client.
type Option func(*settings)

// WithStorage persists conversations through b. It takes precedence over WithStoragePath.
func WithStorage(b memory.Backend) Option { return func(s *settings) { s.backend = b } }

// WithStoragePath persists each conversation as a file under dir.
func WithStoragePath(dir string) Option { return func(s *settings) { s.storagePath = dir } }

// WithStorageFormat selects JSON (default) or YAML files for WithStoragePath.
func WithStorageFormat(f memory.Format) Option { return func(s *settings) { s.storageFormat = f } }

// WithProvider selects "openai" (default) or "anthropic".
func WithProvider(name string) Option { return func(s *settings) { s.provider = name } }

func WithModel(model string) Option { return func(s *settings) { s.model = model } }

func WithImageModel(model string) Option { return func(s *settings) { s.imageModel = model } }

// WithBaseURL points the provider client at a different API root.
func WithBaseURL(url string) Option { return func(s *settings) { s.baseURL = url } }

func WithHTTPClient(hc *http.Client) Option { return func(s *settings) { s.httpClient = hc } }

// WithMaxTokens bounds reply length for providers that require it.
func WithMaxTokens(n int64) Option { return func(s *settings) { s.maxTokens = n } }

// WithTimezone sets the zone named in the WithDateTime prefix. Tools are
// registered separately; see tools.Registry.
func WithTimezone(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithMaxHistory caps stored messages per conversation; n <= 0 keeps everything.
func WithMaxHistory(n int) Option { return func(s *settings) { s.maxHistory = n } }

// WithBotName sets the author name stored on assistant messages.
func WithBotName(name string) Option { return func(s *settings) { s.botName = name } }

// WithTokenBudget limits the estimated tokens of history sent per request.
func WithTokenBudget(n int) Option { return func(s *settings) { s.tokenBudget = n } }

// WithRateLimit allows at most perMinute external calls per conversation.
func WithRateLimit(perMinute float64) Option { return func(s *settings) { s.rateLimit = perMinute } }

// WithLimiterIdle drops a conversation's rate limiter after idle without use
// (default DefaultLimiterIdle). idle <= 0 keeps limiters until Close.
func WithLimiterIdle(idle time.Duration) Option { return func(s *settings) { s.limiterIdle = idle } }

// WithRetry retries rate-limited, server and transport failures up to
// maxRetries times within maxElapsed. WithRetry(0, 0) disables retries.
func WithRetry(maxRetries int, maxElapsed time.Duration) Option {
	return func(s *settings) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		s.retries = uint64(maxRetries)
		s.retryFor = maxElapsed
	}
}

func WithLogger(log zerolog.Logger) Option { return func(s *settings) { s.log = log } }

type chatSettings struct {
	conversation string
	dateTime     bool
	maxToolCalls int
}

// ChatOption scopes a single Chat call.
type ChatOption func(*chatSettings)

// InConversation selects the conversation id; the default is "default".
func InConversation(id string) ChatOption { return func(s *chatSettings) { s.conversation = id } }

// WithDateTime prefixes the system message with the current date, time and timezone.
func WithDateTime() ChatOption { return func(s *chatSettings) { s.dateTime = true } }

// WithMaxToolCalls sets how many tool-call rounds the model gets (default 1).
func WithMaxToolCalls(n int) ChatOption { return func(s *chatSettings) { s.maxToolCalls = n } }

// Image styles.
const (
	StyleVivid   = "vivid"
	StyleNatural = "natural"
)

type imageSettings struct {
	style string
}

type ImageOption func(*imageSettings)

func WithStyle(style string) ImageOption { return func(s *imageSettings) { s.style = style } }

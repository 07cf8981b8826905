package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/petasbytes/simplechat/chat"
	"github.com/petasbytes/simplechat/internal/config"
	"github.com/petasbytes/simplechat/internal/logging"
	"github.com/petasbytes/simplechat/memory"
	"github.com/petasbytes/simplechat/tools"
)

const helpText = `commands:
  /image [vivid|natural] <prompt>  generate an image
  /history                         show the current conversation
  /clear                           forget the current conversation
  /chat <id>                       switch conversation
  /help                            show this help`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if cfg.APIKey == "" {
		fmt.Printf("Missing API key for %s; export OPENAI_API_KEY or ANTHROPIC_API_KEY before running.\n", cfg.Provider)
		os.Exit(1)
	}

	backend, closeBackend, err := openStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	defer closeBackend()

	client, err := chat.New(cfg.APIKey, cfg.SystemMessage,
		chat.WithProvider(cfg.Provider),
		chat.WithModel(cfg.Model),
		chat.WithStorage(backend),
		chat.WithTimezone(cfg.Timezone),
		chat.WithMaxHistory(cfg.MaxHistory),
		chat.WithTokenBudget(cfg.TokenBudget),
		chat.WithRateLimit(cfg.RateLimit),
		chat.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create client")
	}
	defer client.Close()
	for _, def := range tools.Registry(cfg.Timezone) {
		if err := client.RegisterTool(def); err != nil {
			log.Fatal().Err(err).Str("tool", def.Name).Msg("register tool")
		}
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	repl(ctx, client, cfg)
}

func openStorage(cfg *config.Config) (memory.Backend, func(), error) {
	noop := func() {}
	switch cfg.StorageBackend {
	case "memory":
		return memory.NewMemoryBackend(), noop, nil
	case "sqlite":
		if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
			return nil, noop, err
		}
		db, err := memory.OpenSQLite(filepath.Join(cfg.StorageDir, "conversations.db"))
		if err != nil {
			return nil, noop, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		fb, err := memory.NewFileBackend(cfg.StorageDir, memory.Format(cfg.StorageFormat))
		return fb, noop, err
	}
}

func serveMetrics(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving /metrics")
	return srv
}

func repl(ctx context.Context, client *chat.Client, cfg *config.Config) {
	conversation := chat.DefaultConversation
	fmt.Printf("Chat with %s (/help for commands, Ctrl-C to quit)\n", chat.DefaultBotName)

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(os.Stdin)
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

	chatOpts := []chat.ChatOption{chat.WithDateTime(), chat.WithMaxToolCalls(cfg.MaxToolCalls)}

outer:
	for {
		fmt.Printf("\u001b[94m%s\u001b[0m [%s]: ", cfg.UserName, conversation)
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Println("\nExiting...")
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			conversation = command(ctx, client, conversation, line)
			continue
		}

		select {
		case resp := <-client.ChatAsync(ctx, line, cfg.UserName, append(chatOpts, chat.InConversation(conversation))...):
			printResponse(resp)
		case <-ctx.Done():
			fmt.Println("\nExiting...")
			break outer
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}
}

// command runs a slash command and returns the conversation to continue in.
func command(ctx context.Context, client *chat.Client, conversation, line string) string {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/image":
		var opts []chat.ImageOption
		if style, rest, ok := strings.Cut(arg, " "); ok && (style == chat.StyleVivid || style == chat.StyleNatural) {
			opts = append(opts, chat.WithStyle(style))
			arg = rest
		}
		if arg == "" {
			fmt.Println("usage: /image [vivid|natural] <prompt>")
			break
		}
		printResponse(client.Image(ctx, arg, opts...))
	case "/history":
		h, err := client.TruncatedHistory(conversation)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			break
		}
		fmt.Println(h)
	case "/clear":
		if err := client.Clear(conversation); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	case "/chat":
		if arg == "" {
			fmt.Println("usage: /chat <id>")
			break
		}
		return arg
	default:
		fmt.Println(helpText)
	}
	return conversation
}

func printResponse(resp chat.Response) {
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "error: %s\n", resp.Message)
		return
	}
	fmt.Printf("\u001b[93m%s\u001b[0m: %s\n", chat.DefaultBotName, resp.Message)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"wagate/internal/bot"
	"wagate/internal/config"
	"wagate/internal/gateway"
	"wagate/internal/history"
	"wagate/internal/llm"
	"wagate/internal/pubsub"
	"wagate/internal/tool"
	"wagate/internal/whatsapp"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("wagate v%s\n", version)
	case "serve":
		if err := serve(); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("wagate - WhatsApp assistant gateway")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wagate serve     Start the webhook gateway")
	fmt.Println("  wagate version   Show version info")
}

func serve() error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env")
	}

	cfgPath := config.ResolvePath("")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Only a missing file falls back to the environment. A config file
		// that exists but does not parse is a startup failure, not something
		// to silently run without.
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		slog.Warn("config file not found, using environment", "path", cfgPath)
		cfg = config.FromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	slog.Info("wagate starting", "version", version, "model", cfg.LLM.Model)

	registry := tool.NewRegistry()
	tool.RegisterBuiltins(registry)

	var store *history.Store
	if cfg.History.IsEnabled() {
		store = history.NewStore(cfg.History.MaxTurns)
	}

	responder := &bot.Responder{
		Client:  llm.NewOpenAIClient(cfg.LLM.Timeout),
		Tools:   registry,
		History: store,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		System:  cfg.LLM.SystemPrompt,
		Timeout: cfg.LLM.Timeout,
	}

	sender := whatsapp.NewClient(
		cfg.WhatsApp.PhoneNumberID,
		cfg.WhatsApp.AccessToken,
		cfg.WhatsApp.APIVersion,
		cfg.WhatsApp.SendTimeout,
	)

	var events *pubsub.Publisher
	if cfg.Events.URL != "" {
		events, err = pubsub.Connect(cfg.Events.URL, cfg.Events.Exchange, slog.Default())
		if err != nil {
			return fmt.Errorf("connect event broker: %w", err)
		}
		defer events.Close()
		slog.Info("event publishing enabled", "exchange", cfg.Events.Exchange)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	srv := gateway.NewServer(cfg, responder, sender, events)
	return srv.Start(ctx)
}

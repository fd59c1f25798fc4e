package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hammywammy/oslira-core/app"
	"github.com/hammywammy/oslira-core/config"
	"github.com/hammywammy/oslira-core/observability"
	"github.com/hammywammy/oslira-core/queue"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config YAML file (optional)")
		envFile    = flag.String("env", "", "Path to .env file with credentials (optional)")
		analysis   = flag.String("type", "light", "Analysis type: light or deep")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	usernames := flag.Args()
	if len(usernames) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: oslira [-config <file>] [-env <file>] <username> ...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level := cfg.Log.SlogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	a, err := app.New(cfg, app.WithObserver(observability.NewSlogObserver(logger)))
	if err != nil {
		log.Fatalf("Failed to assemble app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("Startup failed: %v", err)
	}
	defer a.Shutdown(context.Background())

	auth, err := a.Auth()
	if err != nil {
		log.Fatalf("Auth unavailable: %v", err)
	}
	if cfg.Auth.Email != "" {
		if _, err := auth.SignIn(ctx, cfg.Auth.Email, cfg.Auth.Password); err != nil {
			log.Fatalf("Sign-in failed: %v", err)
		}
	}

	q, err := a.Queue()
	if err != nil {
		log.Fatalf("Queue unavailable: %v", err)
	}
	for _, username := range usernames {
		if _, err := q.Enqueue(username, *analysis); err != nil {
			log.Fatalf("Failed to enqueue %s: %v", username, err)
		}
	}

	if err := q.Drain(ctx); err != nil {
		log.Fatalf("Interrupted: %v", err)
	}

	for _, item := range q.Items() {
		switch item.Status {
		case queue.StatusDone:
			fmt.Printf("%s: score %.0f\n  %s\n", item.Username, item.Score, item.Summary)
		default:
			fmt.Printf("%s: %s (%s)\n", item.Username, item.Status, item.Error)
		}
	}
}

func loadConfig(configFile, envFile string) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		defaults := config.Default()
		cfg = &defaults
	}

	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}
	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return nil, err
	}
	return cfg, nil
}

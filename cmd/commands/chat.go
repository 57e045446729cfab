package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sheetchat/internal/chat"
	"github.com/dohr-michael/sheetchat/internal/config"
	"github.com/dohr-michael/sheetchat/internal/console"
	"github.com/dohr-michael/sheetchat/internal/dispatch"
	"github.com/dohr-michael/sheetchat/internal/gateway"
	"github.com/dohr-michael/sheetchat/internal/runs"
	"github.com/dohr-michael/sheetchat/internal/secrets"
	"github.com/dohr-michael/sheetchat/internal/session"
	"github.com/dohr-michael/sheetchat/internal/storage"
	"github.com/dohr-michael/sheetchat/internal/usage"
)

func setupLogging(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config file (defaults when missing) and applies CLI overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	configPath := cmd.String("config")
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}

	// CLI flags override config
	if s := strings.ToLower(strings.TrimSpace(cmd.String("poll-strategy"))); s != "" && s != cfg.Poll.Strategy {
		// Switching strategy also switches to that strategy's default interval.
		cfg.Poll.Strategy = s
		cfg.Poll.Interval = 0
	}
	if cmd.IsSet("max-wait") {
		d := cmd.Duration("max-wait")
		if d <= 0 {
			d = -1
		}
		cfg.Poll.MaxWait = config.Duration(d)
	}
	if cfg.Poll.Interval == 0 {
		opts, err := runs.OptionsFromConfig(config.PollConfig{Strategy: cfg.Poll.Strategy})
		if err != nil {
			return nil, err
		}
		cfg.Poll.Interval = config.Duration(opts.Interval)
	}
	if cmd.Bool("markdown") {
		cfg.Console.Markdown = true
	}
	if cmd.Bool("all-messages") {
		cfg.Console.Scope = string(dispatch.ScopeAll)
	}
	if cmd.Bool("keep-images") {
		keep := false
		cfg.Output.DeleteRemoteImages = &keep
	}
	return cfg, nil
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd.Bool("debug"))

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Provider.Model == "" {
		return fmt.Errorf("no model configured: set DEPLOYMENT_NAME or provider.model")
	}

	apiKey, err := gateway.ResolveAPIKey(cfg.Provider, secrets.KeyPath())
	if err != nil {
		return fmt.Errorf("resolve api key: %w", err)
	}
	gw, err := gateway.NewOpenAI(cfg.Provider, apiKey)
	if err != nil {
		return fmt.Errorf("init gateway: %w", err)
	}

	pollOpts, err := runs.OptionsFromConfig(cfg.Poll)
	if err != nil {
		return err
	}
	scope, err := dispatch.ParseScope(cfg.Console.Scope)
	if err != nil {
		return err
	}

	root := cmd.Root()
	out := console.New(root.Writer, console.Options{Markdown: cfg.Console.Markdown})
	tracker := usage.NewTracker()

	app := &chat.App{
		Sessions: session.NewManager(gw, out, session.Options{
			FontArchive:  cfg.Inputs.FontArchive,
			DataArchive:  cfg.Inputs.DataArchive,
			Name:         cfg.Assistant.Name,
			Model:        cfg.Provider.Model,
			Instructions: cfg.Assistant.Instructions,
			SeedMessage:  cfg.Assistant.SeedMessage,
		}),
		Loop: chat.NewLoop(root.Reader, out,
			runs.NewPoller(gw, pollOpts),
			dispatch.New(gw, storage.NewImageStore(cfg.Output.ImageDir), out, dispatch.Options{
				Scope:              scope,
				DeleteRemoteImages: cfg.Output.ShouldDeleteRemoteImages(),
			}),
			tracker,
		),
		Tracker: tracker,
		Out:     out,
	}

	slog.Debug("starting chat session",
		"driver", cfg.Provider.Driver, "model", cfg.Provider.Model,
		"poll_strategy", pollOpts.Strategy, "max_wait", pollOpts.MaxWait, "scope", scope)
	return app.Run(ctx)
}

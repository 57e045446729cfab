package commands

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sheetchat/internal/config"
)

// NewRootCommand returns the top-level CLI command.
// Without a subcommand it runs an interactive chat session.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "sheetchat",
		Usage: "Chat with an assistant that analyses your spreadsheets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging (includes the run poll trace)",
			},
			&cli.StringFlag{
				Name:    "poll-strategy",
				Usage:   "Run polling strategy: interval or blocking",
				Sources: cli.EnvVars("SHEETCHAT_POLL_STRATEGY"),
			},
			&cli.DurationFlag{
				Name:  "max-wait",
				Usage: "Give up waiting on a run after this long (0 = wait forever)",
				Value: 10 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "markdown",
				Usage: "Render assistant text as markdown",
			},
			&cli.BoolFlag{
				Name:  "all-messages",
				Usage: "Render every listed message instead of the newest one",
			},
			&cli.BoolFlag{
				Name:  "keep-images",
				Usage: "Keep generated images on the service after downloading them",
			},
		},
		Action: runChat,
		Commands: []*cli.Command{
			NewWakeCommand(),
			NewSecretCommand(),
		},
	}
}

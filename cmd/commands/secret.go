package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sheetchat/internal/config"
	"github.com/dohr-michael/sheetchat/internal/secrets"
)

// NewSecretCommand returns the secret management subcommand.
func NewSecretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Manage encrypted secrets in the sheetchat .env",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Encrypt a value with the local age key and store it in .env",
				ArgsUsage: "<KEY> <VALUE>",
				Action:    runSecretSet,
			},
		},
	}
}

func runSecretSet(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: sheetchat secret set <KEY> <VALUE>")
	}
	key, value := cmd.Args().Get(0), cmd.Args().Get(1)
	if key == "" || value == "" {
		return fmt.Errorf("key and value are required")
	}

	dotenvPath := config.DotenvPath()
	if err := secrets.Store(secrets.KeyPath(), dotenvPath, key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Stored %s (encrypted) in %s\n", key, dotenvPath)
	return nil
}

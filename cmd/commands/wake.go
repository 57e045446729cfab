package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/sheetchat/internal/config"
)

// NewWakeCommand returns the onboarding subcommand.
func NewWakeCommand() *cli.Command {
	return &cli.Command{
		Name:   "wake",
		Usage:  "Initialize the sheetchat home directory (~/.sheetchat)",
		Action: runWake,
	}
}

func runWake(_ context.Context, cmd *cli.Command) error {
	w := cmd.Root().Writer
	root := config.HomePath()
	created := false

	if _, err := os.Stat(root); err != nil {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", root, err)
		}
		fmt.Fprintf(w, "  Created %s\n", root)
		created = true
	}

	files := []struct {
		path    string
		content string
		perm    os.FileMode
	}{
		{config.ConfigPath(), defaultConfig, 0o644},
		{config.DotenvPath(), defaultDotenv, 0o600},
	}
	for _, f := range files {
		ok, err := writeIfMissing(w, f.path, f.content, f.perm)
		if err != nil {
			return err
		}
		created = created || ok
	}

	if !created {
		fmt.Fprintf(w, "Already set up: %s is complete. Nothing to do.\n", root)
		return nil
	}

	fmt.Fprintln(w, wakeMessage(root))
	return nil
}

func writeIfMissing(w io.Writer, path, content string, perm os.FileMode) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "  Created %s\n", path)
	return true, nil
}

const defaultConfig = `{
	// sheetchat configuration
	// Values left empty fall back to AZURE_OPENAI_ENDPOINT, API_VERSION and DEPLOYMENT_NAME.

	"provider": {
		// "azure" when an endpoint is set, "openai" otherwise
		// "driver": "azure",
		"endpoint": "${{ .Env.AZURE_OPENAI_ENDPOINT }}",
		"api_version": "${{ .Env.API_VERSION }}",
		"model": "${{ .Env.DEPLOYMENT_NAME }}",
		"timeout": "2m"
	},

	"inputs": {
		"font_archive": "input_files/Font.zip",
		"data_archive": "input_files/Excel.zip"
	},

	"output": {
		"image_dir": "output_images",
		"delete_remote_images": true
	},

	"poll": {
		// "interval" (trace every poll) or "blocking" (quiet, 1s polls)
		"strategy": "interval",
		"interval": "5s",
		"backoff": "fixed",
		"max_wait": "10m"
	},

	"console": {
		"markdown": false,
		"scope": "latest"
	}
}
`

const defaultDotenv = `# sheetchat environment variables
# This file is loaded automatically. Existing env vars are never overridden.
# Use "sheetchat secret set KEY VALUE" to store an encrypted value.

# AZURE_OPENAI_ENDPOINT=https://<resource>.openai.azure.com
# AZURE_OPENAI_API_KEY=...
# API_VERSION=2024-05-01-preview
# DEPLOYMENT_NAME=gpt-4o
# OPENAI_API_KEY=sk-...
`

func wakeMessage(root string) string {
	return fmt.Sprintf(`
  Home set up at %s

  Next steps:
    1. Put your endpoint and API key in %s/.env
    2. Tweak %s/config.jsonc if you need to
    3. Drop Font.zip and Excel.zip in ./input_files
    4. Run: sheetchat
`, root, root, root)
}

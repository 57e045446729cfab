// Package dispatch renders the content blocks of completed runs.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dohr-michael/sheetchat/internal/console"
	"github.com/dohr-michael/sheetchat/internal/gateway"
	"github.com/dohr-michael/sheetchat/internal/storage"
)

// Scope selects which listed messages are rendered.
type Scope string

const (
	// ScopeLatest renders the newest assistant message only.
	ScopeLatest Scope = "latest"
	// ScopeAll renders every listed message, in listing order.
	ScopeAll Scope = "all"
)

// ParseScope validates a scope name. Empty means ScopeLatest.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(s)); sc {
	case "", ScopeLatest:
		return ScopeLatest, nil
	case ScopeAll:
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("unknown message scope %q", s)
	}
}

// Options configures a Dispatcher.
type Options struct {
	Scope Scope
	// DeleteRemoteImages removes each image from the service once saved locally.
	DeleteRemoteImages bool
}

// Stats counts what one Dispatch call handled.
// Images counts files saved locally, including those whose remote copy
// could not be deleted (also counted in DeleteFailed).
type Stats struct {
	Text         int
	Images       int
	Failed       int
	DeleteFailed int
	Unhandled    int
}

// Dispatcher turns content blocks into console output and saved image files.
type Dispatcher struct {
	gw     gateway.Gateway
	images *storage.ImageStore
	out    *console.Console
	opts   Options
}

// New creates a Dispatcher.
func New(gw gateway.Gateway, images *storage.ImageStore, out *console.Console, opts Options) *Dispatcher {
	if opts.Scope == "" {
		opts.Scope = ScopeLatest
	}
	return &Dispatcher{gw: gw, images: images, out: out, opts: opts}
}

// Dispatch renders messages (newest first) according to the configured scope.
// A failure on one image never stops the remaining blocks.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []gateway.Message) Stats {
	var stats Stats
	if len(messages) == 0 {
		return stats
	}

	selected := messages
	if d.opts.Scope == ScopeLatest {
		selected = latestAssistant(messages)
	}

	for _, msg := range selected {
		for _, block := range msg.Content {
			d.block(ctx, block, &stats)
		}
	}
	return stats
}

func latestAssistant(messages []gateway.Message) []gateway.Message {
	for i, m := range messages {
		if m.Role == gateway.RoleAssistant {
			return messages[i : i+1]
		}
	}
	return nil
}

func (d *Dispatcher) block(ctx context.Context, block gateway.ContentBlock, stats *Stats) {
	switch block.Type {
	case gateway.BlockText:
		d.out.Text(block.Text)
		stats.Text++
	case gateway.BlockImageFile:
		if err := d.image(ctx, block.FileID); err != nil {
			slog.Warn("image dispatch failed", "file_id", block.FileID, "error", err)
			d.out.Error("Error retrieving image: %v", err)
			stats.Failed++
			return
		}
		stats.Images++
		if d.opts.DeleteRemoteImages {
			if err := d.gw.DeleteFile(ctx, block.FileID); err != nil {
				slog.Warn("remote image delete failed", "file_id", block.FileID, "error", err)
				d.out.Error("Failed to delete image file %s from the service: %v", block.FileID, err)
				stats.DeleteFailed++
				return
			}
			d.out.Success("Image file deleted successfully.")
		}
	default:
		d.out.Printf("Unhandled content type: %s", block.Type)
		stats.Unhandled++
	}
}

// image fetches fileID and saves it locally.
func (d *Dispatcher) image(ctx context.Context, fileID string) error {
	d.out.Printf("[Image file received: %s]", fileID)

	data, err := d.gw.GetFileContent(ctx, fileID)
	if err != nil {
		return err
	}

	name, err := d.images.Save(fileID, data)
	if err != nil {
		return err
	}
	d.out.Success("File saved as '%s'", name)
	return nil
}

// Package usage accumulates token usage reported by completed runs.
package usage

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dohr-michael/sheetchat/internal/gateway"
)

// Totals is the accumulated token usage of a session.
type Totals struct {
	Runs             int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func (t Totals) String() string {
	return fmt.Sprintf("%d runs, %d prompt + %d completion = %d tokens",
		t.Runs, t.PromptTokens, t.CompletionTokens, t.TotalTokens)
}

// Tracker accumulates token usage per session. In-memory only.
type Tracker struct {
	mu     sync.Mutex
	totals Totals
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds the usage of a finished run. Runs that report no tokens are ignored.
func (t *Tracker) Record(run gateway.Run) {
	u := run.Usage
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.totals.Runs++
	t.totals.PromptTokens += u.PromptTokens
	t.totals.CompletionTokens += u.CompletionTokens
	if u.TotalTokens > 0 {
		t.totals.TotalTokens += u.TotalTokens
	} else {
		t.totals.TotalTokens += u.PromptTokens + u.CompletionTokens
	}

	slog.Debug("usage recorded", "run_id", run.ID,
		"prompt_tokens", u.PromptTokens, "completion_tokens", u.CompletionTokens)
}

// Totals returns a snapshot of the accumulated usage.
func (t *Tracker) Totals() Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}

// Package runs submits user turns and polls the resulting runs to a terminal state.
package runs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dohr-michael/sheetchat/internal/gateway"
	"github.com/dohr-michael/sheetchat/internal/session"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	Completed Outcome = "completed"
	Failed    Outcome = "failed"
	Other     Outcome = "other"
	Timeout   Outcome = "timeout"
)

// Result is the terminal observation of a run.
// Messages is only filled for Completed, newest first.
type Result struct {
	Outcome  Outcome
	Run      gateway.Run
	Messages []gateway.Message
	Polls    int
}

// Poller drives one run at a time through queued/in_progress to a terminal status.
type Poller struct {
	gw   gateway.Gateway
	opts Options

	onPending func(gateway.Run)

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewPoller creates a Poller.
func NewPoller(gw gateway.Gateway, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOptions().Interval
	}
	return &Poller{
		gw:    gw,
		opts:  opts,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnPending registers fn to be called on every queued/in_progress poll of a
// traced strategy, before the thread trace is logged.
func (p *Poller) OnPending(fn func(gateway.Run)) { p.onPending = fn }

// Options returns the poller configuration.
func (p *Poller) Options() Options { return p.opts }

// Submit appends the user text to the thread, then starts a run on the session's assistant.
func (p *Poller) Submit(ctx context.Context, h *session.Handle, text string) (gateway.Run, error) {
	if !h.Ready() {
		return gateway.Run{}, fmt.Errorf("session not ready")
	}
	if err := p.gw.CreateMessage(ctx, h.ThreadID, gateway.RoleUser, text); err != nil {
		return gateway.Run{}, fmt.Errorf("create message: %w", err)
	}
	run, err := p.gw.CreateRun(ctx, h.ThreadID, h.AssistantID)
	if err != nil {
		return gateway.Run{}, fmt.Errorf("create run: %w", err)
	}
	slog.Debug("run created", "thread_id", h.ThreadID, "run_id", run.ID, "status", run.Status)
	return run, nil
}

// Wait polls run until it leaves queued/in_progress or the wait budget runs out.
// The first poll happens immediately.
func (p *Poller) Wait(ctx context.Context, h *session.Handle, run gateway.Run) (Result, error) {
	var deadline time.Time
	if p.opts.MaxWait > 0 {
		deadline = p.now().Add(p.opts.MaxWait)
	}
	delay := p.opts.Interval
	log := slog.With("thread_id", h.ThreadID, "run_id", run.ID)

	for polls := 1; ; polls++ {
		cur, err := p.gw.GetRun(ctx, h.ThreadID, run.ID)
		if err != nil {
			return Result{Run: run, Polls: polls}, fmt.Errorf("retrieve run: %w", err)
		}
		run = cur

		switch {
		case run.Status == gateway.RunCompleted:
			msgs, err := p.gw.ListMessages(ctx, h.ThreadID)
			if err != nil {
				return Result{Run: run, Polls: polls}, fmt.Errorf("list messages: %w", err)
			}
			return Result{Outcome: Completed, Run: run, Messages: msgs, Polls: polls}, nil

		case run.Status == gateway.RunFailed:
			return Result{Outcome: Failed, Run: run, Polls: polls}, nil

		case run.Status.Pending():
			if p.opts.traced() {
				if p.onPending != nil {
					p.onPending(run)
				}
				p.trace(ctx, log, h, run)
			}
			if !deadline.IsZero() && !p.now().Before(deadline) {
				log.Warn("run wait budget exhausted", "status", run.Status, "max_wait", p.opts.MaxWait)
				return Result{Outcome: Timeout, Run: run, Polls: polls}, nil
			}
			if err := p.sleep(ctx, delay); err != nil {
				return Result{Run: run, Polls: polls}, err
			}
			delay = p.opts.next(delay)

		default:
			return Result{Outcome: Other, Run: run, Polls: polls}, nil
		}
	}
}

// trace logs the current status and the thread's message list.
// A listing failure is logged and does not interrupt polling.
func (p *Poller) trace(ctx context.Context, log *slog.Logger, h *session.Handle, run gateway.Run) {
	msgs, err := p.gw.ListMessages(ctx, h.ThreadID)
	if err != nil {
		log.Debug("poll trace: list messages", "error", err)
		return
	}
	log.Debug("run status", "status", run.Status, "messages", len(msgs))
	for _, m := range msgs {
		log.Debug("thread message", "message_id", m.ID, "role", m.Role, "content", m.Content)
	}
}

// Turn submits text and waits for the run to finish.
func (p *Poller) Turn(ctx context.Context, h *session.Handle, text string) (Result, error) {
	run, err := p.Submit(ctx, h, text)
	if err != nil {
		return Result{}, err
	}
	return p.Wait(ctx, h, run)
}

// Package chat runs the interactive question/answer loop of a session.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dohr-michael/sheetchat/internal/console"
	"github.com/dohr-michael/sheetchat/internal/dispatch"
	"github.com/dohr-michael/sheetchat/internal/gateway"
	"github.com/dohr-michael/sheetchat/internal/runs"
	"github.com/dohr-michael/sheetchat/internal/session"
	"github.com/dohr-michael/sheetchat/internal/usage"
)

const (
	// Prompt is written before every user input.
	Prompt = "User: "
	// ExitCommand ends the loop, in any letter case.
	ExitCommand = "exit"
)

const maxLineSize = 1 << 20

// Loop reads user lines and turns each one into a run.
type Loop struct {
	in         io.Reader
	out        *console.Console
	poller     *runs.Poller
	dispatcher *dispatch.Dispatcher
	tracker    *usage.Tracker

	lines chan lineResult
	done  chan struct{}
	turns int
}

type lineResult struct {
	line string
	err  error
}

// NewLoop creates a Loop reading from in. Statuses seen while a run is
// pending are echoed on out when the poller traces.
func NewLoop(in io.Reader, out *console.Console, poller *runs.Poller, dispatcher *dispatch.Dispatcher, tracker *usage.Tracker) *Loop {
	poller.OnPending(func(run gateway.Run) {
		out.Muted("Run status: %s", run.Status)
	})
	return &Loop{
		in:         in,
		out:        out,
		poller:     poller,
		dispatcher: dispatcher,
		tracker:    tracker,
	}
}

// Turns returns the number of inputs forwarded to the assistant.
func (l *Loop) Turns() int { return l.turns }

// IsExit reports whether line is the exit command.
func IsExit(line string) bool {
	return strings.EqualFold(strings.TrimSuffix(line, "\r"), ExitCommand)
}

// Run prompts until the exit command, end of input, or ctx cancellation.
// Errors in a single turn are reported and the loop continues.
func (l *Loop) Run(ctx context.Context, h *session.Handle) error {
	l.out.Printf("Chat session started. Type '%s' to end the session.", ExitCommand)
	defer l.stopReading()

	for {
		l.out.Prompt(Prompt)

		line, err := l.readLine(ctx)
		if errors.Is(err, io.EOF) {
			l.out.Println("")
			l.out.Println("Ending session...")
			return nil
		}
		if err != nil {
			l.out.Println("")
			return err
		}

		if IsExit(line) {
			l.out.Println("Ending session...")
			return nil
		}

		l.turns++
		if err := l.turn(ctx, h, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("turn failed", "thread_id", h.ThreadID, "error", err)
			l.out.Error("An error occurred: %v", err)
		}
	}
}

// readLine returns the next input line. The scanner runs in its own goroutine
// so that cancelling ctx interrupts a blocked prompt.
func (l *Loop) readLine(ctx context.Context) (string, error) {
	if l.lines == nil {
		l.lines = make(chan lineResult)
		l.done = make(chan struct{})
		go scanLines(l.in, l.lines, l.done)
	}

	select {
	case r, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// stopReading releases the scanner goroutine. Unread input is dropped.
func (l *Loop) stopReading() {
	if l.done != nil {
		close(l.done)
		l.lines, l.done = nil, nil
	}
}

// scanLines feeds lines until input ends or done is closed.
// A read blocked inside in is only released by in returning.
func scanLines(in io.Reader, lines chan<- lineResult, done <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case lines <- lineResult{line: scanner.Text()}:
		case <-done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case lines <- lineResult{err: fmt.Errorf("read input: %w", err)}:
		case <-done:
		}
	}
}

func (l *Loop) turn(ctx context.Context, h *session.Handle, text string) error {
	l.out.Println("")
	l.out.Muted("Waiting for response...")

	res, err := l.poller.Turn(ctx, h, text)
	if err != nil {
		return err
	}

	l.out.Println("")
	l.out.Muted("Run status: %s", res.Run.Status)

	switch res.Outcome {
	case runs.Completed:
		l.tracker.Record(res.Run)
		l.out.AssistantLabel()
		stats := l.dispatcher.Dispatch(ctx, res.Messages)
		slog.Debug("turn dispatched", "run_id", res.Run.ID,
			"text", stats.Text, "images", stats.Images, "failed", stats.Failed,
			"delete_failed", stats.DeleteFailed, "unhandled", stats.Unhandled)
	case runs.Failed:
		l.tracker.Record(res.Run)
		if e := res.Run.LastError; e != nil {
			l.out.Error("Error Code: %s, Message: %s", e.Code, e.Message)
		}
	case runs.Timeout:
		l.out.Error("Run %s still %s after %s; giving up on this turn.",
			res.Run.ID, res.Run.Status, l.poller.Options().MaxWait)
	default:
		slog.Info("run ended without completion", "run_id", res.Run.ID, "status", res.Run.Status)
	}
	return nil
}

package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dohr-michael/sheetchat/internal/console"
	"github.com/dohr-michael/sheetchat/internal/dispatch"
	"github.com/dohr-michael/sheetchat/internal/gateway"
	"github.com/dohr-michael/sheetchat/internal/gateway/gatewaytest"
	"github.com/dohr-michael/sheetchat/internal/runs"
	"github.com/dohr-michael/sheetchat/internal/session"
	"github.com/dohr-michael/sheetchat/internal/storage"
	"github.com/dohr-michael/sheetchat/internal/usage"
)

type harness struct {
	fake    *gatewaytest.Fake
	out     *bytes.Buffer
	loop    *Loop
	tracker *usage.Tracker
	images  string
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	opts := runs.DefaultOptions()
	opts.Interval = time.Millisecond
	return newHarnessWith(t, input, opts)
}

func newHarnessWith(t *testing.T, input string, opts runs.Options) *harness {
	t.Helper()
	fake := gatewaytest.New()
	var buf bytes.Buffer
	out := console.New(&buf, console.Options{})
	poller := runs.NewPoller(fake, opts)

	images := filepath.Join(t.TempDir(), "output_images")
	d := dispatch.New(fake, storage.NewImageStore(images), out, dispatch.Options{DeleteRemoteImages: true})
	tracker := usage.NewTracker()

	return &harness{
		fake:    fake,
		out:     &buf,
		loop:    NewLoop(strings.NewReader(input), out, poller, d, tracker),
		tracker: tracker,
		images:  images,
	}
}

func readyHandle() *session.Handle {
	return &session.Handle{ID: "sess-1", AssistantID: "asst_1", ThreadID: "thread_1"}
}

func countMethod(fake *gatewaytest.Fake, method string) int {
	n := 0
	for _, m := range fake.Methods() {
		if m == method {
			n++
		}
	}
	return n
}

func TestIsExit(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"exit", true},
		{"EXIT", true},
		{"Exit", true},
		{"exit\r", true},
		{" exit", false},
		{"exit now", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsExit(tt.in); got != tt.want {
			t.Errorf("IsExit(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoop_ExitSubmitsNothing(t *testing.T) {
	for _, input := range []string{"exit\n", "EXIT\n", "ExIt\nnever read\n"} {
		h := newHarness(t, input)
		if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
			t.Fatalf("Run(%q): %v", input, err)
		}
		if calls := h.fake.Calls(); len(calls) != 0 {
			t.Errorf("Run(%q): expected no gateway calls, got %v", input, calls)
		}
		if !strings.Contains(h.out.String(), "Ending session...") {
			t.Errorf("Run(%q): missing end line:\n%s", input, h.out.String())
		}
	}
}

func TestLoop_EOFEndsSession(t *testing.T) {
	h := newHarness(t, "")
	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(h.out.String(), "Ending session...\n") {
		t.Errorf("output = %q", h.out.String())
	}
}

func TestLoop_OneRunPerInput(t *testing.T) {
	h := newHarness(t, "first question\n\nthird question\nexit\n")
	h.fake.RunStatuses = []gateway.RunStatus{gateway.RunCompleted}

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := countMethod(h.fake, "CreateRun"); got != 3 {
		t.Errorf("CreateRun calls = %d, want 3", got)
	}
	if h.loop.Turns() != 3 {
		t.Errorf("Turns() = %d, want 3", h.loop.Turns())
	}

	var contents []string
	for _, c := range h.fake.Calls() {
		if c.Method == "CreateMessage" {
			contents = append(contents, c.Args[2])
		}
	}
	if diff := cmp.Diff([]string{"first question", "", "third question"}, contents); diff != "" {
		t.Errorf("forwarded inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestLoop_CompletedDispatches(t *testing.T) {
	h := newHarness(t, "chart please\nexit\n")
	h.fake.RunStatuses = []gateway.RunStatus{gateway.RunInProgress, gateway.RunCompleted}
	h.fake.RunUsage = gateway.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}
	h.fake.Messages = []gateway.Message{{
		ID:   "msg_2",
		Role: gateway.RoleAssistant,
		Content: []gateway.ContentBlock{
			{Type: gateway.BlockText, Text: "Here is the chart"},
			{Type: gateway.BlockImageFile, FileID: "file-img"},
		},
	}}
	h.fake.Files["file-img"] = []byte("png")

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.out.String()
	wantOrder := []string{
		"Waiting for response...",
		"Run status: completed",
		"Assistant:",
		"Here is the chart",
		"[Image file received: file-img]",
		"File saved as 'file-img.png'",
		"Image file deleted successfully.",
		"Ending session...",
	}
	pos := 0
	for _, s := range wantOrder {
		i := strings.Index(out[pos:], s)
		if i < 0 {
			t.Fatalf("missing %q after offset %d in:\n%s", s, pos, out)
		}
		pos += i + len(s)
	}

	if _, err := os.Stat(filepath.Join(h.images, "file-img.png")); err != nil {
		t.Errorf("image not saved: %v", err)
	}
	if got := h.tracker.Totals().TotalTokens; got != 12 {
		t.Errorf("tracked tokens = %d, want 12", got)
	}
}

func TestLoop_FailedRunReportsErrorWithoutDispatch(t *testing.T) {
	h := newHarness(t, "hello\nexit\n")
	h.fake.RunStatuses = []gateway.RunStatus{gateway.RunFailed}
	h.fake.RunError = &gateway.RunError{Code: "rate_limit_exceeded", Message: "Too Many Requests"}
	h.fake.Messages = []gateway.Message{{Content: []gateway.ContentBlock{{Type: gateway.BlockText, Text: "should not print"}}}}

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.out.String()
	if !strings.Contains(out, "Run status: failed\n") {
		t.Errorf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "Error Code: rate_limit_exceeded, Message: Too Many Requests\n") {
		t.Errorf("missing error line:\n%s", out)
	}
	if strings.Contains(out, "Assistant:") || strings.Contains(out, "should not print") {
		t.Errorf("failed run must not dispatch:\n%s", out)
	}
	if got := countMethod(h.fake, "ListMessages"); got != 0 {
		t.Errorf("ListMessages calls = %d, want 0", got)
	}
}

func TestLoop_OtherStatusNoDispatch(t *testing.T) {
	h := newHarness(t, "hello\nexit\n")
	h.fake.RunStatuses = []gateway.RunStatus{gateway.RunCancelled}

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := h.out.String()
	if !strings.Contains(out, "Run status: cancelled") {
		t.Errorf("missing status:\n%s", out)
	}
	if strings.Contains(out, "Assistant:") || strings.Contains(out, "Error Code") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestLoop_TurnErrorContinues(t *testing.T) {
	h := newHarness(t, "one\ntwo\nexit\n")
	h.fake.ErrorsFor["CreateMessage:thread_1"] = errors.New("service unavailable")

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := countMethod(h.fake, "CreateMessage"); got != 2 {
		t.Errorf("CreateMessage calls = %d, want 2 (loop should continue)", got)
	}
	if got := strings.Count(h.out.String(), "An error occurred: "); got != 2 {
		t.Errorf("error lines = %d, want 2:\n%s", got, h.out.String())
	}
}

func TestLoop_ContextCancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	h := newHarness(t, "")
	h.loop.in = pr

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.loop.Run(ctx, readyHandle())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoop_ReportsPendingStatuses(t *testing.T) {
	h := newHarness(t, "hello\nexit\n")
	h.fake.RunStatuses = []gateway.RunStatus{gateway.RunQueued, gateway.RunInProgress, gateway.RunCompleted}

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.out.String()
	pos := 0
	for _, s := range []string{"Run status: queued", "Run status: in_progress", "Run status: completed"} {
		i := strings.Index(out[pos:], s)
		if i < 0 {
			t.Fatalf("missing %q after offset %d in:\n%s", s, pos, out)
		}
		pos += i + len(s)
	}
}

func TestLoop_TimeoutNoDispatch(t *testing.T) {
	opts := runs.DefaultOptions()
	opts.Interval = time.Millisecond
	opts.MaxWait = 20 * time.Millisecond
	h := newHarnessWith(t, "slow question\nexit\n", opts)
	h.fake.RunStatuses = []gateway.RunStatus{gateway.RunInProgress}
	h.fake.Messages = []gateway.Message{{
		ID:      "msg_1",
		Role:    gateway.RoleAssistant,
		Content: []gateway.ContentBlock{{Type: gateway.BlockText, Text: "should not print"}},
	}}

	if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := h.out.String()
	if !strings.Contains(out, "Run run_1 still in_progress after 20ms; giving up on this turn.\n") {
		t.Errorf("missing timeout line:\n%s", out)
	}
	if strings.Contains(out, "Assistant:") || strings.Contains(out, "should not print") {
		t.Errorf("timed out run must not dispatch:\n%s", out)
	}
	if !strings.HasSuffix(out, "Ending session...\n") {
		t.Errorf("loop did not continue to exit:\n%s", out)
	}
	if got := h.tracker.Totals().Runs; got != 0 {
		t.Errorf("tracked runs = %d, want 0", got)
	}
}

func TestLoop_ExitReleasesReader(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		h := newHarness(t, "exit\nleftover\nmore input\n")
		if err := h.loop.Run(context.Background(), readyHandle()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if after := runtime.NumGoroutine(); after > before {
		t.Errorf("goroutines = %d after exit, want <= %d", after, before)
	}
}

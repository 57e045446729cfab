// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dohr-michael/sheetchat/internal/gateway"
)

// Call is one recorded gateway invocation.
type Call struct {
	Method string
	Args   []string
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Method, c.Args)
}

// Fake records every call and serves scripted responses.
// Ids are allocated sequentially per kind: file_1, asst_1, thread_1, run_1.
type Fake struct {
	mu sync.Mutex

	calls    []Call
	counters map[string]int

	// Errors maps a method name to the error it returns.
	Errors map[string]error
	// ErrorsFor maps "Method:id" to an error, for per-resource failures.
	ErrorsFor map[string]error

	// RunStatuses is the sequence of statuses returned by successive GetRun calls.
	// The last entry repeats once exhausted.
	RunStatuses []gateway.RunStatus
	RunError    *gateway.RunError
	RunUsage    gateway.Usage

	Messages []gateway.Message
	Files    map[string][]byte

	Uploads    map[string]string
	Assistants []gateway.AssistantConfig
	Threads    []gateway.ThreadSeed

	runPolls int
}

var _ gateway.Gateway = (*Fake)(nil)

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		counters:  map[string]int{},
		Errors:    map[string]error{},
		ErrorsFor: map[string]error{},
		Files:     map[string][]byte{},
		Uploads:   map[string]string{},
	}
}

// Calls returns a copy of the call log.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Methods returns the method names of the call log, in order.
func (f *Fake) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Method)
	}
	return out
}

// RunPolls returns how many times GetRun was called.
func (f *Fake) RunPolls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runPolls
}

func (f *Fake) record(method string, args ...string) error {
	f.calls = append(f.calls, Call{Method: method, Args: args})
	if err := f.Errors[method]; err != nil {
		return err
	}
	if len(args) > 0 {
		if err := f.ErrorsFor[method+":"+args[0]]; err != nil {
			return err
		}
	}
	return nil
}

func (f *Fake) nextID(prefix string) string {
	f.counters[prefix]++
	return fmt.Sprintf("%s_%d", prefix, f.counters[prefix])
}

func (f *Fake) UploadFile(_ context.Context, name string, r io.Reader, purpose gateway.Purpose) (gateway.UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UploadFile", name); err != nil {
		return gateway.UploadedFile{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return gateway.UploadedFile{}, err
	}
	id := f.nextID("file")
	f.Uploads[id] = string(data)
	return gateway.UploadedFile{ID: id, Purpose: purpose, SourcePath: name}, nil
}

func (f *Fake) CreateAssistant(_ context.Context, cfg gateway.AssistantConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateAssistant", cfg.Name); err != nil {
		return "", err
	}
	f.Assistants = append(f.Assistants, cfg)
	return f.nextID("asst"), nil
}

func (f *Fake) CreateThread(_ context.Context, seed gateway.ThreadSeed) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateThread"); err != nil {
		return "", err
	}
	f.Threads = append(f.Threads, seed)
	return f.nextID("thread"), nil
}

func (f *Fake) CreateMessage(_ context.Context, threadID string, role gateway.Role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("CreateMessage", threadID, string(role), content)
}

func (f *Fake) CreateRun(_ context.Context, threadID, assistantID string) (gateway.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateRun", threadID, assistantID); err != nil {
		return gateway.Run{}, err
	}
	f.runPolls = 0
	return gateway.Run{
		ID:          f.nextID("run"),
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      gateway.RunQueued,
	}, nil
}

func (f *Fake) GetRun(_ context.Context, threadID, runID string) (gateway.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetRun", threadID, runID); err != nil {
		return gateway.Run{}, err
	}
	status := gateway.RunCompleted
	if n := len(f.RunStatuses); n > 0 {
		idx := f.runPolls
		if idx >= n {
			idx = n - 1
		}
		status = f.RunStatuses[idx]
	}
	f.runPolls++

	run := gateway.Run{ID: runID, ThreadID: threadID, Status: status}
	if !status.Pending() {
		run.LastError = f.RunError
		run.Usage = f.RunUsage
	}
	return run, nil
}

func (f *Fake) ListMessages(_ context.Context, threadID string) ([]gateway.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListMessages", threadID); err != nil {
		return nil, err
	}
	out := make([]gateway.Message, len(f.Messages))
	copy(out, f.Messages)
	return out, nil
}

func (f *Fake) GetFileContent(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetFileContent", fileID); err != nil {
		return nil, err
	}
	data, ok := f.Files[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: file %s", gateway.ErrNotFound, fileID)
	}
	return data, nil
}

func (f *Fake) DeleteFile(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("DeleteFile", fileID)
}

func (f *Fake) DeleteAssistant(_ context.Context, assistantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("DeleteAssistant", assistantID)
}

func (f *Fake) DeleteThread(_ context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("DeleteThread", threadID)
}

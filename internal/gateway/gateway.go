// Package gateway is the boundary to the hosted Assistants API: file uploads,
// assistants, threads, messages, runs and their teardown.
package gateway

import (
	"context"
	"io"
)

// Purpose is the intended use of an uploaded file.
type Purpose string

const PurposeAssistants Purpose = "assistants"

// Tool is a capability enabled on an assistant or an attachment.
type Tool string

const ToolCodeInterpreter Tool = "code_interpreter"

// Role identifies the author of a thread message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// UploadedFile is a file stored by the service.
type UploadedFile struct {
	ID         string
	Purpose    Purpose
	SourcePath string
}

// AssistantConfig describes the assistant to create.
type AssistantConfig struct {
	Name         string
	Model        string
	Instructions string
	Tools        []Tool
	FileIDs      []string // exposed to the code interpreter
	Metadata     map[string]any
}

// Attachment references an uploaded file from a message.
type Attachment struct {
	FileID string
	Tools  []Tool
}

// ThreadSeed is the initial user message of a new thread.
type ThreadSeed struct {
	Content     string
	Attachments []Attachment
	Metadata    map[string]any
}

// RunStatus is the lifecycle state reported for a run.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Pending reports whether the run has not reached a terminal status yet.
func (s RunStatus) Pending() bool {
	return s == RunQueued || s == RunInProgress
}

// RunError is the last error reported for a failed run.
type RunError struct {
	Code    string
	Message string
}

// Usage is the token consumption of a run.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Run is one execution of the assistant against a thread.
type Run struct {
	ID          string
	ThreadID    string
	AssistantID string
	Status      RunStatus
	LastError   *RunError
	Usage       Usage
}

// Content block types.
const (
	BlockText      = "text"
	BlockImageFile = "image_file"
)

// ContentBlock is one unit of a message payload. Type selects which field is set:
// Text for "text", FileID for "image_file"; other types carry only Type.
type ContentBlock struct {
	Type   string
	Text   string
	FileID string
}

// Message is a single thread message.
type Message struct {
	ID      string
	Role    Role
	Content []ContentBlock
}

// Gateway is the remote surface consumed by a chat session.
type Gateway interface {
	UploadFile(ctx context.Context, name string, r io.Reader, purpose Purpose) (UploadedFile, error)
	CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error)
	CreateThread(ctx context.Context, seed ThreadSeed) (string, error)
	CreateMessage(ctx context.Context, threadID string, role Role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	// ListMessages returns the thread's messages, newest first.
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
	GetFileContent(ctx context.Context, fileID string) ([]byte, error)
	DeleteFile(ctx context.Context, fileID string) error
	DeleteAssistant(ctx context.Context, assistantID string) error
	DeleteThread(ctx context.Context, threadID string) error
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dohr-michael/sheetchat/internal/console"
	"github.com/dohr-michael/sheetchat/internal/gateway"
)

// Options configures the resources created by Setup.
type Options struct {
	FontArchive  string
	DataArchive  string
	Name         string
	Model        string
	Instructions string
	SeedMessage  string
}

// Manager creates and deletes the remote resources of a session.
type Manager struct {
	gw   gateway.Gateway
	out  *console.Console
	opts Options

	// newID generates session ids; replaced in tests.
	newID func() string
}

// NewManager creates a Manager.
func NewManager(gw gateway.Gateway, out *console.Console, opts Options) *Manager {
	return &Manager{
		gw:    gw,
		out:   out,
		opts:  opts,
		newID: func() string { return uuid.New().String() },
	}
}

// Setup uploads the font archive, creates the assistant, uploads the data archive
// and creates the seeded thread, strictly in that order. The first failure stops
// setup; the partially filled handle is returned with the error so the caller can
// tear down whatever was created.
func (m *Manager) Setup(ctx context.Context) (*Handle, error) {
	h := &Handle{ID: m.newID()}
	metadata := map[string]any{MetadataKey: h.ID}
	log := slog.With("session_id", h.ID)

	font, err := m.upload(ctx, m.opts.FontArchive)
	if err != nil {
		return h, fmt.Errorf("upload font archive: %w", err)
	}
	h.FontFile = font
	m.out.Success("Font file uploaded successfully. File ID: %s", font.ID)
	log.Debug("font archive uploaded", "file_id", font.ID, "path", font.SourcePath)

	assistantID, err := m.gw.CreateAssistant(ctx, gateway.AssistantConfig{
		Name:         m.opts.Name,
		Model:        m.opts.Model,
		Instructions: m.opts.Instructions,
		Tools:        []gateway.Tool{gateway.ToolCodeInterpreter},
		FileIDs:      []string{font.ID},
		Metadata:     metadata,
	})
	if err != nil {
		return h, fmt.Errorf("create assistant: %w", err)
	}
	h.AssistantID = assistantID
	m.out.Success("Assistant created successfully. Assistant ID: %s", assistantID)

	excel, err := m.upload(ctx, m.opts.DataArchive)
	if err != nil {
		return h, fmt.Errorf("upload data archive: %w", err)
	}
	h.ExcelFile = excel
	m.out.Success("Excel file uploaded successfully. File ID: %s", excel.ID)
	log.Debug("data archive uploaded", "file_id", excel.ID, "path", excel.SourcePath)

	threadID, err := m.gw.CreateThread(ctx, gateway.ThreadSeed{
		Content: m.opts.SeedMessage,
		Attachments: []gateway.Attachment{
			{FileID: font.ID, Tools: []gateway.Tool{gateway.ToolCodeInterpreter}},
			{FileID: excel.ID, Tools: []gateway.Tool{gateway.ToolCodeInterpreter}},
		},
		Metadata: metadata,
	})
	if err != nil {
		return h, fmt.Errorf("create thread: %w", err)
	}
	h.ThreadID = threadID
	m.out.Success("Thread created successfully. Thread ID: %s", threadID)

	log.Info("session ready", "assistant_id", h.AssistantID, "thread_id", h.ThreadID)
	return h, nil
}

func (m *Manager) upload(ctx context.Context, path string) (gateway.UploadedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return gateway.UploadedFile{}, err
	}
	defer f.Close()

	uploaded, err := m.gw.UploadFile(ctx, filepath.Base(path), f, gateway.PurposeAssistants)
	if err != nil {
		return gateway.UploadedFile{}, err
	}
	uploaded.SourcePath = path
	return uploaded, nil
}

// Teardown deletes the thread, the data file, the assistant and the font file,
// in that order. Every deletion is attempted independently; failures are
// reported and joined into the returned error. Resources never created are skipped.
func (m *Manager) Teardown(ctx context.Context, h *Handle) error {
	if h.Empty() {
		return nil
	}
	log := slog.With("session_id", h.ID)

	steps := []struct {
		id    string
		label string
		del   func(context.Context, string) error
	}{
		{h.ThreadID, "Thread", m.gw.DeleteThread},
		{h.ExcelFile.ID, "Excel file", m.gw.DeleteFile},
		{h.AssistantID, "Assistant", m.gw.DeleteAssistant},
		{h.FontFile.ID, "Font file", m.gw.DeleteFile},
	}

	var errs []error
	for _, s := range steps {
		if s.id == "" {
			continue
		}
		if err := s.del(ctx, s.id); err != nil {
			log.Error("teardown: delete failed", "resource", s.label, "id", s.id, "error", err)
			m.out.Error("Failed to delete %s %s: %v", s.label, s.id, err)
			errs = append(errs, fmt.Errorf("delete %s %s: %w", s.label, s.id, err))
			continue
		}
		m.out.Success("%s deleted successfully.", s.label)
	}
	return errors.Join(errs...)
}

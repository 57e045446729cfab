// Package session brackets a chat session: it creates the remote resources
// (two uploaded archives, an assistant, a thread) and tears them down again.
package session

import "github.com/dohr-michael/sheetchat/internal/gateway"

// MetadataKey tags every remote resource created for a session.
const MetadataKey = "sheetchat_session"

// Handle holds the identifiers of every remote resource created for one session.
// It is passed explicitly through setup, each turn, and teardown.
// A zero field means the resource was never created.
type Handle struct {
	ID          string
	FontFile    gateway.UploadedFile
	ExcelFile   gateway.UploadedFile
	AssistantID string
	ThreadID    string
}

// Ready reports whether setup completed and turns can be submitted.
func (h *Handle) Ready() bool {
	return h != nil && h.AssistantID != "" && h.ThreadID != ""
}

// Empty reports whether no remote resource was created.
func (h *Handle) Empty() bool {
	return h == nil || (h.FontFile.ID == "" && h.ExcelFile.ID == "" && h.AssistantID == "" && h.ThreadID == "")
}

package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/dohr-michael/sheetchat/internal/config"
)

const assistantsAPIVersion = "v2"

// OpenAI implements Gateway over the go-openai client, against either
// Azure OpenAI or api.openai.com.
type OpenAI struct {
	client *openai.Client
}

var _ Gateway = (*OpenAI)(nil)

// NewOpenAI creates a gateway for the configured provider.
func NewOpenAI(cfg config.ProviderConfig, apiKey string) (*OpenAI, error) {
	var clientConfig openai.ClientConfig

	switch strings.ToLower(cfg.Driver) {
	case "azure":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("azure driver requires an endpoint (AZURE_OPENAI_ENDPOINT)")
		}
		clientConfig = openai.DefaultAzureConfig(apiKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			clientConfig.APIVersion = cfg.APIVersion
		}
	case "openai":
		clientConfig = openai.DefaultConfig(apiKey)
		if cfg.Endpoint != "" {
			clientConfig.BaseURL = cfg.Endpoint
		}
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}

	clientConfig.AssistantVersion = assistantsAPIVersion
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout.Duration()}

	return &OpenAI{client: openai.NewClientWithConfig(clientConfig)}, nil
}

func (g *OpenAI) UploadFile(ctx context.Context, name string, r io.Reader, purpose Purpose) (UploadedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("read %s: %w", name, err)
	}
	file, err := g.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    name,
		Bytes:   data,
		Purpose: openai.PurposeType(purpose),
	})
	if err != nil {
		return UploadedFile{}, HandleError(err)
	}
	return UploadedFile{ID: file.ID, Purpose: purpose, SourcePath: name}, nil
}

func (g *OpenAI) CreateAssistant(ctx context.Context, cfg AssistantConfig) (string, error) {
	req := openai.AssistantRequest{
		Model:        cfg.Model,
		Name:         &cfg.Name,
		Instructions: &cfg.Instructions,
		Tools:        make([]openai.AssistantTool, 0, len(cfg.Tools)),
		Metadata:     cfg.Metadata,
	}
	for _, t := range cfg.Tools {
		req.Tools = append(req.Tools, openai.AssistantTool{Type: openai.AssistantToolType(t)})
	}
	if len(cfg.FileIDs) > 0 {
		req.ToolResources = &openai.AssistantToolResource{
			CodeInterpreter: &openai.AssistantToolCodeInterpreter{FileIDs: cfg.FileIDs},
		}
	}

	assistant, err := g.client.CreateAssistant(ctx, req)
	if err != nil {
		return "", HandleError(err)
	}
	return assistant.ID, nil
}

func (g *OpenAI) CreateThread(ctx context.Context, seed ThreadSeed) (string, error) {
	msg := openai.ThreadMessage{
		Role:    openai.ThreadMessageRoleUser,
		Content: seed.Content,
	}
	for _, a := range seed.Attachments {
		att := openai.ThreadAttachment{FileID: a.FileID, Tools: make([]openai.ThreadAttachmentTool, 0, len(a.Tools))}
		for _, t := range a.Tools {
			att.Tools = append(att.Tools, openai.ThreadAttachmentTool{Type: string(t)})
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	thread, err := g.client.CreateThread(ctx, openai.ThreadRequest{
		Messages: []openai.ThreadMessage{msg},
		Metadata: seed.Metadata,
	})
	if err != nil {
		return "", HandleError(err)
	}
	return thread.ID, nil
}

func (g *OpenAI) CreateMessage(ctx context.Context, threadID string, role Role, content string) error {
	_, err := g.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(role),
		Content: content,
	})
	return HandleError(err)
}

func (g *OpenAI) CreateRun(ctx context.Context, threadID, assistantID string) (Run, error) {
	run, err := g.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return Run{}, HandleError(err)
	}
	return fromOpenAIRun(run), nil
}

func (g *OpenAI) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	run, err := g.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return Run{}, HandleError(err)
	}
	return fromOpenAIRun(run), nil
}

func (g *OpenAI) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	list, err := g.client.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, HandleError(err)
	}
	out := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		out = append(out, fromOpenAIMessage(m))
	}
	return out, nil
}

func (g *OpenAI) GetFileContent(ctx context.Context, fileID string) ([]byte, error) {
	raw, err := g.client.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, HandleError(err)
	}
	defer raw.Close()

	data, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

func (g *OpenAI) DeleteFile(ctx context.Context, fileID string) error {
	return HandleError(g.client.DeleteFile(ctx, fileID))
}

func (g *OpenAI) DeleteAssistant(ctx context.Context, assistantID string) error {
	_, err := g.client.DeleteAssistant(ctx, assistantID)
	return HandleError(err)
}

func (g *OpenAI) DeleteThread(ctx context.Context, threadID string) error {
	_, err := g.client.DeleteThread(ctx, threadID)
	return HandleError(err)
}

func fromOpenAIRun(r openai.Run) Run {
	run := Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      RunStatus(r.Status),
		Usage: Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		},
	}
	if r.LastError != nil {
		run.LastError = &RunError{Code: string(r.LastError.Code), Message: r.LastError.Message}
	}
	return run
}

func fromOpenAIMessage(m openai.Message) Message {
	msg := Message{ID: m.ID, Role: Role(m.Role)}
	for _, c := range m.Content {
		block := ContentBlock{Type: c.Type}
		switch {
		case c.Type == BlockText && c.Text != nil:
			block.Text = c.Text.Value
		case c.Type == BlockImageFile && c.ImageFile != nil:
			block.FileID = c.ImageFile.FileID
		}
		msg.Content = append(msg.Content, block)
	}
	return msg
}

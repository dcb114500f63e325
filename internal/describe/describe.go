// Package describe uploads images to a generative model and asks for a
// description through a scripted conversation.
package describe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
)

const (
	DefaultModel     = "gemini-1.5-pro"
	DefaultMIMEType  = "image/jpeg"
	ResponseMIMEText = "text/plain"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// FileRef is the remote handle returned after an upload.
type FileRef struct {
	Name        string
	DisplayName string
	MIMEType    string
	URI         string
}

// Part is either text or an uploaded file.
type Part struct {
	Text string
	File *FileRef
}

type Turn struct {
	Role  Role
	Parts []Part
}

type GenerationConfig struct {
	Temperature      float32 `yaml:"temperature"`
	TopP             float32 `yaml:"top_p"`
	TopK             int32   `yaml:"top_k"`
	MaxOutputTokens  int32   `yaml:"max_output_tokens"`
	ResponseMIMEType string  `yaml:"response_mime_type"`
}

func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:      1,
		TopP:             0.95,
		TopK:             64,
		MaxOutputTokens:  8192,
		ResponseMIMEType: ResponseMIMEText,
	}
}

// Service is the remote generative model.
type Service interface {
	UploadFile(ctx context.Context, path, mimeType string) (FileRef, error)
	StartChat(cfg GenerationConfig, history []Turn) ChatSession
}

// ChatSession is a conversation seeded with history.
type ChatSession interface {
	SendMessage(ctx context.Context, text string) (string, error)
}

// Client runs one scripted description. Its dependencies are passed in so
// nothing is shared between runs.
type Client struct {
	service Service
	fixture *Fixture
	out     io.Writer
}

func NewClient(service Service, fixture *Fixture, out io.Writer) *Client {
	return &Client{
		service: service,
		fixture: fixture,
		out:     out,
	}
}

// Upload sends one local file to the service.
func (c *Client) Upload(ctx context.Context, path, mimeType string) (FileRef, error) {
	if mimeType == "" {
		mimeType = GuessMIMEType(path)
	}
	ref, err := c.service.UploadFile(ctx, path, mimeType)
	if err != nil {
		return FileRef{}, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	slog.Info(fmt.Sprintf("Uploaded file %s as: %s", ref.DisplayName, ref.Name), "uri", ref.URI, "mime_type", ref.MIMEType)
	return ref, nil
}

// StartSession builds the history from uploaded files and opens a chat.
func (c *Client) StartSession(files []FileRef) (ChatSession, []Turn, error) {
	history, err := c.fixture.BuildHistory(files)
	if err != nil {
		return nil, nil, err
	}
	return c.service.StartChat(c.fixture.Generation, history), history, nil
}

// Run uploads inputs one after another, sends the fixture's final message and
// prints the reply. With no inputs the fixture's own file list is used.
func (c *Client) Run(ctx context.Context, inputs []FileInput) (string, error) {
	if len(inputs) == 0 {
		inputs = c.fixture.Files
	}

	files := make([]FileRef, 0, len(inputs))
	for _, in := range inputs {
		ref, err := c.Upload(ctx, in.Path, in.MIMEType)
		if err != nil {
			return "", err
		}
		files = append(files, ref)
	}

	session, history, err := c.StartSession(files)
	if err != nil {
		return "", err
	}
	slog.Debug("Chat session started", "history_turns", len(history), "files", len(files))

	reply, err := session.SendMessage(ctx, c.fixture.Message)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if reply == "" {
		return "", fmt.Errorf("empty reply from model")
	}

	if _, err := fmt.Fprintln(c.out, reply); err != nil {
		return "", fmt.Errorf("failed to print reply: %w", err)
	}
	return reply, nil
}

// GuessMIMEType maps a file extension to a MIME type, defaulting to JPEG.
func GuessMIMEType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return DefaultMIMEType
}

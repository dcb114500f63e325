package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/snapscribe/snapscribe/internal/describe"
)

var _ describe.Service = (*Gemini)(nil)

// Gemini is a describe.Service backed by Google Gemini.
type Gemini struct {
	client    *genai.Client
	modelName string

	uploaded []string
}

// New returns a new Gemini service. Close it when done.
func New(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	if modelName == "" {
		modelName = describe.DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	return &Gemini{client: client, modelName: modelName}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// UploadFile uploads a local file, using its path as display name.
func (g *Gemini) UploadFile(ctx context.Context, path, mimeType string) (describe.FileRef, error) {
	file, err := g.client.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{
		DisplayName: path,
		MIMEType:    mimeType,
	})
	if err != nil {
		return describe.FileRef{}, fmt.Errorf("failed to upload file: %w", err)
	}
	g.uploaded = append(g.uploaded, file.Name)

	return describe.FileRef{
		Name:        file.Name,
		DisplayName: file.DisplayName,
		MIMEType:    file.MIMEType,
		URI:         file.URI,
	}, nil
}

// DeleteUploads removes every file uploaded through this service.
func (g *Gemini) DeleteUploads(ctx context.Context) error {
	for _, name := range g.uploaded {
		if err := g.client.DeleteFile(ctx, name); err != nil {
			return fmt.Errorf("failed to delete file %s: %w", name, err)
		}
	}
	g.uploaded = nil
	return nil
}

func (g *Gemini) StartChat(cfg describe.GenerationConfig, history []describe.Turn) describe.ChatSession {
	model := g.client.GenerativeModel(g.modelName)
	configure(model, cfg)

	cs := model.StartChat()
	cs.History = toContents(history)
	return &chatSession{cs: cs}
}

func configure(model *genai.GenerativeModel, cfg describe.GenerationConfig) {
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetTopK(cfg.TopK)
	model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	model.ResponseMIMEType = cfg.ResponseMIMEType
}

func toContents(history []describe.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		c := &genai.Content{Role: string(turn.Role)}
		for _, p := range turn.Parts {
			if p.File != nil {
				c.Parts = append(c.Parts, genai.FileData{MIMEType: p.File.MIMEType, URI: p.File.URI})
				continue
			}
			c.Parts = append(c.Parts, genai.Text(p.Text))
		}
		contents = append(contents, c)
	}
	return contents
}

type chatSession struct {
	cs *genai.ChatSession
}

func (s *chatSession) SendMessage(ctx context.Context, text string) (string, error) {
	resp, err := s.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}
	return sb.String(), nil
}

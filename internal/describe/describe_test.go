package describe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	uploads  []FileInput
	failOn   string
	cfg      GenerationConfig
	history  []Turn
	sent     []string
	reply    string
	replyErr error
}

func (f *fakeService) UploadFile(ctx context.Context, path, mimeType string) (FileRef, error) {
	if path == f.failOn {
		return FileRef{}, errors.New("no such file")
	}
	f.uploads = append(f.uploads, FileInput{Path: path, MIMEType: mimeType})
	n := len(f.uploads)
	return FileRef{
		Name:        fmt.Sprintf("files/%d", n),
		DisplayName: path,
		MIMEType:    mimeType,
		URI:         fmt.Sprintf("https://example.test/files/%d", n),
	}, nil
}

func (f *fakeService) StartChat(cfg GenerationConfig, history []Turn) ChatSession {
	f.cfg = cfg
	f.history = history
	return f
}

func (f *fakeService) SendMessage(ctx context.Context, text string) (string, error) {
	f.sent = append(f.sent, text)
	return f.reply, f.replyErr
}

func TestDefaultFixture(t *testing.T) {
	f, err := DefaultFixture()
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-pro", f.Model)
	assert.Equal(t, DefaultGenerationConfig(), f.Generation)
	assert.Equal(t, "INSERT_INPUT_HERE", f.Message)
	require.Len(t, f.Files, 3)
	assert.Equal(t, "image_transportation1.jpeg", f.Files[0].Path)
	assert.Len(t, f.History, 8)
}

func TestDefaultGenerationConfig(t *testing.T) {
	cfg := DefaultGenerationConfig()
	assert.Equal(t, float32(1), cfg.Temperature)
	assert.Equal(t, float32(0.95), cfg.TopP)
	assert.Equal(t, int32(64), cfg.TopK)
	assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
	assert.Equal(t, "text/plain", cfg.ResponseMIMEType)
}

func TestRunScenario(t *testing.T) {
	fixture, err := DefaultFixture()
	require.NoError(t, err)
	svc := &fakeService{reply: "A red bicycle leaning on a wall."}
	var out bytes.Buffer

	reply, err := NewClient(svc, fixture, &out).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "A red bicycle leaning on a wall.", reply)
	assert.Equal(t, "A red bicycle leaning on a wall.\n", out.String())
	require.Len(t, svc.uploads, 3)
	assert.Equal(t, []string{"INSERT_INPUT_HERE"}, svc.sent)
	assert.Equal(t, DefaultGenerationConfig(), svc.cfg)

	require.Len(t, svc.history, 8)
	var fileTurns int
	for i, turn := range svc.history {
		if i%2 == 0 {
			assert.Equal(t, RoleUser, turn.Role)
		} else {
			assert.Equal(t, RoleModel, turn.Role)
		}
		for _, p := range turn.Parts {
			if p.File != nil {
				fileTurns++
				assert.Equal(t, RoleUser, turn.Role)
				assert.Equal(t, "image/jpeg", p.File.MIMEType)
			}
		}
	}
	assert.Equal(t, 3, fileTurns)
	assert.Equal(t, "https://example.test/files/1", svc.history[2].Parts[0].File.URI)
	assert.Equal(t, "https://example.test/files/3", svc.history[6].Parts[0].File.URI)
}

func TestRunUsesGivenInputs(t *testing.T) {
	fixture, err := DefaultFixture()
	require.NoError(t, err)
	svc := &fakeService{reply: "ok"}

	inputs := []FileInput{{Path: "a.png"}, {Path: "b.jpg"}, {Path: "c.jpeg", MIMEType: "image/jpeg"}}
	_, err = NewClient(svc, fixture, &bytes.Buffer{}).Run(context.Background(), inputs)
	require.NoError(t, err)

	require.Len(t, svc.uploads, 3)
	assert.Equal(t, "a.png", svc.uploads[0].Path)
	assert.Equal(t, "image/png", svc.uploads[0].MIMEType)
	assert.Equal(t, "image/jpeg", svc.uploads[1].MIMEType)
}

func TestRunStopsOnUploadFailure(t *testing.T) {
	fixture, err := DefaultFixture()
	require.NoError(t, err)
	svc := &fakeService{failOn: fixture.Files[1].Path, reply: "unused"}

	_, err = NewClient(svc, fixture, &bytes.Buffer{}).Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fixture.Files[1].Path)
	assert.Len(t, svc.uploads, 1)
	assert.Empty(t, svc.sent)
}

func TestRunTooFewUploads(t *testing.T) {
	fixture, err := DefaultFixture()
	require.NoError(t, err)
	svc := &fakeService{reply: "unused"}

	_, err = NewClient(svc, fixture, &bytes.Buffer{}).Run(context.Background(), []FileInput{{Path: "only.jpg"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refers to file 1")
	assert.Empty(t, svc.sent)
}

func TestRunPropagatesChatErrors(t *testing.T) {
	fixture, err := DefaultFixture()
	require.NoError(t, err)

	_, err = NewClient(&fakeService{replyErr: errors.New("quota")}, fixture, &bytes.Buffer{}).Run(context.Background(), nil)
	assert.ErrorContains(t, err, "quota")

	_, err = NewClient(&fakeService{}, fixture, &bytes.Buffer{}).Run(context.Background(), nil)
	assert.ErrorContains(t, err, "empty reply")
}

func TestParseFixtureValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{
			name: "missing message",
			yaml: "history: []",
			err:  "no final message",
		},
		{
			name: "starts with model",
			yaml: "message: hi\nhistory:\n  - role: model\n    parts:\n      - text: x\n",
			err:  "expected \"user\"",
		},
		{
			name: "ends with user",
			yaml: "message: hi\nhistory:\n  - role: user\n    parts:\n      - text: x\n",
			err:  "end with a model turn",
		},
		{
			name: "part with text and file",
			yaml: "message: hi\nhistory:\n  - role: user\n    parts:\n      - text: x\n        file: 0\n  - role: model\n    parts:\n      - text: y\n",
			err:  "exactly one of text or file",
		},
		{
			name: "empty turn",
			yaml: "message: hi\nhistory:\n  - role: user\n    parts: []\n  - role: model\n    parts:\n      - text: y\n",
			err:  "has no parts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.err), err.Error())
		})
	}
}

func TestParseFixtureDefaults(t *testing.T) {
	f, err := ParseFixture([]byte("message: describe this\ngeneration:\n  temperature: 0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, f.Model)
	assert.Equal(t, float32(0.2), f.Generation.Temperature)
	assert.Equal(t, int32(64), f.Generation.TopK)
	assert.Empty(t, f.History)
}

func TestLoadFixture(t *testing.T) {
	f, err := LoadFixture("")
	require.NoError(t, err)
	assert.Equal(t, "INSERT_INPUT_HERE", f.Message)

	_, err = LoadFixture(t.TempDir() + "/missing.yaml")
	assert.Error(t, err)
}

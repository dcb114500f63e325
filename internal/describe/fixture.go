package describe

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/image_analyzer.yaml
var fixturesFS embed.FS

const defaultFixture = "fixtures/image_analyzer.yaml"

// Fixture is the literal data behind a scripted conversation.
type Fixture struct {
	Model      string           `yaml:"model"`
	Generation GenerationConfig `yaml:"generation"`
	Files      []FileInput      `yaml:"files"`
	History    []FixtureTurn    `yaml:"history"`
	Message    string           `yaml:"message"`
}

// FileInput is a local file to upload.
type FileInput struct {
	Path     string `yaml:"path"`
	MIMEType string `yaml:"mime_type"`
}

// FixtureTurn is a history turn whose file parts point at upload indexes.
type FixtureTurn struct {
	Role  Role          `yaml:"role"`
	Parts []FixturePart `yaml:"parts"`
}

// FixturePart holds either text or the index of an uploaded file.
type FixturePart struct {
	Text string `yaml:"text,omitempty"`
	File *int   `yaml:"file,omitempty"`
}

// DefaultFixture returns the embedded image-analyzer conversation.
func DefaultFixture() (*Fixture, error) {
	data, err := fixturesFS.ReadFile(defaultFixture)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded fixture: %w", err)
	}
	return ParseFixture(data)
}

// LoadFixture reads a fixture from disk. An empty path yields the default.
func LoadFixture(path string) (*Fixture, error) {
	if path == "" {
		return DefaultFixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes YAML and fills unset generation values with defaults.
func ParseFixture(data []byte) (*Fixture, error) {
	f := &Fixture{
		Model:      DefaultModel,
		Generation: DefaultGenerationConfig(),
	}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if f.Message == "" {
		return nil, fmt.Errorf("fixture has no final message")
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// validate checks that roles alternate starting with the user and that the
// history ends on a model turn, so the final message continues the pattern.
func (f *Fixture) validate() error {
	for i, turn := range f.History {
		want := RoleUser
		if i%2 == 1 {
			want = RoleModel
		}
		if turn.Role != want {
			return fmt.Errorf("history turn %d has role %q, expected %q", i, turn.Role, want)
		}
		if len(turn.Parts) == 0 {
			return fmt.Errorf("history turn %d has no parts", i)
		}
		for j, p := range turn.Parts {
			if (p.Text == "") == (p.File == nil) {
				return fmt.Errorf("history turn %d part %d must have exactly one of text or file", i, j)
			}
		}
	}
	if len(f.History)%2 != 0 {
		return fmt.Errorf("history must end with a model turn")
	}
	return nil
}

// BuildHistory binds the fixture's file placeholders to uploaded references.
func (f *Fixture) BuildHistory(files []FileRef) ([]Turn, error) {
	history := make([]Turn, 0, len(f.History))
	for i, ft := range f.History {
		turn := Turn{Role: ft.Role, Parts: make([]Part, 0, len(ft.Parts))}
		for _, p := range ft.Parts {
			if p.File == nil {
				turn.Parts = append(turn.Parts, Part{Text: p.Text})
				continue
			}
			idx := *p.File
			if idx < 0 || idx >= len(files) {
				return nil, fmt.Errorf("history turn %d refers to file %d but %d were uploaded", i, idx, len(files))
			}
			ref := files[idx]
			turn.Parts = append(turn.Parts, Part{File: &ref})
		}
		history = append(history, turn)
	}
	return history, nil
}

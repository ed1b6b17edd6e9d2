package prompts

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/modeler/internal/models"
)

const delim = "---"

type header struct {
	DiagramType string `yaml:"diagramType"`
	Kind        string `yaml:"kind"`
}

// Prompt is one parsed override file.
type Prompt struct {
	// DiagramType is empty for prompts that apply to every diagram (help).
	DiagramType models.DiagramType
	Kind        Kind
	Body        string
}

// Parse reads a Markdown file whose YAML frontmatter names the diagram type
// and kind it overrides. The body, trimmed, becomes the system prompt.
func Parse(data []byte) (Prompt, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return Prompt{}, fmt.Errorf("prompts: missing frontmatter")
	}
	var h header
	if err := yaml.Unmarshal(block, &h); err != nil {
		return Prompt{}, fmt.Errorf("prompts: frontmatter: %w", err)
	}

	kind, ok := ParseKind(h.Kind)
	if !ok {
		return Prompt{}, fmt.Errorf("prompts: unknown kind %q", h.Kind)
	}
	var dt models.DiagramType
	if h.DiagramType != "" {
		if dt, ok = models.ParseDiagramType(h.DiagramType); !ok {
			return Prompt{}, fmt.Errorf("prompts: unknown diagram type %q", h.DiagramType)
		}
	} else if kind != KindHelp {
		return Prompt{}, fmt.Errorf("prompts: diagramType required for kind %q", kind)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return Prompt{}, fmt.Errorf("prompts: empty body")
	}
	return Prompt{DiagramType: dt, Kind: kind, Body: body}, nil
}

// splitFrontmatter separates the YAML block between leading --- delimiters
// from the body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, "", false
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", false
	}
	body := string(rest[idx+1+len(delim):])
	return rest[:idx], body, true
}

// Package classifier decides which diagram a message targets and what the
// user wants done with it. Classification is pure and never fails: anything
// unmatched falls through to the help category.
package classifier

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/starford/modeler/internal/models"
)

var prefixRe = regexp.MustCompile(`^\s*\[DIAGRAM_TYPE:\s*(\w+)\s*\]\s*`)

// Metadata carries fields delivered alongside the message by the transport.
type Metadata struct {
	DiagramType string `json:"diagramType,omitempty"`
}

// Result is the outcome of classifying one inbound message.
type Result struct {
	DiagramType models.DiagramType
	// Message is the request text with any prefix or JSON envelope removed.
	Message  string
	Category models.IntentCategory
	// CurrentModel is the editor snapshot from a JSON envelope, if any.
	CurrentModel json.RawMessage
	// Structured is set when the message arrived as a JSON envelope or with
	// event metadata. Only structured events take part in replay detection.
	Structured bool
}

// Classify resolves the diagram type and intent category of raw.
//
// Diagram type, first match wins: [DIAGRAM_TYPE:X] prefix, event metadata,
// envelope "diagramType", keyword table, ClassDiagram. Names that are not
// known diagram types are skipped rather than trusted.
func Classify(raw string, meta Metadata) Result {
	res := Result{Message: strings.TrimSpace(raw)}

	var explicit models.DiagramType
	if m := prefixRe.FindStringSubmatch(res.Message); m != nil {
		if dt, ok := models.ParseDiagramType(m[1]); ok {
			explicit = dt
		}
		res.Message = strings.TrimSpace(res.Message[len(m[0]):])
	}

	if dt, ok := models.ParseDiagramType(meta.DiagramType); ok {
		res.Structured = true
		if explicit == "" {
			explicit = dt
		}
	}

	if env, ok := parseEnvelope(res.Message); ok {
		res.Structured = true
		res.Message = env.message
		res.CurrentModel = env.currentModel
		if dt, ok := models.ParseDiagramType(env.diagramType); ok && explicit == "" {
			explicit = dt
		}
	}

	switch {
	case explicit != "":
		res.DiagramType = explicit
	default:
		if dt, ok := DetectDiagramType(res.Message); ok {
			res.DiagramType = dt
		} else {
			res.DiagramType = models.DefaultDiagramType
		}
	}

	res.Category = Category(res.Message)
	return res
}

type envelope struct {
	message      string
	diagramType  string
	currentModel json.RawMessage
}

// parseEnvelope accepts {"message": ..., "diagramType"?: ..., "currentModel"?: ...}.
func parseEnvelope(s string) (envelope, bool) {
	if !strings.HasPrefix(s, "{") || !gjson.Valid(s) {
		return envelope{}, false
	}
	msg := gjson.Get(s, "message")
	if msg.Type != gjson.String {
		return envelope{}, false
	}
	env := envelope{
		message:     strings.TrimSpace(msg.String()),
		diagramType: gjson.Get(s, "diagramType").String(),
	}
	if cm := gjson.Get(s, "currentModel"); cm.IsObject() {
		env.currentModel = json.RawMessage(cm.Raw)
	}
	return env, true
}

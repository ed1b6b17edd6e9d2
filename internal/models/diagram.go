// Package models defines the diagram domain types produced by the handlers.
package models

import "strings"

// DiagramType names one of the supported diagram kinds.
type DiagramType string

const (
	ClassDiagram        DiagramType = "ClassDiagram"
	ObjectDiagram       DiagramType = "ObjectDiagram"
	AgentDiagram        DiagramType = "AgentDiagram"
	StateMachineDiagram DiagramType = "StateMachineDiagram"
)

// DefaultDiagramType is used when nothing in a request names a diagram.
const DefaultDiagramType = ClassDiagram

// DiagramTypes lists every known diagram type in a stable order.
var DiagramTypes = []DiagramType{ClassDiagram, ObjectDiagram, AgentDiagram, StateMachineDiagram}

// ParseDiagramType matches s against the known diagram types, ignoring case and
// an optional "Diagram" suffix ("class", "Class", "ClassDiagram").
func ParseDiagramType(s string) (DiagramType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	for _, dt := range DiagramTypes {
		full := strings.ToLower(string(dt))
		if s == full || s == strings.TrimSuffix(full, "diagram") {
			return dt, true
		}
	}
	return "", false
}

// IntentCategory is the classified purpose of a user message.
type IntentCategory string

const (
	CategoryCreateElement IntentCategory = "create_element"
	CategoryCreateSystem  IntentCategory = "create_system"
	CategoryModify        IntentCategory = "modify"
	CategoryHelp          IntentCategory = "help"
	CategoryGreeting      IntentCategory = "greeting"
)

// Bounds is an element's bounding box on the editor canvas.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Visibility values accepted for class members.
const (
	VisibilityPublic    = "public"
	VisibilityPrivate   = "private"
	VisibilityProtected = "protected"
)

// InitialNode is the reserved transition endpoint naming the initial pseudo-state.
const InitialNode = "initial"

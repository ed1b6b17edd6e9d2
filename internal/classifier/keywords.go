package classifier

import (
	"strings"
	"unicode"

	"github.com/starford/modeler/internal/models"
)

// diagramKeywords is checked in order; the first table with a hit wins.
var diagramKeywords = []struct {
	diagram  models.DiagramType
	keywords []string
}{
	{models.StateMachineDiagram, []string{"state", "states", "transition", "transitions", "state machine"}},
	{models.AgentDiagram, []string{"agent", "agents", "multi-agent", "message", "messages", "belief", "beliefs", "goal", "goals"}},
	{models.ObjectDiagram, []string{"object", "objects", "instance", "instances", "link", "links"}},
	{models.ClassDiagram, []string{"class", "classes", "interface", "interfaces", "inheritance", "association", "associations"}},
}

var modifyKeywords = []string{
	"modify", "change", "update", "edit", "rename", "remove", "delete",
	"add transition", "add a transition", "add relationship", "add a relationship",
	"connect", "add reply", "add a reply", "add training phrase", "add a training phrase",
	"add attribute", "add an attribute", "add method", "add a method",
	"make it", "set the", "replace",
}

// The system list deliberately overlaps the element list ("create a system"
// hits both); system is checked first and wins.
var systemKeywords = []string{
	"system", "complete system", "full system", "entire system",
	"architecture", "multiple classes", "several classes",
	"with relationships", "e-commerce", "ecommerce",
	"management system", "platform",
}

var elementKeywords = []string{
	"add a", "add an", "create a", "create an", "make a", "insert a", "new",
	"add", "create", "make", "generate", "insert",
}

var greetingKeywords = []string{"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening"}

// DetectDiagramType matches msg against the diagram keyword table.
func DetectDiagramType(msg string) (models.DiagramType, bool) {
	text := normalize(msg)
	for _, entry := range diagramKeywords {
		if containsAny(text, entry.keywords) {
			return entry.diagram, true
		}
	}
	return "", false
}

// Category returns the intent category of msg with the priority
// modify > system > element > greeting > help.
func Category(msg string) models.IntentCategory {
	text := normalize(msg)
	switch {
	case containsAny(text, modifyKeywords):
		return models.CategoryModify
	case containsAny(text, systemKeywords):
		return models.CategoryCreateSystem
	case containsAny(text, elementKeywords):
		return models.CategoryCreateElement
	case containsAny(text, greetingKeywords):
		return models.CategoryGreeting
	default:
		return models.CategoryHelp
	}
}

// IsModification reports whether msg asks to change an existing model.
func IsModification(msg string) bool { return containsAny(normalize(msg), modifyKeywords) }

// IsCompleteSystem reports whether msg asks for a multi-element system.
func IsCompleteSystem(msg string) bool { return containsAny(normalize(msg), systemKeywords) }

// IsSingleElement reports whether msg asks for one element. A system request
// is never a single-element request.
func IsSingleElement(msg string) bool {
	text := normalize(msg)
	return !containsAny(text, systemKeywords) && containsAny(text, elementKeywords)
}

// normalize lower-cases msg and pads words with single spaces so keywords
// match on word boundaries (" new " does not match "renew").
func normalize(msg string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(msg) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, " "+kw+" ") {
			return true
		}
	}
	return false
}

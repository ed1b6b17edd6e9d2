package mcpserver

import (
	"strings"

	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/models"
)

// operationFields documents the target and changes keys of each operation.
var operationFields = map[string]struct{ target, changes string }{
	models.OpModifyClass:             {"className", "name"},
	models.OpModifyState:             {"stateName", "name, replies"},
	models.OpModifyAttribute:         {"className or objectName, attributeName", "name, type, visibility, value"},
	models.OpModifyMethod:            {"className, methodName", "name, returnType, visibility, parameters"},
	models.OpModifyIntent:            {"intentName", "name, trainingPhrases"},
	models.OpAddRelationship:         {"sourceClass, targetClass", "relationshipType, sourceMultiplicity, targetMultiplicity"},
	models.OpAddTransition:           {"sourceState, targetState", "condition, conditionValue (or trigger, guard)"},
	models.OpRemoveTransition:        {"sourceState, targetState", "-"},
	models.OpAddStateBody:            {"stateName", "replies, fallbackReplies (or actions)"},
	models.OpAddIntentTrainingPhrase: {"intentName", "trainingPhrases"},
	models.OpRemoveElement:           {"className, objectName, stateName or intentName", "-"},
}

const contractHeader = `# Modification Operations

A modify_model envelope carries exactly one modification:

` + "```" + `json
{"action": "modify_model",
 "modification": {"action": "<operation>", "target": {...}, "changes": {...}},
 "diagramType": "ClassDiagram",
 "message": "Renamed User to Customer"}
` + "```" + `

Targets name elements by their canonical name fields, never by id. Changes carry
only the fields being altered. An operation outside the diagram type's list is
rejected and replaced by a fallback envelope.
`

// OperationsContract renders the modification vocabulary of every
// registered diagram type.
func OperationsContract(registry *diagram.Registry) string {
	var b strings.Builder
	b.WriteString(contractHeader)
	for _, dt := range registry.Types() {
		h, _ := registry.Get(dt)
		b.WriteString("\n## " + string(dt) + "\n\n")
		b.WriteString("| Operation | Target | Changes |\n|---|---|---|\n")
		for _, op := range h.Operations() {
			f := operationFields[op]
			b.WriteString("| `" + op + "` | " + f.target + " | " + f.changes + " |\n")
		}
	}
	return b.String()
}

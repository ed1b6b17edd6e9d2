package diagram

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/models"
)

// targetNameKeys are tried in order when describing a modification target.
var targetNameKeys = []string{
	"className", "stateName", "intentName", "objectName",
	"attributeName", "methodName", "sourceClass", "sourceState", "source",
}

// normalizeModification validates a parsed modification reply against the
// operations allowed for the diagram and canonicalizes its fields.
func normalizeModification(raw map[string]any, allowed []string) (models.Modification, string, error) {
	body, ok := raw["modification"].(map[string]any)
	if !ok {
		// Some replies drop the wrapper and return the operation itself.
		if op := str(raw, "action"); op != "" && op != "modify_model" && raw["target"] != nil {
			body = raw
		} else {
			return models.Modification{}, "", fmt.Errorf("modification: %w: modification", apperr.ErrSchemaIncomplete)
		}
	}

	op := strings.ToLower(str(body, "action", "operation", "type"))
	if !contains(allowed, op) {
		return models.Modification{}, "", fmt.Errorf("modification: %w: unsupported action %q", apperr.ErrSchemaIncomplete, op)
	}

	target := trimValues(cast.ToStringMap(body["target"]))
	if len(target) == 0 {
		return models.Modification{}, "", fmt.Errorf("modification: %w: target", apperr.ErrSchemaIncomplete)
	}

	mod := models.Modification{Action: op, Target: target}
	if changes := normalizeChanges(op, cast.ToStringMap(body["changes"])); len(changes) > 0 {
		mod.Changes = changes
	}

	msg := str(raw, "message")
	if msg == "" {
		msg = fmt.Sprintf("Applied %s to %s", op, orDefault(str(target, targetNameKeys...), "element"))
	}
	return mod, msg, nil
}

func normalizeChanges(op string, changes map[string]any) map[string]any {
	out := trimValues(changes)
	if v, ok := out["visibility"]; ok {
		out["visibility"] = visibility(cast.ToString(v))
	}
	switch op {
	case models.OpAddRelationship:
		out["type"] = relationshipType(cast.ToString(out["type"]))
	case models.OpAddTransition:
		intent := str(out, "intentName", "intent", "conditionValue")
		out["condition"] = condition(cast.ToString(out["condition"]), intent)
		delete(out, "intent")
		if intent != "" {
			out["conditionValue"] = intent
			delete(out, "intentName")
		}
	case models.OpAddStateBody:
		if items := list(changes, "replies", "bodies", "body", "responses", "reply", "text"); items != nil {
			for _, k := range []string{"bodies", "body", "responses", "reply", "text"} {
				delete(out, k)
			}
			out["replies"] = texts(items, maxListItems, "text", "message", "name")
		}
		if items := list(changes, "actions", "action"); items != nil {
			delete(out, "action")
			out["actions"] = texts(items, maxListItems, "text", "name")
		}
		if items := list(changes, "fallbackReplies", "fallbackBodies"); items != nil {
			delete(out, "fallbackBodies")
			out["fallbackReplies"] = texts(items, maxListItems, "text", "message", "name")
		}
	case models.OpAddIntentTrainingPhrase:
		if items := list(changes, "trainingPhrases", "trainingSentences", "training_sentences", "phrases", "phrase", "trainingPhrase"); items != nil {
			for _, k := range []string{"trainingSentences", "training_sentences", "phrases", "phrase", "trainingPhrase"} {
				delete(out, k)
			}
			out["trainingPhrases"] = texts(items, maxListItems, "text")
		}
	}
	return out
}

// trimValues copies m, trimming string values and dropping nil and empty
// strings.
func trimValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			if x = strings.TrimSpace(x); x == "" {
				continue
			}
			out[k] = x
		default:
			out[k] = v
		}
	}
	return out
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

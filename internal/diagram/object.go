package diagram

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/layout"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
)

const objectElementPrompt = `You are a UML modeling expert. Create an object instance specification based on the user's request.

Return ONLY a JSON object with this structure:
{
  "objectName": "objectName",
  "className": "ClassName",
  "attributes": [
    {"name": "attributeName", "value": "actualValue"}
  ]
}

IMPORTANT RULES:
1. Object name format: lowercase, e.g., "user1", "orderA"
2. ClassName should be capitalized
3. Include 2-5 attributes with ACTUAL VALUES (not types)
4. Values should be realistic examples

Examples:
- "create user object" -> {"objectName": "user1", "className": "User", "attributes": [{"name": "id", "value": "001"}, {"name": "name", "value": "John Doe"}]}
- "create order object" -> {"objectName": "order1", "className": "Order", "attributes": [{"name": "id", "value": "ORD-001"}, {"name": "total", "value": "99.99"}]}

Return ONLY the JSON, no explanations.`

const objectSystemPrompt = `You are a UML modeling expert. Create a COMPLETE object diagram with multiple related object instances.

Return ONLY a JSON object with this structure:
{
  "systemName": "SystemName",
  "objects": [
    {"objectName": "object1", "className": "ClassName", "attributes": [{"name": "attr", "value": "actualValue"}]}
  ],
  "links": [
    {"source": "object1", "target": "object2", "relationshipType": "association"}
  ]
}

IMPORTANT RULES:
1. Create 3-6 related object instances
2. Each object should have 2-4 attributes with ACTUAL VALUES
3. Object names: lowercase (user1, order1, product2)
4. Every link source and target must be an objectName from "objects"

Return ONLY the JSON, no explanations.`

const objectModificationPrompt = `You are a UML modeling expert. The user wants to modify an existing object diagram.

Return ONLY a JSON object with this structure:
{
  "action": "modify_model",
  "modification": {"action": "<operation>", "target": {...}, "changes": {...}},
  "message": "Short description of the change"
}

Operations:
- modify_attribute: target {"objectName", "attributeName"}, changes {"name", "value"}
- add_relationship: target {"source", "target"}, changes {"relationshipType"}
- remove_element: target {"objectName"} plus "attributeName" to remove a slot

Only reference objects that exist in the current model. Return ONLY the JSON object, no explanations.`

var objectOperations = []string{
	models.OpModifyAttribute,
	models.OpAddRelationship,
	models.OpRemoveElement,
}

type objectVariant struct{}

// NewObjectHandler returns the ObjectDiagram handler.
func NewObjectHandler(d Deps) Handler { return newHandler(objectVariant{}, d) }

func (objectVariant) diagramType() models.DiagramType { return models.ObjectDiagram }

func (objectVariant) operations() []string { return objectOperations }

func (objectVariant) builtinPrompt(kind prompts.Kind) string {
	switch kind {
	case prompts.KindSystem:
		return objectSystemPrompt
	case prompts.KindModification:
		return objectModificationPrompt
	default:
		return objectElementPrompt
	}
}

func (objectVariant) elementRequest(text string) string {
	return "Create an object specification for: " + text
}

func (objectVariant) modificationRequest(text string) string {
	return "Modify the object diagram: " + text
}

func (objectVariant) summarize(model json.RawMessage) string { return summarizeObjects(model) }

func (objectVariant) element(raw map[string]any, existing int) (any, string, error) {
	o, ok := readObject(raw, newIDs())
	if !ok {
		return nil, "", fmt.Errorf("object: %w: objectName", apperr.ErrSchemaIncomplete)
	}
	b := layout.Place(o.ID, existing, objectContent(o))
	o.Bounds = &b
	msg := fmt.Sprintf("Created object '%s' (instance of %s) with %d attribute(s).",
		o.ObjectName, o.ClassName, len(o.Attributes))
	return o, msg, nil
}

func (objectVariant) system(raw map[string]any, drop dropFunc) (any, string, error) {
	sys, err := normalizeObjectSystem(raw, newIDs(), drop)
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Created %s diagram with %d object(s) and %d link(s).",
		sys.SystemName, len(sys.Objects), len(sys.Links))
	return sys, msg, nil
}

func (objectVariant) fallbackElement(text string, existing int) (any, string) {
	class := extractName(text, "Entity")
	name := strings.ToLower(class) + "1"
	o, _ := readObject(map[string]any{
		"objectName": name,
		"className":  class,
		"attributes": []any{
			map[string]any{"name": "id", "value": "001"},
			map[string]any{"name": "name", "value": "Sample"},
		},
	}, seededIDs("object", name, fmt.Sprint(existing)))
	b := layout.Place(o.ID, existing, objectContent(o))
	o.Bounds = &b
	return o, fmt.Sprintf("Created basic object '%s' (fallback).", name)
}

func (objectVariant) fallbackSystem(text string) (any, string) {
	class := extractName(text, "Entity")
	first := strings.ToLower(class) + "1"
	second := strings.ToLower(class) + "2"
	sys, _ := normalizeObjectSystem(map[string]any{
		"systemName": class + "Objects",
		"objects": []any{
			map[string]any{"objectName": first, "className": class, "attributes": []any{map[string]any{"name": "id", "value": "001"}}},
			map[string]any{"objectName": second, "className": class, "attributes": []any{map[string]any{"name": "id", "value": "002"}}},
		},
		"links": []any{map[string]any{"source": first, "target": second}},
	}, seededIDs("object", "system", class), nil)
	return sys, "Created basic object diagram (fallback)."
}

func (objectVariant) fallbackModification() models.Modification {
	return models.Modification{
		Action:  models.OpModifyAttribute,
		Target:  map[string]any{"objectName": "unknown", "attributeName": "name"},
		Changes: map[string]any{"value": "Modified"},
	}
}

func readObject(raw map[string]any, ids *idSet) (models.Object, bool) {
	name := str(raw, "objectName", "name", "instanceName")
	if name == "" {
		return models.Object{}, false
	}
	o := models.Object{
		ID:         ids.claim(str(raw, "id")),
		ObjectName: name,
		ClassName:  orDefault(str(raw, "className", "class", "type"), pascalCase(strings.TrimRight(name, "0123456789"))),
		Attributes: make([]models.Slot, 0),
	}
	if o.ClassName == "" {
		o.ClassName = "Entity"
	}

	seen := nameSet{}
	for _, it := range list(raw, "attributes", "slots", "values") {
		s, ok := slot(it)
		if !ok || !seen.add(s.Name) || len(o.Attributes) == maxMembers {
			continue
		}
		o.Attributes = append(o.Attributes, s)
	}
	return o, true
}

// slot reads {"name", "value"} or "name = value" / "name: value".
func slot(it any) (models.Slot, bool) {
	switch v := it.(type) {
	case string:
		name, value, found := strings.Cut(v, "=")
		if !found {
			name, value, _ = strings.Cut(v, ":")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return models.Slot{}, false
		}
		return models.Slot{Name: name, Value: strings.Trim(strings.TrimSpace(value), `"`)}, true
	case map[string]any:
		name := str(v, "name", "attributeName")
		if name == "" {
			return models.Slot{}, false
		}
		return models.Slot{Name: name, Value: strings.TrimSpace(cast.ToString(v["value"]))}, true
	}
	return models.Slot{}, false
}

func objectContent(o models.Object) layout.Content {
	return layout.Content{Attributes: len(o.Attributes)}
}

func normalizeObjectSystem(raw map[string]any, ids *idSet, drop dropFunc) (models.ObjectSystem, error) {
	sys := models.ObjectSystem{
		SystemName: orDefault(str(raw, "systemName", "name"), "ObjectDiagram"),
		Objects:    make([]models.Object, 0),
		Links:      make([]models.Link, 0),
	}

	names := nameSet{}
	for _, m := range objects(list(raw, "objects", "instances")) {
		o, ok := readObject(m, ids)
		if !ok || !names.add(o.ObjectName) {
			continue
		}
		sys.Objects = append(sys.Objects, o)
	}
	if len(sys.Objects) == 0 {
		return sys, fmt.Errorf("object system: %w: objects", apperr.ErrSchemaIncomplete)
	}

	items := make([]layout.Item, len(sys.Objects))
	for i, o := range sys.Objects {
		items[i] = layout.Item{ID: o.ID, Content: objectContent(o)}
	}
	for i, b := range layout.Arrange(items) {
		sys.Objects[i].Bounds = &b
	}

	for _, m := range objects(list(raw, "links", "relationships")) {
		l := models.Link{
			Source:           str(m, "source", "from", "sourceObject"),
			Target:           str(m, "target", "to", "targetObject"),
			RelationshipType: strings.ToLower(orDefault(str(m, "relationshipType", "type"), "association")),
		}
		if !names.has(l.Source) || !names.has(l.Target) {
			drop.report(fmt.Errorf("link %q -> %q: %w", l.Source, l.Target, apperr.ErrUnresolvedReference))
			continue
		}
		sys.Links = append(sys.Links, l)
	}
	return sys, nil
}

package diagram

import (
	"encoding/json"
	"fmt"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/layout"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
)

const classElementPrompt = `You are a UML modeling expert. Create a MINIMAL, focused class specification based on the user's request.

Return ONLY a JSON object with this structure:
{
  "className": "ExactClassName",
  "attributes": [
    {"name": "attributeName", "type": "String", "visibility": "public"},
    {"name": "anotherAttr", "type": "int", "visibility": "private"}
  ],
  "methods": [
    {"name": "methodName", "returnType": "void", "visibility": "public", "parameters": []}
  ]
}

IMPORTANT RULES:
1. Generate 2-4 ESSENTIAL attributes only
2. Generate 0-2 methods ONLY if they make sense for the class
3. If the user just says "create X class", generate minimal attributes and NO methods
4. visibility is one of "public", "private", "protected"
5. Keep it SIMPLE and focused

Examples:
- "create User class" -> 2-3 attributes (id, name, email), 0-1 method
- "create Product class" -> 2-3 attributes (id, name, price), 0 methods
- "create Order with payment" -> 3-4 attributes including paymentMethod, 1 method (processOrder)

Return ONLY the JSON, no explanations.`

const classSystemPrompt = `You are a UML modeling expert. Create a COMPLETE, well-structured class diagram system.

Return ONLY a JSON object with this structure:
{
  "systemName": "SystemName",
  "classes": [
    {
      "className": "ClassName",
      "attributes": [{"name": "attr", "type": "String", "visibility": "public"}],
      "methods": [{"name": "method", "returnType": "void", "visibility": "private", "parameters": []}]
    }
  ],
  "relationships": [
    {"type": "Association", "source": "ClassName1", "target": "ClassName2", "sourceMultiplicity": "1", "targetMultiplicity": "*"}
  ]
}

IMPORTANT RULES:
1. Create 3-6 related classes
2. Each class should have 2-4 essential attributes
3. Minimize methods (0-2 per class)
4. Relationship types: Association, Inheritance, Composition, Aggregation, Realization, Dependency
5. Every relationship source and target must be a className from "classes"

Return ONLY the JSON, no explanations.`

const classModificationPrompt = `You are a UML modeling expert. The user wants to modify an existing class diagram.

Return ONLY a JSON object with this structure:
{
  "action": "modify_model",
  "modification": {
    "action": "<operation>",
    "target": {...},
    "changes": {...}
  },
  "message": "Short description of the change"
}

Operations:
- modify_class: target {"className"}, changes {"name"}
- modify_attribute: target {"className", "attributeName"}, changes {"name", "type", "visibility"}
- modify_method: target {"className", "methodName"}, changes {"name", "returnType", "visibility", "parameters": [{"name", "type"}]}
- add_relationship: target {"sourceClass", "targetClass"}, changes {"type", "sourceMultiplicity", "targetMultiplicity", "name"}
- remove_element: target {"className"} plus "attributeName" or "methodName" to remove a member

IMPORTANT RULES:
1. visibility can be "public", "private", or "protected"
2. Relationship types: Association, Inheritance, Composition, Aggregation
3. Only reference elements that exist in the current model
4. "changes" carries only the fields being altered

Return ONLY the JSON object, no explanations.`

var classOperations = []string{
	models.OpModifyClass,
	models.OpModifyAttribute,
	models.OpModifyMethod,
	models.OpAddRelationship,
	models.OpRemoveElement,
}

type classVariant struct{}

// NewClassHandler returns the ClassDiagram handler.
func NewClassHandler(d Deps) Handler { return newHandler(classVariant{}, d) }

func (classVariant) diagramType() models.DiagramType { return models.ClassDiagram }

func (classVariant) operations() []string { return classOperations }

func (classVariant) builtinPrompt(kind prompts.Kind) string {
	switch kind {
	case prompts.KindSystem:
		return classSystemPrompt
	case prompts.KindModification:
		return classModificationPrompt
	default:
		return classElementPrompt
	}
}

func (classVariant) elementRequest(text string) string {
	return "Create a class specification for: " + text
}

func (classVariant) modificationRequest(text string) string {
	return "Modify the class diagram: " + text
}

func (classVariant) summarize(model json.RawMessage) string { return summarizeClasses(model) }

func (classVariant) element(raw map[string]any, existing int) (any, string, error) {
	c, ok := readClass(raw, newIDs())
	if !ok {
		return nil, "", fmt.Errorf("class: %w: className", apperr.ErrSchemaIncomplete)
	}
	b := layout.Place(c.ID, existing, classContent(c))
	placeClass(&c, b)
	msg := fmt.Sprintf("Created class '%s' with %d attribute(s) and %d method(s).",
		c.ClassName, len(c.Attributes), len(c.Methods))
	return c, msg, nil
}

func (classVariant) system(raw map[string]any, drop dropFunc) (any, string, error) {
	sys, err := normalizeClassSystem(raw, newIDs(), drop)
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Created %s system with %d class(es) and %d relationship(s).",
		sys.SystemName, len(sys.Classes), len(sys.Relationships))
	return sys, msg, nil
}

func (classVariant) fallbackElement(text string, existing int) (any, string) {
	name := extractName(text, "NewClass")
	c, _ := readClass(map[string]any{
		"className": name,
		"attributes": []any{
			map[string]any{"name": "id", "type": "String", "visibility": "public"},
			map[string]any{"name": "name", "type": "String", "visibility": "private"},
		},
	}, seededIDs("class", name, fmt.Sprint(existing)))
	placeClass(&c, layout.Place(c.ID, existing, classContent(c)))
	return c, fmt.Sprintf("Created basic %s class (fallback).", name)
}

func (classVariant) fallbackSystem(text string) (any, string) {
	name := extractName(text, "Item")
	if name == "Entity" {
		name = "Item"
	}
	idAttr := map[string]any{"name": "id", "type": "String", "visibility": "public"}
	sys, _ := normalizeClassSystem(map[string]any{
		"systemName": name + "System",
		"classes": []any{
			map[string]any{"className": "Entity", "attributes": []any{idAttr}},
			map[string]any{"className": name, "attributes": []any{
				map[string]any{"name": "name", "type": "String", "visibility": "private"},
			}},
		},
		"relationships": []any{
			map[string]any{"type": models.RelInheritance, "source": name, "target": "Entity"},
		},
	}, seededIDs("class", "system", name), nil)
	return sys, "Created basic class system (fallback)."
}

func (classVariant) fallbackModification() models.Modification {
	return models.Modification{
		Action:  models.OpModifyClass,
		Target:  map[string]any{"className": "Unknown"},
		Changes: map[string]any{"name": "ModifiedClass"},
	}
}

// readClass normalizes one class object. Bounds are left for the caller.
func readClass(raw map[string]any, ids *idSet) (models.Class, bool) {
	name := str(raw, "className", "name", "class")
	if name == "" {
		return models.Class{}, false
	}
	c := models.Class{
		ID:         ids.claim(str(raw, "id")),
		ClassName:  name,
		Attributes: make([]models.Attribute, 0),
		Methods:    make([]models.Method, 0),
	}

	seen := nameSet{}
	for _, it := range list(raw, "attributes", "fields", "properties") {
		a, ok := attribute(it)
		if !ok || !seen.add(a.Name) || len(c.Attributes) == maxMembers {
			continue
		}
		a.ID = ids.claim(a.ID)
		a.Owner = c.ID
		c.Attributes = append(c.Attributes, a)
	}

	seen = nameSet{}
	for _, it := range list(raw, "methods", "operations") {
		m, ok := method(it)
		if !ok || !seen.add(m.Name) || len(c.Methods) == maxMembers {
			continue
		}
		m.ID = ids.claim(m.ID)
		m.Owner = c.ID
		c.Methods = append(c.Methods, m)
	}
	return c, true
}

func classContent(c models.Class) layout.Content {
	return layout.Content{Attributes: len(c.Attributes), Methods: len(c.Methods)}
}

// placeClass sets the bounds of c and its members.
func placeClass(c *models.Class, b models.Bounds) {
	c.Bounds = &b
	attrs, methods := layout.Members(b, classContent(*c))
	for i := range c.Attributes {
		ab := attrs[i]
		c.Attributes[i].Bounds = &ab
	}
	for i := range c.Methods {
		mb := methods[i]
		c.Methods[i].Bounds = &mb
	}
}

func normalizeClassSystem(raw map[string]any, ids *idSet, drop dropFunc) (models.ClassSystem, error) {
	sys := models.ClassSystem{
		SystemName:    orDefault(str(raw, "systemName", "name"), "ClassSystem"),
		Classes:       make([]models.Class, 0),
		Relationships: make([]models.Relationship, 0),
	}

	names := nameSet{}
	for _, m := range objects(list(raw, "classes", "elements")) {
		c, ok := readClass(m, ids)
		if !ok || !names.add(c.ClassName) {
			continue
		}
		sys.Classes = append(sys.Classes, c)
	}
	if len(sys.Classes) == 0 {
		return sys, fmt.Errorf("class system: %w: classes", apperr.ErrSchemaIncomplete)
	}

	items := make([]layout.Item, len(sys.Classes))
	for i, c := range sys.Classes {
		items[i] = layout.Item{ID: c.ID, Content: classContent(c)}
	}
	for i, b := range layout.Arrange(items) {
		placeClass(&sys.Classes[i], b)
	}

	for _, m := range objects(list(raw, "relationships", "associations")) {
		r := models.Relationship{
			Type:               relationshipType(str(m, "type", "relationshipType")),
			Source:             str(m, "source", "from", "sourceClass"),
			Target:             str(m, "target", "to", "targetClass"),
			SourceMultiplicity: str(m, "sourceMultiplicity"),
			TargetMultiplicity: str(m, "targetMultiplicity"),
			Name:               str(m, "name", "label"),
		}
		if !names.has(r.Source) || !names.has(r.Target) {
			drop.report(fmt.Errorf("relationship %q -> %q: %w", r.Source, r.Target, apperr.ErrUnresolvedReference))
			continue
		}
		sys.Relationships = append(sys.Relationships, r)
	}
	return sys, nil
}

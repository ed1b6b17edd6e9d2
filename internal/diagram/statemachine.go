package diagram

import (
	"encoding/json"
	"fmt"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/layout"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
)

const stateElementPrompt = `You are a UML modeling expert. Create ONE state of a UML state machine based on the user's request.

Return ONLY a JSON object with this structure:
{
  "stateName": "Processing",
  "actions": ["entry / validate order", "do / charge card"]
}

IMPORTANT RULES:
1. State names are PascalCase nouns or gerunds
2. Include 0-3 short actions
3. Return ONLY the JSON, no explanations`

const stateSystemPrompt = `You are a UML modeling expert. Create a COMPLETE UML state machine.

Return ONLY a JSON object with this structure:
{
  "systemName": "OrderLifecycle",
  "hasInitialNode": true,
  "states": [
    {"stateName": "Created", "actions": ["entry / reserve stock"]}
  ],
  "transitions": [
    {"source": "initial", "target": "Created"},
    {"source": "Created", "target": "Paid", "trigger": "pay", "guard": "amount > 0"}
  ]
}

IMPORTANT RULES:
1. Create 3-7 states
2. The first transition starts at "initial"
3. Every transition source and target is "initial" or a stateName from "states"
4. Triggers are short event names; guards are optional boolean conditions

Return ONLY the JSON, no explanations.`

const stateModificationPrompt = `You are a UML modeling expert. The user wants to modify an existing state machine.

Return ONLY a JSON object with this structure:
{
  "action": "modify_model",
  "modification": {"action": "<operation>", "target": {...}, "changes": {...}},
  "message": "Short description of the change"
}

Operations:
- modify_state: target {"stateName"}, changes {"name"}
- add_transition: target {"sourceState", "targetState"}, changes {"trigger", "guard"}
- remove_transition: target {"sourceState", "targetState"}
- add_state_body: target {"stateName"}, changes {"actions": ["..."]}
- remove_element: target {"stateName"}

Only reference states that exist in the current model. Return ONLY the JSON object, no explanations.`

var stateMachineOperations = []string{
	models.OpModifyState,
	models.OpAddTransition,
	models.OpRemoveTransition,
	models.OpAddStateBody,
	models.OpRemoveElement,
}

var actionKeys = []string{"actions", "entryActions", "bodies", "body"}

type stateMachineVariant struct{}

// NewStateMachineHandler returns the StateMachineDiagram handler.
func NewStateMachineHandler(d Deps) Handler { return newHandler(stateMachineVariant{}, d) }

func (stateMachineVariant) diagramType() models.DiagramType { return models.StateMachineDiagram }

func (stateMachineVariant) operations() []string { return stateMachineOperations }

func (stateMachineVariant) builtinPrompt(kind prompts.Kind) string {
	switch kind {
	case prompts.KindSystem:
		return stateSystemPrompt
	case prompts.KindModification:
		return stateModificationPrompt
	default:
		return stateElementPrompt
	}
}

func (stateMachineVariant) elementRequest(text string) string {
	return "Create a state specification for: " + text
}

func (stateMachineVariant) modificationRequest(text string) string {
	return "Modify the state machine: " + text
}

func (stateMachineVariant) summarize(model json.RawMessage) string {
	return summarizeStates(model, "state machine", []string{"State"}, nil, []string{"StateTransition"})
}

func (stateMachineVariant) element(raw map[string]any, existing int) (any, string, error) {
	st, ok := readMachineState(raw, newIDs())
	if !ok {
		return nil, "", fmt.Errorf("state machine: %w: stateName", apperr.ErrSchemaIncomplete)
	}
	b := layout.Place(st.ID, existing, layout.Content{Attributes: len(st.Actions)})
	st.Bounds = &b
	return st, fmt.Sprintf("Created state '%s' with %d action(s).", st.StateName, len(st.Actions)), nil
}

func (stateMachineVariant) system(raw map[string]any, drop dropFunc) (any, string, error) {
	sm, err := normalizeStateMachine(raw, newIDs(), drop)
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Created %s state machine with %d state(s) and %d transition(s).",
		sm.SystemName, len(sm.States), len(sm.Transitions))
	return sm, msg, nil
}

func (stateMachineVariant) fallbackElement(text string, existing int) (any, string) {
	name := extractName(text, "NewState")
	st, _ := readMachineState(map[string]any{"stateName": name}, seededIDs("statemachine", name, fmt.Sprint(existing)))
	b := layout.Place(st.ID, existing, layout.Content{})
	st.Bounds = &b
	return st, fmt.Sprintf("Created basic state '%s' (fallback).", name)
}

func (stateMachineVariant) fallbackSystem(text string) (any, string) {
	name := extractName(text, "Basic") + "Lifecycle"
	sm, _ := normalizeStateMachine(map[string]any{
		"systemName":     name,
		"hasInitialNode": true,
		"states": []any{
			map[string]any{"stateName": "Idle"},
			map[string]any{"stateName": "Active"},
		},
		"transitions": []any{
			map[string]any{"source": "Idle", "target": "Active", "trigger": "start"},
			map[string]any{"source": "Active", "target": "Idle", "trigger": "stop"},
		},
	}, seededIDs("statemachine", "system", name), nil)
	return sm, "Created basic state machine (fallback)."
}

func (stateMachineVariant) fallbackModification() models.Modification {
	return models.Modification{
		Action:  models.OpModifyState,
		Target:  map[string]any{"stateName": "Unknown"},
		Changes: map[string]any{"name": "ModifiedState"},
	}
}

func readMachineState(raw map[string]any, ids *idSet) (models.MachineState, bool) {
	name := str(raw, "stateName", "name")
	if name == "" {
		return models.MachineState{}, false
	}
	return models.MachineState{
		ID:        ids.claim(str(raw, "id")),
		StateName: name,
		Actions:   texts(list(raw, actionKeys...), maxListItems, "text", "action", "name"),
	}, true
}

func normalizeStateMachine(raw map[string]any, ids *idSet, drop dropFunc) (models.StateMachine, error) {
	sm := models.StateMachine{
		SystemName:     orDefault(str(raw, "systemName", "name"), "StateMachine"),
		HasInitialNode: boolOr(raw, "hasInitialNode", true),
		States:         make([]models.MachineState, 0),
		Transitions:    make([]models.MachineTransition, 0),
	}

	states := nameSet{}
	for _, m := range objects(list(raw, "states")) {
		st, ok := readMachineState(m, ids)
		if !ok || !states.add(st.StateName) {
			continue
		}
		sm.States = append(sm.States, st)
	}
	if len(sm.States) == 0 {
		return sm, fmt.Errorf("state machine: %w: states", apperr.ErrSchemaIncomplete)
	}

	items := make([]layout.Item, len(sm.States))
	for i, st := range sm.States {
		items[i] = layout.Item{ID: st.ID, Content: layout.Content{Attributes: len(st.Actions)}}
	}
	for i, b := range layout.Arrange(items) {
		sm.States[i].Bounds = &b
	}

	endpoint := func(name string) bool {
		return states.has(name) || (sm.HasInitialNode && name == models.InitialNode)
	}
	fromInitial := false
	for _, m := range objects(list(raw, "transitions")) {
		t := models.MachineTransition{
			Source:  str(m, sourceKeys...),
			Target:  str(m, targetKeys...),
			Trigger: str(m, "trigger", "event"),
			Guard:   str(m, "guard", "condition"),
			Label:   str(m, "label", "name"),
		}
		if !endpoint(t.Source) || !endpoint(t.Target) || t.Target == models.InitialNode {
			drop.report(fmt.Errorf("transition %q -> %q: %w", t.Source, t.Target, apperr.ErrUnresolvedReference))
			continue
		}
		if t.Source == models.InitialNode {
			fromInitial = true
		}
		sm.Transitions = append(sm.Transitions, t)
	}

	if sm.HasInitialNode && !fromInitial {
		initial := models.MachineTransition{Source: models.InitialNode, Target: sm.States[0].StateName}
		sm.Transitions = append([]models.MachineTransition{initial}, sm.Transitions...)
	}
	return sm, nil
}

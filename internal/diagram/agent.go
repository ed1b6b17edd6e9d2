package diagram

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/layout"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
)

const agentElementPrompt = `You are a conversational agent designer. Create ONE element of an agent diagram based on the user's request: either a state (what the agent says) or an intent (what the user says).

Return ONLY a JSON object with one of these structures:
{
  "type": "state",
  "stateName": "Greeting",
  "replies": ["Hello! How can I help you today?"],
  "fallbackReplies": ["Sorry, I did not understand that."]
}
{
  "type": "intent",
  "intentName": "order_pizza",
  "description": "User wants to order a pizza",
  "trainingPhrases": ["I want a pizza", "Can I order a pizza?"]
}

IMPORTANT RULES:
1. Use "intent" only when the user asks for an intent or what users say
2. Give 1-3 replies per state and 2-5 training phrases per intent
3. Replies and phrases are plain strings

Return ONLY the JSON, no explanations.`

const agentSystemPrompt = `You are a conversational agent designer. Create a COMPLETE agent diagram: states the agent moves through, intents it recognizes and transitions between states.

Return ONLY a JSON object with this structure:
{
  "systemName": "PizzaBot",
  "hasInitialNode": true,
  "states": [
    {"stateName": "Greeting", "replies": ["Hi! Want to order a pizza?"], "fallbackReplies": ["Sorry, could you rephrase?"]}
  ],
  "intents": [
    {"intentName": "order_pizza", "description": "User orders a pizza", "trainingPhrases": ["I want a pizza"]}
  ],
  "transitions": [
    {"source": "initial", "target": "Greeting", "condition": "auto"},
    {"source": "Greeting", "target": "Ordering", "condition": "when_intent_matched", "conditionValue": "order_pizza"}
  ]
}

Conditions: "when_intent_matched" (conditionValue = intentName), "when_no_intent_matched", "when_variable_operation_matched", "when_file_received", "auto".

IMPORTANT RULES:
1. Create 3-6 states and 2-5 intents
2. The first transition starts at "initial"
3. Every transition source and target is "initial" or a stateName from "states"
4. Every conditionValue of when_intent_matched is an intentName from "intents"

Return ONLY the JSON, no explanations.`

const agentModificationPrompt = `You are a conversational agent designer. The user wants to modify an existing agent diagram.

Return ONLY a JSON object with this structure:
{
  "action": "modify_model",
  "modification": {"action": "<operation>", "target": {...}, "changes": {...}},
  "message": "Short description of the change"
}

Operations:
- modify_state: target {"stateName"}, changes {"name"}
- modify_intent: target {"intentName"}, changes {"name", "description"}
- add_transition: target {"sourceState", "targetState"}, changes {"condition", "conditionValue"}
- remove_transition: target {"sourceState", "targetState"}
- add_state_body: target {"stateName"}, changes {"replies": ["..."], "fallbackReplies": ["..."]}
- add_intent_training_phrase: target {"intentName"}, changes {"trainingPhrases": ["..."]}
- remove_element: target {"stateName"} or {"intentName"}

Conditions: "when_intent_matched", "when_no_intent_matched", "when_variable_operation_matched", "when_file_received", "auto".
Only reference elements that exist in the current model. Return ONLY the JSON object, no explanations.`

var agentOperations = []string{
	models.OpModifyState,
	models.OpModifyIntent,
	models.OpAddTransition,
	models.OpRemoveTransition,
	models.OpAddStateBody,
	models.OpAddIntentTrainingPhrase,
	models.OpRemoveElement,
}

var (
	replyKeys          = []string{"replies", "bodies", "body", "responses"}
	fallbackReplyKeys  = []string{"fallbackReplies", "fallbackBodies"}
	replyTextKeys      = []string{"text", "message", "name"}
	trainingPhraseKeys = []string{"trainingPhrases", "trainingSentences", "training_sentences", "phrases"}
	sourceKeys         = []string{"source", "from", "sourceState"}
	targetKeys         = []string{"target", "to", "targetState"}
)

type agentVariant struct{}

// NewAgentHandler returns the AgentDiagram handler.
func NewAgentHandler(d Deps) Handler { return newHandler(agentVariant{}, d) }

func (agentVariant) diagramType() models.DiagramType { return models.AgentDiagram }

func (agentVariant) operations() []string { return agentOperations }

func (agentVariant) builtinPrompt(kind prompts.Kind) string {
	switch kind {
	case prompts.KindSystem:
		return agentSystemPrompt
	case prompts.KindModification:
		return agentModificationPrompt
	default:
		return agentElementPrompt
	}
}

func (agentVariant) elementRequest(text string) string {
	return "Create an agent element for: " + text
}

func (agentVariant) modificationRequest(text string) string {
	return "Modify the agent diagram: " + text
}

func (agentVariant) summarize(model json.RawMessage) string {
	return summarizeStates(model, "agent diagram",
		[]string{"AgentState"}, []string{"AgentIntent"}, []string{"AgentStateTransition"})
}

func (agentVariant) element(raw map[string]any, existing int) (any, string, error) {
	el, ok := readAgentElement(raw, newIDs())
	if !ok {
		return nil, "", fmt.Errorf("agent: %w: stateName or intentName", apperr.ErrSchemaIncomplete)
	}
	b := layout.Place(el.ID, existing, agentElementContent(el))
	el.Bounds = &b
	if el.Type == models.AgentElementIntent {
		return el, fmt.Sprintf("Created intent '%s' with %d training phrase(s).", el.IntentName, len(el.TrainingPhrases)), nil
	}
	return el, fmt.Sprintf("Created state '%s' with %d reply(ies).", el.StateName, len(el.Replies)), nil
}

func (agentVariant) system(raw map[string]any, drop dropFunc) (any, string, error) {
	sys, err := normalizeAgentSystem(raw, newIDs(), drop)
	if err != nil {
		return nil, "", err
	}
	msg := fmt.Sprintf("Created %s agent with %d state(s), %d intent(s) and %d transition(s).",
		sys.SystemName, len(sys.States), len(sys.Intents), len(sys.Transitions))
	return sys, msg, nil
}

func (agentVariant) fallbackElement(text string, existing int) (any, string) {
	var raw map[string]any
	var name string
	if strings.Contains(strings.ToLower(text), "intent") {
		name = strings.ToLower(extractName(text, "New")) + "_intent"
		raw = map[string]any{"type": models.AgentElementIntent, "intentName": name, "trainingPhrases": []any{"hello"}}
	} else {
		name = extractName(text, "NewState")
		raw = map[string]any{"type": models.AgentElementState, "stateName": name, "replies": []any{"How can I help you?"}}
	}
	el, _ := readAgentElement(raw, seededIDs("agent", name, fmt.Sprint(existing)))
	b := layout.Place(el.ID, existing, agentElementContent(el))
	el.Bounds = &b
	return el, fmt.Sprintf("Created basic %s '%s' (fallback).", el.Type, orDefault(el.StateName, el.IntentName))
}

func (agentVariant) fallbackSystem(text string) (any, string) {
	name := extractName(text, "Basic") + "Agent"
	sys, _ := normalizeAgentSystem(map[string]any{
		"systemName":     name,
		"hasInitialNode": true,
		"states": []any{
			map[string]any{"stateName": "Idle", "replies": []any{"Hi! How can I help you?"}, "fallbackReplies": []any{"Sorry, I did not get that."}},
			map[string]any{"stateName": "Farewell", "replies": []any{"Goodbye!"}},
		},
		"intents": []any{
			map[string]any{"intentName": "goodbye_intent", "trainingPhrases": []any{"bye", "goodbye"}},
		},
		"transitions": []any{
			map[string]any{"source": "Idle", "target": "Farewell", "condition": models.ConditionIntentMatched, "conditionValue": "goodbye_intent"},
		},
	}, seededIDs("agent", "system", name), nil)
	return sys, "Created basic agent system (fallback)."
}

func (agentVariant) fallbackModification() models.Modification {
	return models.Modification{
		Action:  models.OpModifyState,
		Target:  map[string]any{"stateName": "Unknown"},
		Changes: map[string]any{"name": "ModifiedState"},
	}
}

// readAgentElement normalizes a lone state or intent. Without an explicit
// type, intent-only fields make it an intent.
func readAgentElement(raw map[string]any, ids *idSet) (models.AgentElement, bool) {
	typ := strings.ToLower(str(raw, "type", "kind"))
	if typ != models.AgentElementState && typ != models.AgentElementIntent {
		typ = models.AgentElementState
		if str(raw, "intentName") != "" || list(raw, trainingPhraseKeys...) != nil {
			typ = models.AgentElementIntent
		}
	}

	if typ == models.AgentElementIntent {
		in, ok := readIntent(raw, ids)
		if !ok {
			return models.AgentElement{}, false
		}
		return models.AgentElement{
			Type:            typ,
			ID:              in.ID,
			IntentName:      in.IntentName,
			Description:     in.Description,
			TrainingPhrases: in.TrainingPhrases,
		}, true
	}
	st, ok := readState(raw, ids)
	if !ok {
		return models.AgentElement{}, false
	}
	return models.AgentElement{
		Type:            typ,
		ID:              st.ID,
		StateName:       st.StateName,
		Replies:         st.Replies,
		FallbackReplies: st.FallbackReplies,
	}, true
}

func readState(raw map[string]any, ids *idSet) (models.AgentState, bool) {
	name := str(raw, "stateName", "name")
	if name == "" {
		return models.AgentState{}, false
	}
	return models.AgentState{
		ID:              ids.claim(str(raw, "id")),
		StateName:       name,
		Replies:         texts(list(raw, replyKeys...), maxListItems, replyTextKeys...),
		FallbackReplies: texts(list(raw, fallbackReplyKeys...), maxListItems, replyTextKeys...),
	}, true
}

func readIntent(raw map[string]any, ids *idSet) (models.AgentIntent, bool) {
	name := str(raw, "intentName", "name")
	if name == "" {
		return models.AgentIntent{}, false
	}
	return models.AgentIntent{
		ID:              ids.claim(str(raw, "id")),
		IntentName:      name,
		Description:     str(raw, "description"),
		TrainingPhrases: texts(list(raw, trainingPhraseKeys...), maxListItems, "text"),
	}, true
}

func agentElementContent(el models.AgentElement) layout.Content {
	if el.Type == models.AgentElementIntent {
		return layout.Content{Attributes: len(el.TrainingPhrases)}
	}
	return layout.Content{Attributes: len(el.Replies), Methods: len(el.FallbackReplies)}
}

func normalizeAgentSystem(raw map[string]any, ids *idSet, drop dropFunc) (models.AgentSystem, error) {
	sys := models.AgentSystem{
		SystemName:     orDefault(str(raw, "systemName", "agentName", "name"), "Agent"),
		HasInitialNode: boolOr(raw, "hasInitialNode", true),
		States:         make([]models.AgentState, 0),
		Intents:        make([]models.AgentIntent, 0),
		Transitions:    make([]models.AgentTransition, 0),
	}

	states := nameSet{}
	for _, m := range objects(list(raw, "states")) {
		st, ok := readState(m, ids)
		if !ok || !states.add(st.StateName) {
			continue
		}
		sys.States = append(sys.States, st)
	}
	if len(sys.States) == 0 {
		return sys, fmt.Errorf("agent system: %w: states", apperr.ErrSchemaIncomplete)
	}
	intents := nameSet{}
	for _, m := range objects(list(raw, "intents")) {
		in, ok := readIntent(m, ids)
		if !ok || !intents.add(in.IntentName) {
			continue
		}
		sys.Intents = append(sys.Intents, in)
	}

	items := make([]layout.Item, 0, len(sys.States)+len(sys.Intents))
	for _, st := range sys.States {
		items = append(items, layout.Item{ID: st.ID, Content: layout.Content{Attributes: len(st.Replies), Methods: len(st.FallbackReplies)}})
	}
	for _, in := range sys.Intents {
		items = append(items, layout.Item{ID: in.ID, Content: layout.Content{Attributes: len(in.TrainingPhrases)}})
	}
	bounds := layout.Arrange(items)
	for i := range sys.States {
		sys.States[i].Bounds = &bounds[i]
	}
	for i := range sys.Intents {
		sys.Intents[i].Bounds = &bounds[len(sys.States)+i]
	}

	endpoint := func(name string) bool {
		return states.has(name) || (sys.HasInitialNode && name == models.InitialNode)
	}
	fromInitial := false
	for _, m := range objects(list(raw, "transitions")) {
		intent := str(m, "intentName", "intent", "conditionValue")
		t := models.AgentTransition{
			Source:    str(m, sourceKeys...),
			Target:    str(m, targetKeys...),
			Condition: condition(str(m, "condition"), intent),
			Label:     str(m, "label", "name"),
		}
		if t.Condition == models.ConditionIntentMatched {
			t.ConditionValue = intent
		} else {
			t.ConditionValue = str(m, "conditionValue")
		}

		switch {
		case !endpoint(t.Source) || !endpoint(t.Target) || t.Target == models.InitialNode:
			drop.report(fmt.Errorf("transition %q -> %q: %w", t.Source, t.Target, apperr.ErrUnresolvedReference))
			continue
		case t.Condition == models.ConditionIntentMatched && !intents.has(t.ConditionValue):
			drop.report(fmt.Errorf("transition %q -> %q: intent %q: %w", t.Source, t.Target, t.ConditionValue, apperr.ErrUnresolvedReference))
			continue
		}
		if t.Source == models.InitialNode {
			fromInitial = true
		}
		sys.Transitions = append(sys.Transitions, t)
	}

	if sys.HasInitialNode && !fromInitial {
		initial := models.AgentTransition{Source: models.InitialNode, Target: sys.States[0].StateName, Condition: models.ConditionAuto}
		sys.Transitions = append([]models.AgentTransition{initial}, sys.Transitions...)
	}
	return sys, nil
}

package diagram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/layout"
	"github.com/starford/modeler/internal/llm"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
	"github.com/starford/modeler/internal/storage"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

// reply returns a predictor answering every prompt with text and recording
// the last prompt in *got.
func reply(text string, got *string) llm.Predictor {
	return llm.PredictorFunc(func(_ context.Context, prompt string) (string, error) {
		if got != nil {
			*got = prompt
		}
		return text, nil
	})
}

func deps(p llm.Predictor) Deps { return Deps{Predictor: p, Logger: quiet} }

func TestClassElement(t *testing.T) {
	var prompt string
	h := NewClassHandler(deps(reply("```json\n"+`{
		"className": "User",
		"attributes": [
			{"name": "id", "type": "String", "visibility": "+"},
			{"name": " email ", "type": "String", "visibility": "weird"},
			{"name": "", "type": "int"},
			"- password: String"
		],
		"methods": [{"name": "login", "returnType": "boolean", "visibility": "public", "parameters": ["pw: String"]}]
	}`+"\n```", &prompt)))

	env := h.GenerateSingleElement(context.Background(), Request{Text: "create User class"})
	if env.Action != envelope.ActionInjectElement || env.Fallback {
		t.Fatalf("env = %+v", env)
	}
	if !strings.HasPrefix(prompt, classElementPrompt+"\n\nUser Request: Create a class specification for: create User class") {
		t.Errorf("prompt = %q", prompt)
	}

	c := env.Element.(models.Class)
	if c.ClassName != "User" || c.ID == "" {
		t.Fatalf("class = %+v", c)
	}
	if len(c.Attributes) != 3 || len(c.Methods) != 1 {
		t.Fatalf("attrs = %d, methods = %d", len(c.Attributes), len(c.Methods))
	}
	wantVis := []string{models.VisibilityPublic, models.VisibilityPublic, models.VisibilityPrivate}
	for i, a := range c.Attributes {
		if a.Name == "" || a.Owner != c.ID || a.Bounds == nil {
			t.Errorf("attribute %d = %+v", i, a)
		}
		if a.Visibility != wantVis[i] {
			t.Errorf("attribute %s visibility = %q, want %q", a.Name, a.Visibility, wantVis[i])
		}
	}
	if c.Attributes[1].Name != "email" {
		t.Errorf("name not trimmed: %q", c.Attributes[1].Name)
	}
	m := c.Methods[0]
	if m.Owner != c.ID || len(m.Parameters) != 1 || m.Parameters[0] != (models.Parameter{Name: "pw", Type: "String"}) {
		t.Errorf("method = %+v", m)
	}
	if c.Bounds.Height != layout.Height(layout.Content{Attributes: 3, Methods: 1}) || c.Bounds.Width != layout.ElementWidth {
		t.Errorf("bounds = %+v", *c.Bounds)
	}
	if env.Message != "Created class 'User' with 3 attribute(s) and 1 method(s)." {
		t.Errorf("message = %q", env.Message)
	}
}

func TestClassElement_Fallbacks(t *testing.T) {
	panicky := llm.PredictorFunc(func(context.Context, string) (string, error) {
		panic("boom")
	})
	cases := map[string]llm.Predictor{
		"unavailable": llm.Disabled{},
		"empty":       reply("  \n", nil),
		"malformed":   reply("I think a User class would be nice.", nil),
		"no name":     reply(`{"attributes": []}`, nil),
		"panic":       panicky,
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			env := NewClassHandler(deps(p)).GenerateSingleElement(context.Background(), Request{Text: "create User class"})
			if !env.Fallback || env.Action != envelope.ActionInjectElement {
				t.Fatalf("env = %+v", env)
			}
			c := env.Element.(models.Class)
			if c.ClassName != "User" || len(c.Attributes) != 2 || len(c.Methods) != 0 {
				t.Errorf("class = %+v", c)
			}
			if c.Attributes[0].Name != "id" || c.Attributes[1].Visibility != models.VisibilityPrivate {
				t.Errorf("attributes = %+v", c.Attributes)
			}
			if env.Message != "Created basic User class (fallback)." {
				t.Errorf("message = %q", env.Message)
			}
			if err := env.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestClassSystem(t *testing.T) {
	h := NewClassHandler(deps(reply(`{
		"systemName": "Shop",
		"classes": [
			{"className": "Customer", "attributes": [{"name": "id", "type": "String"}]},
			{"className": "Order", "attributes": [{"name": "total", "type": "double"}]},
			{"className": "Customer", "attributes": []},
			{"name": "Product"}
		],
		"relationships": [
			{"type": "association", "source": "Customer", "target": "Order", "sourceMultiplicity": 1, "targetMultiplicity": "*"},
			{"type": "generalization", "from": "Product", "to": "Order"},
			{"type": "composition", "source": "Order", "target": "Invoice"}
		]
	}`, nil)))

	env := h.GenerateCompleteSystem(context.Background(), Request{Text: "create an e-commerce system"})
	if env.Action != envelope.ActionInjectSystem || env.Fallback {
		t.Fatalf("env = %+v", env)
	}
	sys := env.SystemSpec.(models.ClassSystem)
	if len(sys.Classes) != 3 {
		t.Fatalf("classes = %d, want 3 after dedup", len(sys.Classes))
	}
	if len(sys.Relationships) != 2 {
		t.Fatalf("relationships = %+v", sys.Relationships)
	}
	names := map[string]bool{}
	for _, c := range sys.Classes {
		names[c.ClassName] = true
	}
	for _, r := range sys.Relationships {
		if !names[r.Source] || !names[r.Target] {
			t.Errorf("dangling relationship %+v", r)
		}
	}
	if sys.Relationships[0].Type != models.RelAssociation || sys.Relationships[0].SourceMultiplicity != "1" {
		t.Errorf("rel 0 = %+v", sys.Relationships[0])
	}
	if sys.Relationships[1].Type != models.RelInheritance {
		t.Errorf("rel 1 = %+v", sys.Relationships[1])
	}
}

func TestClassSystem_Fallback(t *testing.T) {
	env := NewClassHandler(deps(llm.Disabled{})).GenerateCompleteSystem(context.Background(), Request{Text: "create an e-commerce system"})
	if !env.Fallback {
		t.Fatal("expected fallback")
	}
	sys := env.SystemSpec.(models.ClassSystem)
	if len(sys.Classes) < 2 || len(sys.Relationships) != 1 {
		t.Fatalf("sys = %+v", sys)
	}
	if sys.Classes[1].ClassName != "ECommerce" {
		t.Errorf("derived class = %q", sys.Classes[1].ClassName)
	}
}

func TestClassModification(t *testing.T) {
	var prompt string
	h := NewClassHandler(deps(reply(`{"action": "modify_model", "modification": {
		"action": "modify_class", "target": {"className": "User"}, "changes": {"name": "Customer"}}}`, &prompt)))

	model := json.RawMessage(`{"elements": {
		"c1": {"id": "c1", "type": "Class", "name": "User", "attributes": ["a1"], "methods": []},
		"a1": {"id": "a1", "type": "ClassAttribute", "name": "email", "owner": "c1"}
	}}`)
	env := h.GenerateModification(context.Background(), Request{Text: "rename User to Customer", CurrentModel: model})
	if env.Action != envelope.ActionModifyModel || env.Fallback {
		t.Fatalf("env = %+v", env)
	}
	mod := env.Modification
	if mod.Action != models.OpModifyClass || mod.Target["className"] != "User" || mod.Changes["name"] != "Customer" {
		t.Errorf("modification = %+v", mod)
	}
	if env.Message != "Applied modify_class to User" {
		t.Errorf("message = %q", env.Message)
	}
	if !strings.Contains(prompt, "Modify the class diagram: rename User to Customer\n\nCurrent class diagram:\n- Class User | attributes: email") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestModification_Fallbacks(t *testing.T) {
	cases := map[string]string{
		"missing modification":  `{"action": "modify_model", "message": "done"}`,
		"operation not allowed": `{"modification": {"action": "add_transition", "target": {"sourceState": "A"}}}`,
		"missing target":        `{"modification": {"action": "modify_class", "changes": {"name": "X"}}}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			env := NewClassHandler(deps(reply(text, nil))).GenerateModification(context.Background(), Request{Text: "rename"})
			if !env.Fallback {
				t.Fatalf("expected fallback, got %+v", env.Modification)
			}
			if env.Modification.Action != models.OpModifyClass || env.Modification.Target["className"] != "Unknown" {
				t.Errorf("modification = %+v", env.Modification)
			}
		})
	}
}

func TestAgentModification_Normalizes(t *testing.T) {
	h := NewAgentHandler(deps(reply(`{"modification": {
		"action": "add_intent_training_phrase",
		"target": {"intentName": "greet"},
		"changes": {"training_sentences": [" hi ", {"text": "hello"}, "", "a", "b", "c", "d"]}}}`, nil)))
	env := h.GenerateModification(context.Background(), Request{Text: "add training phrase hi to greet"})
	if env.Fallback {
		t.Fatal("unexpected fallback")
	}
	got := env.Modification.Changes["trainingPhrases"].([]string)
	if len(got) != maxListItems || got[0] != "hi" || got[1] != "hello" {
		t.Errorf("trainingPhrases = %q", got)
	}
	if _, ok := env.Modification.Changes["training_sentences"]; ok {
		t.Error("synonym key kept")
	}
}

func TestObjectElement(t *testing.T) {
	h := NewObjectHandler(deps(reply(`{"objectName": "order1", "className": "Order",
		"attributes": [{"name": "id", "value": "ORD-001"}, {"name": "total", "value": 99.5}, "status = \"open\""]}`, nil)))
	env := h.GenerateSingleElement(context.Background(), Request{Text: "create order object"})
	o := env.Element.(models.Object)
	if o.ObjectName != "order1" || o.ClassName != "Order" || len(o.Attributes) != 3 {
		t.Fatalf("object = %+v", o)
	}
	if o.Attributes[1].Value != "99.5" || o.Attributes[2] != (models.Slot{Name: "status", Value: "open"}) {
		t.Errorf("slots = %+v", o.Attributes)
	}
}

func TestObjectSystem_DropsDanglingLinks(t *testing.T) {
	h := NewObjectHandler(deps(reply(`{"objects": [
		{"objectName": "u1", "className": "User"}, {"objectName": "o1", "className": "Order"}],
		"links": [{"source": "u1", "target": "o1"}, {"source": "u1", "target": "ghost"}]}`, nil)))
	sys := h.GenerateCompleteSystem(context.Background(), Request{Text: "x"}).SystemSpec.(models.ObjectSystem)
	if len(sys.Links) != 1 || sys.Links[0].RelationshipType != "association" {
		t.Errorf("links = %+v", sys.Links)
	}
}

func TestAgentElement(t *testing.T) {
	cases := []struct {
		name, text, want string
	}{
		{"state with bodies", `{"name": "Welcome", "bodies": [{"message": " Hi! "}, ""]}`, models.AgentElementState},
		{"implicit intent", `{"intentName": "greet", "phrases": ["hello"]}`, models.AgentElementIntent},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			env := NewAgentHandler(deps(reply(tt.text, nil))).GenerateSingleElement(context.Background(), Request{Text: "x"})
			el := env.Element.(models.AgentElement)
			if el.Type != tt.want {
				t.Fatalf("type = %q", el.Type)
			}
			if el.Type == models.AgentElementState && (len(el.Replies) != 1 || el.Replies[0] != "Hi!") {
				t.Errorf("replies = %q", el.Replies)
			}
			if el.Type == models.AgentElementIntent && (len(el.TrainingPhrases) != 1 || el.IntentName != "greet") {
				t.Errorf("intent = %+v", el)
			}
		})
	}
}

func TestAgentSystem_TransitionInvariants(t *testing.T) {
	h := NewAgentHandler(deps(reply(`{
		"systemName": "PizzaBot",
		"states": [
			{"stateName": "Greeting", "replies": ["Hi", "Hello", "Hey", "Yo", "Howdy", "Sup"]},
			{"stateName": "Ordering", "body": "What pizza?"},
			{"stateName": "Greeting"}
		],
		"intents": [{"intentName": "order_pizza", "trainingSentences": ["pizza please"]}],
		"transitions": [
			{"source": "Greeting", "target": "Ordering", "intent": "order_pizza"},
			{"source": "Greeting", "target": "Nowhere", "condition": "auto"},
			{"source": "Ordering", "target": "Greeting", "condition": "when_intent_matched", "conditionValue": "cancel"},
			{"from": "Ordering", "to": "Greeting", "condition": "bogus"}
		]
	}`, nil)))

	env := h.GenerateCompleteSystem(context.Background(), Request{Text: "create a pizza bot system"})
	sys := env.SystemSpec.(models.AgentSystem)
	if !sys.HasInitialNode || len(sys.States) != 2 {
		t.Fatalf("sys = %+v", sys)
	}
	if len(sys.States[0].Replies) != maxListItems {
		t.Errorf("replies not capped: %d", len(sys.States[0].Replies))
	}

	states := map[string]bool{}
	for _, s := range sys.States {
		states[s.StateName] = true
	}
	for _, tr := range sys.Transitions {
		if tr.Target != models.InitialNode && !states[tr.Target] {
			t.Errorf("unresolved target %+v", tr)
		}
		if !contains(models.Conditions, tr.Condition) {
			t.Errorf("bad condition %+v", tr)
		}
	}

	want := []models.AgentTransition{
		{Source: "initial", Target: "Greeting", Condition: "auto"},
		{Source: "Greeting", Target: "Ordering", Condition: "when_intent_matched", ConditionValue: "order_pizza"},
		{Source: "Ordering", Target: "Greeting", Condition: "auto"},
	}
	if len(sys.Transitions) != len(want) {
		t.Fatalf("transitions = %+v", sys.Transitions)
	}
	for i := range want {
		if sys.Transitions[i] != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, sys.Transitions[i], want[i])
		}
	}
}

func TestAgentSystem_NoInitialNode(t *testing.T) {
	h := NewAgentHandler(deps(reply(`{"hasInitialNode": false, "states": [{"stateName": "A"}],
		"transitions": [{"source": "initial", "target": "A"}]}`, nil)))
	sys := h.GenerateCompleteSystem(context.Background(), Request{Text: "x"}).SystemSpec.(models.AgentSystem)
	if len(sys.Transitions) != 0 {
		t.Errorf("transitions = %+v", sys.Transitions)
	}
}

func TestStateMachineSystem(t *testing.T) {
	h := NewStateMachineHandler(deps(reply(`{"systemName": "Door", "states": [
		{"stateName": "Open", "actions": ["entry / beep"]}, {"stateName": "Closed"}],
		"transitions": [
			{"source": "initial", "target": "Closed"},
			{"source": "Closed", "target": "Open", "event": "push", "guard": "unlocked"},
			{"source": "Open", "target": "initial"}]}`, nil)))
	sm := h.GenerateCompleteSystem(context.Background(), Request{Text: "door state machine"}).SystemSpec.(models.StateMachine)
	if len(sm.Transitions) != 2 {
		t.Fatalf("transitions = %+v", sm.Transitions)
	}
	if sm.Transitions[0].Target != "Closed" || sm.Transitions[1].Trigger != "push" {
		t.Errorf("transitions = %+v", sm.Transitions)
	}
}

func TestFallbackSystems_AreValid(t *testing.T) {
	for _, h := range NewDefaultRegistry(deps(nil)).handlers {
		env := h.GenerateCompleteSystem(context.Background(), Request{Text: "create a library system"})
		if !env.Fallback {
			t.Errorf("%s: expected fallback", h.DiagramType())
		}
		if _, err := env.Encode(); err != nil {
			t.Errorf("%s: %v", h.DiagramType(), err)
		}
		el := h.GenerateSingleElement(context.Background(), Request{Text: "add a book"})
		if _, err := el.Encode(); err != nil {
			t.Errorf("%s element: %v", h.DiagramType(), err)
		}
		mod := h.GenerateModification(context.Background(), Request{Text: "rename"})
		if !contains(h.Operations(), mod.Modification.Action) {
			t.Errorf("%s: fallback op %q not allowed", h.DiagramType(), mod.Modification.Action)
		}
	}
}

func TestPromptOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "class.md"), []byte("---\ndiagramType: ClassDiagram\nkind: element\n---\nCUSTOM PROMPT\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	store := prompts.NewStore()
	if _, err := store.Load(fs, quiet); err != nil {
		t.Fatal(err)
	}

	var prompt string
	h := NewClassHandler(Deps{Predictor: reply(`{"className": "A"}`, &prompt), Prompts: store, Logger: quiet})
	h.GenerateSingleElement(context.Background(), Request{Text: "create A class"})
	if !strings.HasPrefix(prompt, "CUSTOM PROMPT\n\nUser Request: ") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry(deps(nil))
	if got := r.Types(); len(got) != 4 || got[0] != models.ClassDiagram {
		t.Errorf("types = %v", got)
	}
	if h := r.Resolve("SequenceDiagram"); h.DiagramType() != models.ClassDiagram {
		t.Errorf("unknown type resolved to %s", h.DiagramType())
	}
	if h := r.Resolve(models.AgentDiagram); h.DiagramType() != models.AgentDiagram {
		t.Errorf("resolved %s", h.DiagramType())
	}
	if NewRegistry().Resolve(models.ClassDiagram) != nil {
		t.Error("empty registry should resolve to nil")
	}
}

func TestPredictorErrorIsNotSurfaced(t *testing.T) {
	p := llm.PredictorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("connection refused")
	})
	env := NewAgentHandler(deps(p)).GenerateModification(context.Background(), Request{Text: "x"})
	if !env.Fallback || env.Validate() != nil {
		t.Errorf("env = %+v", env)
	}
}

func TestFallbacks_AreDeterministic(t *testing.T) {
	handlers := map[string]func(Deps) Handler{
		"class":        NewClassHandler,
		"object":       NewObjectHandler,
		"agent":        NewAgentHandler,
		"statemachine": NewStateMachineHandler,
	}
	for name, build := range handlers {
		t.Run(name, func(t *testing.T) {
			encode := func(system bool) string {
				h := build(deps(llm.Disabled{}))
				req := Request{Text: "create User class"}
				env := h.GenerateSingleElement(context.Background(), req)
				if system {
					env = h.GenerateCompleteSystem(context.Background(), req)
				}
				if !env.Fallback {
					t.Fatalf("expected fallback, got %+v", env)
				}
				b, err := json.Marshal(env)
				if err != nil {
					t.Fatal(err)
				}
				return string(b)
			}
			for _, system := range []bool{false, true} {
				if first, second := encode(system), encode(system); first != second {
					t.Errorf("system=%v:\n%s\n%s", system, first, second)
				}
			}
		})
	}
}

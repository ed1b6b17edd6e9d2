package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/starford/modeler/internal/classifier"
	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/llm"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/testutil"
)

var quiet = slog.New(slog.NewJSONHandler(io.Discard, nil))

func newEngine(t *testing.T, p llm.Predictor, opts ...Option) *Engine {
	t.Helper()
	reg := diagram.NewDefaultRegistry(diagram.Deps{Predictor: p, Logger: quiet})
	return New(reg, testutil.TestStore(t), p, append([]Option{WithLogger(quiet)}, opts...)...)
}

func handle(t *testing.T, e *Engine, ev Event) Reply {
	t.Helper()
	r, ok, err := e.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !ok {
		t.Fatalf("event %q was suppressed", ev.Message)
	}
	return r
}

func TestCreateSingleClass(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"className": "User", "attributes": [{"name": "id", "type": "String"}], "methods": []}`)
	e := newEngine(t, p)

	r := handle(t, e, Event{ConversationID: "c1", Message: "Create a User class"})
	if r.Kind != KindEnvelope || r.State != StateCreate {
		t.Fatalf("reply = %+v", r)
	}
	if r.Envelope.Action != envelope.ActionInjectElement || r.Envelope.DiagramType != models.ClassDiagram {
		t.Fatalf("envelope = %+v", r.Envelope)
	}
	c, ok := r.Envelope.Element.(models.Class)
	if !ok || c.ClassName != "User" {
		t.Fatalf("element = %#v", r.Envelope.Element)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(r.Text), &decoded); err != nil {
		t.Fatalf("reply text is not JSON: %v", err)
	}
	if decoded["action"] != "inject_element" {
		t.Errorf("action = %v", decoded["action"])
	}

	rec, err := e.store.Get(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.PendingMessage != "" || rec.PendingPayload != nil || rec.PendingDiagramType != "" {
		t.Errorf("pending payload not cleared: %+v", rec)
	}
}

func TestCreateSystem(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"systemName": "ECommerce", "classes": [
		{"className": "Customer", "attributes": ["name: String"]},
		{"className": "Order", "attributes": ["total: double"]}
	], "relationships": [{"type": "Association", "source": "Customer", "target": "Order"}]}`)
	e := newEngine(t, p)

	r := handle(t, e, Event{ConversationID: "c1", Message: "Create an e-commerce system"})
	if r.Envelope == nil || r.Envelope.Action != envelope.ActionInjectSystem {
		t.Fatalf("reply = %+v", r)
	}
	sys, ok := r.Envelope.SystemSpec.(models.ClassSystem)
	if !ok || len(sys.Classes) != 2 || len(sys.Relationships) != 1 {
		t.Fatalf("system = %#v", r.Envelope.SystemSpec)
	}
}

func TestModifyFromEnvelope(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"modification": {"action": "modify_class", "target": {"className": "User"}, "changes": {"name": "Customer"}}}`)
	e := newEngine(t, p)

	msg := `{"message": "Rename User to Customer", "diagramType": "ClassDiagram", "currentModel": {"elements": {
		"c1": {"id": "c1", "type": "Class", "name": "User"}}}}`
	r := handle(t, e, Event{ConversationID: "c1", Message: msg})
	if r.State != StateModify || r.Envelope == nil || r.Envelope.Action != envelope.ActionModifyModel {
		t.Fatalf("reply = %+v", r)
	}
	mod := r.Envelope.Modification
	if mod.Action != models.OpModifyClass || mod.Target["className"] != "User" || mod.Changes["name"] != "Customer" {
		t.Errorf("modification = %+v", mod)
	}
	if prompts := p.Prompts(); len(prompts) != 1 || !strings.Contains(prompts[0], "Class User") {
		t.Errorf("current model not summarized into prompt: %q", prompts)
	}
}

func TestDuplicateStructuredEventSuppressed(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"className": "User"}`)
	e := newEngine(t, p)
	ev := Event{ConversationID: "c1", Message: "Create a User class", Metadata: classifier.Metadata{DiagramType: "ClassDiagram"}}

	handle(t, e, ev)
	_, ok, err := e.Handle(context.Background(), ev)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("replayed event produced a second reply")
	}
	if p.Calls() != 1 {
		t.Errorf("predictor calls = %d, want 1", p.Calls())
	}

	// Whitespace and case differences are still the same request.
	if _, ok, _ := e.Handle(context.Background(), Event{ConversationID: "c1", Message: "  create a USER   class", Metadata: ev.Metadata}); ok {
		t.Error("normalized replay was not suppressed")
	}
	// Other conversations are unaffected.
	handle(t, e, Event{ConversationID: "c2", Message: ev.Message, Metadata: ev.Metadata})
}

func TestDuplicateStructuredGreetingSuppressed(t *testing.T) {
	p := testutil.NewScriptedPredictor("Ask me to create a class.")
	e := newEngine(t, p)
	ev := Event{ConversationID: "c1", Message: "Hello", Metadata: classifier.Metadata{DiagramType: "ClassDiagram"}}

	if r := handle(t, e, ev); r.State != StateGreeting {
		t.Fatalf("first reply = %+v", r)
	}
	r, ok, err := e.Handle(context.Background(), ev)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("replayed greeting produced %+v", r)
	}
	if p.Calls() != 0 {
		t.Errorf("predictor calls = %d, want 0", p.Calls())
	}
}

func TestPlainTextIsNeverSuppressed(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"className": "User"}`)
	e := newEngine(t, p)
	ev := Event{ConversationID: "c1", Message: "Create a User class"}
	handle(t, e, ev)
	handle(t, e, ev)
	if p.Calls() != 2 {
		t.Errorf("predictor calls = %d, want 2", p.Calls())
	}
}

func TestPlainTextClearsRequestKey(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"className": "User"}`)
	e := newEngine(t, p)
	structured := Event{ConversationID: "c1", Message: "Create a User class", Metadata: classifier.Metadata{DiagramType: "ClassDiagram"}}

	handle(t, e, structured)
	handle(t, e, Event{ConversationID: "c1", Message: "Create an Order class"})
	handle(t, e, structured)
}

func TestGreetingOnce(t *testing.T) {
	p := testutil.NewScriptedPredictor("Ask me to create a class.")
	e := newEngine(t, p)

	r := handle(t, e, Event{ConversationID: "c1", Message: "Hello"})
	if r.Kind != KindText || r.State != StateGreeting || r.Text != greetingText {
		t.Fatalf("first greeting = %+v", r)
	}
	r = handle(t, e, Event{ConversationID: "c1", Message: "hello"})
	if r.State != StateHelp || r.Text != "Ask me to create a class." {
		t.Fatalf("second greeting = %+v", r)
	}
	if p.Calls() != 1 {
		t.Errorf("predictor calls = %d", p.Calls())
	}
}

func TestHelp(t *testing.T) {
	p := testutil.NewScriptedPredictor("  Inheritance models an is-a relation.  ")
	e := newEngine(t, p)

	r := handle(t, e, Event{ConversationID: "c1", Message: "what is inheritance?"})
	if r.State != StateHelp || r.Text != "Inheritance models an is-a relation." {
		t.Fatalf("reply = %+v", r)
	}
	if got := p.Prompts()[0]; !strings.HasPrefix(got, helpPrompt) || !strings.HasSuffix(got, "User Request: what is inheritance?") {
		t.Errorf("prompt = %q", got)
	}
}

func TestHelpFallback(t *testing.T) {
	for name, p := range map[string]llm.Predictor{
		"unavailable": llm.Disabled{},
		"empty":       testutil.NewScriptedPredictor("   "),
	} {
		t.Run(name, func(t *testing.T) {
			r := handle(t, newEngine(t, p), Event{ConversationID: "c1", Message: "what can you do?"})
			if r.Text != staticHelp {
				t.Errorf("reply = %q", r.Text)
			}
		})
	}
}

func TestGenerationFailureFallsBack(t *testing.T) {
	e := newEngine(t, llm.Disabled{})
	r := handle(t, e, Event{ConversationID: "c1", Message: "Create a User class"})
	if r.Envelope == nil || !r.Envelope.Fallback || r.Envelope.Validate() != nil {
		t.Fatalf("reply = %+v", r)
	}
}

func TestReplyHook(t *testing.T) {
	var mu sync.Mutex
	var got []string
	e := newEngine(t, llm.Disabled{}, WithReplyHook(func(id string, r Reply) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, id+":"+string(r.State))
	}))
	handle(t, e, Event{ConversationID: "c1", Message: "hi"})
	if len(got) != 1 || got[0] != "c1:greeting" {
		t.Errorf("hook calls = %v", got)
	}
}

func TestEmptyConversationID(t *testing.T) {
	e := newEngine(t, llm.Disabled{})
	if _, _, err := e.Handle(context.Background(), Event{Message: "hi"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestForget(t *testing.T) {
	e := newEngine(t, llm.Disabled{})
	handle(t, e, Event{ConversationID: "c1", Message: "hi"})
	if err := e.Forget(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	// The greeting is sent again to a forgotten conversation.
	if r := handle(t, e, Event{ConversationID: "c1", Message: "hi"}); r.State != StateGreeting {
		t.Errorf("state = %s", r.State)
	}
	if err := e.Forget(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if err := e.Forget(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown conversation")
	}
}

func TestConcurrentReplaysProduceOneReply(t *testing.T) {
	p := testutil.NewScriptedPredictor(`{"className": "User"}`)
	e := newEngine(t, p)
	ev := Event{ConversationID: "c1", Message: "Create a User class", Metadata: classifier.Metadata{DiagramType: "class"}}

	var wg sync.WaitGroup
	var mu sync.Mutex
	replies := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := e.Handle(context.Background(), ev)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				replies++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if replies != 1 {
		t.Errorf("replies = %d, want 1", replies)
	}
}

func TestKeyedMutexReleasesIdleLocks(t *testing.T) {
	var k keyedMutex
	unlock := k.Lock("a")
	unlock()
	if len(k.locks) != 0 {
		t.Errorf("locks = %d", len(k.locks))
	}
}

// Package engine runs the conversation state machine: each inbound message
// is classified, routed to create, modify or help, and answered once.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/modeler/internal/classifier"
	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/llm"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
	"github.com/starford/modeler/internal/session"
)

// State is a node of the conversation state machine.
type State string

const (
	StateGreeting State = "greeting"
	StateRouting  State = "routing"
	StateCreate   State = "create"
	StateModify   State = "modify"
	StateHelp     State = "help"
)

// ReplyKind tells whether Text is an encoded envelope or plain text.
type ReplyKind string

const (
	KindEnvelope ReplyKind = "envelope"
	KindText     ReplyKind = "text"
)

// Reply is the single answer to one event.
type Reply struct {
	Kind  ReplyKind
	State State
	Text  string
	// Envelope is set when Kind is KindEnvelope.
	Envelope *envelope.Envelope
}

// Event is one inbound message of a conversation.
type Event struct {
	ConversationID string
	Message        string
	Metadata       classifier.Metadata
}

// Engine is safe for concurrent use. Events of one conversation are
// processed one at a time.
type Engine struct {
	registry  *diagram.Registry
	store     session.Store
	predictor llm.Predictor
	prompts   *prompts.Store
	logger    *slog.Logger
	onReply   func(conversationID string, r Reply)
	locks     keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithPrompts(s *prompts.Store) Option { return func(e *Engine) { e.prompts = s } }

// WithReplyHook registers fn to be called with every reply produced.
func WithReplyHook(fn func(conversationID string, r Reply)) Option {
	return func(e *Engine) { e.onReply = fn }
}

// New builds an engine. predictor answers help questions; diagram
// generation goes through the registry's handlers.
func New(registry *diagram.Registry, store session.Store, predictor llm.Predictor, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		store:     store,
		predictor: predictor,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.predictor == nil {
		e.predictor = llm.Disabled{}
	}
	return e
}

// Handle processes ev and returns its reply. ok is false when ev replays the
// previous structured request and was suppressed.
func (e *Engine) Handle(ctx context.Context, ev Event) (reply Reply, ok bool, err error) {
	if ev.ConversationID == "" {
		return Reply{}, false, fmt.Errorf("engine: empty conversation id")
	}
	unlock := e.locks.Lock(ev.ConversationID)
	defer unlock()

	rec, err := e.store.Get(ctx, ev.ConversationID)
	if err != nil {
		return Reply{}, false, fmt.Errorf("engine: %w", err)
	}

	res := classifier.Classify(ev.Message, ev.Metadata)
	state := e.next(res, rec)

	key := requestKey(res.Category, res.DiagramType, res.Message)
	if res.Structured {
		if key == rec.LastRequestKey {
			e.logger.Info("engine: duplicate event suppressed",
				slog.String("conversation", ev.ConversationID),
				slog.String("state", string(state)))
			return Reply{}, false, nil
		}
		rec.LastRequestKey = key
	} else {
		rec.LastRequestKey = ""
	}

	if state == StateCreate || state == StateModify {
		// Routing: cache the parsed payload for the generation step.
		rec.PendingPayload = res.CurrentModel
		rec.PendingMessage = res.Message
		rec.PendingDiagramType = res.DiagramType
		if err := e.store.Put(ctx, rec); err != nil {
			return Reply{}, false, fmt.Errorf("engine: %w", err)
		}
	}

	e.logger.Debug("engine: routing",
		slog.String("conversation", ev.ConversationID),
		slog.String("diagram_type", string(res.DiagramType)),
		slog.String("category", string(res.Category)),
		slog.String("state", string(state)))

	switch state {
	case StateGreeting:
		reply = Reply{Kind: KindText, State: state, Text: greetingText}
		rec.HasGreeted = true
	case StateHelp:
		reply = Reply{Kind: KindText, State: state, Text: e.help(ctx, res)}
	default:
		reply, err = e.generate(ctx, state, res.Category, &rec)
		if err != nil {
			return Reply{}, false, err
		}
	}

	if err := e.store.Put(ctx, rec); err != nil {
		return Reply{}, false, fmt.Errorf("engine: %w", err)
	}
	if e.onReply != nil {
		e.onReply(ev.ConversationID, reply)
	}
	return reply, true, nil
}

// Forget drops the scratch record of a conversation.
func (e *Engine) Forget(ctx context.Context, conversationID string) error {
	unlock := e.locks.Lock(conversationID)
	defer unlock()
	return e.store.Delete(ctx, conversationID)
}

// next picks the terminal state for this turn. Greeting is answered once per
// conversation; later greetings get help.
func (e *Engine) next(res classifier.Result, rec session.Record) State {
	switch res.Category {
	case models.CategoryGreeting:
		if !rec.HasGreeted {
			return StateGreeting
		}
		return StateHelp
	case models.CategoryModify:
		return StateModify
	case models.CategoryCreateElement, models.CategoryCreateSystem:
		return StateCreate
	default:
		return StateHelp
	}
}

// generate runs Create or Modify from the cached payload and clears it.
func (e *Engine) generate(ctx context.Context, state State, category models.IntentCategory, rec *session.Record) (Reply, error) {
	h := e.registry.Resolve(rec.PendingDiagramType)
	if h == nil {
		return Reply{}, fmt.Errorf("engine: no diagram handlers registered")
	}
	req := diagram.Request{Text: rec.PendingMessage, CurrentModel: rec.PendingPayload}

	var env envelope.Envelope
	switch {
	case state == StateModify:
		env = h.GenerateModification(ctx, req)
	case category == models.CategoryCreateSystem:
		env = h.GenerateCompleteSystem(ctx, req)
	default:
		env = h.GenerateSingleElement(ctx, req)
	}
	rec.ClearPending()

	text, err := env.Encode()
	if err != nil {
		return Reply{}, fmt.Errorf("engine: %w", err)
	}
	return Reply{Kind: KindEnvelope, State: state, Text: text, Envelope: &env}, nil
}

func (e *Engine) help(ctx context.Context, res classifier.Result) string {
	system := helpPrompt
	if e.prompts != nil {
		system = e.prompts.Resolve(res.DiagramType, prompts.KindHelp, helpPrompt)
	}
	answer, err := e.predictor.Predict(ctx, system+"\n\nUser Request: "+res.Message)
	if err != nil {
		e.logger.Warn("engine: help prediction failed", slog.String("error", err.Error()))
		return staticHelp
	}
	if answer = strings.TrimSpace(answer); answer == "" {
		return staticHelp
	}
	return answer
}

// requestKey identifies a logical request for replay detection. It depends
// only on the event, never on session state the first delivery changed.
func requestKey(category models.IntentCategory, dt models.DiagramType, message string) string {
	return string(category) + "|" + string(dt) + "|" + strings.Join(strings.Fields(strings.ToLower(message)), " ")
}

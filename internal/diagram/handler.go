// Package diagram turns natural-language requests into normalized diagram
// specs. Each diagram type is a Handler; every generation path ends in a
// well-formed envelope, falling back to a deterministic spec when the model
// reply is missing or unusable.
package diagram

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/llm"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
)

// Request is one generation request.
type Request struct {
	Text string
	// CurrentModel is the editor snapshot, if the caller sent one.
	CurrentModel json.RawMessage
}

// Handler is the capability set shared by all diagram types.
type Handler interface {
	DiagramType() models.DiagramType
	// Operations lists the modification operations this diagram accepts.
	Operations() []string

	GenerateSingleElement(ctx context.Context, req Request) envelope.Envelope
	GenerateCompleteSystem(ctx context.Context, req Request) envelope.Envelope
	GenerateModification(ctx context.Context, req Request) envelope.Envelope

	FallbackElement(req Request) envelope.Envelope
	FallbackSystem(req Request) envelope.Envelope
	FallbackModification(req Request) envelope.Envelope
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Predictor llm.Predictor
	Prompts   *prompts.Store // optional
	Logger    *slog.Logger
}

// Registry maps diagram types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[models.DiagramType]Handler
	order    []models.DiagramType
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.DiagramType]Handler)}
}

// NewDefaultRegistry registers a handler for every built-in diagram type.
func NewDefaultRegistry(d Deps) *Registry {
	r := NewRegistry()
	r.Register(NewClassHandler(d))
	r.Register(NewObjectHandler(d))
	r.Register(NewAgentHandler(d))
	r.Register(NewStateMachineHandler(d))
	return r
}

// Register adds h, replacing any handler for the same diagram type.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dt := h.DiagramType()
	if _, ok := r.handlers[dt]; !ok {
		r.order = append(r.order, dt)
	}
	r.handlers[dt] = h
}

func (r *Registry) Get(dt models.DiagramType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[dt]
	return h, ok
}

// Resolve returns the handler for dt, or the default diagram's handler when
// dt is not registered. It returns nil only for an empty registry.
func (r *Registry) Resolve(dt models.DiagramType) Handler {
	if h, ok := r.Get(dt); ok {
		return h
	}
	if h, ok := r.Get(models.DefaultDiagramType); ok {
		return h
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.handlers[r.order[0]]
}

// Types returns the registered diagram types in registration order.
func (r *Registry) Types() []models.DiagramType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.DiagramType(nil), r.order...)
}

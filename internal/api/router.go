package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/engine"
	"github.com/starford/modeler/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// events, if non-nil, serves GET /conversations/{id}/events inside the auth group.
func NewRouter(eng *engine.Engine, registry *diagram.Registry, authEnabled bool, token string, events *sse.Broker) chi.Router {
	h := NewHandler(eng, registry, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Conversations.
	r.Post("/conversations/{id}/messages", h.PostMessage)
	r.Delete("/conversations/{id}", h.DeleteConversation)
	if events != nil {
		r.Get("/conversations/{id}/events", h.Events)
	}

	// Stateless generation.
	r.Get("/diagram-types", h.DiagramTypes)
	r.Post("/generate/{diagramType}/{operation}", h.Generate)

	return r
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/classifier"
	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/engine"
	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/sse"
)

const maxMessageRunes = 20000

// Generation operations accepted by POST /generate/{diagramType}/{operation}.
const (
	OperationElement      = "element"
	OperationSystem       = "system"
	OperationModification = "modification"
)

// Handler holds API route handlers.
type Handler struct {
	engine   *engine.Engine
	registry *diagram.Registry
	events   *sse.Broker
}

// NewHandler creates a new Handler.
func NewHandler(eng *engine.Engine, registry *diagram.Registry, events *sse.Broker) *Handler {
	return &Handler{engine: eng, registry: registry, events: events}
}

// Validate checks the message request body.
func (m MessageRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Message, validation.Required, validation.RuneLength(1, maxMessageRunes)),
	)
}

// Validate checks the generate request body.
func (g GenerateRequest) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Request, validation.Required, validation.RuneLength(1, maxMessageRunes)),
		validation.Field(&g.CurrentModel, validation.By(jsonObject)),
	)
}

// jsonObject accepts an absent or null value, or a JSON object.
func jsonObject(v any) error {
	raw, _ := v.(json.RawMessage)
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || strings.HasPrefix(trimmed, "{") {
		return nil
	}
	return errors.New("must be a JSON object")
}

// PostMessage handles POST /api/conversations/{id}/messages.
//
//	@Summary		Send a message to a conversation
//	@Tags			conversations
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Conversation ID"
//	@Param			body	body		MessageRequest	true	"Message"
//	@Success		200		{object}	MessageResponse
//	@Success		204		"Duplicate event suppressed"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversations/{id}/messages [post]
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ev := engine.Event{ConversationID: chi.URLParam(r, "id"), Message: req.Message}
	if req.Metadata != nil {
		ev.Metadata = classifier.Metadata{DiagramType: req.Metadata.DiagramType}
	}
	reply, ok, err := h.engine.Handle(r.Context(), ev)
	if err != nil {
		slog.Error("handle message failed", slog.String("conversation", ev.ConversationID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, newMessageResponse(reply))
}

// DeleteConversation handles DELETE /api/conversations/{id}.
//
//	@Summary		Forget a conversation's scratch state
//	@Tags			conversations
//	@Param			id	path	string	true	"Conversation ID"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/conversations/{id} [delete]
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Forget(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("forget conversation failed", slog.String("conversation", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /api/conversations/{id}/events.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	h.events.Serve(w, r, chi.URLParam(r, "id"))
}

// DiagramTypes handles GET /api/diagram-types.
//
//	@Summary		List supported diagram types
//	@Tags			generate
//	@Produce		json
//	@Success		200	{object}	DiagramTypesResponse
//	@Security		BearerAuth
//	@Router			/diagram-types [get]
func (h *Handler) DiagramTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DiagramTypesResponse{DiagramTypes: h.registry.Types()})
}

// Generate handles POST /api/generate/{diagramType}/{operation}.
//
//	@Summary		Generate an envelope without conversation state
//	@Tags			generate
//	@Accept			json
//	@Produce		json
//	@Param			diagramType	path		string			true	"Diagram type"	Enums(ClassDiagram, ObjectDiagram, AgentDiagram, StateMachineDiagram)
//	@Param			operation	path		string			true	"Operation"		Enums(element, system, modification)
//	@Param			body		body		GenerateRequest	true	"Request"
//	@Success		200			{object}	envelope.Envelope
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/generate/{diagramType}/{operation} [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	dt, ok := models.ParseDiagramType(chi.URLParam(r, "diagramType"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown diagram type"))
		return
	}
	handler, ok := h.registry.Get(dt)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown diagram type"))
		return
	}

	var generate func(diagram.Request) envelope.Envelope
	switch op := chi.URLParam(r, "operation"); op {
	case OperationElement:
		generate = func(req diagram.Request) envelope.Envelope { return handler.GenerateSingleElement(r.Context(), req) }
	case OperationSystem:
		generate = func(req diagram.Request) envelope.Envelope { return handler.GenerateCompleteSystem(r.Context(), req) }
	case OperationModification:
		generate = func(req diagram.Request) envelope.Envelope { return handler.GenerateModification(r.Context(), req) }
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown operation"))
		return
	}

	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, generate(diagram.Request{Text: req.Request, CurrentModel: req.CurrentModel}))
}

// ReplyEvent converts an engine reply into the SSE event streamed to the
// conversation's subscribers.
func ReplyEvent(conversationID string, r engine.Reply) sse.Event {
	return sse.Event{Type: "reply", ConversationID: conversationID, Data: newMessageResponse(r)}
}

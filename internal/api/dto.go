package api

import (
	"encoding/json"

	"github.com/starford/modeler/internal/engine"
	"github.com/starford/modeler/internal/models"
)

// MessageRequest is the request body for posting a conversation message.
type MessageRequest struct {
	Message  string           `json:"message" example:"Create a User class" validate:"required"`
	Metadata *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata carries event metadata sent by the editor.
type MessageMetadata struct {
	DiagramType string `json:"diagramType,omitempty" example:"ClassDiagram"`
}

// MessageResponse is the single reply to a message. Reply holds the encoded
// envelope when Kind is "envelope".
type MessageResponse struct {
	Kind  engine.ReplyKind `json:"kind" example:"envelope" validate:"required"`
	State engine.State     `json:"state" example:"create" validate:"required"`
	Reply string           `json:"reply" validate:"required"`
}

// GenerateRequest is the request body for stateless generation.
type GenerateRequest struct {
	Request      string          `json:"request" example:"Create a library management system" validate:"required"`
	CurrentModel json.RawMessage `json:"currentModel,omitempty" swaggertype:"object"`
}

// DiagramTypesResponse lists the registered diagram handlers.
type DiagramTypesResponse struct {
	DiagramTypes []models.DiagramType `json:"diagramTypes" validate:"required"`
}

func newMessageResponse(r engine.Reply) MessageResponse {
	return MessageResponse{Kind: r.Kind, State: r.State, Reply: r.Text}
}

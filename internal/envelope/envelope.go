// Package envelope builds the uniform reply object sent back to the editor.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/modeler/internal/models"
)

// Action tags the shape of an Envelope.
type Action string

const (
	ActionInjectElement Action = "inject_element"
	ActionInjectSystem  Action = "inject_complete_system"
	ActionModifyModel   Action = "modify_model"
)

// Envelope wraps handler output. Exactly one of Element, SystemSpec and
// Modification is set, matching Action.
type Envelope struct {
	Action       Action               `json:"action"`
	Element      any                  `json:"element,omitempty"`
	SystemSpec   any                  `json:"systemSpec,omitempty"`
	Modification *models.Modification `json:"modification,omitempty"`
	DiagramType  models.DiagramType   `json:"diagramType"`
	Message      string               `json:"message"`
	// Fallback marks a reply produced without a usable model response.
	Fallback bool `json:"fallback,omitempty"`
}

func Element(dt models.DiagramType, element any, message string) Envelope {
	return Envelope{Action: ActionInjectElement, Element: element, DiagramType: dt, Message: message}
}

func System(dt models.DiagramType, spec any, message string) Envelope {
	return Envelope{Action: ActionInjectSystem, SystemSpec: spec, DiagramType: dt, Message: message}
}

func Modify(dt models.DiagramType, mod models.Modification, message string) Envelope {
	return Envelope{Action: ActionModifyModel, Modification: &mod, DiagramType: dt, Message: message}
}

// AsFallback returns a copy of e flagged as a degraded result.
func (e Envelope) AsFallback() Envelope {
	e.Fallback = true
	return e
}

var errShape = errors.New("envelope: payload does not match action")

// Validate checks that the payload matches the action.
func (e Envelope) Validate() error {
	var ok bool
	switch e.Action {
	case ActionInjectElement:
		ok = e.Element != nil && e.SystemSpec == nil && e.Modification == nil
	case ActionInjectSystem:
		ok = e.SystemSpec != nil && e.Element == nil && e.Modification == nil
	case ActionModifyModel:
		ok = e.Modification != nil && e.Element == nil && e.SystemSpec == nil
	default:
		return fmt.Errorf("envelope: unknown action %q", e.Action)
	}
	if !ok {
		return fmt.Errorf("%w: %s", errShape, e.Action)
	}
	if e.DiagramType == "" {
		return errors.New("envelope: diagram type required")
	}
	return nil
}

// Encode returns the JSON text of e.
func (e Envelope) Encode() (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("envelope: encode: %w", err)
	}
	return string(b), nil
}

package diagram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/jsonrepair"
	"github.com/starford/modeler/internal/llm"
	"github.com/starford/modeler/internal/models"
	"github.com/starford/modeler/internal/prompts"
)

// variant supplies the diagram-specific half of a handler: prompts,
// normalization and fallbacks.
type variant interface {
	diagramType() models.DiagramType
	operations() []string
	builtinPrompt(kind prompts.Kind) string
	elementRequest(text string) string
	modificationRequest(text string) string
	summarize(model json.RawMessage) string

	// element and system normalize a parsed reply. existing is the number
	// of top-level elements already on the canvas.
	element(raw map[string]any, existing int) (any, string, error)
	system(raw map[string]any, drop dropFunc) (any, string, error)

	fallbackElement(text string, existing int) (any, string)
	fallbackSystem(text string) (any, string)
	fallbackModification() models.Modification
}

type handler struct {
	v         variant
	predictor llm.Predictor
	prompts   *prompts.Store
	logger    *slog.Logger
}

func newHandler(v variant, d Deps) *handler {
	h := &handler{v: v, predictor: d.Predictor, prompts: d.Prompts, logger: d.Logger}
	if h.predictor == nil {
		h.predictor = llm.Disabled{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

func (h *handler) DiagramType() models.DiagramType { return h.v.diagramType() }

func (h *handler) Operations() []string { return append([]string(nil), h.v.operations()...) }

func (h *handler) GenerateSingleElement(ctx context.Context, req Request) (env envelope.Envelope) {
	defer h.recoverWith(&env, "element", func() envelope.Envelope { return h.FallbackElement(req) })

	raw, err := h.complete(ctx, prompts.KindElement, h.v.elementRequest(req.Text))
	if err == nil {
		var el any
		var msg string
		if el, msg, err = h.v.element(raw, countElements(req.CurrentModel)); err == nil {
			return envelope.Element(h.v.diagramType(), el, msg)
		}
	}
	h.logFallback("element", err)
	return h.FallbackElement(req)
}

func (h *handler) GenerateCompleteSystem(ctx context.Context, req Request) (env envelope.Envelope) {
	defer h.recoverWith(&env, "system", func() envelope.Envelope { return h.FallbackSystem(req) })

	raw, err := h.complete(ctx, prompts.KindSystem, req.Text)
	if err == nil {
		var spec any
		var msg string
		if spec, msg, err = h.v.system(raw, h.logDropped); err == nil {
			return envelope.System(h.v.diagramType(), spec, msg)
		}
	}
	h.logFallback("system", err)
	return h.FallbackSystem(req)
}

func (h *handler) GenerateModification(ctx context.Context, req Request) (env envelope.Envelope) {
	defer h.recoverWith(&env, "modification", func() envelope.Envelope { return h.FallbackModification(req) })

	user := h.v.modificationRequest(req.Text) + h.v.summarize(req.CurrentModel)
	raw, err := h.complete(ctx, prompts.KindModification, user)
	if err == nil {
		var mod models.Modification
		var msg string
		if mod, msg, err = normalizeModification(raw, h.v.operations()); err == nil {
			return envelope.Modify(h.v.diagramType(), mod, msg)
		}
	}
	h.logFallback("modification", err)
	return h.FallbackModification(req)
}

func (h *handler) FallbackElement(req Request) envelope.Envelope {
	el, msg := h.v.fallbackElement(req.Text, countElements(req.CurrentModel))
	return envelope.Element(h.v.diagramType(), el, msg).AsFallback()
}

func (h *handler) FallbackSystem(req Request) envelope.Envelope {
	spec, msg := h.v.fallbackSystem(req.Text)
	return envelope.System(h.v.diagramType(), spec, msg).AsFallback()
}

func (h *handler) FallbackModification(Request) envelope.Envelope {
	return envelope.Modify(h.v.diagramType(), h.v.fallbackModification(),
		"Failed to generate modification automatically (fallback used).").AsFallback()
}

// complete prompts the model and repairs its reply into a JSON object.
func (h *handler) complete(ctx context.Context, kind prompts.Kind, user string) (map[string]any, error) {
	system := h.v.builtinPrompt(kind)
	if h.prompts != nil {
		system = h.prompts.Resolve(h.v.diagramType(), kind, system)
	}
	text, err := h.predictor.Predict(ctx, system+"\n\nUser Request: "+user)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.ErrEmptyResponse
	}
	return jsonrepair.Repair(text)
}

// dropFunc receives references removed during normalization.
type dropFunc func(error)

func (f dropFunc) report(err error) {
	if f != nil {
		f(err)
	}
}

func (h *handler) logDropped(err error) {
	h.logger.Debug("diagram: reference dropped",
		slog.String("diagram_type", string(h.v.diagramType())),
		slog.String("error", err.Error()))
}

func (h *handler) logFallback(op string, err error) {
	h.logger.Warn("diagram: fallback used",
		slog.String("diagram_type", string(h.v.diagramType())),
		slog.String("operation", op),
		slog.String("error", err.Error()))
}

func (h *handler) recoverWith(env *envelope.Envelope, op string, fallback func() envelope.Envelope) {
	if r := recover(); r != nil {
		h.logFallback(op, fmt.Errorf("panic: %v", r))
		*env = fallback()
	}
}

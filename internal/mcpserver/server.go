// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the modeling assistant as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/tidwall/gjson"

	"github.com/starford/modeler/internal/classifier"
	"github.com/starford/modeler/internal/diagram"
	"github.com/starford/modeler/internal/engine"
	"github.com/starford/modeler/internal/envelope"
	"github.com/starford/modeler/internal/models"
)

// OperationsURI names the modification vocabulary resource.
const OperationsURI = "modeler://modification-operations"

// Server wraps the MCP server with the modeling tools.
type Server struct {
	mcp      *server.MCPServer
	registry *diagram.Registry
	engine   *engine.Engine
}

// New creates a new MCP server with all tools registered.
func New(registry *diagram.Registry, eng *engine.Engine) *Server {
	s := &Server{registry: registry, engine: eng}

	s.mcp = server.NewMCPServer(
		"UML Modeler",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	diagramTypes := make([]string, 0, len(models.DiagramTypes))
	for _, dt := range registry.Types() {
		diagramTypes = append(diagramTypes, string(dt))
	}

	s.mcp.AddTool(mcp.NewTool("classify_request",
		mcp.WithDescription("Resolve the diagram type and intent category of a user message. "+
			"Accepts plain text, a [DIAGRAM_TYPE:X] prefix or a JSON envelope."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Raw user message")),
		mcp.WithString("diagramType", mcp.Description("Diagram type from event metadata")),
	), s.classifyRequest)

	generateOpts := func(desc string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithDescription(desc),
			mcp.WithString("diagramType", mcp.Required(), mcp.Enum(diagramTypes...), mcp.Description("Target diagram type")),
			mcp.WithString("request", mcp.Required(), mcp.Description("Natural-language request")),
			mcp.WithString("currentModel", mcp.Description("Current editor model as a JSON object")),
		}
	}
	s.mcp.AddTool(mcp.NewTool("generate_element", generateOpts(
		"Generate one diagram element and return an inject_element envelope.")...), s.generateElement)
	s.mcp.AddTool(mcp.NewTool("generate_system", generateOpts(
		"Generate a complete multi-element diagram and return an inject_complete_system envelope.")...), s.generateSystem)
	s.mcp.AddTool(mcp.NewTool("generate_modification", generateOpts(
		"Generate one edit of the current model and return a modify_model envelope. "+
			"Read the "+OperationsURI+" resource for the allowed operations.")...), s.generateModification)

	s.mcp.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a message to a conversation and return its single reply. "+
			"Replays of the previous structured request return no reply."),
		mcp.WithString("conversationId", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithString("message", mcp.Required(), mcp.Description("User message")),
		mcp.WithString("diagramType", mcp.Description("Diagram type from event metadata")),
	), s.sendMessage)

	s.mcp.AddTool(mcp.NewTool("get_modification_operations",
		mcp.WithDescription("Returns the modification operations each diagram type accepts."),
	), s.getOperations)

	s.mcp.AddResource(
		mcp.NewResource(OperationsURI, "Modification Operations",
			mcp.WithResourceDescription("Modification vocabulary per diagram type, with target and change fields."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOperationsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type classification struct {
	DiagramType models.DiagramType    `json:"diagramType"`
	Category    models.IntentCategory `json:"category"`
	Message     string                `json:"message"`
	Structured  bool                  `json:"structured"`
	HasModel    bool                  `json:"hasCurrentModel"`
}

func (s *Server) classifyRequest(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := classifier.Classify(msg, classifier.Metadata{DiagramType: req.GetString("diagramType", "")})
	return jsonResult(classification{
		DiagramType: res.DiagramType,
		Category:    res.Category,
		Message:     res.Message,
		Structured:  res.Structured,
		HasModel:    len(res.CurrentModel) > 0,
	})
}

func (s *Server) generateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.generate(req, func(h diagram.Handler, r diagram.Request) envelope.Envelope {
		return h.GenerateSingleElement(ctx, r)
	})
}

func (s *Server) generateSystem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.generate(req, func(h diagram.Handler, r diagram.Request) envelope.Envelope {
		return h.GenerateCompleteSystem(ctx, r)
	})
}

func (s *Server) generateModification(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.generate(req, func(h diagram.Handler, r diagram.Request) envelope.Envelope {
		return h.GenerateModification(ctx, r)
	})
}

func (s *Server) generate(req mcp.CallToolRequest, run func(diagram.Handler, diagram.Request) envelope.Envelope) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("diagramType")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dt, ok := models.ParseDiagramType(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown diagram type: %s", name)), nil
	}
	h, ok := s.registry.Get(dt)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown diagram type: %s", name)), nil
	}
	text, err := req.RequireString("request")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := diagram.Request{Text: text}
	if raw := strings.TrimSpace(req.GetString("currentModel", "")); raw != "" {
		if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
			return mcp.NewToolResultError("currentModel must be a JSON object"), nil
		}
		r.CurrentModel = json.RawMessage(raw)
	}

	out, err := run(h, r).Encode()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

type messageReply struct {
	Kind  engine.ReplyKind `json:"kind"`
	State engine.State     `json:"state"`
	Reply string           `json:"reply"`
}

func (s *Server) sendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("conversationId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	reply, ok, err := s.engine.Handle(ctx, engine.Event{
		ConversationID: id,
		Message:        msg,
		Metadata:       classifier.Metadata{DiagramType: req.GetString("diagramType", "")},
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("duplicate event suppressed"), nil
	}
	return jsonResult(messageReply{Kind: reply.Kind, State: reply.State, Reply: reply.Text})
}

func (s *Server) getOperations(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OperationsContract(s.registry)), nil
}

func (s *Server) readOperationsResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      OperationsURI,
			MIMEType: "text/markdown",
			Text:     OperationsContract(s.registry),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

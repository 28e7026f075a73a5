package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/storyline"
	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/story"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StepsURI is the resource holding the whole story.
const StepsURI = "story://steps"

// ToolResponse is the structured output of every tool.
type ToolResponse struct {
	SessionID string           `json:"session_id" jsonschema_description:"The session the call applied to"`
	Renders   []domain.Render  `json:"renders" jsonschema_description:"Messages to show the user, in order"`
	Progress  *domain.Progress `json:"progress,omitempty" jsonschema_description:"Position of the session in the story"`
}

// Engine is the read side of the story engine used by the tools.
type Engine interface {
	Progress(ctx context.Context, sessionID string) (domain.Progress, error)
	Story() *story.Store
}

// Dispatcher turns events into renders; see pkg/dispatch.
type Dispatcher interface {
	Handle(ctx context.Context, ev domain.Event) []domain.Render
	HandleCallback(ctx context.Context, sessionID, data string) []domain.Render
}

// Server exposes the story engine as an MCP server, so an agent can play a journey.
type Server struct {
	engine     Engine
	dispatcher Dispatcher
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type chooseArgs struct {
	SessionID string `json:"session_id"`
	Step      *int   `json:"step"`
	Label     string `json:"label"`
	Data      string `json:"data"`
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, dispatcher Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:     engine,
		dispatcher: dispatcher,
		mcpServer:  server.NewMCPServer("storyline-mcp", storyline.Version),
		logger:     logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. to mount it elsewhere.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Identifier of the player's session"))

	s.mcpServer.AddTool(mcp.NewTool("start_journey",
		mcp.WithDescription("Start (or restart) the journey at the first step."),
		sessionID,
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.eventTool(domain.EventStart)))

	s.mcpServer.AddTool(mcp.NewTool("reset_journey",
		mcp.WithDescription("Drop all choices and go back to the first step."),
		sessionID,
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.eventTool(domain.EventReset)))

	s.mcpServer.AddTool(mcp.NewTool("current_step",
		mcp.WithDescription("Show the step awaiting a choice."),
		sessionID,
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.eventTool(domain.EventCurrent)))

	s.mcpServer.AddTool(mcp.NewTool("get_progress",
		mcp.WithDescription("Report the current step number and the total."),
		sessionID,
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleProgress))

	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Pick option A or B for a step. Choices for a step other than the current one are ignored as stale."),
		sessionID,
		mcp.WithNumber("step", mcp.Description("0-based index of the step being answered (step_index of the step render)")),
		mcp.WithString("label", mcp.Enum("A", "B"), mcp.Description("The chosen option")),
		mcp.WithString("data", mcp.Description("Raw callback payload 'choose|<step>|<a|b>', instead of step and label")),
		mcp.WithOutputSchema[ToolResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))
}

func (s *Server) eventTool(kind domain.EventKind) mcp.StructuredToolHandlerFunc[sessionArgs, ToolResponse] {
	return func(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
		if args.SessionID == "" {
			return ToolResponse{}, errors.New("session_id is required")
		}
		renders := s.dispatcher.Handle(ctx, domain.Event{Kind: kind, SessionID: args.SessionID})
		return ToolResponse{SessionID: args.SessionID, Renders: renders}, nil
	}
}

func (s *Server) handleProgress(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (ToolResponse, error) {
	if args.SessionID == "" {
		return ToolResponse{}, errors.New("session_id is required")
	}
	progress, err := s.engine.Progress(ctx, args.SessionID)
	if err != nil {
		s.logger.Error("MCP Progress: failed", "session_id", args.SessionID, "err", err)
		return ToolResponse{}, fmt.Errorf("progress failed: %w", err)
	}
	renders := s.dispatcher.Handle(ctx, domain.Event{Kind: domain.EventProgress, SessionID: args.SessionID})
	return ToolResponse{SessionID: args.SessionID, Renders: renders, Progress: &progress}, nil
}

func (s *Server) handleChoose(ctx context.Context, request mcp.CallToolRequest, args chooseArgs) (ToolResponse, error) {
	if args.SessionID == "" {
		return ToolResponse{}, errors.New("session_id is required")
	}

	if args.Data != "" {
		return ToolResponse{
			SessionID: args.SessionID,
			Renders:   s.dispatcher.HandleCallback(ctx, args.SessionID, args.Data),
		}, nil
	}

	if args.Step == nil {
		return ToolResponse{}, errors.New("either step and label, or data, is required")
	}
	label, err := domain.ParseLabel(args.Label)
	if err != nil {
		s.logger.Warn("MCP Choose: invalid label", "session_id", args.SessionID, "err", err)
		return ToolResponse{}, err
	}

	renders := s.dispatcher.Handle(ctx, domain.ChoiceEventFor(args.SessionID, *args.Step, label))
	return ToolResponse{SessionID: args.SessionID, Renders: renders}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StepsURI, "Story steps",
		mcp.WithResourceDescription("Every step of the story with its two options, in order."),
		mcp.WithMIMEType("application/json"),
	), s.readSteps)
}

func (s *Server) readSteps(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.engine.Story().Steps())
	if err != nil {
		return nil, fmt.Errorf("failed to encode steps: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StepsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/internal/presentation/graph"
	"github.com/aretw0/reel/pkg/domain"
)

// GraphURI is the resource exposing the workflow graph as Mermaid.
const GraphURI = "reel://graph"

// GenerateArgs are the arguments of the generate_video tool.
type GenerateArgs struct {
	Concept  string `json:"concept"`
	Language string `json:"language,omitempty"`
}

// RunArgs are the arguments of the get_run tool.
type RunArgs struct {
	RunID string `json:"run_id"`
}

// Generator is the part of *reel.Generator the MCP server drives.
type Generator interface {
	NewRequest(concept, language string) (reel.Request, error)
	Execute(ctx context.Context, req reel.Request) domain.RunRecord
	Lookup(ctx context.Context, id string) (domain.RunRecord, error)
	Graph() *domain.Graph
}

// Server wraps the generator and exposes it as an MCP server.
type Server struct {
	gen       Generator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server. A nil logger discards output.
func NewServer(gen Generator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Server{
		gen:    gen,
		logger: logger,
		mcpServer: server.NewMCPServer("reel-mcp", strings.TrimSpace(reel.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying server, mainly for tests and custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	generateTool := mcp.NewTool("generate_video",
		mcp.WithDescription("Generate a narrated math animation for a concept. Blocks until the run finishes."),
		mcp.WithString("concept", mcp.Required(), mcp.Description("The mathematical concept to explain")),
		mcp.WithString("language", mcp.Description("Narration language code, e.g. en-US (default) or pt-BR")),
		mcp.WithOutputSchema[domain.Result](),
	)
	s.mcpServer.AddTool(generateTool, mcp.NewStructuredToolHandler(s.handleGenerate))

	runTool := mcp.NewTool("get_run",
		mcp.WithDescription("Get the stored record of a previous run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("The run identifier returned by generate_video")),
		mcp.WithOutputSchema[domain.RunRecord](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleGetRun))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the workflow graph as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(graph.GenerateMermaid(s.gen.Graph(), nil)), nil
	})
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest, args GenerateArgs) (domain.Result, error) {
	req, err := s.gen.NewRequest(args.Concept, args.Language)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP generate: input rejected", "error", err, "size", len(args.Concept))
		return domain.Result{}, fmt.Errorf("input rejected: %w", err)
	}
	rec := s.gen.Execute(ctx, req)
	s.logger.InfoContext(ctx, "MCP generate finished", "run_id", rec.ID, "status", rec.Status, "category", rec.Category)
	return rec.Result(), nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest, args RunArgs) (domain.RunRecord, error) {
	if args.RunID == "" {
		return domain.RunRecord{}, errors.New("run_id is required")
	}
	rec, err := s.gen.Lookup(ctx, args.RunID)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("lookup %q: %w", args.RunID, err)
	}
	return rec, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Workflow Graph",
		mcp.WithResourceDescription("The video pipeline as a Mermaid flowchart"),
		mcp.WithMIMEType("text/plain"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "text/plain",
			Text:     graph.GenerateMermaid(s.gen.Graph(), nil),
		},
	}, nil
}

// Package mcp exposes speech and braille rendering as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nlbdev/MathCAT"
	"github.com/nlbdev/MathCAT/internal/logging"
	"github.com/nlbdev/MathCAT/internal/rules"
)

// RenderArgs are the arguments of both render tools.
type RenderArgs struct {
	MathML      string            `json:"mathml"`
	Preferences map[string]string `json:"preferences,omitempty"`
	NavHint     string            `json:"nav_hint,omitempty"`
}

// RenderResponse is the structured result of both render tools.
type RenderResponse struct {
	Output    string `json:"output" jsonschema_description:"Spoken text or braille cells"`
	Canonical string `json:"canonical" jsonschema_description:"Canonical MathML with node ids"`
}

// Server wraps a rule repository and serves it over MCP. Every tool call
// runs in a fresh session.
type Server struct {
	repo      *rules.Repository
	logger    *slog.Logger
	sessions  []mathcat.Option
	mcpServer *server.MCPServer
}

type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSessionOptions passes opts to every per-call session.
func WithSessionOptions(opts ...mathcat.Option) Option {
	return func(s *Server) { s.sessions = append(s.sessions, opts...) }
}

// NewServer creates a new MCP Server instance.
func NewServer(repo *rules.Repository, opts ...Option) *Server {
	s := &Server{
		repo:      repo,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("mathcat", mathcat.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio serves on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

func (s *Server) registerTools() {
	speak := mcp.NewTool("speak_mathml",
		mcp.WithDescription("Render MathML as spoken text."),
		mcp.WithString("mathml", mcp.Required(), mcp.Description("MathML markup rooted at <math>")),
		mcp.WithObject("preferences", mcp.Description("Preference overrides, e.g. {\"Language\": \"nb\", \"SpeechStyle\": \"SimpleSpeak\"}")),
		mcp.WithOutputSchema[RenderResponse](),
	)
	s.mcpServer.AddTool(speak, mcp.NewStructuredToolHandler(s.handleSpeak))

	braille := mcp.NewTool("braille_mathml",
		mcp.WithDescription("Render MathML as braille cells."),
		mcp.WithString("mathml", mcp.Required(), mcp.Description("MathML markup rooted at <math>")),
		mcp.WithObject("preferences", mcp.Description("Preference overrides, e.g. {\"BrailleCode\": \"Nemeth\"}")),
		mcp.WithString("nav_hint", mcp.Description("Node id to render instead of the whole expression")),
		mcp.WithOutputSchema[RenderResponse](),
	)
	s.mcpServer.AddTool(braille, mcp.NewStructuredToolHandler(s.handleBraille))

	s.mcpServer.AddTool(mcp.NewTool("list_languages",
		mcp.WithDescription("List the speech languages, their styles and the braille codes."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		styles := make(map[string][]string)
		for _, lang := range s.repo.Languages() {
			styles[lang] = s.repo.Styles(lang)
		}
		jsonBytes, err := json.Marshal(map[string]any{
			"languages":     styles,
			"braille_codes": s.repo.BrailleCodes(),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode languages: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleSpeak(ctx context.Context, request mcp.CallToolRequest, args RenderArgs) (RenderResponse, error) {
	return s.render(ctx, mathcat.OutputSpeech, args)
}

func (s *Server) handleBraille(ctx context.Context, request mcp.CallToolRequest, args RenderArgs) (RenderResponse, error) {
	return s.render(ctx, mathcat.OutputBraille, args)
}

func (s *Server) render(ctx context.Context, output string, args RenderArgs) (RenderResponse, error) {
	opts := append([]mathcat.Option{mathcat.WithRepository(s.repo), mathcat.WithLogger(s.logger)}, s.sessions...)
	session, err := mathcat.NewSession(opts...)
	if err != nil {
		return RenderResponse{}, err
	}
	res, err := session.Process(ctx, output, mathcat.Request{
		MathML:      args.MathML,
		Preferences: args.Preferences,
		NavHint:     args.NavHint,
	})
	if err != nil {
		s.logger.Debug("mcp render rejected", "output", output, "err", err)
		return RenderResponse{}, fmt.Errorf("%s failed: %w", output, err)
	}
	return RenderResponse{Output: res.Output, Canonical: res.Canonical}, nil
}

// Package server exposes the research tool registry over the Model Context
// Protocol, either on stdio or as a streamable HTTP endpoint.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/research/internal/tools"
)

const instructions = "Use web_search to gather sources, think_tool to reflect between searches, " +
	"and ResearchComplete once the research is sufficient."

// Server wraps the MCP server state.
type Server struct {
	mcp     *srv.MCPServer
	handler http.Handler
	names   []string
	logger  *zap.Logger
}

// New registers every descriptor as an MCP tool.
func New(name, version string, descriptors []tools.Descriptor, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		mcp: srv.NewMCPServer(name, version,
			srv.WithToolCapabilities(false),
			srv.WithInstructions(instructions),
			srv.WithRecovery(),
		),
		names:  tools.Names(descriptors),
		logger: logger.Named("mcp"),
	}
	for _, d := range descriptors {
		s.mcp.AddTool(d.Tool, s.instrument(d))
	}
	s.handler = srv.NewStreamableHTTPServer(s.mcp)
	return s
}

// Tools returns the registered tool names in registration order.
func (s *Server) Tools() []string { return s.names }

// MCP returns the underlying protocol server.
func (s *Server) MCP() *srv.MCPServer { return s.mcp }

// Handler returns the HTTP handler that should be mounted to serve MCP traffic.
func (s *Server) Handler() http.Handler { return s.handler }

// ServeStdio blocks serving the protocol on stdin and stdout.
func (s *Server) ServeStdio() error {
	return srv.ServeStdio(s.mcp)
}

func (s *Server) instrument(d tools.Descriptor) srv.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := d.Handler(ctx, req)
		fields := []zap.Field{
			zap.String("tool", d.Name),
			zap.String("type", string(d.Type)),
			zap.Duration("duration", time.Since(start)),
		}
		switch {
		case err != nil:
			s.logger.Error("Tool call failed", append(fields, zap.Error(err))...)
		case res != nil && res.IsError:
			s.logger.Warn("Tool call returned an error result", fields...)
		default:
			s.logger.Debug("Tool call completed", fields...)
		}
		return res, err
	}
}

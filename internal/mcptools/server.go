package mcptools

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/rshade/commutesim/internal/logging"
)

// ServerName identifies the server to MCP clients.
const ServerName = "commutesim"

// NewServer registers every tool on a new MCP server.
func NewServer(s *Service, version string) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		ServerName,
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithToolHandlerMiddleware(s.withContext),
	)
	srv.AddTool(EvaluateTool(), s.HandleEvaluate)
	srv.AddTool(ValidateTool(), s.HandleValidate)
	srv.AddTool(ListFactorsTool(), s.HandleListFactors)
	return srv
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
func Serve(ctx context.Context, srv *mcpserver.MCPServer, s *Service, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(s.logger, "", 0))

	s.logger.Info().
		Str("component", "mcp").
		Str("transport", "stdio").
		Msg("mcp server started")

	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// withContext gives every tool call its own trace id and the service logger.
func (s *Service) withContext(next mcpserver.ToolHandlerFunc) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logging.ContextWithTraceID(ctx, logging.NewID())
		ctx = s.logger.WithContext(ctx)
		return next(ctx, req)
	}
}

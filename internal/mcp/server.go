package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/semchunk/internal/chunker"
	"github.com/dshills/semchunk/internal/logger"
)

// ServerName is the MCP server name
const ServerName = "semchunk"

// Server exposes a Chunker as MCP tools
type Server struct {
	mcp     *server.MCPServer
	chunker *chunker.Chunker
	log     logger.Logger
}

// NewServer creates a new MCP server instance. The server owns ck and
// closes it when Serve returns.
func NewServer(ck *chunker.Chunker, version string, log logger.Logger) *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, version, server.WithToolCapabilities(false)),
		chunker: ck,
		log:     logger.OrNop(log),
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is done or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		if err := s.chunker.Close(); err != nil {
			s.log.Warn("closing chunker", "error", err)
		}
	}()
	s.log.Info("serving MCP over stdio", "name", ServerName)
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkDocumentTool(), s.handleChunkDocument)
	s.mcp.AddTool(detectStructureTool(), s.handleDetectStructure)
	s.mcp.AddTool(getStructureTool(), s.handleGetStructure)
	s.mcp.AddTool(countTokensTool(), s.handleCountTokens)
}

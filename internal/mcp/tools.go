package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/semchunk/internal/chunker"
	"github.com/dshills/semchunk/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams        = -32602 // Invalid method parameters
	ErrorCodeInternalError        = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyInput           = -32001 // Document text is empty or blank
	ErrorCodeInvalidStructureType = -32002 // structure_type is not general, parent_child or qa
	ErrorCodePipelineFailed       = -32003 // No chunk survived validation
)

// handleChunkDocument handles the chunk_document tool invocation
func (s *Server) handleChunkDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	text, docID, err := documentArgs(args)
	if err != nil {
		return nil, err
	}
	outline, err := parseOutline(args)
	if err != nil {
		return nil, err
	}

	res, err := s.chunker.Chunk(ctx, chunker.Request{
		Text:          text,
		DocumentID:    docID,
		StructureType: types.StructureType(getStringDefault(args, "structure_type", "")),
		Outline:       outline,
	})
	if err != nil {
		return nil, chunkError(err)
	}
	return mcp.NewToolResultText(formatJSON(res)), nil
}

// handleDetectStructure handles the detect_structure tool invocation
func (s *Server) handleDetectStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	text, docID, err := documentArgs(args)
	if err != nil {
		return nil, err
	}
	outline, err := parseOutline(args)
	if err != nil {
		return nil, err
	}
	force := getBoolDefault(args, "force", false)

	st, err := s.chunker.DetectStructure(ctx, docID, text, outline, force)
	if err != nil {
		return nil, chunkError(err)
	}
	return mcp.NewToolResultText(formatJSON(st)), nil
}

// handleGetStructure handles the get_structure tool invocation
func (s *Server) handleGetStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	docID, ok := args["document_id"].(string)
	if !ok || strings.TrimSpace(docID) == "" {
		return nil, requiredParam("document_id")
	}

	st, found := s.chunker.Structure(ctx, docID)
	if !found {
		response := map[string]interface{}{
			"found":       false,
			"document_id": docID,
			"message":     "No cached structure. Use detect_structure or chunk_document first.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	response := map[string]interface{}{
		"found":     true,
		"structure": st,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCountTokens handles the count_tokens tool invocation
func (s *Server) handleCountTokens(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	text, ok := args["text"].(string)
	if !ok {
		return nil, requiredParam("text")
	}
	response := map[string]interface{}{
		"tokens":     s.chunker.Counter().Count(text),
		"characters": utf8.RuneCountInString(text),
		"bytes":      len(text),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func requiredParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// documentArgs extracts text and document_id. Blank text is left to the
// chunker so it maps to ErrorCodeEmptyInput.
func documentArgs(args map[string]interface{}) (string, string, error) {
	text, ok := args["text"].(string)
	if !ok {
		return "", "", requiredParam("text")
	}
	docID, ok := args["document_id"].(string)
	if !ok || strings.TrimSpace(docID) == "" {
		return "", "", requiredParam("document_id")
	}
	return text, docID, nil
}

// parseOutline reads the optional outline argument. Offsets are unknown
// until the chunker locates the titles.
func parseOutline(args map[string]interface{}) ([]types.TOCEntry, error) {
	raw, ok := args["outline"]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "outline must be an array", map[string]interface{}{
			"param": "outline",
		})
	}
	out := make([]types.TOCEntry, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "outline entries must be objects", map[string]interface{}{
				"param": "outline",
				"index": i,
			})
		}
		title := strings.TrimSpace(getStringDefault(m, "title", ""))
		if title == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "outline entry title is required", map[string]interface{}{
				"param": "outline",
				"index": i,
			})
		}
		out = append(out, types.TOCEntry{Title: title, Level: max(getIntDefault(m, "level", 1), 1), Offset: -1})
	}
	return out, nil
}

// chunkError maps chunker failures onto MCP error codes.
func chunkError(err error) error {
	var perr *chunker.PipelineError
	switch {
	case errors.Is(err, chunker.ErrEmptyInput):
		return newMCPError(ErrorCodeEmptyInput, "document text is empty", map[string]interface{}{
			"param": "text",
		})
	case errors.Is(err, types.ErrMissingDocumentID):
		return requiredParam("document_id")
	case errors.Is(err, types.ErrInvalidStructureType):
		return newMCPError(ErrorCodeInvalidStructureType, "invalid structure_type", map[string]interface{}{
			"param":   "structure_type",
			"allowed": structureTypes,
		})
	case errors.As(err, &perr):
		return newMCPError(ErrorCodePipelineFailed, "no valid chunks produced", map[string]interface{}{
			"document_id":    perr.DocumentID,
			"structure_type": perr.StructureType,
			"text_length":    perr.TextLength,
			"candidates":     perr.Candidates,
		})
	default:
		return newMCPError(ErrorCodeInternalError, "chunking failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

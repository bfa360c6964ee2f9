package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var structureTypes = []string{"general", "parent_child", "qa"}

func textProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func outlineProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Known table of contents; wins over heading detection",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "Heading text as it appears in the document",
				},
				"level": map[string]interface{}{
					"type":        "integer",
					"description": "Nesting depth, 1 for top-level headings",
					"minimum":     1,
				},
			},
			"required": []string{"title"},
		},
	}
}

// chunkDocumentTool returns the tool definition for chunk_document
func chunkDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_document",
		Description: "Split a document into retrieval chunks following its detected structure",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text":        textProperty("Full document text"),
				"document_id": textProperty("Stable document identifier; keys the structure cache"),
				"structure_type": map[string]interface{}{
					"type":        "string",
					"description": "Force a structure type instead of detecting it",
					"enum":        structureTypes,
				},
				"outline": outlineProperty(),
			},
			Required: []string{"text", "document_id"},
		},
	}
}

// detectStructureTool returns the tool definition for detect_structure
func detectStructureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "detect_structure",
		Description: "Classify a document as general, parent_child or qa and extract its table of contents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text":        textProperty("Full document text"),
				"document_id": textProperty("Stable document identifier"),
				"outline":     outlineProperty(),
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, ignore a cached structure and detect again",
					"default":     false,
				},
			},
			Required: []string{"text", "document_id"},
		},
	}
}

// getStructureTool returns the tool definition for get_structure
func getStructureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_structure",
		Description: "Return the cached structure of a document, if any",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": textProperty("Document identifier"),
			},
			Required: []string{"document_id"},
		},
	}
}

// countTokensTool returns the tool definition for count_tokens
func countTokensTool() mcp.Tool {
	return mcp.Tool{
		Name:        "count_tokens",
		Description: "Count tokens with the tokenizer used for chunk budgets",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": textProperty("Text to count"),
			},
			Required: []string{"text"},
		},
	}
}

// Package mcp implements the Model Context Protocol (MCP) server for semchunk.
//
// The MCP server exposes four tools to AI assistants and ingestion agents:
//   - chunk_document: Split a document into retrieval chunks
//   - detect_structure: Classify a document and extract its table of contents
//   - get_structure: Read a cached structure
//   - count_tokens: Count tokens with the chunk-budget tokenizer
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	semchunk serve
//
// # Tool: chunk_document
//
//	Request:
//	{
//	  "name": "chunk_document",
//	  "arguments": {
//	    "text": "# Manual\n\n## Install\n...",
//	    "document_id": "manual-v2",
//	    "structure_type": "parent_child",
//	    "outline": [{"title": "Install", "level": 1}]
//	  }
//	}
//
// structure_type and outline are optional. The response is the chunking
// result: structure_type, one of chunks, parents or qa, the structure used,
// and stats.
//
// # Tool: detect_structure
//
// Takes text, document_id, an optional outline and force. The structure is
// cached under document_id; force ignores a cached entry.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "semchunk": {
//	      "command": "/usr/local/bin/semchunk",
//	      "args": ["serve"],
//	      "env": {
//	        "ANTHROPIC_API_KEY": "your-api-key",
//	        "JINA_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error
//   - -32001: Empty document text
//   - -32002: Invalid structure_type
//   - -32003: No chunk survived validation
//
// Logs go to stderr; stdout is reserved for the protocol.
package mcp

// Package types provides the value types shared by every stage of the
// chunking pipeline.
//
// # Chunks
//
// Three chunk topologies are produced, depending on the document structure:
//
//	types.Chunk        // flat, general documents
//	types.ParentChunk  // a section with ordered ChildChunk values
//	types.QAChunk      // one detected question and its optional answer
//
// Offsets (StartChar, EndChar, Boundary.Start, Boundary.End) are byte offsets
// into the UTF-8 source text and always fall on rune boundaries, so
//
//	src[c.StartChar:c.EndChar] == c.Text
//
// holds for every emitted chunk.
//
// # Structure
//
// DocumentStructure is detected once per document id, cached, and reused for
// all later chunking calls for that id:
//
//	s := &types.DocumentStructure{
//	    DocumentID:    "handbook-v2",
//	    StructureType: types.StructureParentChild,
//	    TOC:           []types.TOCEntry{{Title: "1 Intro", Level: 1, Offset: 0}},
//	}
//
// # Boundaries
//
// Boundary is the unit exchanged between pattern matching, embedding
// detection and LLM refinement before chunks are materialized.
package types

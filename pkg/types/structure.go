package types

import (
	"fmt"
	"strings"
	"time"
)

// StructureType selects the chunk topology produced for a document.
type StructureType string

const (
	StructureGeneral     StructureType = "general"
	StructureParentChild StructureType = "parent_child"
	StructureQA          StructureType = "qa"
)

// Valid reports whether s is one of the known structure types.
func (s StructureType) Valid() bool {
	switch s {
	case StructureGeneral, StructureParentChild, StructureQA:
		return true
	default:
		return false
	}
}

func (s StructureType) String() string {
	return string(s)
}

// ParseStructureType normalizes user or model supplied names ("parent-child",
// "QA", ...) into a StructureType.
func ParseStructureType(v string) (StructureType, error) {
	norm := strings.ToLower(strings.TrimSpace(v))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "general", "flat":
		return StructureGeneral, nil
	case "parent_child", "parentchild", "hierarchical":
		return StructureParentChild, nil
	case "qa", "q_a", "question_answer":
		return StructureQA, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStructureType, v)
}

// TOCEntry is a single heading of a document outline.
// Offset is the byte offset of the heading in the text it was detected in,
// or -1 when the entry came from an external outline without positions.
type TOCEntry struct {
	Title  string `json:"title"`
	Level  int    `json:"level"`
	Offset int    `json:"offset"`
}

// TOCDepth returns the number of distinct nesting levels in toc.
func TOCDepth(toc []TOCEntry) int {
	if len(toc) == 0 {
		return 0
	}
	levels := make(map[int]struct{}, 4)
	for _, e := range toc {
		levels[e.Level] = struct{}{}
	}
	return len(levels)
}

// DocumentStructure is detected once per document and reused by every
// chunking call made for the same DocumentID.
type DocumentStructure struct {
	DocumentID    string            `json:"document_id"`
	StructureType StructureType     `json:"structure_type"`
	TOC           []TOCEntry        `json:"toc"`
	ChunkingRules map[string]string `json:"chunking_rules"`
	DocumentType  string            `json:"document_type,omitempty"`
	DetectedAt    time.Time         `json:"detected_at,omitempty"`
	Source        string            `json:"source,omitempty"` // "llm", "heuristic" or "override"
}

// Validate checks that the structure can be used for chunking.
func (d *DocumentStructure) Validate() error {
	if strings.TrimSpace(d.DocumentID) == "" {
		return ErrMissingDocumentID
	}
	if !d.StructureType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStructureType, d.StructureType)
	}
	return nil
}

// HasTOC reports whether a usable outline was detected.
func (d *DocumentStructure) HasTOC() bool {
	return d != nil && len(d.TOC) > 0
}

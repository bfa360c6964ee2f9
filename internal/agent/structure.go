package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/semchunk/internal/llm"
	"github.com/dshills/semchunk/internal/logger"
	"github.com/dshills/semchunk/internal/metrics"
	"github.com/dshills/semchunk/internal/optimize"
	"github.com/dshills/semchunk/internal/pattern"
	"github.com/dshills/semchunk/pkg/types"
)

// ErrMalformedResponse means the model replied with JSON that does not fit
// the expected shape.
var ErrMalformedResponse = errors.New("malformed llm response")

// Sources recorded on a DocumentStructure.
const (
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
	SourceOverride  = "override"
)

const (
	minParentChildEntries = 3
	minParentChildDepth   = 2
	minQAMarkers          = 2
	maxPromptTOCEntries   = 50
)

// StructureConfig holds StructureAgent settings
type StructureConfig struct {
	MaxPages     int
	CharsPerPage int
	Model        string
	Temperature  float64
	MaxTokens    int
	// Timeout bounds the classification call; zero means no extra bound
	Timeout time.Duration
}

// DefaultStructureConfig returns a StructureConfig with default values
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		MaxPages:     optimize.DefaultMaxPages,
		CharsPerPage: optimize.DefaultCharsPerPage,
		Temperature:  0,
		MaxTokens:    1024,
		Timeout:      60 * time.Second,
	}
}

// StructureAgent classifies a document from a bounded sample.
type StructureAgent struct {
	llm     llm.Provider
	sampler *optimize.Sampler
	toc     *TOCDetector
	cfg     StructureConfig
	log     logger.Logger
	metrics *metrics.Recorder
}

// NewStructureAgent creates an agent. provider may be nil; detection then
// uses heuristics only.
func NewStructureAgent(provider llm.Provider, cfg StructureConfig, log logger.Logger, rec *metrics.Recorder) *StructureAgent {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultStructureConfig().MaxTokens
	}
	return &StructureAgent{
		llm:     provider,
		sampler: optimize.NewSampler(cfg.MaxPages, cfg.CharsPerPage),
		toc:     NewTOCDetector(),
		cfg:     cfg,
		log:     logger.OrNop(log),
		metrics: rec,
	}
}

// TOC returns the agent's TOC detector.
func (a *StructureAgent) TOC() *TOCDetector {
	return a.toc
}

// Detect samples text, detects its TOC and asks the model for the structure
// type. Any model failure falls back to HeuristicStructure. The returned
// sample metadata describes how much of the document was analyzed.
func (a *StructureAgent) Detect(ctx context.Context, docID, text string, outline []types.TOCEntry) (*types.DocumentStructure, optimize.Sample, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, optimize.Sample{}, types.ErrMissingDocumentID
	}
	sample := a.sampler.Sample(text)
	toc := a.toc.Detect(sample.Text, outline)

	s := &types.DocumentStructure{
		DocumentID:    docID,
		TOC:           toc,
		ChunkingRules: map[string]string{},
		DetectedAt:    time.Now().UTC(),
	}

	if a.llm == nil {
		a.metrics.Fallback(metrics.StageStructure, "no_llm")
		s.StructureType = HeuristicStructure(sample.Text, toc)
		s.Source = SourceHeuristic
		return s, sample, nil
	}

	cls, err := a.classify(ctx, sample, toc)
	if err != nil {
		reason := "unavailable"
		if errors.Is(err, ErrMalformedResponse) || errors.Is(err, llm.ErrNoJSON) {
			reason = "malformed"
		}
		a.log.Warn("structure classification failed, using heuristics",
			"document_id", docID,
			"reason", reason,
			"error", err)
		a.metrics.Fallback(metrics.StageStructure, reason)
		s.StructureType = HeuristicStructure(sample.Text, toc)
		s.Source = SourceHeuristic
		return s, sample, nil
	}

	s.StructureType = cls.structureType
	s.DocumentType = cls.documentType
	s.ChunkingRules = cls.rules
	s.Source = SourceLLM
	a.log.Info("document structure detected",
		"document_id", docID,
		"structure_type", s.StructureType,
		"document_type", s.DocumentType,
		"toc_entries", len(toc),
		"sample_percentage", sample.SamplePercentage)
	return s, sample, nil
}

type classification struct {
	structureType types.StructureType
	documentType  string
	rules         map[string]string
}

type classificationReply struct {
	DocumentType  string         `json:"document_type"`
	StructureType string         `json:"structure_type"`
	ChunkingRules map[string]any `json:"chunking_rules"`
}

func (a *StructureAgent) classify(ctx context.Context, sample optimize.Sample, toc []types.TOCEntry) (*classification, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	a.metrics.LLMCall(metrics.StageStructure)
	reply, err := a.llm.Chat(ctx, llm.ChatRequest{
		System:      structureSystemPrompt,
		Prompt:      structurePrompt(sample, toc),
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return parseClassification(reply)
}

func parseClassification(reply string) (*classification, error) {
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	var r classificationReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	st, err := types.ParseStructureType(r.StructureType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	rules := make(map[string]string, len(r.ChunkingRules))
	for k, v := range r.ChunkingRules {
		rules[k] = fmt.Sprint(v)
	}
	return &classification{
		structureType: st,
		documentType:  strings.TrimSpace(r.DocumentType),
		rules:         rules,
	}, nil
}

// HeuristicStructure classifies without a model: a TOC of at least three
// entries over at least two levels means parent_child, at least two
// detected questions mean qa, anything else is general.
func HeuristicStructure(sample string, toc []types.TOCEntry) types.StructureType {
	if len(toc) >= minParentChildEntries && types.TOCDepth(toc) >= minParentChildDepth {
		return types.StructureParentChild
	}
	if pattern.QAMarkerCount(sample) >= minQAMarkers {
		return types.StructureQA
	}
	return types.StructureGeneral
}

const structureSystemPrompt = `You analyze document structure for a retrieval system. ` +
	`Reply with a single JSON object and nothing else.`

func structurePrompt(sample optimize.Sample, toc []types.TOCEntry) string {
	var sb strings.Builder
	sb.WriteString("Classify the document below.\n\n")
	sb.WriteString("Return JSON with these fields:\n")
	sb.WriteString(`- "document_type": short free-text label such as "textbook", "manual", "faq", "article"` + "\n")
	sb.WriteString(`- "structure_type": one of "general", "parent_child", "qa"` + "\n")
	sb.WriteString(`- "chunking_rules": object of string hints, for example {"parent_unit": "section"}` + "\n\n")
	sb.WriteString("Use parent_child for documents organized in nested chapters or sections, ")
	sb.WriteString("qa for question banks, quizzes and FAQs, general otherwise.\n\n")

	if len(toc) > 0 {
		sb.WriteString("Detected table of contents:\n")
		for i, e := range toc {
			if i == maxPromptTOCEntries {
				fmt.Fprintf(&sb, "... %d more entries\n", len(toc)-i)
				break
			}
			fmt.Fprintf(&sb, "%s%s\n", strings.Repeat("  ", max(e.Level-1, 0)), e.Title)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Sample (%d of %d pages):\n", sample.SampledPages, sample.TotalPages)
	sb.WriteString("<document>\n")
	sb.WriteString(sample.Text)
	sb.WriteString("\n</document>\n")
	return sb.String()
}

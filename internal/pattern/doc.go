// Package pattern implements rule-based boundary detection.
//
// The matcher picks the most significant separator present in a span
// (newline runs, tab runs, whitespace runs, punctuation, then single
// characters), recurses into pieces that exceed the token budget with a
// strictly finer separator, and merges neighbouring pieces forward up to the
// budget. Boundaries are byte ranges that always cover the whole input.
//
// Boundaries whose edges sit on sentence terminators are "clear"; the others
// are candidates for model-assisted refinement.
package pattern

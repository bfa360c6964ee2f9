// Package agent holds the two model-assisted stages of the pipeline.
//
// StructureAgent classifies a whole document once, from a bounded sample,
// into general, parent_child or qa. BoundaryAgent refines pattern boundaries
// the matcher was unsure about. Both treat the model as optional: when it is
// missing, slow or wrong they return the rule-based answer instead of an
// error.
package agent

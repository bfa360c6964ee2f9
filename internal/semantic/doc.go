// Package semantic finds chunk boundaries from embedding similarity alone.
//
// Text is split into sentences, each sentence is embedded together with its
// neighbours, and a breakpoint is placed wherever the cosine distance between
// consecutive sentences exceeds a percentile of all such distances.
package semantic

// Package lineage answers ancestry questions over the lot/material graph:
// what did this material become (forward), and what went into this lot
// (backward). Traversal is read-only and safe for any number of concurrent
// callers.
//
// Every walk is bounded by maxDepth and by a visited set. The graph is
// acyclic by construction, but the walker does not assume it; a corrupted
// store must degrade to a truncated tree, not a hung process.
package lineage

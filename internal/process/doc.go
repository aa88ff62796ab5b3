// Package process holds the fixed plant process catalog and the routing
// rules that decide which input batches may feed which process.
//
// The catalog is a closed enumeration of ten processes. Each entry carries
// the two-letter code printed on labels, the one-letter short code embedded
// in compact identifiers, a routing-order rank, the input categories the
// process accepts, and the set of processes allowed to feed it semi-products.
// Adding a process is a change to the table in catalog.go, not a code change,
// but the table itself is part of the plant contract and must not drift.
//
// Validate collects every problem with a proposed set of inputs rather than
// stopping at the first, so operators see the whole picture in one pass.
package process

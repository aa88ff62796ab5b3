// Package sequence issues monotonic per-key numbers from a durable counter
// store. Two concurrent completions for the same process and date must never
// receive the same value, so Next is the one correctness-critical
// mutual-exclusion point in the core; the store performs the
// read-increment-write atomically. Values are never reused and never
// decrease except through an explicit administrative reset.
package sequence

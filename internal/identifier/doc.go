// Package identifier implements the plant's lot identifier codec: the
// bidirectional mapping between the dense label/scan text formats and
// structured fields.
//
// Decode is total. Scanned labels are routinely smudged, truncated, or
// simply foreign, so an unrecognized string decodes to Valid=false with a
// reason instead of an error; callers branch on Valid. Detection probes one
// strategy per grammar in a fixed priority order so the same text always
// decodes the same way.
//
// Encode goes the other way and does fail: building an identifier from
// out-of-range fields (non-positive quantity, sequence wider than the
// format, malformed marking lot) returns an error wrapping ErrInput.
//
// The exact byte layout of every grammar, including separators and
// zero-padding widths, is a wire contract with handheld scanners and label
// printers. Do not change it casually.
package identifier

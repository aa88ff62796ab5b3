// Package lot owns production lot records and their lifecycle.
//
// A lot is created IN_PROGRESS under a temporary identifier because its
// permanent identifier encodes the completed quantity, which is unknown
// until the run finishes. Complete mints the final identifier from the
// sequence allocator and is terminal, as is Cancel; no other transitions
// exist and the Manager enforces that rather than trusting callers.
//
// Carry-over bookkeeping rides along with the state changes: consuming a
// banked quantity on start and rolling it back on cancel are applied in the
// same store transaction as the lot write, so no reader ever sees one
// without the other.
package lot

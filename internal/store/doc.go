// Package store persists lots, materials, carry-overs, sequence counters,
// and BOM lines in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// compound transactional writes the lifecycle manager relies on: creating a
// lot together with its carry-over consumption, finalizing a completion
// together with its new carry-over, and releasing a cancelled lot together
// with its carry-over rollback. Reads return nil, nil on missing rows;
// callers decide whether that is an error.
//
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package store

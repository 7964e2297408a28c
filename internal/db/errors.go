package db

import "errors"

// Error taxonomy shared by all store implementations. Callers match with
// errors.Is; stores wrap engine-specific detail around these sentinels.
var (
	// ErrSchemaCreation marks a failed schema creation. Fatal at startup,
	// never retried by the store.
	ErrSchemaCreation = errors.New("schema creation failed")

	// ErrConstraintViolation marks an insert that misses a required column
	// or violates id uniqueness. Surfaced to the caller, not retried.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrConnectivity marks an unreachable storage engine. Retry policy
	// belongs to the caller.
	ErrConnectivity = errors.New("storage unreachable")
)

package extract

import "github.com/jwols/nws-extract/internal/extract/shared"

// Re-export shared types for convenience
type StoreType = shared.StoreType
type StoreConfig = shared.StoreConfig

// Re-export constants
const (
	StoreTypePostgres = shared.StoreTypePostgres
	StoreTypeMemory   = shared.StoreTypeMemory
	// Add more store backends here as you implement them
)

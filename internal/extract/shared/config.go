package shared

// StoreType identifies a store backend
type StoreType string

const (
	StoreTypePostgres StoreType = "postgres"
	StoreTypeMemory   StoreType = "memory"
)

func (t StoreType) String() string {
	return string(t)
}

// IsValid checks if the store type is supported
func (t StoreType) IsValid() bool {
	switch t {
	case StoreTypePostgres, StoreTypeMemory:
		return true
	}
	return false
}

// StoreConfig is the JSON configuration blob the factory consumes
type StoreConfig struct {
	StoreType    StoreType              `json:"store_type"`
	ExtraDetails map[string]interface{} `json:"extra_details"`
}

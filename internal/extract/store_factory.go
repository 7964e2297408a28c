package extract

import (
	"encoding/json"
	"fmt"

	"github.com/jwols/nws-extract/internal/extract/postgres"
	"github.com/jwols/nws-extract/internal/extract/shared"
	"github.com/jwols/nws-extract/internal/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Factory defines the interface for creating extract stores
type Factory interface {
	CreateStore(configJSON string) (Store, error)
}

// StoreFactory implements Factory for creating extract stores
type StoreFactory struct {
	logger    *zap.Logger
	telemetry *telemetry.Telemetry
}

func NewStoreFactory(logger *zap.Logger, tel *telemetry.Telemetry) *StoreFactory {
	return &StoreFactory{
		logger:    logger.Named("factory"),
		telemetry: tel,
	}
}

func (f *StoreFactory) CreateStore(configJSON string) (Store, error) {
	var config shared.StoreConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to parse store configuration JSON: %w", err)
	}

	f.logger.Info("creating extract store",
		zap.String("store_type", config.StoreType.String()))

	if !config.StoreType.IsValid() {
		return nil, fmt.Errorf("unsupported store type: %s", config.StoreType)
	}

	var meter metric.Meter
	if f.telemetry != nil {
		meter = f.telemetry.Meter
	}

	switch config.StoreType {
	case shared.StoreTypePostgres:
		return postgres.NewPostgresStore(config, f.logger, meter)
	case shared.StoreTypeMemory:
		f.logger.Info("using in-memory extract store")
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.StoreType)
	}
}

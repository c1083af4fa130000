package backend

import (
	"context"
	"time"

	"moneymanager/internal/services"
	"moneymanager/internal/storage"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// BackendResult bundles the storage backend with the optional collaborators
// that depend on it.
type BackendResult struct {
	Repository storage.Repository
	// Tracker is nil for the memory backend, which no other process can read.
	Tracker storage.SyncTracker
	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Shared reports whether a separate worker process can read the same data.
func (r *BackendResult) Shared() bool {
	return r.Tracker != nil
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	MongoURI         string
	MongoDatabase    string
	MongoDialTimeout time.Duration

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, MongoBackend:
		return true
	default:
		return false
	}
}

package backend

import (
	"context"
	"errors"
	"fmt"

	"moneymanager/internal/amqp"
	applog "moneymanager/internal/log"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
	"moneymanager/internal/storage/memory"
	"moneymanager/internal/storage/mongo"
)

type publisherCloser interface {
	services.EventPublisher
	Close() error
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger   *applog.Logger
	dialAMQP func(url, exchange, queue string) (publisherCloser, error)
}

func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		dialAMQP: func(url, exchange, queue string) (publisherCloser, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

// CreateBackend opens the configured repository and, when AMQP_URL is set,
// a publisher. A publisher that cannot connect is logged and left out.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *BackendResult
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MongoBackend:
		res, err = f.createMongoBackend(ctx, config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(ctx, res, config)
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Repository: repo, Tracker: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dialCtx := ctx
	if config.MongoDialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, config.MongoDialTimeout)
		defer cancel()
	}
	repo, err := mongo.Connect(dialCtx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB repository: %w", err)
	}
	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)
	return &BackendResult{Repository: repo, Tracker: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend")
	store := memory.New()
	return &BackendResult{Repository: store, Cleanup: store.Close}
}

func (f *DefaultFactory) attachPublisher(ctx context.Context, res *BackendResult, config Config) {
	if config.AMQPURL == "" {
		f.logger.InfoContext(ctx, "AMQP not configured, spreadsheet sync disabled")
		return
	}
	if !res.Shared() {
		f.logger.WarnContext(ctx, "AMQP configured with memory backend, worker cannot read these transactions",
			"backend", config.Type.String())
	}

	client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", applog.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	res.Publisher = client
	storeCleanup := res.Cleanup
	res.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				errs = append(errs, fmt.Errorf("close storage: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}

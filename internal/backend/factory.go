package backend

import (
	"context"
	"fmt"

	applog "expenseview/internal/log"
	"expenseview/internal/remote/httpapi"
	"expenseview/internal/remote/memory"
	"expenseview/internal/remote/sheets"
	"expenseview/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentRemote)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case HTTPBackend:
		return f.createHTTPBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createHTTPBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := httpapi.New(httpapi.Config{
		BaseURL:       config.BaseURL,
		SessionCookie: config.SessionCookie,
		Timeout:       config.Timeout,
		Logger:        f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote API client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized HTTP backend",
		"endpoint", client.Endpoint(),
		"session_cookie", config.SessionCookie != "")

	return &BackendResult{Backend: client}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend seed: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend",
		"seed_file", config.SeedFile,
		applog.FieldCount, store.Len())

	return &BackendResult{Backend: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.DBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite backend: %w", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		repo.Close()
		return nil, err
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.DBPath,
		applog.FieldCount, count)

	return &BackendResult{Backend: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.SpreadsheetID,
		SheetName:       config.SheetName,
		CredentialsJSON: config.CredentialsJSON,
		CredentialsFile: config.CredentialsFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets backend",
		"spreadsheet_id", config.SpreadsheetID,
		"sheet", client.Sheet())

	return &BackendResult{Backend: client}, nil
}

// Package bootstrap wires the validation engine to its stores, sources and
// HTTP surface. Both binaries build their App here.
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"sectorsguard/src/connectors"
	"sectorsguard/src/database"
	"sectorsguard/src/fetcher"
	"sectorsguard/src/notify"
	"sectorsguard/src/persistence"
	"sectorsguard/src/repository"
	"sectorsguard/src/server"
	"sectorsguard/src/validation"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds the wired engine and the stores behind it.
type App struct {
	Validator  *validation.Validator
	Gateway    *persistence.Gateway
	Results    *repository.ValidationResultRepository
	Configs    *repository.ValidationConfigRepository
	Exceptions *repository.ExceptionRepository
}

// NewSource picks where datasets are read from.
func NewSource(config connectors.Config) (fetcher.Source, error) {
	switch strings.ToLower(strings.TrimSpace(config.SourceBackend)) {
	case "", connectors.BackendPostgres:
		return repository.NewDatasetRepository(), nil
	case connectors.BackendREST:
		client, err := connectors.NewPostgRESTClientFromConfig(config)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown source backend %q", config.SourceBackend)
	}
}

// Options tune New. Zero values fall back to the package defaults.
type Options struct {
	Validation  validation.Config
	Persistence persistence.Config
	Now         func() time.Time
}

// New wires an App on mainDB, reading datasets from source.
func New(mainDB *gorm.DB, source fetcher.Source, opts Options) *App {
	if opts.Validation.LookupCacheTTL <= 0 {
		opts.Validation.LookupCacheTTL = 10 * time.Minute
	}
	if opts.Validation.TopMarketCapLimit <= 0 {
		opts.Validation.TopMarketCapLimit = 50
	}
	results := repository.NewValidationResultRepositoryWithDB(mainDB)
	configs := repository.NewValidationConfigRepositoryWithDB(mainDB)
	exceptions := repository.NewExceptionRepositoryWithDB(mainDB)
	gateway := persistence.NewGateway(results, opts.Persistence)

	validator := validation.New(validation.Deps{
		Registry:   validation.MustRegistry(validation.DefaultSpecs(opts.Validation)...),
		Fetcher:    fetcher.New(source, opts.Now),
		Lookups:    fetcher.NewLookups(source, opts.Validation.LookupCacheTTL, opts.Now),
		Configs:    configs,
		Store:      gateway,
		Notifier:   notify.NewLogNotifier(),
		Exceptions: exceptions,
		Now:        opts.Now,
	}, opts.Validation)

	return &App{
		Validator:  validator,
		Gateway:    gateway,
		Results:    results,
		Configs:    configs,
		Exceptions: exceptions,
	}
}

// FromEnv connects both databases and wires the App from environment configuration.
func FromEnv() (*App, error) {
	if err := database.InitMainDB(); err != nil {
		return nil, err
	}
	sourceConfig := connectors.GetConfig()
	if strings.EqualFold(sourceConfig.SourceBackend, connectors.BackendPostgres) || sourceConfig.SourceBackend == "" {
		if err := database.InitReadOnlyDB(); err != nil {
			return nil, err
		}
	}
	source, err := NewSource(sourceConfig)
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"component": "bootstrap",
		"source":    sourceConfig.SourceBackend,
	}).Info("Validation engine wired")

	return New(database.MainDB, source, Options{
		Validation:  validation.GetConfig(),
		Persistence: persistence.GetConfig(),
	}), nil
}

// Routes exposes the App over HTTP.
func (a *App) Routes() server.Routes {
	return server.RoutesFor(a.Validator, a.Validator, a.Results, a.Gateway, a.Configs, a.Exceptions)
}

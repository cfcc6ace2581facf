package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sectorsguard/src/fetcher"
	"sectorsguard/src/metrics"
	"sectorsguard/src/model"
	"sectorsguard/src/utils"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

// Fetcher loads a windowed dataset. It never fails; problems yield an empty table.
type Fetcher interface {
	Fetch(ctx context.Context, plan fetcher.Plan, start, end string) fetcher.Result
}

// ConfigStore reads per-dataset configuration. A missing row is nil, nil.
type ConfigStore interface {
	FindByDataset(ctx context.Context, dataset string) (*model.ValidationConfig, error)
}

// ResultStore persists a finished result. It handles its own failures.
type ResultStore interface {
	Store(ctx context.Context, result *model.ValidationResult, persisted []model.Anomaly)
}

// Notifier is told about every finished run.
type Notifier interface {
	Notify(ctx context.Context, result *model.ValidationResult, cfg *model.ValidationConfig) error
}

// Deps are the collaborators of a Validator. Configs, Store, Notifier,
// Exceptions and Lookups are optional.
type Deps struct {
	Registry   *Registry
	Fetcher    Fetcher
	Lookups    Lookups
	Configs    ConfigStore
	Store      ResultStore
	Notifier   Notifier
	Exceptions ExceptionSink
	Now        func() time.Time
	NewID      func() string
}

// Validator runs the registered checks for one dataset at a time.
type Validator struct {
	deps   Deps
	config Config
}

// New creates a validator.
func New(deps Deps, config Config) *Validator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if config.DefaultErrorThreshold <= 0 {
		config.DefaultErrorThreshold = 5
	}
	return &Validator{deps: deps, config: config}
}

// Datasets lists the registered datasets alphabetically.
func (v *Validator) Datasets() []string {
	return v.deps.Registry.SortedNames()
}

func validateWindow(start, end string) error {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = utils.ParseDate(start); err != nil {
			return fmt.Errorf("invalid start_date %q, expected YYYY-MM-DD", start)
		}
	}
	if end != "" {
		if e, err = utils.ParseDate(end); err != nil {
			return fmt.Errorf("invalid end_date %q, expected YYYY-MM-DD", end)
		}
	}
	if start != "" && end != "" && s.After(e) {
		return fmt.Errorf("start_date %s is after end_date %s", start, end)
	}
	return nil
}

// resolve picks the spec for dataset. Registered datasets always resolve;
// other names need an enabled config row.
func (v *Validator) resolve(ctx context.Context, dataset string) (Spec, *model.ValidationConfig, error) {
	var cfg *model.ValidationConfig
	var cfgErr error
	if v.deps.Configs != nil {
		cfg, cfgErr = v.deps.Configs.FindByDataset(ctx, dataset)
	}

	if spec, ok := v.deps.Registry.Lookup(dataset); ok {
		if cfgErr != nil {
			logger.WithFields(map[string]interface{}{
				"component": "Validator",
				"dataset":   dataset,
			}).WithError(cfgErr).Warn("Config lookup failed, continuing without config")
			cfg = nil
		}
		return spec, cfg, nil
	}

	if cfgErr != nil {
		return Spec{}, nil, fmt.Errorf("load config for %s: %w", dataset, cfgErr)
	}
	if cfg == nil || !cfg.Enabled {
		return Spec{}, nil, fmt.Errorf("%w: %s", ErrUnknownDataset, dataset)
	}
	return GenericSpec(dataset, cfg, v.config.DefaultErrorThreshold), cfg, nil
}

func missingColumnsAnomaly(missing []string) model.Anomaly {
	return model.Anomaly{
		Kind:     model.KindMissingColumns,
		Message:  fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")),
		Count:    model.Int(len(missing)),
		Severity: model.SeverityError,
		Details:  map[string]interface{}{"columns": missing},
	}
}

func (v *Validator) fail(result *model.ValidationResult, began time.Time, err error) *model.ValidationResult {
	result.Status = model.StatusError
	result.Error = err.Error()
	logger.WithFields(map[string]interface{}{
		"component": "Validator",
		"dataset":   result.DatasetName,
		"run_id":    result.RunID,
	}).WithError(err).Warn("Validation could not run")
	metrics.ObserveRun(result, v.deps.Now().Sub(began), nil)
	return result
}

// Validate fetches dataset for the window, runs its checks and persists the
// result. Problems are reported inside the returned result, never as a panic.
func (v *Validator) Validate(ctx context.Context, dataset, start, end string) *model.ValidationResult {
	began := v.deps.Now()
	result := &model.ValidationResult{
		RunID:           v.deps.NewID(),
		DatasetName:     dataset,
		RunTimestamp:    began,
		Anomalies:       []model.Anomaly{},
		ChecksPerformed: []string{},
	}
	log := logger.WithFields(map[string]interface{}{
		"component": "Validator",
		"dataset":   dataset,
		"run_id":    result.RunID,
	})

	if err := validateWindow(start, end); err != nil {
		return v.fail(result, began, err)
	}
	spec, cfg, err := v.resolve(ctx, dataset)
	if err != nil {
		return v.fail(result, began, err)
	}

	fetched := v.deps.Fetcher.Fetch(ctx, spec.Plan, start, end)
	data := fetched.Table
	result.TotalRows = data.Len()
	result.DateFilter = fetched.Window

	in := CheckInput{Table: data, Lookups: v.deps.Lookups, Config: cfg, Now: began}
	var results []CheckResult
	if missing := data.Missing(spec.RequiredColumns...); !data.Empty() && len(missing) > 0 {
		result.ChecksPerformed = append(result.ChecksPerformed, "required_columns")
		results = append(results, CheckResult{
			Name:    "required_columns",
			Outcome: CheckOutcome{Anomalies: []model.Anomaly{missingColumnsAnomaly(missing)}},
		})
	} else {
		for _, c := range spec.Checks {
			result.ChecksPerformed = append(result.ChecksPerformed, c.Name)
			outcome := runCheck(ctx, c, in)
			if outcome.Err != nil {
				log.WithField("check", c.Name).WithError(outcome.Err).Error("Check failed")
			}
			results = append(results, CheckResult{Name: c.Name, Outcome: outcome})
		}
	}

	agg := Aggregate(results, spec.PersistFloor, spec.Threshold)
	result.Anomalies = agg.Anomalies
	result.AnomaliesCount = agg.Count
	result.Status = agg.Status
	result.TotalAnomaliesFound = len(agg.Anomalies)
	result.ErrorsStored = len(agg.Persisted)

	if v.deps.Store != nil {
		v.deps.Store.Store(ctx, result, agg.Persisted)
	}

	if v.deps.Notifier != nil && (cfg == nil || cfg.Enabled) {
		if err := v.deps.Notifier.Notify(ctx, result, cfg); err != nil {
			log.WithError(err).Warn("Notification failed")
		}
	}

	metrics.ObserveRun(result, v.deps.Now().Sub(began), agg.Failed)
	log.WithFields(map[string]interface{}{
		"kind":      spec.Kind.String(),
		"rows":      result.TotalRows,
		"anomalies": result.TotalAnomaliesFound,
		"counted":   result.AnomaliesCount,
		"status":    result.Status,
	}).Info("Validation finished")

	return result
}

// validateSafe turns a panic escaping Validate into an error result.
func (v *Validator) validateSafe(ctx context.Context, dataset, start, end string) (result *model.ValidationResult, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			result = &model.ValidationResult{
				RunID:        v.deps.NewID(),
				DatasetName:  dataset,
				RunTimestamp: v.deps.Now(),
				Anomalies:    []model.Anomaly{},
				Status:       model.StatusError,
				Error:        fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return v.Validate(ctx, dataset, start, end), false
}

// ValidateAll validates every registered dataset in order, one at a time.
// A failing dataset becomes an error entry and never stops the batch.
func (v *Validator) ValidateAll(ctx context.Context, start, end string) *model.BatchSummary {
	summary := &model.BatchSummary{Results: []*model.ValidationResult{}}
	for _, name := range v.deps.Registry.Names() {
		if err := ctx.Err(); err != nil {
			logger.WithError(err).Warn("Batch validation cancelled")
			break
		}
		res, panicked := v.validateSafe(ctx, name, start, end)
		if res.Error != "" {
			level := "error"
			if panicked {
				level = "fatal"
			}
			Capture(ctx, v.deps.Exceptions, "ValidateAll", level, name, res.RunID, errors.New(res.Error), map[string]interface{}{
				"start_date": start,
				"end_date":   end,
			})
		}
		summary.Results = append(summary.Results, res)
		summary.TotalTables++
		if res.Status != model.StatusError {
			summary.SuccessfulValidations++
		}
		summary.TotalAnomalies += res.AnomaliesCount
	}
	logger.WithFields(map[string]interface{}{
		"component":  "Validator",
		"datasets":   summary.TotalTables,
		"successful": summary.SuccessfulValidations,
		"anomalies":  summary.TotalAnomalies,
	}).Info("Batch validation finished")
	return summary
}

// Package persistence writes finished validation results to the results table,
// falling back to local JSON files when the database keeps refusing them.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sectorsguard/src/metrics"
	"sectorsguard/src/model"

	"github.com/cenkalti/backoff/v4"
	logger "github.com/sirupsen/logrus"
)

// ResultInserter writes one result row.
type ResultInserter interface {
	Insert(ctx context.Context, rec *model.ValidationResultRecord) error
}

// Gateway persists results with bounded retries and a local file fallback.
type Gateway struct {
	inserter ResultInserter
	config   Config
}

// NewGateway creates a gateway. Non-positive limits fall back to the defaults.
func NewGateway(inserter ResultInserter, config Config) *Gateway {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryWait <= 0 {
		config.RetryWait = time.Second
	}
	if config.MaxPayloadChars <= 0 {
		config.MaxPayloadChars = 50000
	}
	if config.TruncateKeep <= 0 {
		config.TruncateKeep = 20
	}
	if config.FallbackDir == "" {
		config.FallbackDir = "validation_results_local"
	}
	return &Gateway{inserter: inserter, config: config}
}

// Truncate shortens anomalies whose JSON encoding exceeds maxChars to at most
// the first keep entries plus a marker. The input slice is never modified.
func Truncate(anomalies []model.Anomaly, maxChars, keep int) []model.Anomaly {
	payload, err := json.Marshal(anomalies)
	if err != nil || len(payload) <= maxChars {
		return anomalies
	}
	if keep > len(anomalies) {
		keep = len(anomalies)
	}
	out := make([]model.Anomaly, 0, keep+1)
	out = append(out, anomalies[:keep]...)
	out = append(out, model.Anomaly{
		Kind:     model.KindTruncated,
		Message:  fmt.Sprintf("Results truncated - showing first %d out of %d anomalies", keep, len(anomalies)),
		Count:    model.Int(len(anomalies)),
		Severity: model.SeverityInfo,
	})
	return out
}

// ToRecord converts a result and its persisted anomalies into a table row.
func ToRecord(result *model.ValidationResult, persisted []model.Anomaly) (*model.ValidationResultRecord, error) {
	if persisted == nil {
		persisted = []model.Anomaly{}
	}
	anomalies, err := json.Marshal(persisted)
	if err != nil {
		return nil, fmt.Errorf("encode anomalies: %w", err)
	}
	checks := result.ChecksPerformed
	if checks == nil {
		checks = []string{}
	}
	performed, err := json.Marshal(checks)
	if err != nil {
		return nil, fmt.Errorf("encode checks: %w", err)
	}

	rec := &model.ValidationResultRecord{
		RunID:                result.RunID,
		DatasetName:          result.DatasetName,
		Status:               string(result.Status),
		TotalRows:            result.TotalRows,
		AnomaliesCount:       result.AnomaliesCount,
		Anomalies:            string(anomalies),
		ValidationsPerformed: string(performed),
		ValidationTimestamp:  result.RunTimestamp,
	}
	if f := result.DateFilter; f != nil {
		if f.StartDate != "" {
			start := f.StartDate
			rec.FilterStart = &start
		}
		if f.EndDate != "" {
			end := f.EndDate
			rec.FilterEnd = &end
		}
	}
	return rec, nil
}

// Store writes the persisted view of result. After the last failed attempt
// the full result is written to the fallback directory instead. Store never
// returns an error; failures are logged and counted.
func (g *Gateway) Store(ctx context.Context, result *model.ValidationResult, persisted []model.Anomaly) {
	log := logger.WithFields(map[string]interface{}{
		"component": "PersistenceGateway",
		"dataset":   result.DatasetName,
		"run_id":    result.RunID,
	})

	rows := Truncate(persisted, g.config.MaxPayloadChars, g.config.TruncateKeep)
	if len(rows) != len(persisted) {
		log.WithFields(map[string]interface{}{
			"anomalies": len(persisted),
			"kept":      g.config.TruncateKeep,
		}).Warn("Anomaly payload too large, truncating")
	}

	rec, err := ToRecord(result, rows)
	if err == nil {
		attempt := 0
		operation := func() error {
			attempt++
			insertErr := g.inserter.Insert(ctx, rec)
			metrics.PersistAttempt(insertErr == nil)
			if insertErr != nil {
				log.WithField("attempt", attempt).WithError(insertErr).Warn("Result insert failed")
			}
			return insertErr
		}
		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(g.config.RetryWait), uint64(g.config.MaxAttempts-1)),
			ctx,
		)
		if err = backoff.Retry(operation, policy); err == nil {
			log.WithField("attempts", attempt).Debug("Result stored")
			return
		}
	}

	log.WithError(err).Error("Result could not be stored, writing local fallback")
	metrics.PersistFallback(result.DatasetName)
	path, ferr := g.writeLocal(result)
	if ferr != nil {
		log.WithError(ferr).Error("Local fallback failed, result lost")
		return
	}
	log.WithField("path", path).Info("Result stored locally")
}

func fallbackName(result *model.ValidationResult) string {
	ts := result.RunTimestamp.UTC().Format(time.RFC3339Nano)
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("%s_%s.json", result.DatasetName, ts)
}

func (g *Gateway) writeLocal(result *model.ValidationResult) (string, error) {
	if err := os.MkdirAll(g.config.FallbackDir, 0o755); err != nil {
		return "", err
	}
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.config.FallbackDir, fallbackName(result))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// LocalResult is a result read back from the fallback directory.
type LocalResult struct {
	ID     string                  `json:"id"`
	Result *model.ValidationResult `json:"result"`
}

// LoadLocal returns up to limit fallback results, newest file first. Files
// that cannot be decoded are skipped.
func (g *Gateway) LoadLocal(limit int) ([]LocalResult, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := os.ReadDir(g.config.FallbackDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []LocalResult{}, nil
		}
		return nil, err
	}

	type file struct {
		name string
		mod  time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{name: e.Name(), mod: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].name > files[j].name
		}
		return files[i].mod.After(files[j].mod)
	})

	out := make([]LocalResult, 0, limit)
	for _, f := range files {
		if len(out) == limit {
			break
		}
		body, err := os.ReadFile(filepath.Join(g.config.FallbackDir, f.name))
		if err != nil {
			continue
		}
		var res model.ValidationResult
		if err := json.Unmarshal(body, &res); err != nil {
			logger.WithField("file", f.name).WithError(err).Warn("Skipping unreadable local result")
			continue
		}
		out = append(out, LocalResult{ID: strings.TrimSuffix(f.name, ".json"), Result: &res})
	}
	return out, nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/persistence"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

type ValidationRunner interface {
	Validate(ctx context.Context, dataset, start, end string) *model.ValidationResult
	ValidateAll(ctx context.Context, start, end string) *model.BatchSummary
}

type DatasetLister interface {
	Datasets() []string
}

type ResultHistory interface {
	History(ctx context.Context, dataset string, limit int) ([]model.ValidationResultRecord, error)
	LatestByDataset(ctx context.Context, dataset string) (*model.ValidationResultRecord, error)
	LatestPerDataset(ctx context.Context) ([]model.ValidationResultRecord, error)
	StatusCounts(ctx context.Context, since time.Time) (map[string]int64, error)
}

type ExceptionLister interface {
	Recent(ctx context.Context, dataset string, limit int) ([]model.Exception, error)
}

type LocalResults interface {
	LoadLocal(limit int) ([]persistence.LocalResult, error)
}

type ConfigStore interface {
	FindByDataset(ctx context.Context, dataset string) (*model.ValidationConfig, error)
	Upsert(ctx context.Context, cfg *model.ValidationConfig) error
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// limitParam reads a positive limit from the query, falling back to def.
func limitParam(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}

func window(r *http.Request) (string, string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("start_date")), strings.TrimSpace(q.Get("end_date"))
}

// ValidateDatasetHandler runs the checks of the dataset named in the path.
// Runs that could not start answer 400 with the error result as body.
func ValidateDatasetHandler(runner ValidationRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset := chi.URLParam(r, "dataset")
		if dataset == "" {
			http.Error(w, "dataset is required", http.StatusBadRequest)
			return
		}
		start, end := window(r)

		result := runner.Validate(r.Context(), dataset, start, end)
		status := http.StatusOK
		if result.Error != "" {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, result)
	}
}

// ValidateAllHandler runs every registered dataset and returns the batch summary.
func ValidateAllHandler(runner ValidationRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, end := window(r)
		writeJSON(w, http.StatusOK, runner.ValidateAll(r.Context(), start, end))
	}
}

type resultsResponse struct {
	Results      []model.ValidationResultRecord `json:"results"`
	LocalResults []persistence.LocalResult      `json:"local_results"`
}

// ResultsHandler lists stored results, newest first, plus results that only
// made it to the local fallback directory.
func ResultsHandler(history ResultHistory, local LocalResults) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r, 50)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		dataset := r.URL.Query().Get("dataset")

		var (
			rows []model.ValidationResultRecord
			err  error
		)
		switch {
		case r.URL.Query().Get("latest") == "true" && dataset != "":
			var latest *model.ValidationResultRecord
			latest, err = history.LatestByDataset(r.Context(), dataset)
			if latest != nil {
				rows = []model.ValidationResultRecord{*latest}
			}
		case r.URL.Query().Get("latest") == "true":
			rows, err = history.LatestPerDataset(r.Context())
		default:
			rows, err = history.History(r.Context(), dataset, limit)
		}
		if err != nil {
			logger.WithError(err).Error("failed to load validation results")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		resp := resultsResponse{Results: rows, LocalResults: []persistence.LocalResult{}}
		if rows == nil {
			resp.Results = []model.ValidationResultRecord{}
		}
		if local != nil {
			stored, err := local.LoadLocal(limit)
			if err != nil {
				logger.WithError(err).Warn("failed to read local validation results")
			} else {
				resp.LocalResults = stored
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// DatasetsHandler lists the registered datasets.
func DatasetsHandler(lister DatasetLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"datasets": lister.Datasets()})
	}
}

type summaryResponse struct {
	Since  time.Time        `json:"since"`
	Counts map[string]int64 `json:"counts"`
}

// ResultsSummaryHandler counts stored results per status over the last
// since_hours hours (default 24).
func ResultsSummaryHandler(history ResultHistory, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if raw := r.URL.Query().Get("since_hours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid since_hours", http.StatusBadRequest)
				return
			}
			hours = parsed
		}
		since := now().UTC().Add(-time.Duration(hours) * time.Hour)

		counts, err := history.StatusCounts(r.Context(), since)
		if err != nil {
			logger.WithError(err).Error("failed to count validation results")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if counts == nil {
			counts = map[string]int64{}
		}
		writeJSON(w, http.StatusOK, summaryResponse{Since: since, Counts: counts})
	}
}

// ExceptionsHandler lists the newest captured exceptions.
func ExceptionsHandler(store ExceptionLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(r, 50)
		if !ok {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		rows, err := store.Recent(r.Context(), r.URL.Query().Get("dataset"), limit)
		if err != nil {
			logger.WithError(err).Error("failed to load exceptions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []model.Exception{}
		}
		writeJSON(w, http.StatusOK, map[string][]model.Exception{"exceptions": rows})
	}
}

// GetConfigHandler returns the stored config of a dataset.
func GetConfigHandler(store ConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := store.FindByDataset(r.Context(), chi.URLParam(r, "dataset"))
		if err != nil {
			logger.WithError(err).Error("failed to load validation config")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if cfg == nil {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

type configRequest struct {
	Rules          map[string]interface{} `json:"validation_rules"`
	Kinds          []string               `json:"validation_types"`
	ErrorThreshold *int                   `json:"error_threshold"`
	Recipients     []string               `json:"email_recipients"`
	Enabled        *bool                  `json:"enabled"`
}

// PutConfigHandler creates or replaces the config of a dataset. Omitted
// threshold and enabled fields default to 5 and true.
func PutConfigHandler(store ConfigStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataset := chi.URLParam(r, "dataset")
		var req configRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if req.ErrorThreshold != nil && *req.ErrorThreshold < 0 {
			http.Error(w, "invalid error_threshold", http.StatusBadRequest)
			return
		}

		cfg := &model.ValidationConfig{
			DatasetName:     dataset,
			CheckKinds:      model.EncodeStrings(req.Kinds),
			EmailRecipients: model.EncodeStrings(req.Recipients),
			ErrorThreshold:  5,
			Enabled:         true,
		}
		if req.Rules != nil {
			raw, err := json.Marshal(req.Rules)
			if err != nil {
				http.Error(w, "invalid validation_rules", http.StatusBadRequest)
				return
			}
			cfg.RuleParameters = string(raw)
		} else {
			cfg.RuleParameters = "{}"
		}
		if req.ErrorThreshold != nil {
			cfg.ErrorThreshold = *req.ErrorThreshold
		}
		if req.Enabled != nil {
			cfg.Enabled = *req.Enabled
		}

		if err := store.Upsert(r.Context(), cfg); err != nil {
			logger.WithError(err).Error("failed to store validation config")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

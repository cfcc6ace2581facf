// Package notify raises alerts for finished validation runs.
package notify

import (
	"context"

	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
)

// LogNotifier writes one alert line per run that found warnings or errors.
// Delivery to the configured recipients is left to the log pipeline.
type LogNotifier struct {
	log logger.FieldLogger
}

// NewLogNotifier creates a notifier on the standard logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.StandardLogger()}
}

// NewLogNotifierWith creates a notifier writing to log.
func NewLogNotifierWith(log logger.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Alertable reports whether a result carries anything worth telling people about.
func Alertable(result *model.ValidationResult) bool {
	counts := model.CountBySeverity(result.Anomalies)
	return result.Error != "" || counts[model.SeverityError] > 0 || counts[model.SeverityWarning] > 0
}

func (n *LogNotifier) Notify(_ context.Context, result *model.ValidationResult, cfg *model.ValidationConfig) error {
	if !Alertable(result) {
		return nil
	}
	var recipients []string
	if cfg != nil {
		recipients = cfg.Recipients()
	}
	counts := model.CountBySeverity(result.Anomalies)

	entry := n.log.WithFields(map[string]interface{}{
		"component":  "Notifier",
		"dataset":    result.DatasetName,
		"run_id":     result.RunID,
		"status":     result.Status,
		"errors":     counts[model.SeverityError],
		"warnings":   counts[model.SeverityWarning],
		"recipients": recipients,
	})
	if len(recipients) == 0 {
		entry.Info("Validation alert (no recipients configured)")
		return nil
	}
	entry.Warn("Validation alert")
	return nil
}

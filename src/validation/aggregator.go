package validation

import (
	"fmt"

	"sectorsguard/src/model"
)

// CheckResult is one check's outcome tagged with the check name.
type CheckResult struct {
	Name    string
	Outcome CheckOutcome
}

// Aggregation is the merged view of a run's check results.
type Aggregation struct {
	// Anomalies is every finding in check order.
	Anomalies []model.Anomaly
	// Persisted is the subset at or above the persist floor.
	Persisted []model.Anomaly
	Count     int
	Status    model.Status
	Failed    []string
}

// Aggregate merges check results. A failed check contributes whatever it found
// plus one validation_error anomaly. Anomalies with an unrecognised severity
// are treated as errors.
func Aggregate(results []CheckResult, floor model.Severity, threshold int) Aggregation {
	var agg Aggregation
	agg.Anomalies = []model.Anomaly{}
	for _, res := range results {
		for _, a := range res.Outcome.Anomalies {
			if !a.Severity.Valid() {
				a.Severity = model.SeverityError
			}
			agg.Anomalies = append(agg.Anomalies, a)
		}
		if res.Outcome.Err != nil {
			agg.Failed = append(agg.Failed, res.Name)
			agg.Anomalies = append(agg.Anomalies, model.Anomaly{
				Kind:     model.KindValidationError,
				Metric:   res.Name,
				Message:  fmt.Sprintf("Error running check %s: %v", res.Name, res.Outcome.Err),
				Severity: model.SeverityError,
			})
		}
	}
	agg.Persisted = model.FilterBySeverity(agg.Anomalies, floor)
	agg.Count = len(agg.Persisted)
	agg.Status = StatusFor(agg.Count, threshold)
	return agg
}

// StatusFor derives run status from the counted anomalies.
func StatusFor(count, threshold int) model.Status {
	switch {
	case count == 0:
		return model.StatusSuccess
	case count > threshold:
		return model.StatusError
	default:
		return model.StatusWarning
	}
}

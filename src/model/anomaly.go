package model

// Severity classifies how urgent an anomaly is.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Rank orders severities so they can be compared. Unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as floor or more.
func (s Severity) AtLeast(floor Severity) bool {
	return s.Rank() >= floor.Rank()
}

// Valid reports whether s is one of the three tiers.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Anomaly kinds shared across checks.
const (
	KindMissingColumns    = "missing_required_columns"
	KindValidationError   = "validation_error"
	KindIdentityViolation = "identity_violation"
	KindIdentitySkipped   = "identity_check_skipped"
	KindDataMissing       = "data_missing"
	KindRatioOutOfRange   = "ratio_out_of_range"
	KindExtremeChange     = "extreme_change"
	KindDailyPriceChange  = "extreme_daily_price_change"
	KindHierarchy         = "price_hierarchy_violation"
	KindBucketMismatch    = "price_bucket_mismatch"
	KindDuplicateTx       = "duplicate_transaction"
	KindCoverageMismatch  = "coverage_mismatch"
	KindMissingValue      = "missing_required_value"
	KindHighYield         = "high_average_yield_per_year"
	KindYieldChange       = "large_average_yield_change_per_year"
	KindFilingPrice       = "filing_price_discrepancy"
	KindCloseSplits       = "close_stock_splits"
	KindHierarchyMismatch = "subsector_hierarchy_mismatch"
	KindUnknownIDXIC      = "idxic_name_unknown"
	KindShareholderPct    = "shareholder_percentage_invalid"
	KindDuplicateHolder   = "duplicate_shareholder"
	KindTruncated         = "truncated_results"

	KindStatisticalOutlier = "statistical_outlier"
	KindMissingFields      = "missing_required_fields"
	KindDuplicateValues    = "duplicate_values"
	KindValueOutOfRange    = "value_out_of_range"
	KindHighNullShare      = "high_null_percentage"
	KindInvalidEmail       = "invalid_email_format"
	KindDataGaps           = "data_gaps"
	KindVolumeChange       = "unusual_volume_change"
)

// Anomaly is a single finding produced by a check.
type Anomaly struct {
	Kind          string                 `json:"type"`
	Metric        string                 `json:"metric,omitempty"`
	Message       string                 `json:"message"`
	Symbol        string                 `json:"symbol,omitempty"`
	Date          string                 `json:"date,omitempty"`
	Period        string                 `json:"period,omitempty"`
	Value         *float64               `json:"value,omitempty"`
	Difference    *float64               `json:"difference,omitempty"`
	DifferencePct *float64               `json:"difference_pct,omitempty"`
	Count         *int                   `json:"count,omitempty"`
	Severity      Severity               `json:"severity"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Float returns a pointer to v for the optional numeric fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v for the optional count field.
func Int(v int) *int { return &v }

// FilterBySeverity keeps the anomalies at or above floor, preserving order.
func FilterBySeverity(anomalies []Anomaly, floor Severity) []Anomaly {
	out := make([]Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if a.Severity.AtLeast(floor) {
			out = append(out, a)
		}
	}
	return out
}

// CountBySeverity tallies anomalies per severity tier.
func CountBySeverity(anomalies []Anomaly) map[Severity]int {
	counts := map[Severity]int{}
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return counts
}

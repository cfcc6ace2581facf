package validation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/table"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Generic check kinds configurable per dataset.
const (
	CheckStatistical   = "statistical"
	CheckBusinessRules = "business_rules"
	CheckDataQuality   = "data_quality"
	CheckTimeSeries    = "time_series"
)

// DefaultGenericKinds run when a config lists no check kinds.
var DefaultGenericKinds = []string{CheckDataQuality, CheckStatistical}

var genericChecks = map[string]CheckFunc{
	CheckStatistical:   StatisticalCheck,
	CheckBusinessRules: BusinessRulesCheck,
	CheckDataQuality:   DataQualityCheck,
	CheckTimeSeries:    TimeSeriesCheck,
}

// GenericChecks resolves configured kinds in the fixed order statistical,
// business rules, data quality, time series. Unknown kinds are ignored.
func GenericChecks(kinds []string) []Check {
	if len(kinds) == 0 {
		kinds = DefaultGenericKinds
	}
	wanted := map[string]bool{}
	for _, k := range kinds {
		wanted[k] = true
	}
	var out []Check
	for _, k := range []string{CheckStatistical, CheckBusinessRules, CheckDataQuality, CheckTimeSeries} {
		if wanted[k] {
			out = append(out, Check{Name: k, Run: genericChecks[k]})
		}
	}
	return out
}

func rulesOf(cfg *model.ValidationConfig) map[string]interface{} {
	if cfg == nil {
		return map[string]interface{}{}
	}
	return cfg.Rules()
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, decimal.Decimal:
		return true
	}
	return false
}

// numericColumns lists columns whose non-null cells are all numbers.
func numericColumns(t *table.Table) []string {
	var out []string
	for _, c := range t.Columns() {
		seen := false
		numeric := true
		for _, r := range t.Rows() {
			if r.IsNull(c) {
				continue
			}
			seen = true
			if !isNumber(r.Value(c)) {
				numeric = false
				break
			}
		}
		if seen && numeric {
			out = append(out, c)
		}
	}
	return out
}

// StatisticalCheck counts IQR outliers (1.5 x IQR) in every numeric column.
func StatisticalCheck(_ context.Context, in CheckInput) CheckOutcome {
	var out []model.Anomaly
	for _, col := range numericColumns(in.Table) {
		var values []float64
		for _, r := range in.Table.Rows() {
			if v, ok := r.Float(col); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
		q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
		iqr := q3 - q1
		lower, upper := q1-1.5*iqr, q3+1.5*iqr
		n := 0
		for _, v := range values {
			if v < lower || v > upper {
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindStatisticalOutlier,
			Metric:   col,
			Message:  fmt.Sprintf("Found %d statistical outliers in column '%s'", n, col),
			Count:    model.Int(n),
			Severity: model.SeverityWarning,
			Details:  map[string]interface{}{"lower_bound": lower, "upper_bound": upper},
		})
	}
	return CheckOutcome{Anomalies: out}
}

// BusinessRulesCheck applies the configured required_fields, no_duplicates
// and amount_range rules.
func BusinessRulesCheck(_ context.Context, in CheckInput) CheckOutcome {
	t := in.Table
	if t.Empty() {
		return CheckOutcome{}
	}
	rules := rulesOf(in.Config)
	var out []model.Anomaly

	if fields := table.ToStrings(rules["required_fields"]); len(fields) > 0 {
		if missing := t.Missing(fields...); len(missing) > 0 {
			out = append(out, model.Anomaly{
				Kind:     model.KindMissingFields,
				Message:  fmt.Sprintf("Missing required fields: %v", missing),
				Count:    model.Int(len(missing)),
				Severity: model.SeverityError,
				Details:  map[string]interface{}{"fields": missing},
			})
		}
	}

	for _, field := range table.ToStrings(rules["no_duplicates"]) {
		if !t.Has(field) {
			continue
		}
		counts := map[string]int{}
		for _, r := range t.Rows() {
			if !r.IsNull(field) {
				counts[r.String(field)]++
			}
		}
		n := 0
		for _, c := range counts {
			if c > 1 {
				n += c
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindDuplicateValues,
			Metric:   field,
			Message:  fmt.Sprintf("Found %d duplicate values in column '%s'", n, field),
			Count:    model.Int(n),
			Severity: model.SeverityWarning,
		})
	}

	if rng, ok := rules["amount_range"].(map[string]interface{}); ok && t.Has("amount") {
		min, okMin := table.ToFloat(rng["min"])
		max, okMax := table.ToFloat(rng["max"])
		if okMin && okMax {
			n := 0
			for _, r := range t.Rows() {
				if v, ok := r.Float("amount"); ok && (v < min || v > max) {
					n++
				}
			}
			if n > 0 {
				out = append(out, model.Anomaly{
					Kind:     model.KindValueOutOfRange,
					Metric:   "amount",
					Message:  fmt.Sprintf("Found %d amounts outside valid range (%g-%g)", n, min, max),
					Count:    model.Int(n),
					Severity: model.SeverityError,
				})
			}
		}
	}
	return CheckOutcome{Anomalies: out}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NullShareThresholdPct is the share of empty cells that makes a column suspect.
const NullShareThresholdPct = 20.0

// DataQualityCheck reports columns with too many nulls and malformed emails.
func DataQualityCheck(_ context.Context, in CheckInput) CheckOutcome {
	t := in.Table
	if t.Empty() {
		return CheckOutcome{}
	}
	var out []model.Anomaly
	for _, col := range t.Columns() {
		nulls := 0
		for _, r := range t.Rows() {
			if r.IsNull(col) {
				nulls++
			}
		}
		pct := float64(nulls) / float64(t.Len()) * 100
		if pct <= NullShareThresholdPct {
			continue
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindHighNullShare,
			Metric:   col,
			Message:  fmt.Sprintf("Column '%s' has %.1f%% null values", col, pct),
			Value:    model.Float(round2(pct)),
			Severity: model.SeverityWarning,
		})
	}

	if t.Has("email") {
		n := 0
		for _, r := range t.Rows() {
			if r.IsNull("email") || !emailPattern.MatchString(r.String("email")) {
				n++
			}
		}
		if n > 0 {
			out = append(out, model.Anomaly{
				Kind:     model.KindInvalidEmail,
				Metric:   "email",
				Message:  fmt.Sprintf("Found %d invalid email formats", n),
				Count:    model.Int(n),
				Severity: model.SeverityError,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

// TimeSeriesCheck looks for gaps longer than a day in the configured time
// column (default date) and day-over-day amount swings above 50%.
func TimeSeriesCheck(_ context.Context, in CheckInput) CheckOutcome {
	col := "date"
	if c, ok := rulesOf(in.Config)["time_column"].(string); ok && c != "" {
		col = c
	}
	t := in.Table
	if t.Empty() || !t.Has(col) {
		return CheckOutcome{}
	}

	var times []time.Time
	for _, r := range t.Rows() {
		if ts, ok := r.Time(col); ok {
			times = append(times, ts)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	var out []model.Anomaly
	gaps := 0
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) > 24*time.Hour {
			gaps++
		}
	}
	if gaps > 0 {
		out = append(out, model.Anomaly{
			Kind:     model.KindDataGaps,
			Metric:   col,
			Message:  fmt.Sprintf("Found %d significant time gaps in data", gaps),
			Count:    model.Int(gaps),
			Severity: model.SeverityWarning,
		})
	}

	if t.Has("amount") {
		daily := map[string]float64{}
		var days []string
		for _, r := range t.Rows() {
			ts, ok := r.Time(col)
			if !ok {
				continue
			}
			v, ok := r.Float("amount")
			if !ok {
				continue
			}
			key := table.DateKey(ts)
			if _, seen := daily[key]; !seen {
				days = append(days, key)
			}
			daily[key] += v
		}
		sort.Strings(days)
		swings := 0
		for i := 1; i < len(days); i++ {
			prev := daily[days[i-1]]
			if prev == 0 {
				continue
			}
			if math.Abs((daily[days[i]]-prev)/prev) > 0.5 {
				swings++
			}
		}
		if swings > 0 {
			out = append(out, model.Anomaly{
				Kind:     model.KindVolumeChange,
				Metric:   "amount",
				Message:  fmt.Sprintf("Found %d days with unusual volume changes", swings),
				Count:    model.Int(swings),
				Severity: model.SeverityWarning,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

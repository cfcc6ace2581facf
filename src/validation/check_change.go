package validation

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"sectorsguard/src/model"
	"sectorsguard/src/table"

	"gonum.org/v1/gonum/stat"
)

// ChangeRule parameterises the extreme period-over-period change detector.
type ChangeRule struct {
	Period     string
	Metrics    []string
	MinPeriods int
	// FloorPct is the absolute change in percent a period must exceed.
	FloorPct float64
	// Multiplier scales the entity-metric's mean absolute change.
	Multiplier float64
}

var (
	AnnualChangeRule = ChangeRule{
		Period:     "annual",
		Metrics:    []string{"revenue", "earnings", "total_assets"},
		MinPeriods: 2,
		FloorPct:   75,
		Multiplier: 2.0,
	}
	QuarterlyChangeRule = ChangeRule{
		Period:     "quarterly",
		Metrics:    []string{"total_revenue", "earnings", "total_assets"},
		MinPeriods: 4,
		FloorPct:   100,
		Multiplier: 2.5,
	}
)

type periodChange struct {
	label string
	pct   float64
}

// periodLabel names a period: the year for annual data, the day otherwise.
func periodLabel(r table.Row, period string) string {
	ts, ok := r.Time("date")
	if !ok {
		return ""
	}
	if period == "annual" {
		return strconv.Itoa(ts.Year())
	}
	return table.DateKey(ts)
}

// changes computes percentage changes between consecutive rows. Pairs with a
// missing value or a zero previous value are skipped.
func changes(t *table.Table, metric, period string) []periodChange {
	var out []periodChange
	rows := t.Rows()
	for i := 1; i < len(rows); i++ {
		prev, okP := rows[i-1].Float(metric)
		cur, okC := rows[i].Float(metric)
		if !okP || !okC || prev == 0 {
			continue
		}
		out = append(out, periodChange{
			label: periodLabel(rows[i], period),
			pct:   (cur - prev) / math.Abs(prev) * 100,
		})
	}
	return out
}

// ExtremeChangeCheck returns a check applying rule per symbol and metric. An
// anomaly is raised only when more than one period is extreme.
func ExtremeChangeCheck(rule ChangeRule) CheckFunc {
	return func(_ context.Context, in CheckInput) CheckOutcome {
		var out []model.Anomaly
		for _, g := range bySymbol(in.Table) {
			if g.Table.Len() < rule.MinPeriods {
				continue
			}
			for _, metric := range rule.Metrics {
				if !g.Table.Has(metric) {
					continue
				}
				ch := changes(g.Table, metric, rule.Period)
				if len(ch) == 0 {
					continue
				}
				sizes := make([]float64, len(ch))
				for i, c := range ch {
					sizes[i] = math.Abs(c.pct)
				}
				avg := stat.Mean(sizes, nil)

				var periods []string
				var pcts []float64
				for _, c := range ch {
					abs := math.Abs(c.pct)
					if abs > rule.FloorPct && abs > avg*rule.Multiplier {
						periods = append(periods, c.label)
						pcts = append(pcts, round2(c.pct))
					}
				}
				if len(periods) <= 1 {
					continue
				}
				out = append(out, model.Anomaly{
					Kind:   model.KindExtremeChange,
					Metric: metric,
					Message: fmt.Sprintf("Symbol %s: %s shows %d extreme %s changes (>%.0f%%) in %v. Average absolute change: %.1f%%",
						g.Key, metric, len(periods), rule.Period, rule.FloorPct, periods, avg),
					Symbol:   g.Key,
					Period:   rule.Period,
					Value:    model.Float(round2(avg)),
					Count:    model.Int(len(periods)),
					Severity: model.SeverityWarning,
					Details: map[string]interface{}{
						"periods_affected":    periods,
						"extreme_pct_changes": pcts,
						"avg_abs_change":      round2(avg),
					},
				})
			}
		}
		return CheckOutcome{Anomalies: out}
	}
}

// DailyPriceChangeThresholdPct is the close-to-close move treated as extreme.
const DailyPriceChangeThresholdPct = 35.0

// DailyPriceChangeCheck flags close-to-close moves beyond the threshold.
func DailyPriceChangeCheck(_ context.Context, in CheckInput) CheckOutcome {
	var out []model.Anomaly
	for _, g := range bySymbol(in.Table) {
		rows := g.Table.Rows()
		for i := 1; i < len(rows); i++ {
			prev, okP := rows[i-1].Float("close")
			cur, okC := rows[i].Float("close")
			if !okP || !okC || prev == 0 {
				continue
			}
			pct := (cur - prev) / prev * 100
			if math.Abs(pct) <= DailyPriceChangeThresholdPct {
				continue
			}
			date := rowDate(rows[i])
			out = append(out, model.Anomaly{
				Kind:          model.KindDailyPriceChange,
				Metric:        "close",
				Message:       fmt.Sprintf("Symbol %s on %s: close price changed by %.1f%% (close: %g)", g.Key, date, pct, cur),
				Symbol:        g.Key,
				Date:          date,
				Value:         model.Float(cur),
				DifferencePct: model.Float(round2(pct)),
				Severity:      model.SeverityWarning,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

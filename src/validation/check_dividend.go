package validation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"sectorsguard/src/model"

	logger "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

const (
	DailyDataset         = "idx_daily_data"
	HighYieldThreshold   = 0.3
	YieldChangeThreshold = 0.1
)

// DividendYieldCheck sums yields per symbol and year. The current year is
// recomputed from the dividends paid and the mean close of the year so far.
func DividendYieldCheck(ctx context.Context, in CheckInput) CheckOutcome {
	var out []model.Anomaly
	thisYear := in.Now.Year()

	for _, g := range bySymbol(in.Table) {
		yields := map[int]float64{}
		dividends := map[int]float64{}
		paidThisYear := false
		for _, r := range g.Table.Rows() {
			ts, ok := r.Time("date")
			if !ok {
				continue
			}
			y := ts.Year()
			if v, ok := r.Float("yield"); ok {
				yields[y] += v
			} else if _, seen := yields[y]; !seen {
				yields[y] = 0
			}
			if v, ok := r.Float("dividend"); ok {
				dividends[y] += v
				if y == thisYear {
					paidThisYear = true
				}
			}
		}
		if len(yields) == 0 {
			continue
		}

		if paidThisYear && in.Lookups != nil {
			if avg, ok := meanCloseForYear(ctx, in.Lookups, g.Key, thisYear); ok && avg != 0 {
				yields[thisYear] = dividends[thisYear] / avg
			}
		}

		years := make([]int, 0, len(yields))
		for y := range yields {
			years = append(years, y)
		}
		sort.Ints(years)

		for _, y := range years {
			if yields[y] < HighYieldThreshold {
				continue
			}
			out = append(out, model.Anomaly{
				Kind:     model.KindHighYield,
				Metric:   "yield",
				Message:  fmt.Sprintf("Symbol %s year %d: average yield %.2f%% >= %.0f%%", g.Key, y, yields[y]*100, HighYieldThreshold*100),
				Symbol:   g.Key,
				Period:   strconv.Itoa(y),
				Value:    model.Float(yields[y]),
				Severity: model.SeverityWarning,
			})
		}
		for i := 1; i < len(years); i++ {
			change := math.Abs(yields[years[i]] - yields[years[i-1]])
			if change < YieldChangeThreshold {
				continue
			}
			out = append(out, model.Anomaly{
				Kind:       model.KindYieldChange,
				Metric:     "yield",
				Message:    fmt.Sprintf("Symbol %s year %d: yield changed by %.2f%% from %d", g.Key, years[i], change*100, years[i-1]),
				Symbol:     g.Key,
				Period:     strconv.Itoa(years[i]),
				Difference: model.Float(change),
				Severity:   model.SeverityWarning,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

func meanCloseForYear(ctx context.Context, lookups Lookups, symbol string, year int) (float64, bool) {
	daily, err := lookups.BySymbol(ctx, DailyDataset, symbol)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"check":  "DividendYieldCheck",
			"symbol": symbol,
		}).WithError(err).Warn("Daily price lookup failed, keeping recorded yield")
		return 0, false
	}
	var closes []float64
	for _, r := range daily.Rows() {
		ts, ok := r.Time("date")
		if !ok || ts.Year() != year {
			continue
		}
		if c, ok := r.Float("close"); ok {
			closes = append(closes, c)
		}
	}
	if len(closes) == 0 {
		return 0, false
	}
	return stat.Mean(closes, nil), true
}

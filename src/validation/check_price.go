package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/table"
	"sectorsguard/src/utils"

	logger "github.com/sirupsen/logrus"
)

type priceBucket struct {
	kind string
	// since returns the first day of the bucket window relative to ref.
	since    func(ref time.Time) time.Time
	allTime  bool
	isHigh   bool
	observed string
}

func lookback(days int) func(time.Time) time.Time {
	return func(ref time.Time) time.Time { return utils.DaysAgo(ref, days) }
}

func fromStart(time.Time) time.Time { return time.Time{} }

// Buckets are ordered from the shortest window to the longest.
var (
	highBuckets = []priceBucket{
		{kind: "90_d_high", since: lookback(90), isHigh: true, observed: "high"},
		{kind: "ytd_high", since: utils.StartOfYear, isHigh: true, observed: "high"},
		{kind: "52_w_high", since: lookback(52 * 7), isHigh: true, observed: "high"},
		{kind: "all_time_high", since: fromStart, allTime: true, isHigh: true, observed: "high"},
	}
	lowBuckets = []priceBucket{
		{kind: "90_d_low", since: lookback(90), observed: "low"},
		{kind: "ytd_low", since: utils.StartOfYear, observed: "low"},
		{kind: "52_w_low", since: lookback(52 * 7), observed: "low"},
		{kind: "all_time_low", since: fromStart, allTime: true, observed: "low"},
	}
)

type bucketValue struct {
	bucket priceBucket
	value  float64
}

func recorded(p *table.Pivot, symbol string, buckets []priceBucket) []bucketValue {
	var out []bucketValue
	for _, b := range buckets {
		if v, ok := p.Float(symbol, b.kind); ok {
			out = append(out, bucketValue{bucket: b, value: v})
		}
	}
	return out
}

// hierarchyIssues compares consecutive available buckets. Highs may not
// decrease and lows may not increase as the window widens.
func hierarchyIssues(values []bucketValue, isHigh bool) []string {
	var issues []string
	for i := 0; i+1 < len(values); i++ {
		cur, next := values[i], values[i+1]
		if isHigh && cur.value > next.value {
			issues = append(issues, fmt.Sprintf("%s (%g) > %s (%g)", cur.bucket.kind, cur.value, next.bucket.kind, next.value))
		}
		if !isHigh && cur.value < next.value {
			issues = append(issues, fmt.Sprintf("%s (%g) < %s (%g)", cur.bucket.kind, cur.value, next.bucket.kind, next.value))
		}
	}
	return issues
}

// PriceHierarchyCheck validates the ordering of period highs and lows and
// cross-checks each bucket against the symbol's daily series.
func PriceHierarchyCheck(ctx context.Context, in CheckInput) CheckOutcome {
	p := in.Table.Pivot("symbol", "type", "price")
	var out []model.Anomaly

	for _, symbol := range p.Index {
		highs := recorded(p, symbol, highBuckets)
		lows := recorded(p, symbol, lowBuckets)

		issues := append(hierarchyIssues(highs, true), hierarchyIssues(lows, false)...)
		if len(issues) > 0 {
			values := map[string]float64{}
			for _, bv := range append(append([]bucketValue{}, highs...), lows...) {
				values[bv.bucket.kind] = bv.value
			}
			out = append(out, model.Anomaly{
				Kind:     model.KindHierarchy,
				Message:  fmt.Sprintf("Symbol %s: price data inconsistencies detected - %s", symbol, strings.Join(issues, "; ")),
				Symbol:   symbol,
				Count:    model.Int(len(issues)),
				Severity: model.SeverityError,
				Details:  map[string]interface{}{"issues": issues, "values": values},
			})
		}

		if in.Lookups == nil {
			continue
		}
		daily, err := in.Lookups.BySymbol(ctx, DailyDataset, symbol)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"check":  "PriceHierarchyCheck",
				"symbol": symbol,
			}).WithError(err).Warn("Daily price lookup failed, bucket cross-check skipped")
			continue
		}
		out = append(out, bucketMismatches(symbol, append(highs, lows...), daily)...)
	}
	return CheckOutcome{Anomalies: out}
}

// observedExtreme is the max (highs) or min (lows) over rows on or after since,
// reading the bucket's column and falling back to close.
func observedExtreme(daily *table.Table, b priceBucket, since time.Time) (float64, bool) {
	found := false
	extreme := 0.0
	for _, r := range daily.Rows() {
		ts, ok := r.Time("date")
		if !ok || ts.Before(since) {
			continue
		}
		v, ok := r.Float(b.observed)
		if !ok {
			if v, ok = r.Float("close"); !ok {
				continue
			}
		}
		if !found || (b.isHigh && v > extreme) || (!b.isHigh && v < extreme) {
			extreme = v
			found = true
		}
	}
	return extreme, found
}

func latestDate(t *table.Table) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, r := range t.Rows() {
		if ts, ok := r.Time("date"); ok && (!found || ts.After(latest)) {
			latest, found = ts, true
		}
	}
	return latest, found
}

func bucketMismatches(symbol string, values []bucketValue, daily *table.Table) []model.Anomaly {
	ref, ok := latestDate(daily)
	if !ok {
		return nil
	}
	var out []model.Anomaly
	for _, bv := range values {
		b := bv.bucket
		since := b.since(ref)
		obs, ok := observedExtreme(daily, b, since)
		if !ok {
			continue
		}
		tol := Tolerance(obs, 0.01, 1e-6)
		var mismatch bool
		switch {
		case b.allTime && b.isHigh:
			mismatch = obs > bv.value+tol
		case b.allTime:
			mismatch = obs < bv.value-tol
		default:
			mismatch = math.Abs(bv.value-obs) > tol
		}
		if !mismatch {
			continue
		}
		details := map[string]interface{}{"observed": obs}
		if !since.IsZero() {
			details["window_start"] = utils.FormatDate(since)
		}
		out = append(out, model.Anomaly{
			Kind:       model.KindBucketMismatch,
			Metric:     b.kind,
			Message:    fmt.Sprintf("Symbol %s: recorded %s %g does not match the daily series extreme %g", symbol, b.kind, bv.value, obs),
			Symbol:     symbol,
			Date:       utils.FormatDate(ref),
			Value:      model.Float(bv.value),
			Difference: model.Float(bv.value - obs),
			Severity:   model.SeverityWarning,
			Details:    details,
		})
	}
	return out
}

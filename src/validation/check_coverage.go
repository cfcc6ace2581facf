package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sectorsguard/src/model"
)

// RequiredDailyValues must be filled on every daily row.
var RequiredDailyValues = []string{"close", "volume", "market_cap"}

func preview(symbols []string, n int) string {
	if len(symbols) <= n {
		return strings.Join(symbols, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(symbols[:n], ", "), len(symbols)-n)
}

// CoverageCheck compares the symbols present on each date with the active
// roster. Missing symbols are an error; only unexpected ones a warning.
func CoverageCheck(ctx context.Context, in CheckInput) CheckOutcome {
	if in.Table.Empty() {
		return CheckOutcome{}
	}
	if in.Lookups == nil {
		return CheckOutcome{Err: fmt.Errorf("active roster lookup unavailable")}
	}
	roster, err := in.Lookups.ActiveSymbols(ctx)
	if err != nil {
		return CheckOutcome{Err: fmt.Errorf("load active roster: %w", err)}
	}
	expected := make(map[string]struct{}, len(roster))
	for _, s := range roster {
		expected[strings.ToUpper(s)] = struct{}{}
	}

	byDate := map[string]map[string]struct{}{}
	var dates []string
	for _, r := range in.Table.Rows() {
		day := rowDate(r)
		sym := rowSymbol(r)
		if day == "" || sym == "" {
			continue
		}
		present, ok := byDate[day]
		if !ok {
			present = map[string]struct{}{}
			byDate[day] = present
			dates = append(dates, day)
		}
		present[strings.ToUpper(sym)] = struct{}{}
	}
	sort.Strings(dates)

	var out []model.Anomaly
	for _, day := range dates {
		present := byDate[day]
		var missing, unexpected []string
		for s := range expected {
			if _, ok := present[s]; !ok {
				missing = append(missing, s)
			}
		}
		for s := range present {
			if _, ok := expected[s]; !ok {
				unexpected = append(unexpected, s)
			}
		}
		if len(missing) == 0 && len(unexpected) == 0 {
			continue
		}
		sort.Strings(missing)
		sort.Strings(unexpected)

		sev := model.SeverityWarning
		if len(missing) > 0 {
			sev = model.SeverityError
		}
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, fmt.Sprintf("%d missing (%s)", len(missing), preview(missing, 10)))
		}
		if len(unexpected) > 0 {
			parts = append(parts, fmt.Sprintf("%d unexpected (%s)", len(unexpected), preview(unexpected, 10)))
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindCoverageMismatch,
			Message:  fmt.Sprintf("Coverage on %s: %d of %d active symbols present, %s", day, len(present)-len(unexpected), len(expected), strings.Join(parts, ", ")),
			Date:     day,
			Count:    model.Int(len(missing)),
			Severity: sev,
			Details: map[string]interface{}{
				"missing":    missing,
				"unexpected": unexpected,
				"present":    len(present),
				"expected":   len(expected),
			},
		})
	}
	return CheckOutcome{Anomalies: out}
}

// MissingValuesCheck flags rows with an empty required value.
func MissingValuesCheck(_ context.Context, in CheckInput) CheckOutcome {
	var out []model.Anomaly
	for _, r := range in.Table.Rows() {
		var empty []string
		for _, c := range RequiredDailyValues {
			if r.IsNull(c) {
				empty = append(empty, c)
			}
		}
		if len(empty) == 0 {
			continue
		}
		out = append(out, model.Anomaly{
			Kind:     model.KindMissingValue,
			Message:  fmt.Sprintf("Symbol %s on %s: missing %s", rowSymbol(r), rowDate(r), strings.Join(empty, ", ")),
			Symbol:   rowSymbol(r),
			Date:     rowDate(r),
			Severity: model.SeverityWarning,
			Details:  map[string]interface{}{"columns": empty},
		})
	}
	return CheckOutcome{Anomalies: out}
}

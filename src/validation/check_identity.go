package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"sectorsguard/src/model"
	"sectorsguard/src/table"

	logger "github.com/sirupsen/logrus"
)

// SubSectorNoFreeCashFlow is the sub-sector whose statements do not report a
// comparable free cash flow.
const SubSectorNoFreeCashFlow = 19

type identity struct {
	metric  string
	message string
	columns []string
	// excludeListed skips institutions on the exclusion list.
	excludeListed bool
	evaluate      func(v []float64) (actual, expected, base float64)
	rel, floor    float64
	severity      func(diffPct float64) model.Severity
}

func fixed(s model.Severity) func(float64) model.Severity {
	return func(float64) model.Severity { return s }
}

var balanceSheetIdentities = []identity{
	{
		metric:        "assets_liabilities_equity",
		message:       "Assets do not equal Liabilities plus Equity",
		columns:       []string{"total_assets", "total_liabilities", "total_equity"},
		excludeListed: true,
		evaluate: func(v []float64) (float64, float64, float64) {
			return v[0], v[1] + v[2], v[0]
		},
		rel:      0.10,
		floor:    1e9,
		severity: SeverityForDeviation,
	},
	{
		metric:  "net_loan",
		message: "Net loan does not equal Gross loan minus Allowance",
		columns: []string{"net_loan", "gross_loan", "allowance_for_loans"},
		evaluate: func(v []float64) (float64, float64, float64) {
			expected := v[1] - math.Abs(v[2])
			return v[0], expected, expected
		},
		rel:      0.02,
		floor:    1e9,
		severity: fixed(model.SeverityWarning),
	},
	{
		metric:  "total_deposit",
		message: "Total deposit does not equal the sum of Current Account, Savings Account and Time Deposit",
		columns: []string{"total_deposit", "current_account", "savings_account", "time_deposit"},
		evaluate: func(v []float64) (float64, float64, float64) {
			return v[0], v[1] + v[2] + v[3], v[0]
		},
		rel:      0.03,
		floor:    1e9,
		severity: fixed(model.SeverityInfo),
	},
}

var cashFlowColumns = []string{"net_operating_cash_flow", "net_investing_cash_flow", "net_financing_cash_flow"}

var ebtColumns = []string{"earnings_before_tax", "earnings", "tax"}

var fcfColumns = []string{"free_cash_flow", "net_operating_cash_flow", "capital_expenditure"}

func identitySkipped(r table.Row, metric string, cols []string) model.Anomaly {
	var missing []string
	for _, c := range cols {
		if r.IsNull(c) {
			missing = append(missing, c)
		}
	}
	return model.Anomaly{
		Kind:     model.KindIdentitySkipped,
		Metric:   metric,
		Message:  fmt.Sprintf("Identity %s skipped: missing %s", metric, strings.Join(missing, ", ")),
		Symbol:   rowSymbol(r),
		Date:     rowDate(r),
		Severity: model.SeverityInfo,
		Details:  map[string]interface{}{"missing_columns": missing},
	}
}

func violation(r table.Row, metric, message string, diff, diffPct float64, sev model.Severity) model.Anomaly {
	return model.Anomaly{
		Kind:          model.KindIdentityViolation,
		Metric:        metric,
		Message:       message,
		Symbol:        rowSymbol(r),
		Date:          rowDate(r),
		Difference:    model.Float(diff),
		DifferencePct: model.Float(diffPct),
		Severity:      sev,
	}
}

// IdentityCheck verifies the accounting identities row by row. Each identity is
// evaluated only where all of its columns are present; partially filled rows
// are reported as skipped.
func IdentityCheck(ctx context.Context, in CheckInput) CheckOutcome {
	t := in.Table
	var out []model.Anomaly

	for _, id := range balanceSheetIdentities {
		if len(t.Missing(id.columns...)) > 0 {
			continue
		}
		for _, r := range t.Rows() {
			if id.excludeListed && isExcluded(rowSymbol(r)) {
				continue
			}
			v, ok := floats(r, id.columns...)
			if !ok {
				if presentCount(r, id.columns...) > 0 {
					out = append(out, identitySkipped(r, id.metric, id.columns))
				}
				continue
			}
			actual, expected, base := id.evaluate(v)
			if !Exceeds(actual, expected, Tolerance(base, id.rel, id.floor)) {
				continue
			}
			diff := actual - expected
			pct := PercentOf(diff, base)
			out = append(out, violation(r, id.metric, id.message, diff, pct, id.severity(pct)))
		}
	}

	out = append(out, earningsBeforeTax(t)...)
	out = append(out, netCashFlow(t)...)

	fcf, err := freeCashFlow(ctx, t, in.Lookups)
	out = append(out, fcf...)
	return CheckOutcome{Anomalies: out, Err: err}
}

// earningsBeforeTax accepts either earnings+tax or earnings+tax+minorities.
func earningsBeforeTax(t *table.Table) []model.Anomaly {
	if len(t.Missing(ebtColumns...)) > 0 {
		return nil
	}
	const metric = "earnings_before_tax"
	var out []model.Anomaly
	for _, r := range t.Rows() {
		v, ok := floats(r, ebtColumns...)
		if !ok {
			if presentCount(r, ebtColumns...) > 0 {
				out = append(out, identitySkipped(r, metric, ebtColumns))
			}
			continue
		}
		ebt := v[0]
		withoutMinorities := v[1] + v[2]
		withMinorities := withoutMinorities
		if m, ok := r.Float("minorities"); ok {
			withMinorities += m
		}
		tol := Tolerance(ebt, 0.05, 1e9)
		if !Exceeds(ebt, withoutMinorities, tol) || !Exceeds(ebt, withMinorities, tol) {
			continue
		}
		diff := ebt - withoutMinorities
		out = append(out, violation(r, metric,
			"EBT does not equal Earnings plus Tax (plus Minorities)",
			diff, PercentOf(diff, ebt), model.SeverityWarning))
	}
	return out
}

// netCashFlow checks ncf = operating + investing + financing. A missing total
// with all components present is reported as missing data.
func netCashFlow(t *table.Table) []model.Anomaly {
	all := append([]string{"net_cash_flow"}, cashFlowColumns...)
	if len(t.Missing(all...)) > 0 {
		return nil
	}
	const metric = "net_cash_flow"
	var out []model.Anomaly
	for _, r := range t.Rows() {
		if r.IsNull("net_cash_flow") && r.AllPresent(cashFlowColumns...) {
			out = append(out, model.Anomaly{
				Kind:     model.KindDataMissing,
				Metric:   metric,
				Message:  "Net cash flow missing while components present, identity check skipped",
				Symbol:   rowSymbol(r),
				Date:     rowDate(r),
				Severity: model.SeverityInfo,
			})
			continue
		}
		v, ok := floats(r, all...)
		if !ok {
			if presentCount(r, all...) > 0 {
				out = append(out, identitySkipped(r, metric, all))
			}
			continue
		}
		expected := v[1] + v[2] + v[3]
		if !Exceeds(v[0], expected, Tolerance(expected, 0.05, 1e9)) {
			continue
		}
		diff := v[0] - expected
		out = append(out, violation(r, metric,
			"Net cash flow does not equal the sum of operating, investing and financing cash flow",
			diff, PercentOf(diff, expected), model.SeverityWarning))
	}
	return out
}

// freeCashFlow checks fcf = operating cash flow - capex, skipping companies in
// SubSectorNoFreeCashFlow. A failed sub-sector lookup skips the row.
func freeCashFlow(ctx context.Context, t *table.Table, lookups Lookups) ([]model.Anomaly, error) {
	if len(t.Missing(append(fcfColumns, "symbol")...)) > 0 {
		return nil, nil
	}
	const metric = "free_cash_flow"
	var out []model.Anomaly
	for _, r := range t.Rows() {
		v, ok := floats(r, fcfColumns...)
		if !ok {
			if presentCount(r, fcfColumns...) > 0 {
				out = append(out, identitySkipped(r, metric, fcfColumns))
			}
			continue
		}
		symbol := rowSymbol(r)
		if lookups != nil && symbol != "" {
			id, found, err := lookups.SubSectorID(ctx, symbol)
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"check":  "IdentityCheck",
					"symbol": symbol,
				}).WithError(err).Warn("Sub-sector lookup failed, free cash flow row skipped")
				continue
			}
			if found && id == SubSectorNoFreeCashFlow {
				continue
			}
		}
		expected := v[1] - v[2]
		if !Exceeds(v[0], expected, Tolerance(expected, 0.05, 5e8)) {
			continue
		}
		diff := v[0] - expected
		out = append(out, violation(r, metric,
			"Free cash flow does not equal operating cash flow minus capital expenditure",
			diff, PercentOf(diff, expected), model.SeverityInfo))
	}
	return out, nil
}

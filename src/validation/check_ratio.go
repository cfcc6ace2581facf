package validation

import (
	"context"
	"fmt"
	"math"

	"sectorsguard/src/model"
	"sectorsguard/src/table"
)

type ratio struct {
	metric   string
	label    string
	min, max float64
	severity model.Severity
	compute  func(r table.Row) (float64, bool)
}

// quotient divides two columns, failing on nulls and zero denominators.
func quotient(num, den string) func(table.Row) (float64, bool) {
	return func(r table.Row) (float64, bool) {
		n, okN := r.Float(num)
		d, okD := r.Float(den)
		if !okN || !okD || d == 0 {
			return 0, false
		}
		return n / d, true
	}
}

var bankingRatios = []ratio{
	{
		metric:   "ldr",
		label:    "Loan to deposit ratio",
		min:      0.4,
		max:      1.3,
		severity: model.SeverityWarning,
		compute:  quotient("gross_loan", "total_deposit"),
	},
	{
		metric:   "casa",
		label:    "CASA share of deposits",
		min:      0,
		max:      1,
		severity: model.SeverityWarning,
		compute: func(r table.Row) (float64, bool) {
			v, ok := floats(r, "current_account", "savings_account", "time_deposit")
			if !ok {
				return 0, false
			}
			total := v[0] + v[1] + v[2]
			if total == 0 {
				return 0, false
			}
			return (v[0] + v[1]) / total, true
		},
	},
	{
		metric:   "car",
		label:    "Capital adequacy ratio",
		min:      0.1,
		max:      math.Inf(1),
		severity: model.SeverityWarning,
		compute:  quotient("total_capital", "total_risk_weighted_asset"),
	},
	{
		metric:   "nim_proxy",
		label:    "Net interest margin proxy",
		min:      -0.02,
		max:      0.25,
		severity: model.SeverityInfo,
		compute:  quotient("net_interest_income", "total_assets"),
	},
	{
		metric:   "cir",
		label:    "Cost to income ratio",
		min:      0,
		max:      3,
		severity: model.SeverityWarning,
		compute: func(r table.Row) (float64, bool) {
			opex, ok := r.Float("operating_expense")
			if !ok || !r.AnyPresent("net_interest_income", "non_interest_income") {
				return 0, false
			}
			income := 0.0
			for _, c := range []string{"net_interest_income", "non_interest_income"} {
				if v, ok := r.Float(c); ok {
					income += v
				}
			}
			if income == 0 {
				return 0, false
			}
			return opex / income, true
		},
	},
	{
		metric:   "loan_loss_coverage",
		label:    "Loan loss coverage",
		min:      0,
		max:      0.5,
		severity: model.SeverityInfo,
		compute: func(r table.Row) (float64, bool) {
			allowance, okA := r.Float("allowance_for_loans")
			gross, okG := r.Float("gross_loan")
			if !okA || !okG || gross == 0 {
				return 0, false
			}
			return math.Abs(allowance) / gross, true
		},
	},
}

func describeRange(min, max float64) string {
	if math.IsInf(max, 1) {
		return fmt.Sprintf(">= %g", min)
	}
	return fmt.Sprintf("[%g, %g]", min, max)
}

// RatioCheck flags banking ratios outside their plausible ranges. Institutions
// on the exclusion list are skipped.
func RatioCheck(_ context.Context, in CheckInput) CheckOutcome {
	var out []model.Anomaly
	for _, r := range in.Table.Rows() {
		symbol := rowSymbol(r)
		if isExcluded(symbol) {
			continue
		}
		for _, rt := range bankingRatios {
			v, ok := rt.compute(r)
			if !ok || (v >= rt.min && v <= rt.max) {
				continue
			}
			out = append(out, model.Anomaly{
				Kind:     model.KindRatioOutOfRange,
				Metric:   rt.metric,
				Message:  fmt.Sprintf("%s %.4f is outside the plausible range %s", rt.label, v, describeRange(rt.min, rt.max)),
				Symbol:   symbol,
				Date:     rowDate(r),
				Value:    model.Float(v),
				Severity: rt.severity,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/table"
)

// Lookups are the cross-dataset reads available to checks.
type Lookups interface {
	BySymbol(ctx context.Context, dataset, symbol string) (*table.Table, error)
	Reference(ctx context.Context, dataset string) (*table.Table, error)
	ActiveSymbols(ctx context.Context) ([]string, error)
	SubSectorID(ctx context.Context, symbol string) (int, bool, error)
}

// CheckInput is everything one check may look at.
type CheckInput struct {
	Table   *table.Table
	Lookups Lookups
	Config  *model.ValidationConfig
	Now     time.Time
}

// CheckOutcome carries a check's findings. A non-nil Err means the check could
// not finish; any anomalies gathered before the failure are still reported.
type CheckOutcome struct {
	Anomalies []model.Anomaly
	Err       error
}

// CheckFunc is a single rule check.
type CheckFunc func(ctx context.Context, in CheckInput) CheckOutcome

// Check is a named rule check.
type Check struct {
	Name string
	Run  CheckFunc
}

// runCheck executes c, turning a panic into an error outcome.
func runCheck(ctx context.Context, c Check, in CheckInput) (out CheckOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = CheckOutcome{Anomalies: out.Anomalies, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return c.Run(ctx, in)
}

// Institutions whose accounting basis makes the balance-sheet identity and
// banking ratios meaningless.
var islamicBanks = map[string]struct{}{
	"BANK.JK": {},
	"BRIS.JK": {},
	"BSIM.JK": {},
	"PNBS.JK": {},
	"BTPS.JK": {},
}

func isExcluded(symbol string) bool {
	_, ok := islamicBanks[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// rowDate formats the canonical date column of r, or returns "".
func rowDate(r table.Row) string {
	if ts, ok := r.Time("date"); ok {
		return table.DateKey(ts)
	}
	if r.IsNull("date") {
		return ""
	}
	return r.String("date")
}

func rowSymbol(r table.Row) string {
	if r.IsNull("symbol") {
		return ""
	}
	return r.String("symbol")
}

// floats reads every named column of r, reporting whether all were numeric.
func floats(r table.Row, cols ...string) ([]float64, bool) {
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, ok := r.Float(c)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func presentCount(r table.Row, cols ...string) int {
	n := 0
	for _, c := range cols {
		if !r.IsNull(c) {
			n++
		}
	}
	return n
}

// bySymbol groups rows by symbol and orders each group by date.
func bySymbol(t *table.Table) []table.Group {
	groups := t.GroupBy("symbol")
	for i := range groups {
		groups[i].Table = groups[i].Table.SortByTime("date")
	}
	return groups
}

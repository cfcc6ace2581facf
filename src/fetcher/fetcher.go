package fetcher

import (
	"context"
	"sort"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/table"
	"sectorsguard/src/utils"

	logger "github.com/sirupsen/logrus"
)

// DateAliases are the column names accepted as a dataset's date, in priority order.
var DateAliases = []string{"date", "ex_date", "exDate", "ex date", "trading_date", "trade_date", "timestamp"}

// Source reads raw rows for a dataset query.
type Source interface {
	Select(ctx context.Context, q model.DatasetQuery) ([]model.Row, error)
}

type windowKind int

const (
	windowNone windowKind = iota
	windowLookback
	windowPreviousBusinessDay
)

// DefaultWindow is the window applied when the caller gives no dates.
type DefaultWindow struct {
	kind windowKind
	days int
}

// NoWindow fetches the whole dataset.
func NoWindow() DefaultWindow { return DefaultWindow{kind: windowNone} }

// Lookback covers today and the previous days calendar days.
func Lookback(days int) DefaultWindow { return DefaultWindow{kind: windowLookback, days: days} }

// PreviousBusinessDay covers only the most recent completed weekday.
func PreviousBusinessDay() DefaultWindow { return DefaultWindow{kind: windowPreviousBusinessDay} }

// Plan describes how to fetch one dataset.
type Plan struct {
	Dataset string
	// Table is the physical source table; several datasets may share one.
	Table string
	// DateColumn is used for server-side filtering; empty forces a local filter.
	DateColumn     string
	Default        DefaultWindow
	TopByMarketCap int
}

// Result is the fetched table and the window that was actually applied.
type Result struct {
	Table  *table.Table
	Window *model.DateFilter
}

// Fetcher retrieves windowed datasets. It never fails: source errors yield an empty table.
type Fetcher struct {
	source Source
	now    func() time.Time
}

// New creates a fetcher. A nil clock uses time.Now.
func New(source Source, now func() time.Time) *Fetcher {
	if now == nil {
		now = time.Now
	}
	return &Fetcher{source: source, now: now}
}

func (f *Fetcher) resolveWindow(plan Plan, start, end string) *model.DateFilter {
	if start != "" || end != "" {
		return &model.DateFilter{StartDate: start, EndDate: end}
	}
	now := f.now()
	switch plan.Default.kind {
	case windowLookback:
		return &model.DateFilter{
			StartDate: utils.FormatDate(utils.DaysAgo(now, plan.Default.days)),
			EndDate:   utils.FormatDate(now),
		}
	case windowPreviousBusinessDay:
		day := utils.FormatDate(utils.PreviousBusinessDay(now))
		return &model.DateFilter{StartDate: day, EndDate: day}
	default:
		return nil
	}
}

// Fetch loads the dataset described by plan. Empty start and end apply the plan default.
func (f *Fetcher) Fetch(ctx context.Context, plan Plan, start, end string) Result {
	log := logger.WithFields(map[string]interface{}{
		"component": "Fetcher",
		"dataset":   plan.Dataset,
		"table":     plan.Table,
	})

	window := f.resolveWindow(plan, start, end)

	var rows []model.Row
	serverFiltered := false
	if window != nil && plan.DateColumn != "" {
		filtered, err := f.source.Select(ctx, model.DatasetQuery{
			Table:      plan.Table,
			DateColumn: plan.DateColumn,
			Start:      window.StartDate,
			End:        window.EndDate,
		})
		if err == nil {
			rows = filtered
			serverFiltered = true
		} else {
			log.WithError(err).Info("Server-side date filter failed, falling back to full fetch")
		}
	}

	if !serverFiltered {
		all, err := f.source.Select(ctx, model.DatasetQuery{Table: plan.Table})
		if err != nil {
			log.WithError(err).Warn("Dataset fetch failed, continuing with an empty dataset")
			return Result{Table: table.New(), Window: window}
		}
		rows = all
	}

	t := table.FromRecords(rows)
	_, hasDate := t.ResolveAlias("date", DateAliases...)

	if window != nil && !serverFiltered {
		if hasDate {
			t = FilterWindow(t, "date", window.StartDate, window.EndDate)
		} else if t.Len() > 0 {
			log.Warn("No date column found, window not applied")
			window = nil
		}
	}

	if plan.TopByMarketCap > 0 {
		t = TopByMarketCap(t, plan.TopByMarketCap)
	}

	log.WithField("rows", t.Len()).Debug("Dataset fetched")

	return Result{Table: t, Window: window}
}

// FilterWindow keeps rows whose calendar day lies in [start, end]. Empty bounds are open.
// Rows with an unparseable date are dropped.
func FilterWindow(t *table.Table, col, start, end string) *table.Table {
	return t.Filter(func(r table.Row) bool {
		ts, ok := r.Time(col)
		if !ok {
			return false
		}
		day := table.DateKey(ts)
		if start != "" && day < start {
			return false
		}
		if end != "" && day > end {
			return false
		}
		return true
	})
}

// TopByMarketCap keeps the rows of the n symbols with the largest latest market cap.
// Tables without symbol or market_cap columns are returned unchanged.
func TopByMarketCap(t *table.Table, n int) *table.Table {
	if t.Empty() || !t.Has("symbol") || !t.Has("market_cap") {
		return t
	}

	type ranked struct {
		symbol string
		cap    float64
		at     time.Time
	}
	latest := map[string]ranked{}
	var order []string
	for _, r := range t.Rows() {
		mc, ok := r.Float("market_cap")
		if !ok || r.IsNull("symbol") {
			continue
		}
		sym := r.String("symbol")
		at, _ := r.Time("date")
		cur, seen := latest[sym]
		if !seen {
			order = append(order, sym)
		}
		if !seen || !at.Before(cur.at) {
			latest[sym] = ranked{symbol: sym, cap: mc, at: at}
		}
	}

	list := make([]ranked, 0, len(order))
	for _, s := range order {
		list = append(list, latest[s])
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].cap > list[j].cap })
	if len(list) > n {
		list = list[:n]
	}

	keep := make(map[string]struct{}, len(list))
	for _, r := range list {
		keep[r.symbol] = struct{}{}
	}
	return t.Filter(func(r table.Row) bool {
		_, ok := keep[r.String("symbol")]
		return ok
	})
}

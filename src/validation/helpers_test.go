package validation

import (
	"context"
	"errors"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/table"
)

type rec = map[string]interface{}

type (
	tableT   = table.Table
	tableRow = table.Row
)

func tbl(rows ...rec) *table.Table {
	return table.FromRecords(rows)
}

type fakeLookups struct {
	bySymbol   map[string]*table.Table
	reference  map[string]*table.Table
	roster     []string
	subSectors map[string]int
	fail       bool
	calls      int
}

func (f *fakeLookups) BySymbol(_ context.Context, dataset, symbol string) (*table.Table, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("lookup unavailable")
	}
	if t, ok := f.bySymbol[dataset+"|"+symbol]; ok {
		return t, nil
	}
	return table.New(), nil
}

func (f *fakeLookups) Reference(_ context.Context, dataset string) (*table.Table, error) {
	if f.fail {
		return nil, errors.New("lookup unavailable")
	}
	if t, ok := f.reference[dataset]; ok {
		return t, nil
	}
	return table.New(), nil
}

func (f *fakeLookups) ActiveSymbols(context.Context) ([]string, error) {
	if f.fail {
		return nil, errors.New("lookup unavailable")
	}
	return f.roster, nil
}

func (f *fakeLookups) SubSectorID(_ context.Context, symbol string) (int, bool, error) {
	if f.fail {
		return 0, false, errors.New("lookup unavailable")
	}
	id, ok := f.subSectors[symbol]
	return id, ok, nil
}

func input(t *table.Table) CheckInput {
	return CheckInput{Table: t, Now: time.Date(2024, 6, 28, 9, 0, 0, 0, time.UTC)}
}

func kinds(anomalies []model.Anomaly) []string {
	out := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		out = append(out, a.Kind)
	}
	return out
}

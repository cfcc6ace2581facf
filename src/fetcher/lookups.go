package fetcher

import (
	"context"
	"sort"
	"strings"
	"time"

	"sectorsguard/src/cache"
	"sectorsguard/src/model"
	"sectorsguard/src/table"
)

const (
	// RosterTable lists the companies that make up the active universe.
	RosterTable = "idx_company_profile"
	symbolCol   = "symbol"
)

// Lookups serves the cross-dataset reads some checks need, cached for a short TTL.
type Lookups struct {
	source  Source
	tables  *cache.TTL[string, *table.Table]
	symbols *cache.TTL[string, []string]
}

// NewLookups creates lookups over source with the given cache TTL and clock.
func NewLookups(source Source, ttl time.Duration, now cache.Clock) *Lookups {
	return &Lookups{
		source:  source,
		tables:  cache.NewTTL[string, *table.Table](ttl, now),
		symbols: cache.NewTTL[string, []string](ttl, now),
	}
}

func (l *Lookups) load(ctx context.Context, q model.DatasetQuery) (*table.Table, error) {
	rows, err := l.source.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	t := table.FromRecords(rows)
	t.ResolveAlias("date", DateAliases...)
	return t.SortByTime("date"), nil
}

// BySymbol returns dataset rows for one symbol ordered by date.
// The returned table is shared through the cache and must not be modified.
func (l *Lookups) BySymbol(ctx context.Context, dataset, symbol string) (*table.Table, error) {
	key := dataset + "|" + symbol
	return l.tables.GetOrLoad(key, func() (*table.Table, error) {
		return l.load(ctx, model.DatasetQuery{Table: dataset, EqColumn: symbolCol, EqValue: symbol})
	})
}

// Reference returns a whole small dataset such as a classification table.
func (l *Lookups) Reference(ctx context.Context, dataset string) (*table.Table, error) {
	return l.tables.GetOrLoad(dataset+"|*", func() (*table.Table, error) {
		return l.load(ctx, model.DatasetQuery{Table: dataset})
	})
}

// ActiveSymbols lists roster symbols that are not delisted, upper-cased and sorted.
func (l *Lookups) ActiveSymbols(ctx context.Context) ([]string, error) {
	return l.symbols.GetOrLoad(RosterTable, func() ([]string, error) {
		rows, err := l.source.Select(ctx, model.DatasetQuery{Table: RosterTable})
		if err != nil {
			return nil, err
		}
		active := table.FromRecords(rows).Filter(func(r table.Row) bool {
			if !r.IsNull("delisting_date") {
				return false
			}
			return r.IsNull("is_active") || r.Value("is_active") != false
		})
		seen := map[string]struct{}{}
		var out []string
		for _, s := range active.Unique(symbolCol) {
			sym := strings.ToUpper(strings.TrimSpace(s))
			if _, ok := seen[sym]; ok || sym == "" {
				continue
			}
			seen[sym] = struct{}{}
			out = append(out, sym)
		}
		sort.Strings(out)
		return out, nil
	})
}

// SubSectorID resolves a company's sub-sector from the roster table.
func (l *Lookups) SubSectorID(ctx context.Context, symbol string) (int, bool, error) {
	t, err := l.BySymbol(ctx, RosterTable, symbol)
	if err != nil {
		return 0, false, err
	}
	for _, r := range t.Rows() {
		if v, ok := r.Float("sub_sector_id"); ok {
			return int(v), true, nil
		}
	}
	return 0, false, nil
}

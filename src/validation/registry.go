package validation

import (
	"errors"
	"fmt"
	"sort"

	"sectorsguard/src/fetcher"
	"sectorsguard/src/model"
)

// ErrUnknownDataset is returned for names that are neither registered nor
// configured for generic validation.
var ErrUnknownDataset = errors.New("unknown dataset")

// Kind identifies the family of checks a dataset gets.
type Kind int

const (
	KindGeneric Kind = iota
	KindFinancialsAnnual
	KindFinancialsQuarterly
	KindDailyData
	KindDailyCoverage
	KindDividend
	KindAllTimePrice
	KindFilings
	KindStockSplit
	KindCompanyProfile
)

var kindNames = map[Kind]string{
	KindGeneric:             "generic",
	KindFinancialsAnnual:    "financials_annual",
	KindFinancialsQuarterly: "financials_quarterly",
	KindDailyData:           "daily_data",
	KindDailyCoverage:       "daily_coverage",
	KindDividend:            "dividend",
	KindAllTimePrice:        "all_time_price",
	KindFilings:             "filings",
	KindStockSplit:          "stock_split",
	KindCompanyProfile:      "company_profile",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Spec binds a dataset name to its fetch plan and checks.
type Spec struct {
	Name            string
	Kind            Kind
	Plan            fetcher.Plan
	RequiredColumns []string
	Checks          []Check
	// PersistFloor is the lowest severity written to the store and counted.
	PersistFloor model.Severity
	// Threshold is the counted anomalies tolerated before status becomes error.
	Threshold int
}

// Registry is the fixed set of specialized datasets.
type Registry struct {
	specs map[string]Spec
	order []string
}

// NewRegistry validates specs and indexes them by name, keeping their order.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if s.Name == "" {
			return nil, errors.New("registry: dataset name is required")
		}
		if _, dup := r.specs[s.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate dataset %q", s.Name)
		}
		if s.Plan.Table == "" {
			return nil, fmt.Errorf("registry: dataset %q has no source table", s.Name)
		}
		if len(s.Checks) == 0 {
			return nil, fmt.Errorf("registry: dataset %q has no checks", s.Name)
		}
		for _, c := range s.Checks {
			if c.Name == "" || c.Run == nil {
				return nil, fmt.Errorf("registry: dataset %q has an incomplete check", s.Name)
			}
		}
		if !s.PersistFloor.Valid() {
			return nil, fmt.Errorf("registry: dataset %q has invalid persist floor %q", s.Name, s.PersistFloor)
		}
		if s.Plan.Dataset == "" {
			s.Plan.Dataset = s.Name
		}
		r.specs[s.Name] = s
		r.order = append(r.order, s.Name)
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on an invalid registry.
func MustRegistry(specs ...Spec) *Registry {
	r, err := NewRegistry(specs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names lists registered datasets in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// SortedNames lists registered datasets alphabetically.
func (r *Registry) SortedNames() []string {
	out := r.Names()
	sort.Strings(out)
	return out
}

func specialized(name string, kind Kind, plan fetcher.Plan, required []string, checks ...Check) Spec {
	plan.Dataset = name
	if plan.Table == "" {
		plan.Table = name
	}
	return Spec{
		Name:            name,
		Kind:            kind,
		Plan:            plan,
		RequiredColumns: required,
		Checks:          checks,
		PersistFloor:    model.SeverityError,
		Threshold:       0,
	}
}

// DefaultSpecs is the production registry content.
func DefaultSpecs(config Config) []Spec {
	return []Spec{
		specialized("idx_combine_financials_annual", KindFinancialsAnnual,
			fetcher.Plan{DateColumn: "date"},
			[]string{"date", "symbol", "revenue", "earnings", "total_assets"},
			Check{Name: "extreme_annual_change", Run: ExtremeChangeCheck(AnnualChangeRule)},
			Check{Name: "accounting_identities", Run: IdentityCheck},
			Check{Name: "banking_ratios", Run: RatioCheck},
		),
		specialized("idx_combine_financials_quarterly", KindFinancialsQuarterly,
			fetcher.Plan{DateColumn: "date", Default: fetcher.Lookback(365)},
			[]string{"date", "symbol", "total_revenue", "earnings", "total_assets"},
			Check{Name: "extreme_quarterly_change", Run: ExtremeChangeCheck(QuarterlyChangeRule)},
			Check{Name: "accounting_identities", Run: IdentityCheck},
			Check{Name: "banking_ratios", Run: RatioCheck},
		),
		specialized(DailyDataset, KindDailyData,
			fetcher.Plan{DateColumn: "date", Default: fetcher.Lookback(6), TopByMarketCap: config.TopMarketCapLimit},
			[]string{"date", "symbol", "close"},
			Check{Name: "daily_price_change", Run: DailyPriceChangeCheck},
		),
		specialized("idx_daily_coverage", KindDailyCoverage,
			fetcher.Plan{Table: DailyDataset, DateColumn: "date", Default: fetcher.PreviousBusinessDay()},
			[]string{"date", "symbol"},
			Check{Name: "roster_coverage", Run: CoverageCheck},
			Check{Name: "required_values", Run: MissingValuesCheck},
		),
		specialized("idx_dividend", KindDividend,
			fetcher.Plan{DateColumn: "date"},
			[]string{"symbol", "yield", "date"},
			Check{Name: "dividend_yield", Run: DividendYieldCheck},
		),
		specialized("idx_all_time_price", KindAllTimePrice,
			fetcher.Plan{},
			[]string{"symbol", "type", "price"},
			Check{Name: "price_hierarchy", Run: PriceHierarchyCheck},
		),
		specialized("idx_filings", KindFilings,
			fetcher.Plan{DateColumn: "timestamp"},
			[]string{"timestamp", "tickers", "price"},
			Check{Name: "filing_price", Run: FilingPriceCheck},
			Check{Name: "duplicate_transactions", Run: DuplicateTransactionCheck},
		),
		specialized("idx_stock_split", KindStockSplit,
			fetcher.Plan{DateColumn: "date"},
			[]string{"symbol", "date", "split_ratio"},
			Check{Name: "split_proximity", Run: StockSplitCheck},
		),
		specialized(fetcher.RosterTable, KindCompanyProfile,
			fetcher.Plan{},
			[]string{"symbol"},
			Check{Name: "idxic_hierarchy", Run: ClassificationCheck},
			Check{Name: "shareholders", Run: ShareholderCheck},
		),
	}
}

// GenericSpec builds the on-the-fly spec for a configured dataset that has no
// specialized checks. Every severity counts towards its threshold.
func GenericSpec(name string, cfg *model.ValidationConfig, defaultThreshold int) Spec {
	threshold := defaultThreshold
	var kinds []string
	if cfg != nil {
		kinds = cfg.Kinds()
		if cfg.ErrorThreshold > 0 {
			threshold = cfg.ErrorThreshold
		}
	}
	return Spec{
		Name:         name,
		Kind:         KindGeneric,
		Plan:         fetcher.Plan{Dataset: name, Table: name},
		Checks:       GenericChecks(kinds),
		PersistFloor: model.SeverityInfo,
		Threshold:    threshold,
	}
}

package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/table"

	logger "github.com/sirupsen/logrus"
)

const (
	FilingPriceThresholdPct = 50.0
	DuplicateWindow         = 3 * 24 * time.Hour
	SameHolderWindow        = 7 * 24 * time.Hour
)

var (
	amountAliases = []string{"amount_transaction", "amount", "transaction_amount"}
	holderAliases = []string{"holder_name", "holder"}
)

// filingTickers returns the tickers of a filing, which may be stored as a
// list, a JSON array or a single symbol.
func filingTickers(r table.Row) []string {
	if !r.IsNull("tickers") {
		return r.Strings("tickers")
	}
	if s := rowSymbol(r); s != "" {
		return []string{s}
	}
	return nil
}

func filingTime(r table.Row) (time.Time, bool) {
	if ts, ok := r.Time("timestamp"); ok {
		return ts, true
	}
	return r.Time("date")
}

// FilingPriceCheck compares each filing's transaction price with the daily
// close of the same day for every ticker it mentions.
func FilingPriceCheck(ctx context.Context, in CheckInput) CheckOutcome {
	if in.Lookups == nil {
		return CheckOutcome{}
	}
	var out []model.Anomaly
	for _, r := range in.Table.Rows() {
		price, ok := r.Float("price")
		if !ok {
			continue
		}
		ts, ok := filingTime(r)
		if !ok {
			continue
		}
		day := table.DateKey(ts)

		for _, ticker := range filingTickers(r) {
			daily, err := in.Lookups.BySymbol(ctx, DailyDataset, ticker)
			if err != nil {
				logger.WithFields(map[string]interface{}{
					"check":  "FilingPriceCheck",
					"ticker": ticker,
				}).WithError(err).Warn("Daily price lookup failed, ticker skipped")
				continue
			}
			closePrice, ok := closeOn(daily, day)
			if !ok || closePrice == 0 {
				continue
			}
			pct := math.Abs(price-closePrice) / closePrice * 100
			if pct < FilingPriceThresholdPct {
				continue
			}
			out = append(out, model.Anomaly{
				Kind:          model.KindFilingPrice,
				Metric:        "price",
				Message:       fmt.Sprintf("Ticker %s on %s: filing price %g differs from daily close %g by %.1f%%", ticker, day, price, closePrice, pct),
				Symbol:        ticker,
				Date:          day,
				Value:         model.Float(price),
				Difference:    model.Float(price - closePrice),
				DifferencePct: model.Float(round2(pct)),
				Severity:      model.SeverityWarning,
				Details: map[string]interface{}{
					"filing_timestamp":  ts.Format("2006-01-02 15:04:05"),
					"daily_close_price": closePrice,
				},
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

func closeOn(daily *table.Table, day string) (float64, bool) {
	for _, r := range daily.Rows() {
		ts, ok := r.Time("date")
		if !ok || table.DateKey(ts) != day {
			continue
		}
		if c, ok := r.Float("close"); ok {
			return c, true
		}
	}
	return 0, false
}

type transaction struct {
	row     table.Row
	symbols []string
	amount  float64
	holder  string
	at      time.Time
}

// sharedTicker returns the first ticker of a that b also mentions.
func (a transaction) sharedTicker(b transaction) (string, bool) {
	for _, s := range a.symbols {
		for _, o := range b.symbols {
			if s == o {
				return s, true
			}
		}
	}
	return "", false
}

func transactions(t *table.Table) []transaction {
	amountCol, okA := firstColumn(t, amountAliases)
	if !okA {
		return nil
	}
	holderCol, _ := firstColumn(t, holderAliases)

	var out []transaction
	for _, r := range t.SortStable(func(a, b table.Row) bool {
		ta, okA := filingTime(a)
		tb, okB := filingTime(b)
		return okA && (!okB || ta.Before(tb))
	}).Rows() {
		at, ok := filingTime(r)
		if !ok {
			continue
		}
		amount, ok := r.Float(amountCol)
		if !ok {
			continue
		}
		var symbols []string
		for _, ticker := range filingTickers(r) {
			if ticker = strings.ToUpper(strings.TrimSpace(ticker)); ticker != "" {
				symbols = append(symbols, ticker)
			}
		}
		if len(symbols) == 0 {
			continue
		}
		tx := transaction{row: r, symbols: symbols, amount: amount, at: at}
		if holderCol != "" && !r.IsNull(holderCol) {
			tx.holder = strings.ToLower(strings.TrimSpace(r.String(holderCol)))
		}
		out = append(out, tx)
	}
	return out
}

func firstColumn(t *table.Table, names []string) (string, bool) {
	for _, n := range names {
		if t.Has(n) {
			return n, true
		}
	}
	return "", false
}

// DuplicateTransactionCheck pairs ownership transactions that share a ticker
// and have the same amount, filed within DuplicateWindow, or within SameHolderWindow when the
// holder also matches. A single greedy pass in time order pairs each record at
// most once.
func DuplicateTransactionCheck(_ context.Context, in CheckInput) CheckOutcome {
	txs := transactions(in.Table)
	matched := make([]bool, len(txs))
	var out []model.Anomaly

	for i := range txs {
		if matched[i] {
			continue
		}
		a := txs[i]
		for j := i + 1; j < len(txs); j++ {
			b := txs[j]
			gap := b.at.Sub(a.at)
			if gap > SameHolderWindow {
				break
			}
			if matched[j] || a.amount != b.amount {
				continue
			}
			symbol, ok := a.sharedTicker(b)
			if !ok {
				continue
			}
			sameHolder := a.holder != "" && a.holder == b.holder
			if gap > DuplicateWindow && !sameHolder {
				continue
			}
			matched[i], matched[j] = true, true
			days := gap.Hours() / 24
			out = append(out, model.Anomaly{
				Kind:     model.KindDuplicateTx,
				Message:  fmt.Sprintf("Symbol %s: transactions of %g on %s and %s look duplicated", symbol, a.amount, table.DateKey(a.at), table.DateKey(b.at)),
				Symbol:   symbol,
				Date:     table.DateKey(a.at),
				Value:    model.Float(a.amount),
				Severity: model.SeverityWarning,
				Details: map[string]interface{}{
					"first_timestamp":  a.at.Format(time.RFC3339),
					"second_timestamp": b.at.Format(time.RFC3339),
					"days_apart":       round2(days),
					"same_holder":      sameHolder,
				},
			})
			break
		}
	}
	return CheckOutcome{Anomalies: out}
}

// StockSplitWindowDays is the minimum spacing expected between two splits.
const StockSplitWindowDays = 14

// StockSplitCheck flags consecutive splits of a symbol that are too close.
func StockSplitCheck(_ context.Context, in CheckInput) CheckOutcome {
	var out []model.Anomaly
	for _, g := range bySymbol(in.Table) {
		rows := g.Table.Rows()
		for i := 0; i+1 < len(rows); i++ {
			first, okF := rows[i].Time("date")
			second, okS := rows[i+1].Time("date")
			if !okF || !okS {
				continue
			}
			days := int(second.Sub(first).Hours() / 24)
			if days > StockSplitWindowDays {
				continue
			}
			details := map[string]interface{}{
				"first_split_date":  table.DateKey(first),
				"second_split_date": table.DateKey(second),
			}
			if v, ok := rows[i].Float("split_ratio"); ok {
				details["first_split_ratio"] = v
			}
			if v, ok := rows[i+1].Float("split_ratio"); ok {
				details["second_split_ratio"] = v
			}
			out = append(out, model.Anomaly{
				Kind:     model.KindCloseSplits,
				Message:  fmt.Sprintf("Symbol %s: two stock splits within %d days (%s and %s)", g.Key, days, table.DateKey(first), table.DateKey(second)),
				Symbol:   g.Key,
				Date:     table.DateKey(second),
				Count:    model.Int(days),
				Severity: model.SeverityWarning,
				Details:  details,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

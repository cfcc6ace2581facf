package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"sectorsguard/src/model"
	"sectorsguard/src/table"
)

const (
	// ClassificationDataset maps IDXIC names to codes.
	ClassificationDataset = "idxic_name"
	shareTotalTolerance   = 0.5
)

// classificationLevels run from the broadest level to the narrowest. Each
// child code extends its parent code by one character.
var classificationLevels = []string{"sector", "sub_sector", "industry", "sub_industry"}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// classificationLevel maps reference labels such as "Sub Sector" onto level names.
func classificationLevel(s string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(normalizeName(s))
}

// classificationIndex resolves IDXIC names per level. The same name can sit
// at several levels with different codes, e.g. "Banks" as G1, G11 and G111.
type classificationIndex struct {
	byLevel  map[string]map[string]string
	anyLevel map[string]string
}

func (c classificationIndex) empty() bool {
	return len(c.byLevel) == 0 && len(c.anyLevel) == 0
}

func (c classificationIndex) code(level, name string) (string, bool) {
	key := normalizeName(name)
	if code, ok := c.byLevel[level][key]; ok {
		return code, true
	}
	code, ok := c.anyLevel[key]
	return code, ok
}

func classificationCodes(ref *table.Table) classificationIndex {
	idx := classificationIndex{byLevel: map[string]map[string]string{}, anyLevel: map[string]string{}}
	for _, r := range ref.Rows() {
		if r.IsNull("name") || r.IsNull("code") {
			continue
		}
		name := normalizeName(r.String("name"))
		code := strings.TrimSpace(r.String("code"))
		level := ""
		if !r.IsNull("classification") {
			level = classificationLevel(r.String("classification"))
		}
		if level == "" {
			idx.anyLevel[name] = code
			continue
		}
		if idx.byLevel[level] == nil {
			idx.byLevel[level] = map[string]string{}
		}
		idx.byLevel[level][name] = code
	}
	return idx
}

// ClassificationCheck verifies that each company's sector, sub-sector,
// industry and sub-industry names exist in the reference and form a chain.
func ClassificationCheck(ctx context.Context, in CheckInput) CheckOutcome {
	present := false
	for _, lvl := range classificationLevels {
		if in.Table.Has(lvl) {
			present = true
		}
	}
	if !present || in.Table.Empty() || in.Lookups == nil {
		return CheckOutcome{}
	}
	ref, err := in.Lookups.Reference(ctx, ClassificationDataset)
	if err != nil {
		return CheckOutcome{Err: fmt.Errorf("load %s: %w", ClassificationDataset, err)}
	}
	codes := classificationCodes(ref)
	if codes.empty() {
		return CheckOutcome{}
	}

	var out []model.Anomaly
	for _, r := range in.Table.Rows() {
		symbol := rowSymbol(r)
		type level struct{ name, value, code string }
		var chain []level
		for _, lvl := range classificationLevels {
			if r.IsNull(lvl) {
				chain = append(chain, level{name: lvl})
				continue
			}
			value := r.String(lvl)
			code, ok := codes.code(lvl, value)
			if !ok {
				out = append(out, model.Anomaly{
					Kind:     model.KindUnknownIDXIC,
					Metric:   lvl,
					Message:  fmt.Sprintf("Symbol %s: %s %q is not a known IDXIC name", symbol, lvl, value),
					Symbol:   symbol,
					Severity: model.SeverityInfo,
				})
			}
			chain = append(chain, level{name: lvl, value: value, code: code})
		}
		for i := 0; i+1 < len(chain); i++ {
			parent, child := chain[i], chain[i+1]
			if parent.code == "" || child.code == "" {
				continue
			}
			if child.code[:len(child.code)-1] == parent.code {
				continue
			}
			out = append(out, model.Anomaly{
				Kind:     model.KindHierarchyMismatch,
				Metric:   child.name,
				Message:  fmt.Sprintf("Symbol %s: %s %q (%s) does not belong to %s %q (%s)", symbol, child.name, child.value, child.code, parent.name, parent.value, parent.code),
				Symbol:   symbol,
				Severity: model.SeverityWarning,
				Details: map[string]interface{}{
					"parent_level": parent.name,
					"parent_code":  parent.code,
					"child_level":  child.name,
					"child_code":   child.code,
				},
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

type shareholder struct {
	Name       string      `json:"name"`
	Percentage interface{} `json:"share_percentage"`
}

// decodeShareholders accepts a JSON string or an already decoded list.
func decodeShareholders(v interface{}) ([]shareholder, error) {
	var raw []byte
	switch val := v.(type) {
	case string:
		raw = []byte(val)
	case []byte:
		raw = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var out []shareholder
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func percentage(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		v = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	return table.ToFloat(v)
}

// ShareholderCheck validates each company's shareholder list: percentages must
// lie in [0, 100], total at most 100 (plus a rounding tolerance) and holders
// must not repeat.
func ShareholderCheck(_ context.Context, in CheckInput) CheckOutcome {
	if !in.Table.Has("shareholders") {
		return CheckOutcome{}
	}
	var out []model.Anomaly
	for _, r := range in.Table.Rows() {
		if r.IsNull("shareholders") {
			continue
		}
		symbol := rowSymbol(r)
		holders, err := decodeShareholders(r.Value("shareholders"))
		if err != nil {
			out = append(out, model.Anomaly{
				Kind:     model.KindShareholderPct,
				Message:  fmt.Sprintf("Symbol %s: shareholder list is not valid JSON: %v", symbol, err),
				Symbol:   symbol,
				Severity: model.SeverityWarning,
			})
			continue
		}

		total := 0.0
		var invalid []string
		seen := map[string]int{}
		var duplicates []string
		for _, h := range holders {
			if pct, ok := percentage(h.Percentage); ok {
				total += pct
				if pct < 0 || pct > 100 {
					invalid = append(invalid, fmt.Sprintf("%s (%g)", h.Name, pct))
				}
			}
			key := normalizeName(h.Name)
			if key == "" {
				continue
			}
			seen[key]++
			if seen[key] == 2 {
				duplicates = append(duplicates, h.Name)
			}
		}

		if total > 100+shareTotalTolerance || len(invalid) > 0 {
			out = append(out, model.Anomaly{
				Kind:     model.KindShareholderPct,
				Message:  fmt.Sprintf("Symbol %s: shareholder percentages total %.2f%%", symbol, total),
				Symbol:   symbol,
				Value:    model.Float(math.Round(total*100) / 100),
				Severity: model.SeverityWarning,
				Details:  map[string]interface{}{"out_of_range": invalid},
			})
		}
		if len(duplicates) > 0 {
			out = append(out, model.Anomaly{
				Kind:     model.KindDuplicateHolder,
				Message:  fmt.Sprintf("Symbol %s: shareholders listed more than once: %s", symbol, strings.Join(duplicates, ", ")),
				Symbol:   symbol,
				Count:    model.Int(len(duplicates)),
				Severity: model.SeverityInfo,
			})
		}
	}
	return CheckOutcome{Anomalies: out}
}

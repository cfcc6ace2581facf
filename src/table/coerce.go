package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical day format used for keys and windows.
const DateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

var multipliers = map[byte]decimal.Decimal{
	'K': decimal.NewFromInt(1_000),
	'M': decimal.NewFromInt(1_000_000),
	'B': decimal.NewFromInt(1_000_000_000),
	'T': decimal.NewFromInt(1_000_000_000_000),
}

// ToFloat coerces numbers, decimals and numeric strings. NaN and Inf are rejected.
func ToFloat(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case decimal.Decimal:
		f = x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return 0, false
		}
		f = x.InexactFloat64()
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return 0, false
		}
		f = d.InexactFloat64()
	case string:
		return ParseNumber(x)
	case []byte:
		return ParseNumber(string(x))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// thousandsGroup reports whether a lone separator is followed by exactly three
// digits and preceded by a non-zero group of one to three digits.
func thousandsGroup(s string, i int) bool {
	head, tail := s[:i], s[i+1:]
	if len(tail) != 3 || len(head) == 0 || len(head) > 3 || head[0] == '0' {
		return false
	}
	for _, c := range head + tail {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// normalizeSeparators rewrites grouped numbers into plain decimal notation.
// Both "1,234.5" and the Indonesian "1.234,5" become "1234.5". A lone
// separator before three digits is a thousands mark unless scaled is set.
func normalizeSeparators(s string, scaled bool) string {
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 || thousandsGroup(s, comma) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case dot >= 0:
		if strings.Count(s, ".") > 1 || (!scaled && thousandsGroup(s, dot)) {
			return strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// ParseNumber reads strings such as "1,234.5", "Rp 1.234.567,89", "12,5",
// "Rp 12.3T", "850B" or "(42)". Indonesian grouping uses "." for thousands
// and "," for decimals.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "-", "n/a":
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	for _, prefix := range []string{"rp.", "rp", "idr", "usd", "$"} {
		if strings.HasPrefix(strings.ToLower(s), prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}

	mult := decimal.NewFromInt(1)
	scaled := false
	if n := len(s); n > 0 {
		last := s[n-1]
		if last >= 'a' && last <= 'z' {
			last -= 'a' - 'A'
		}
		if m, ok := multipliers[last]; ok {
			mult = m
			scaled = true
			s = strings.TrimSpace(s[:n-1])
		}
	}

	s = strings.ReplaceAll(s, " ", "")
	s = normalizeSeparators(s, scaled)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	d = d.Mul(mult)
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), true
}

// ToString renders a cell value.
func ToString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(DateLayout)
		}
		return x.Format(time.RFC3339)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return fmt.Sprintf("%.0f", x)
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

// ToTime parses time values and common date/timestamp strings.
func ToTime(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, !x.IsZero()
	case string:
		return ParseTime(x)
	case []byte:
		return ParseTime(string(x))
	}
	return time.Time{}, false
}

// ParseTime tries the supported layouts in order.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKey formats the calendar day of t.
func DateKey(t time.Time) string { return t.Format(DateLayout) }

// ToStrings reads list cells: JSON arrays, python-style lists, or comma separated text.
func ToStrings(v interface{}) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		return cleanStrings(x)
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, ToString(e))
		}
		return cleanStrings(out)
	case []byte:
		return ToStrings(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return cleanStrings(out)
			}
			if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &out); err == nil {
				return cleanStrings(out)
			}
			s = strings.Trim(s, "[]{}")
		}
		return cleanStrings(strings.Split(s, ","))
	default:
		return []string{ToString(x)}
	}
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Trim(strings.TrimSpace(s), `"'`)
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

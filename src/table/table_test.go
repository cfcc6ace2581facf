package table

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	return FromRecords([]map[string]interface{}{
		{"symbol": "BBCA.JK", "date": "2024-01-02", "close": 100.0},
		{"symbol": "BBRI.JK", "date": "2024-01-02", "close": "4,500"},
		{"symbol": "BBCA.JK", "date": "2024-01-01", "close": nil},
		{"symbol": nil, "date": "2024-01-03", "close": 1.0},
	})
}

func TestFromRecordsSortsColumnsAndFillsNulls(t *testing.T) {
	tbl := FromRecords([]map[string]interface{}{
		{"b": 1, "a": 2},
		{"c": 3},
	})

	require.Equal(t, []string{"a", "b", "c"}, tbl.Columns())
	require.Equal(t, 2, tbl.Len())
	assert.True(t, tbl.Row(1).IsNull("a"))
	assert.Nil(t, tbl.Value(0, "c"))
	assert.Equal(t, []string{"missing"}, tbl.Missing("a", "missing"))
}

func TestGroupByKeepsAppearanceOrderAndDropsNullKeys(t *testing.T) {
	groups := sampleTable().GroupBy("symbol")

	require.Len(t, groups, 2)
	assert.Equal(t, "BBCA.JK", groups[0].Key)
	assert.Equal(t, 2, groups[0].Table.Len())
	assert.Equal(t, "BBRI.JK", groups[1].Key)
}

func TestSortByTimeIsStableAndPutsUnparsedLast(t *testing.T) {
	tbl := FromRecords([]map[string]interface{}{
		{"id": 1, "date": "2024-03-01"},
		{"id": 2, "date": "garbage"},
		{"id": 3, "date": "2024-01-01"},
		{"id": 4, "date": "2024-01-01"},
	})

	sorted := tbl.SortByTime("date")

	var ids []string
	for _, r := range sorted.Rows() {
		ids = append(ids, r.String("id"))
	}
	assert.Equal(t, []string{"3", "4", "1", "2"}, ids)
}

func TestResolveAliasCopiesFirstAlias(t *testing.T) {
	tbl := FromRecords([]map[string]interface{}{{"ex_date": "2024-05-01", "exDate": "1999-01-01"}})

	src, ok := tbl.ResolveAlias("date", "ex_date", "exDate")
	require.True(t, ok)
	assert.Equal(t, "ex_date", src)
	assert.Equal(t, "2024-05-01", tbl.Row(0).String("date"))

	_, ok = New("x").ResolveAlias("date", "ex_date")
	assert.False(t, ok)
}

func TestPivotKeepsFirstNonNullValue(t *testing.T) {
	tbl := FromRecords([]map[string]interface{}{
		{"symbol": "A", "type": "ytd_high", "price": nil},
		{"symbol": "A", "type": "ytd_high", "price": 10.0},
		{"symbol": "A", "type": "ytd_high", "price": 11.0},
		{"symbol": "B", "type": "90_d_low", "price": "5"},
	})

	p := tbl.Pivot("symbol", "type", "price")

	assert.Equal(t, []string{"A", "B"}, p.Index)
	v, ok := p.Float("A", "ytd_high")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
	v, ok = p.Float("B", "90_d_low")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	_, ok = p.Float("B", "ytd_high")
	assert.False(t, ok)
}

func TestFilterAndHead(t *testing.T) {
	tbl := sampleTable()

	present := tbl.Filter(func(r Row) bool { return !r.IsNull("close") })
	assert.Equal(t, 3, present.Len())
	assert.Equal(t, 2, present.Head(2).Len())
	assert.Equal(t, 3, present.Head(10).Len())
	assert.Equal(t, []string{"BBCA.JK", "BBRI.JK"}, tbl.Unique("symbol"))
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234.5", 1234.5, true},
		{"Rp 12.3T", 12.3e12, true},
		{"850B", 850e9, true},
		{"2.5m", 2.5e6, true},
		{"(42)", -42, true},
		{"1.234.567", 1234567, true},
		{"1.5e9", 1.5e9, true},
		{"Rp 1.234.567,89", 1234567.89, true},
		{"Rp. 2.500", 2500, true},
		{"IDR 1.234,5 M", 1234.5e6, true},
		{"12,5", 12.5, true},
		{"0,75", 0.75, true},
		{"1.234", 1234, true},
		{"4,500", 4500, true},
		{"0.125", 0.125, true},
		{"1.234B", 1.234e9, true},
		{"-1.234,5", -1234.5, true},
		{".5", 0.5, true},
		{"NaN", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseNumber(tc.in)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.InDelta(t, tc.want, got, 1e-6)
			}
		})
	}
}

func TestToFloatTypes(t *testing.T) {
	v, ok := ToFloat(json.Number("1.234"))
	require.True(t, ok)
	assert.Equal(t, 1.234, v)

	v, ok = ToFloat(decimal.RequireFromString("12.5"))
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = ToFloat(int64(7))
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = ToFloat(true)
	assert.False(t, ok)
}

func TestToTimeLayouts(t *testing.T) {
	for _, s := range []string{
		"2024-01-02",
		"2024-01-02T10:00:00Z",
		"2024-01-02 10:00:00",
		"2024-01-02T10:00:00",
		"2024-01-02 10:00:00.123456+07:00",
	} {
		got, ok := ToTime(s)
		require.True(t, ok, s)
		assert.Equal(t, 2024, got.Year())
	}

	_, ok := ToTime(time.Time{})
	assert.False(t, ok)
}

func TestToStrings(t *testing.T) {
	assert.Equal(t, []string{"BBCA.JK", "BBRI.JK"}, ToStrings([]interface{}{"BBCA.JK", "BBRI.JK"}))
	assert.Equal(t, []string{"BBCA.JK"}, ToStrings(`["BBCA.JK"]`))
	assert.Equal(t, []string{"BBCA.JK", "TLKM.JK"}, ToStrings("['BBCA.JK', 'TLKM.JK']"))
	assert.Equal(t, []string{"BBCA.JK", "TLKM.JK"}, ToStrings("BBCA.JK, TLKM.JK"))
	assert.Nil(t, ToStrings(""))
}

package validation

import (
	"context"
	"testing"

	"sectorsguard/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classificationLookups() *fakeLookups {
	return &fakeLookups{reference: map[string]*tableT{
		ClassificationDataset: tbl(
			rec{"code": "A", "name": "Energy"},
			rec{"code": "A1", "name": "Oil, Gas & Coal"},
			rec{"code": "A11", "name": "Oil & Gas"},
			rec{"code": "A111", "name": "Oil & Gas Production"},
			rec{"code": "B", "name": "Basic Materials"},
		),
	}}
}

func TestClassificationCheck(t *testing.T) {
	data := tbl(
		rec{"symbol": "AAAA.JK", "sector": "Energy", "sub_sector": "Oil, Gas & Coal", "industry": "Oil & Gas", "sub_industry": "oil &  gas production"},
		rec{"symbol": "BBBB.JK", "sector": "Basic Materials", "sub_sector": "Oil, Gas & Coal", "industry": "Oil & Gas", "sub_industry": "Nonsense"},
	)
	in := input(data)
	in.Lookups = classificationLookups()

	out := ClassificationCheck(context.Background(), in)
	require.NoError(t, out.Err)
	assert.Equal(t, []string{model.KindUnknownIDXIC, model.KindHierarchyMismatch}, kinds(out.Anomalies))

	unknown := out.Anomalies[0]
	assert.Equal(t, "BBBB.JK", unknown.Symbol)
	assert.Equal(t, "sub_industry", unknown.Metric)
	assert.Equal(t, model.SeverityInfo, unknown.Severity)

	mismatch := out.Anomalies[1]
	assert.Equal(t, "sub_sector", mismatch.Metric)
	assert.Equal(t, model.SeverityWarning, mismatch.Severity)
	assert.Equal(t, "B", mismatch.Details["parent_code"])
	assert.Equal(t, "A1", mismatch.Details["child_code"])
}

func TestClassificationCheckNamesSharedAcrossLevels(t *testing.T) {
	in := input(tbl(
		rec{"symbol": "BBCA.JK", "sector": "Financials", "sub_sector": "Banks", "industry": "Banks", "sub_industry": "Banks"},
		rec{"symbol": "XXXX.JK", "sector": "Financials", "sub_sector": "Banks", "industry": "Insurance", "sub_industry": "Banks"},
	))
	in.Lookups = &fakeLookups{reference: map[string]*tableT{
		ClassificationDataset: tbl(
			rec{"code": "G", "name": "Financials", "classification": "Sector"},
			rec{"code": "G1", "name": "Banks", "classification": "Sub Sector"},
			rec{"code": "G11", "name": "Banks", "classification": "Industry"},
			rec{"code": "G111", "name": "Banks", "classification": "Sub Industry"},
			rec{"code": "G41", "name": "Insurance", "classification": "Industry"},
		),
	}}

	out := ClassificationCheck(context.Background(), in)
	require.NoError(t, out.Err)
	require.Len(t, out.Anomalies, 2)
	for _, a := range out.Anomalies {
		assert.Equal(t, "XXXX.JK", a.Symbol)
		assert.Equal(t, model.KindHierarchyMismatch, a.Kind)
	}
	assert.Equal(t, "G41", out.Anomalies[0].Details["child_code"])
	assert.Equal(t, "G111", out.Anomalies[1].Details["child_code"])
	assert.Equal(t, "G41", out.Anomalies[1].Details["parent_code"])
}

func TestClassificationCheckReferenceFailure(t *testing.T) {
	in := input(tbl(rec{"symbol": "AAAA.JK", "sector": "Energy"}))
	in.Lookups = &fakeLookups{fail: true}

	out := ClassificationCheck(context.Background(), in)
	assert.Error(t, out.Err)
}

func TestShareholderCheck(t *testing.T) {
	data := tbl(
		rec{"symbol": "AAAA.JK", "shareholders": `[{"name":"Alpha","share_percentage":"60%"},{"name":"Beta","share_percentage":50}]`},
		rec{"symbol": "BBBB.JK", "shareholders": []interface{}{
			map[string]interface{}{"name": "Xeno", "share_percentage": 10.0},
			map[string]interface{}{"name": "xeno ", "share_percentage": 5.0},
		}},
		rec{"symbol": "CCCC.JK", "shareholders": "not json"},
		rec{"symbol": "DDDD.JK", "shareholders": `[{"name":"Gamma","share_percentage":100.4}]`},
		rec{"symbol": "EEEE.JK", "shareholders": nil},
	)

	out := ShareholderCheck(context.Background(), input(data))
	require.NoError(t, out.Err)
	require.Len(t, out.Anomalies, 3)

	assert.Equal(t, model.KindShareholderPct, out.Anomalies[0].Kind)
	assert.Equal(t, "AAAA.JK", out.Anomalies[0].Symbol)
	assert.InDelta(t, 110.0, *out.Anomalies[0].Value, 1e-9)

	assert.Equal(t, model.KindDuplicateHolder, out.Anomalies[1].Kind)
	assert.Equal(t, "BBBB.JK", out.Anomalies[1].Symbol)
	assert.Equal(t, model.SeverityInfo, out.Anomalies[1].Severity)

	assert.Equal(t, model.KindShareholderPct, out.Anomalies[2].Kind)
	assert.Equal(t, "CCCC.JK", out.Anomalies[2].Symbol)
}

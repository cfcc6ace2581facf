package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"sectorsguard/src/model"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeResponse(status int) *resty.Response {
	return &resty.Response{RawResponse: &http.Response{StatusCode: status}}
}

// TestIsRetryableResp verifies retry decisions for assorted errors and HTTP responses.
func TestIsRetryableResp(t *testing.T) {
	cases := []struct {
		name string
		resp *resty.Response
		err  error
		want bool
	}{
		{name: "error present", err: errors.New("dial"), want: true},
		{name: "server error", resp: fakeResponse(503), want: true},
		{name: "too many requests", resp: fakeResponse(429), want: true},
		{name: "timeout", resp: fakeResponse(408), want: true},
		{name: "bad request", resp: fakeResponse(400), want: false},
		{name: "ok response", resp: fakeResponse(200), want: false},
		{name: "nil resp", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, isRetryableResp(tc.resp, tc.err))
		})
	}
}

func TestBuildParams(t *testing.T) {
	params := buildParams(model.DatasetQuery{
		Table:      "idx_daily_data",
		DateColumn: "date",
		Start:      "2024-06-01",
		End:        "2024-06-07",
		EqColumn:   "symbol",
		EqValue:    "BBCA.JK",
	})

	assert.Equal(t, []string{"*"}, params["select"])
	assert.Equal(t, []string{"gte.2024-06-01", "lt.2024-06-08"}, params["date"])
	assert.Equal(t, []string{"eq.BBCA.JK"}, params["symbol"])
}

func TestPostgRESTClientSelectPaginates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/rest/v1/idx_daily_data", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, []string{"gte.2024-06-01", "lt.2024-06-08"}, r.URL.Query()["date"])

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var page []map[string]interface{}
		// 5 rows total served in pages of 2
		for i := offset; i < offset+2 && i < 5; i++ {
			page = append(page, map[string]interface{}{"symbol": fmt.Sprintf("S%d.JK", i), "close": float64(100 + i)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client := NewPostgRESTClient(srv.URL, "secret", 2, time.Second)
	rows, err := client.Select(context.Background(), model.DatasetQuery{
		Table:      "idx_daily_data",
		DateColumn: "date",
		Start:      "2024-06-01",
		End:        "2024-06-07",
	})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "S4.JK", rows[4]["symbol"])
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPostgRESTClientSelectHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"column idx_filings.date does not exist"}`))
	}))
	defer srv.Close()

	client := NewPostgRESTClient(srv.URL, "", 100, time.Second)
	_, err := client.Select(context.Background(), model.DatasetQuery{Table: "idx_filings", DateColumn: "date", Start: "2024-01-01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestNewPostgRESTClientFromConfigRequiresURL(t *testing.T) {
	_, err := NewPostgRESTClientFromConfig(Config{})
	require.Error(t, err)

	c, err := NewPostgRESTClientFromConfig(Config{SupabaseURL: "http://example", PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, c.pageSize)
}

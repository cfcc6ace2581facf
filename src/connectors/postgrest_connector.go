// REST CLIENT FOR SUPABASE / POSTGREST DATASETS
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"sectorsguard/src/model"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 4
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
	defaultPageSize        = 1000
)

// PostgRESTClient reads tables through the PostgREST API exposed by Supabase.
type PostgRESTClient struct {
	apiKey   string
	baseURL  string
	pageSize int
	http     *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// NewPostgRESTClient builds a client against baseURL (the project URL, without /rest/v1).
func NewPostgRESTClient(baseURL, apiKey string, pageSize int, timeout time.Duration) *PostgRESTClient {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts-1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp).
		SetHeader("apikey", apiKey).
		SetHeader("Accept", "application/json")

	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}

	return &PostgRESTClient{
		apiKey:   apiKey,
		baseURL:  baseURL,
		pageSize: pageSize,
		http:     httpClient,
	}
}

// NewPostgRESTClientFromConfig builds the client from environment configuration.
func NewPostgRESTClientFromConfig(config Config) (*PostgRESTClient, error) {
	if config.SupabaseURL == "" {
		return nil, errors.New("SUPABASE_URL is required for the rest source backend")
	}
	return NewPostgRESTClient(config.SupabaseURL, config.SupabaseKey, config.PageSize, config.Timeout), nil
}

// buildParams renders a dataset query as PostgREST filter parameters.
func buildParams(q model.DatasetQuery) map[string][]string {
	params := map[string][]string{"select": {"*"}}
	if q.DateColumn != "" {
		if q.Start != "" {
			params[q.DateColumn] = append(params[q.DateColumn], "gte."+q.Start)
		}
		if q.End != "" {
			if end, err := time.Parse("2006-01-02", q.End); err == nil {
				params[q.DateColumn] = append(params[q.DateColumn], "lt."+end.AddDate(0, 0, 1).Format("2006-01-02"))
			}
		}
	}
	if q.EqColumn != "" {
		params[q.EqColumn] = append(params[q.EqColumn], "eq."+q.EqValue)
	}
	return params
}

// Select pages through the table until a short page is returned.
func (c *PostgRESTClient) Select(ctx context.Context, q model.DatasetQuery) ([]model.Row, error) {
	if q.Table == "" {
		return nil, errors.New("table is required")
	}

	params := buildParams(q)
	var out []model.Row

	for offset := 0; ; offset += c.pageSize {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			SetQueryParam("limit", strconv.Itoa(c.pageSize)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			Get("/rest/v1/" + q.Table)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", q.Table, err)
		}
		if resp.StatusCode() != 200 && resp.StatusCode() != 206 {
			return nil, fmt.Errorf("select %s: HTTP %d: %s", q.Table, resp.StatusCode(), string(resp.Body()))
		}

		var page []model.Row
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, fmt.Errorf("decode %s: %w", q.Table, err)
		}
		out = append(out, page...)

		if len(page) < c.pageSize {
			break
		}
	}

	logger.WithFields(map[string]interface{}{
		"connector": "PostgRESTClient",
		"op":        "Select",
		"table":     q.Table,
		"rows":      len(out),
	}).Debug("Fetched dataset over REST")

	return out, nil
}

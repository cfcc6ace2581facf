package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sectorsguard/src/connectors"
	"sectorsguard/src/database"
	"sectorsguard/src/model"
	"sectorsguard/src/persistence"
	"sectorsguard/src/repository"
	"sectorsguard/src/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(connectors.Config{SourceBackend: "postgres"})
	require.NoError(t, err)
	assert.IsType(t, &repository.DatasetRepository{}, src)

	src, err = NewSource(connectors.Config{})
	require.NoError(t, err)
	assert.IsType(t, &repository.DatasetRepository{}, src)

	_, err = NewSource(connectors.Config{SourceBackend: "rest"})
	assert.Error(t, err)

	_, err = NewSource(connectors.Config{SourceBackend: "mysql"})
	assert.Error(t, err)
}

func TestNewValidatesAndPersists(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, db.Exec(`CREATE TABLE idx_stock_split (symbol TEXT, date TEXT, split_ratio REAL)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO idx_stock_split (symbol, date, split_ratio) VALUES
		('AAAA', '2024-01-02', 2), ('AAAA', '2024-01-11', 5), ('BBBB', '2024-01-05', 2)`).Error)

	now := time.Date(2024, 1, 31, 6, 0, 0, 0, time.UTC)
	app := New(db, repository.NewDatasetRepositoryWithDB(db), Options{
		Persistence: persistence.Config{
			FallbackDir:     t.TempDir(),
			MaxAttempts:     1,
			RetryWait:       time.Millisecond,
			MaxPayloadChars: 50000,
			TruncateKeep:    20,
		},
		Now: func() time.Time { return now },
	})

	res := app.Validator.Validate(context.Background(), "idx_stock_split", "2024-01-01", "2024-01-31")
	require.Empty(t, res.Error)
	assert.Equal(t, 3, res.TotalRows)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, model.KindCloseSplits, res.Anomalies[0].Kind)
	// warnings sit below the error floor of specialized datasets
	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, 0, res.AnomaliesCount)

	stored, err := app.Results.LatestByDataset(context.Background(), "idx_stock_split")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "success", stored.Status)
	assert.Equal(t, 3, stored.TotalRows)
	require.NotNil(t, stored.FilterStart)
	assert.Equal(t, "2024-01-01", *stored.FilterStart)

	local, err := app.Gateway.LoadLocal(10)
	require.NoError(t, err)
	assert.Empty(t, local)

	router := server.NewRouter(app.Routes())
	get := func(path string) map[string]interface{} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), path)
		return body
	}

	assert.Len(t, get("/validations/datasets")["datasets"], 9)
	assert.Len(t, get("/validations/results?latest=true&dataset=idx_stock_split")["results"], 1)
	assert.Equal(t, map[string]interface{}{"success": 1.0}, get("/validations/results/summary?since_hours=1000000")["counts"])
	assert.Empty(t, get("/validations/exceptions")["exceptions"])
}

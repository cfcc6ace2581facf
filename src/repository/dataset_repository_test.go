package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"sectorsguard/src/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestDatasetRepositorySelect(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewDatasetRepositoryWithDB(mockDB)

	t.Run("date window with inclusive end", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "idx_daily_data" WHERE "date" >= $1 AND "date" < $2`)).
			WithArgs("2024-06-01", "2024-06-08").
			WillReturnRows(sqlmock.NewRows([]string{"symbol", "date", "close"}).
				AddRow("BBCA.JK", "2024-06-03", 9500.0).
				AddRow("BBRI.JK", "2024-06-03", 4700.0))

		rows, err := repo.Select(context.Background(), model.DatasetQuery{
			Table:      "idx_daily_data",
			DateColumn: "date",
			Start:      "2024-06-01",
			End:        "2024-06-07",
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "BBCA.JK", rows[0]["symbol"])
	})

	t.Run("symbol lookup", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "idx_company_profile" WHERE "symbol" = $1`)).
			WithArgs("BBCA.JK").
			WillReturnRows(sqlmock.NewRows([]string{"symbol", "sub_sector_id"}).AddRow("BBCA.JK", 19))

		rows, err := repo.Select(context.Background(), model.DatasetQuery{
			Table:    "idx_company_profile",
			EqColumn: "symbol",
			EqValue:  "BBCA.JK",
		})
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("query error is returned", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "idx_missing"`)).
			WillReturnError(errors.New("relation does not exist"))

		_, err := repo.Select(context.Background(), model.DatasetQuery{Table: "idx_missing"})
		require.Error(t, err)
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestDatasetRepositoryRejectsUnsafeIdentifiers(t *testing.T) {
	mockDB, _ := newMockDB(t)
	repo := NewDatasetRepositoryWithDB(mockDB)

	_, err := repo.Select(context.Background(), model.DatasetQuery{Table: "users; DROP TABLE x"})
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = repo.Select(context.Background(), model.DatasetQuery{Table: "idx_daily_data", DateColumn: "date)--", Start: "2024-01-01"})
	require.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = repo.Select(context.Background(), model.DatasetQuery{Table: "idx_daily_data", DateColumn: "date", End: "01/02/2024"})
	require.Error(t, err)
}

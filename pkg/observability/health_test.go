package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil)

	req := httptest.NewRequest("GET", "/health/live", nil)
	w := httptest.NewRecorder()
	checker.Liveness(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), StatusHealthy)
}

func TestHealthChecker_Readiness(t *testing.T) {
	t.Run("healthy database", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		checker := NewHealthChecker(db, nil)
		req := httptest.NewRequest("GET", "/health/ready", nil)
		w := httptest.NewRecorder()
		checker.Readiness(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), `"database"`)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database down is unhealthy", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(assert.AnError)

		checker := NewHealthChecker(db, nil)
		req := httptest.NewRequest("GET", "/health/ready", nil)
		w := httptest.NewRecorder()
		checker.Readiness(w, req)

		assert.Equal(t, 503, w.Code)
		assert.Contains(t, w.Body.String(), StatusUnhealthy)
	})

	t.Run("redis down degrades but stays ready", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		mr.Close() // take redis down

		checker := NewHealthChecker(db, client)
		req := httptest.NewRequest("GET", "/health/ready", nil)
		w := httptest.NewRecorder()
		checker.Readiness(w, req)

		assert.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), StatusDegraded)
	})
}

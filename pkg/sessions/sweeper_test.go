package sessions

import (
	"context"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/pkg/observability"
)

func TestSweeper_Sweep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WillReturnResult(sqlmock.NewResult(0, 2))

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sweeper := NewSweeper(NewStore(db), logger, nil)
	sweeper.Sweep(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_SweepErrorDoesNotPanic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM sessions WHERE expires_at").
		WillReturnError(assert.AnError)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sweeper := NewSweeper(NewStore(db), logger, nil)
	sweeper.Sweep(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sweeper := NewSweeper(NewStore(db), logger, nil)

	assert.Error(t, sweeper.Start("not a schedule"))
}

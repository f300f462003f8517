package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock, loc: time.UTC}, mock
}

func TestPostgresMigrate(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS daily_metadata`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateTipResult(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE tips SET result`).
			WithArgs("win", "tip-a").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, s.UpdateTipResult(context.Background(), "tip-a", model.ResultWin))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE tips SET result`).
			WithArgs("win", "tip-missing").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := s.UpdateTipResult(context.Background(), "tip-missing", model.ResultWin)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid result never reaches the database", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)

		err := s.UpdateTipResult(context.Background(), "tip-a", model.Result("maybe"))
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDeleteTip(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM tips WHERE id`).
			WithArgs("tip-a").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, s.DeleteTip(context.Background(), "tip-a"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec(`DELETE FROM tips WHERE id`).
			WithArgs("tip-missing").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		require.ErrorIs(t, s.DeleteTip(context.Background(), "tip-missing"), ErrNotFound)
	})
}

func TestPostgresListDates(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT DISTINCT date_iso FROM tips`).
		WillReturnRows(pgxmock.NewRows([]string{"date_iso"}).
			AddRow("2026-08-30").
			AddRow("2026-08-29"))

	dates, err := s.ListDates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-30", "2026-08-29"}, dates)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveAlreadyExists(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM daily_metadata`).
		WithArgs("2026-08-30").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := s.SaveDailyTips(context.Background(), testPayload("2026-08-30", "tip-one"), false)
	require.ErrorIs(t, err, ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	p := testPayload("2026-08-30", "tip-one")
	p.Tips[0].Risk = "wild"

	err := s.SaveDailyTips(context.Background(), p, false)
	require.Error(t, err)
	// Validation failed before any query was issued.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadByDateNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, bet_type, risk, rationale, result`).
		WithArgs("1999-01-01").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "bet_type", "risk", "rationale", "result", "combined_avg_odds", "combined_bookmakers",
		}))
	mock.ExpectQuery(`SELECT l.id, l.tip_id, l.sport`).
		WithArgs("1999-01-01").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tip_id", "sport", "league", "event_home", "event_away", "event_name",
			"event_scheduled_at", "event_timezone", "market", "selection", "avg_odds",
		}))

	_, err := s.LoadByDate(context.Background(), "1999-01-01")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

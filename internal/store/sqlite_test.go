package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "tips.db"), time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testLeg(sport string) model.Leg {
	return model.Leg{
		Sport:     sport,
		League:    "League",
		Event:     model.EventTeams{Home: "Home", Away: "Away", ScheduledAt: "2026-08-30T18:00:00Z", Timezone: "Europe/Lisbon"},
		Market:    "Match Result",
		Selection: "Home Win",
		AvgOdds:   1.85,
		Bookmakers: []model.BookmakerPrice{
			{Name: "bet365", Odds: 1.86, URL: "https://bet365.example"},
			{Name: "Betfair", Odds: 1.84},
		},
	}
}

func testPayload(dateISO string, tipIDs ...string) *model.DailyTipsPayload {
	tips := make([]model.TipItem, len(tipIDs))
	for i, id := range tipIDs {
		tips[i] = model.TipItem{
			ID:        id,
			BetType:   model.BetTypeSingle,
			Risk:      model.RiskSafe,
			Legs:      []model.Leg{testLeg("Football")},
			Rationale: "solid pick",
			Result:    model.ResultPending,
		}
	}
	return &model.DailyTipsPayload{
		Version:     model.PayloadVersion,
		DateISO:     dateISO,
		GeneratedAt: "2026-08-30T06:00:00Z",
		GeneratedBy: "test",
		Tips:        tips,
		SEO:         &model.SEO{Title: "Tips", Description: "Daily tips"},
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	in := testPayload("2026-08-30", "tip-one", "tip-two")
	acc := model.TipItem{
		ID:      "tip-acc",
		BetType: model.BetTypeAccumulator,
		Risk:    model.RiskHigh,
		Legs:    []model.Leg{testLeg("Football"), testLeg("Basketball")},
		Combined: &model.CombinedPrice{
			AvgOdds:    3.42,
			Bookmakers: []model.BookmakerPrice{{Name: "bet365", Odds: 3.40}},
		},
		Rationale: "double up",
		Result:    model.ResultPending,
	}
	in.Tips = append(in.Tips, acc)

	require.NoError(t, s.SaveDailyTips(ctx, in, false))

	out, err := s.LoadByDate(ctx, "2026-08-30")
	require.NoError(t, err)

	assert.Equal(t, in.Version, out.Version)
	assert.Equal(t, in.DateISO, out.DateISO)
	assert.Equal(t, in.GeneratedAt, out.GeneratedAt)
	assert.Equal(t, in.GeneratedBy, out.GeneratedBy)
	require.NotNil(t, out.SEO)
	assert.Equal(t, "Tips", out.SEO.Title)
	require.Len(t, out.Tips, 3)

	// Tip order is preserved.
	assert.Equal(t, "tip-one", out.Tips[0].ID)
	assert.Equal(t, "tip-acc", out.Tips[2].ID)

	gotAcc := out.Tips[2]
	require.Len(t, gotAcc.Legs, 2)
	assert.Equal(t, "Basketball", gotAcc.Legs[1].Sport)
	require.NotNil(t, gotAcc.Combined)
	assert.InDelta(t, 3.42, gotAcc.Combined.AvgOdds, 1e-9)
	require.Len(t, gotAcc.Combined.Bookmakers, 1)

	leg := out.Tips[0].Legs[0]
	assert.Equal(t, "Home", leg.Event.Home)
	assert.Equal(t, "2026-08-30T18:00:00Z", leg.Event.ScheduledAt)
	require.Len(t, leg.Bookmakers, 2)
	assert.Equal(t, "https://bet365.example", leg.Bookmakers[0].URL)
	assert.Equal(t, "Betfair", leg.Bookmakers[1].Name)
}

func TestSQLiteSaveRejectsInvalid(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	p := testPayload("2026-08-30", "tip-one")
	p.Version = 1

	err := s.SaveDailyTips(context.Background(), p, false)
	require.Error(t, err)
}

func TestSQLiteOverwriteGuard(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-one"), false))

	err := s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-other"), false)
	require.ErrorIs(t, err, ErrAlreadyExists)

	// The guarded save must not have touched the stored payload.
	out, err := s.LoadByDate(ctx, "2026-08-30")
	require.NoError(t, err)
	require.Len(t, out.Tips, 1)
	assert.Equal(t, "tip-one", out.Tips[0].ID)

	// Overwrite fully supersedes.
	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-new-a", "tip-new-b"), true))
	out, err = s.LoadByDate(ctx, "2026-08-30")
	require.NoError(t, err)
	require.Len(t, out.Tips, 2)
	assert.Equal(t, "tip-new-a", out.Tips[0].ID)
}

func TestSQLiteLoadByDateNotFound(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	_, err := s.LoadByDate(context.Background(), "1999-01-01")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteUpdateTipResult(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-one"), false))

	require.NoError(t, s.UpdateTipResult(ctx, "tip-one", model.ResultWin))
	// Setting the same result again succeeds.
	require.NoError(t, s.UpdateTipResult(ctx, "tip-one", model.ResultWin))

	out, err := s.LoadByDate(ctx, "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, model.ResultWin, out.Tips[0].Result)

	err = s.UpdateTipResult(ctx, "tip-missing", model.ResultWin)
	require.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateTipResult(ctx, "tip-one", model.Result("maybe"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSQLiteDeleteTip(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-one", "tip-two"), false))

	require.NoError(t, s.DeleteTip(ctx, "tip-one"))

	out, err := s.LoadByDate(ctx, "2026-08-30")
	require.NoError(t, err)
	require.Len(t, out.Tips, 1)
	assert.Equal(t, "tip-two", out.Tips[0].ID)

	// Cascaded rows are gone.
	var legs, bms int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(1) FROM tip_legs WHERE tip_id = 'tip-one'`).Scan(&legs))
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(1) FROM bookmaker_odds o JOIN tip_legs l ON l.id = o.leg_id WHERE l.tip_id = 'tip-one'`,
	).Scan(&bms))
	assert.Zero(t, legs)
	assert.Zero(t, bms)

	require.ErrorIs(t, s.DeleteTip(ctx, "tip-one"), ErrNotFound)
}

func TestSQLiteDeleteLastTipDropsDate(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-one"), false))

	require.NoError(t, s.DeleteTip(ctx, "tip-one"))

	dates, err := s.ListDates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)

	_, err = s.LoadByDate(ctx, "2026-08-30")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListDates(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	for _, date := range []string{"2026-08-28", "2026-08-30", "2026-08-29"} {
		require.NoError(t, s.SaveDailyTips(ctx, testPayload(date, "tip-"+date[8:]), false))
	}

	dates, err := s.ListDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-30", "2026-08-29", "2026-08-28"}, dates)
}

func TestSQLiteLoadLatest(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	today := time.Now().UTC().Format("2006-01-02")
	past := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")
	future := time.Now().UTC().AddDate(0, 0, 5).Format("2006-01-02")

	_, err := s.LoadLatest(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SaveDailyTips(ctx, testPayload(past, "tip-past"), false))
	out, err := s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, past, out.DateISO)

	require.NoError(t, s.SaveDailyTips(ctx, testPayload(future, "tip-future"), false))
	out, err = s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, future, out.DateISO)

	require.NoError(t, s.SaveDailyTips(ctx, testPayload(today, "tip-today"), false))
	out, err = s.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, today, out.DateISO)
}

func TestPickLatestDate(t *testing.T) {
	t.Parallel()

	today := "2026-08-30"
	tests := []struct {
		name  string
		dates []string
		want  string
	}{
		{"empty", nil, ""},
		{"exact today", []string{"2026-09-02", "2026-08-30", "2026-08-28"}, "2026-08-30"},
		{"nearest future", []string{"2026-09-05", "2026-09-01", "2026-08-28"}, "2026-09-01"},
		{"most recent past", []string{"2026-08-27", "2026-08-25"}, "2026-08-27"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pickLatestDate(tt.dates, today))
		})
	}
}

func TestListDatedTips(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-29", "tip-a"), false))
	require.NoError(t, s.SaveDailyTips(ctx, testPayload("2026-08-30", "tip-b", "tip-c"), false))

	tips, err := ListDatedTips(ctx, s, "", "")
	require.NoError(t, err)
	require.Len(t, tips, 3)
	assert.Equal(t, "2026-08-30", tips[0].Date)
	assert.Equal(t, "tip-b", tips[0].ID)
	assert.Equal(t, "tip-a", tips[2].ID)

	tips, err = ListDatedTips(ctx, s, "2026-08-30", "")
	require.NoError(t, err)
	assert.Len(t, tips, 2)

	tips, err = ListDatedTips(ctx, s, "", "2026-08-29")
	require.NoError(t, err)
	require.Len(t, tips, 1)
	assert.Equal(t, "tip-a", tips[0].ID)
}

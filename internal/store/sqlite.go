package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/bettingtipsai/tips-cli/internal/model"
	"github.com/bettingtipsai/tips-cli/internal/schema"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local and
// offline runs and as the in-memory backend in tests.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. Cascading deletes require the foreign_keys pragma, off by default
// in SQLite.
func NewSQLite(dsn string, loc *time.Location) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SQLiteStore{db: db, loc: loc}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS daily_metadata (
	date_iso          TEXT PRIMARY KEY,
	version           INTEGER NOT NULL,
	generated_at      TEXT NOT NULL,
	generated_by      TEXT NOT NULL,
	seo_title         TEXT,
	seo_description   TEXT,
	tips_count        INTEGER NOT NULL,
	safe_tips_count   INTEGER NOT NULL DEFAULT 0,
	medium_tips_count INTEGER NOT NULL DEFAULT 0,
	high_tips_count   INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tips (
	id                  TEXT PRIMARY KEY,
	date_iso            TEXT NOT NULL REFERENCES daily_metadata(date_iso) ON DELETE CASCADE,
	position            INTEGER NOT NULL,
	bet_type            TEXT NOT NULL,
	risk                TEXT NOT NULL,
	rationale           TEXT NOT NULL,
	result              TEXT NOT NULL DEFAULT 'pending',
	combined_avg_odds   REAL,
	combined_bookmakers TEXT
);

CREATE TABLE IF NOT EXISTS tip_legs (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	tip_id             TEXT NOT NULL REFERENCES tips(id) ON DELETE CASCADE,
	leg_index          INTEGER NOT NULL,
	sport              TEXT NOT NULL,
	league             TEXT,
	event_home         TEXT,
	event_away         TEXT,
	event_name         TEXT,
	event_scheduled_at TEXT,
	event_timezone     TEXT,
	market             TEXT NOT NULL,
	selection          TEXT NOT NULL,
	avg_odds           REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS bookmaker_odds (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	leg_id   INTEGER NOT NULL REFERENCES tip_legs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	odds     REAL NOT NULL,
	url      TEXT
);

CREATE INDEX IF NOT EXISTS idx_tips_date_iso ON tips(date_iso);
CREATE INDEX IF NOT EXISTS idx_tips_risk ON tips(risk);
CREATE INDEX IF NOT EXISTS idx_tips_result ON tips(result);
CREATE INDEX IF NOT EXISTS idx_tip_legs_tip_id ON tip_legs(tip_id);
CREATE INDEX IF NOT EXISTS idx_tip_legs_sport ON tip_legs(sport);
CREATE INDEX IF NOT EXISTS idx_bookmaker_odds_leg_id ON bookmaker_odds(leg_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDailyTips(ctx context.Context, payload *model.DailyTipsPayload, overwrite bool) error {
	if errs := schema.ValidatePayload(payload); len(errs) > 0 {
		return errs
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM daily_metadata WHERE date_iso = ?`, payload.DateISO,
	).Scan(&exists)
	if err != nil {
		return eris.Wrapf(err, "sqlite: check existing %s", payload.DateISO)
	}
	if exists > 0 {
		if !overwrite {
			return eris.Wrapf(ErrAlreadyExists, "tips for %s", payload.DateISO)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_metadata WHERE date_iso = ?`, payload.DateISO); err != nil {
			return eris.Wrapf(err, "sqlite: delete prior payload %s", payload.DateISO)
		}
	}

	var seoTitle, seoDescription *string
	if payload.SEO != nil {
		seoTitle = &payload.SEO.Title
		seoDescription = &payload.SEO.Description
	}
	riskCounts := map[model.Risk]int{}
	for _, tip := range payload.Tips {
		riskCounts[tip.Risk]++
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO daily_metadata
		 (date_iso, version, generated_at, generated_by, seo_title, seo_description,
		  tips_count, safe_tips_count, medium_tips_count, high_tips_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payload.DateISO, payload.Version, payload.GeneratedAt, payload.GeneratedBy,
		seoTitle, seoDescription, len(payload.Tips),
		riskCounts[model.RiskSafe], riskCounts[model.RiskMedium], riskCounts[model.RiskHigh],
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert metadata %s", payload.DateISO)
	}

	for i, tip := range payload.Tips {
		if err := s.insertTipTx(ctx, tx, payload.DateISO, i, tip); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "sqlite: commit save %s", payload.DateISO)
	}
	return nil
}

func (s *SQLiteStore) insertTipTx(ctx context.Context, tx *sql.Tx, dateISO string, position int, tip model.TipItem) error {
	var combinedOdds *float64
	var combinedBookmakers *string
	if tip.Combined != nil {
		combinedOdds = &tip.Combined.AvgOdds
		data, err := json.Marshal(tip.Combined.Bookmakers)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal combined bookmakers for %s", tip.ID)
		}
		str := string(data)
		combinedBookmakers = &str
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO tips (id, date_iso, position, bet_type, risk, rationale, result, combined_avg_odds, combined_bookmakers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tip.ID, dateISO, position, string(tip.BetType), string(tip.Risk),
		tip.Rationale, string(tip.Result), combinedOdds, combinedBookmakers,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert tip %s", tip.ID)
	}

	for i, leg := range tip.Legs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tip_legs (tip_id, leg_index, sport, league, event_home, event_away, event_name, event_scheduled_at, event_timezone, market, selection, avg_odds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tip.ID, i, leg.Sport, nullable(leg.League),
			nullable(leg.Event.Home), nullable(leg.Event.Away), nullable(leg.Event.Name),
			nullable(leg.Event.ScheduledAt), nullable(leg.Event.Timezone),
			leg.Market, leg.Selection, leg.AvgOdds,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert leg %d for tip %s", i, tip.ID)
		}
		legID, err := res.LastInsertId()
		if err != nil {
			return eris.Wrap(err, "sqlite: leg insert id")
		}

		for j, bm := range leg.Bookmakers {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO bookmaker_odds (leg_id, position, name, odds, url) VALUES (?, ?, ?, ?, ?)`,
				legID, j, bm.Name, bm.Odds, nullable(bm.URL),
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: insert bookmaker %d for tip %s leg %d", j, tip.ID, i)
			}
		}
	}
	return nil
}

func (s *SQLiteStore) LoadByDate(ctx context.Context, dateISO string) (*model.DailyTipsPayload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bet_type, risk, rationale, result, combined_avg_odds, combined_bookmakers
		 FROM tips WHERE date_iso = ? ORDER BY position`,
		dateISO,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load tips %s", dateISO)
	}
	defer rows.Close()

	var tips []model.TipItem
	tipIndex := map[string]int{}
	for rows.Next() {
		var t model.TipItem
		var combinedOdds *float64
		var combinedBookmakers *string
		if err := rows.Scan(&t.ID, &t.BetType, &t.Risk, &t.Rationale, &t.Result, &combinedOdds, &combinedBookmakers); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tip")
		}
		if combinedOdds != nil {
			combined := &model.CombinedPrice{AvgOdds: *combinedOdds}
			if combinedBookmakers != nil {
				if err := json.Unmarshal([]byte(*combinedBookmakers), &combined.Bookmakers); err != nil {
					return nil, eris.Wrapf(err, "sqlite: unmarshal combined bookmakers for %s", t.ID)
				}
			}
			t.Combined = combined
		}
		tipIndex[t.ID] = len(tips)
		tips = append(tips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate tips %s", dateISO)
	}
	if len(tips) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "tips for %s", dateISO)
	}

	legIDs := map[int64][2]int{}
	legRows, err := s.db.QueryContext(ctx,
		`SELECT l.id, l.tip_id, l.sport, l.league, l.event_home, l.event_away, l.event_name,
		        l.event_scheduled_at, l.event_timezone, l.market, l.selection, l.avg_odds
		 FROM tip_legs l JOIN tips t ON t.id = l.tip_id
		 WHERE t.date_iso = ? ORDER BY t.position, l.leg_index`,
		dateISO,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load legs %s", dateISO)
	}
	defer legRows.Close()

	for legRows.Next() {
		var legID int64
		var tipID string
		var leg model.Leg
		var league, home, away, name, scheduledAt, timezone *string
		if err := legRows.Scan(&legID, &tipID, &leg.Sport, &league, &home, &away, &name,
			&scheduledAt, &timezone, &leg.Market, &leg.Selection, &leg.AvgOdds); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan leg")
		}
		leg.League = deref(league)
		leg.Event = model.EventTeams{
			Home: deref(home), Away: deref(away), Name: deref(name),
			ScheduledAt: deref(scheduledAt), Timezone: deref(timezone),
		}
		ti, ok := tipIndex[tipID]
		if !ok {
			continue
		}
		legIDs[legID] = [2]int{ti, len(tips[ti].Legs)}
		tips[ti].Legs = append(tips[ti].Legs, leg)
	}
	if err := legRows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate legs %s", dateISO)
	}

	bmRows, err := s.db.QueryContext(ctx,
		`SELECT o.leg_id, o.name, o.odds, o.url
		 FROM bookmaker_odds o
		 JOIN tip_legs l ON l.id = o.leg_id
		 JOIN tips t ON t.id = l.tip_id
		 WHERE t.date_iso = ? ORDER BY o.leg_id, o.position`,
		dateISO,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load bookmakers %s", dateISO)
	}
	defer bmRows.Close()

	for bmRows.Next() {
		var legID int64
		var bm model.BookmakerPrice
		var url *string
		if err := bmRows.Scan(&legID, &bm.Name, &bm.Odds, &url); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan bookmaker")
		}
		bm.URL = deref(url)
		if pos, ok := legIDs[legID]; ok {
			leg := &tips[pos[0]].Legs[pos[1]]
			leg.Bookmakers = append(leg.Bookmakers, bm)
		}
	}
	if err := bmRows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate bookmakers %s", dateISO)
	}

	payload := &model.DailyTipsPayload{
		Version: model.PayloadVersion,
		DateISO: dateISO,
		Tips:    tips,
	}

	var seoTitle, seoDescription *string
	err = s.db.QueryRowContext(ctx,
		`SELECT version, generated_at, generated_by, seo_title, seo_description
		 FROM daily_metadata WHERE date_iso = ?`,
		dateISO,
	).Scan(&payload.Version, &payload.GeneratedAt, &payload.GeneratedBy, &seoTitle, &seoDescription)
	if err != nil {
		if err == sql.ErrNoRows {
			payload.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
			payload.GeneratedBy = "manual"
		} else {
			return nil, eris.Wrapf(err, "sqlite: load metadata %s", dateISO)
		}
	} else if seoTitle != nil || seoDescription != nil {
		payload.SEO = &model.SEO{Title: deref(seoTitle), Description: deref(seoDescription)}
	}

	if errs := schema.ValidatePayload(payload); len(errs) > 0 {
		return nil, eris.Wrapf(errs, "sqlite: corrupt payload for %s", dateISO)
	}
	return payload, nil
}

func (s *SQLiteStore) LoadLatest(ctx context.Context) (*model.DailyTipsPayload, error) {
	dates, err := s.ListDates(ctx)
	if err != nil {
		return nil, err
	}
	best := pickLatestDate(dates, todayISO(s.loc))
	if best == "" {
		return nil, eris.Wrap(ErrNotFound, "no tips published")
	}
	return s.LoadByDate(ctx, best)
}

func (s *SQLiteStore) UpdateTipResult(ctx context.Context, tipID string, result model.Result) error {
	if err := schema.ValidateResult(result); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE tips SET result = ? WHERE id = ?`,
		string(result), tipID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update result %s", tipID)
	}
	return checkRowsAffected(res, "tip", tipID)
}

func (s *SQLiteStore) DeleteTip(ctx context.Context, tipID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tips WHERE id = ?`, tipID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete tip %s", tipID)
	}
	return checkRowsAffected(res, "tip", tipID)
}

func (s *SQLiteStore) ListDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT date_iso FROM tips ORDER BY date_iso DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dates")
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan date")
		}
		dates = append(dates, d)
	}
	return dates, eris.Wrap(rows.Err(), "sqlite: iterate dates")
}

func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", kind, id)
	}
	return nil
}

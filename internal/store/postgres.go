package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/bettingtipsai/tips-cli/internal/db"
	"github.com/bettingtipsai/tips-cli/internal/model"
	"github.com/bettingtipsai/tips-cli/internal/schema"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	loc     *time.Location
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot read and curation paths.
var preparedStatements = map[string]string{
	"get_tips_by_date":  `SELECT id, bet_type, risk, rationale, result, combined_avg_odds, combined_bookmakers FROM tips WHERE date_iso = $1 ORDER BY position`,
	"update_tip_result": `UPDATE tips SET result = $1 WHERE id = $2`,
	"delete_tip":        `DELETE FROM tips WHERE id = $1`,
	"list_dates":        `SELECT DISTINCT date_iso FROM tips ORDER BY date_iso DESC`,
}

// NewPostgres creates a PostgresStore with a connection pool. loc is the
// reference timezone used by LoadLatest to decide what "today" means.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, loc *time.Location) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{pool: pool, loc: loc, closeFn: pool.Close}, nil
}

const postgresMigration = `
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
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tips (
	id                  TEXT PRIMARY KEY,
	date_iso            TEXT NOT NULL REFERENCES daily_metadata(date_iso) ON DELETE CASCADE,
	position            INTEGER NOT NULL,
	bet_type            TEXT NOT NULL,
	risk                TEXT NOT NULL,
	rationale           TEXT NOT NULL,
	result              TEXT NOT NULL DEFAULT 'pending',
	combined_avg_odds   DOUBLE PRECISION,
	combined_bookmakers JSONB
);

CREATE TABLE IF NOT EXISTS tip_legs (
	id                 BIGSERIAL PRIMARY KEY,
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
	avg_odds           DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS bookmaker_odds (
	id       BIGSERIAL PRIMARY KEY,
	leg_id   BIGINT NOT NULL REFERENCES tip_legs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	odds     DOUBLE PRECISION NOT NULL,
	url      TEXT
);

CREATE INDEX IF NOT EXISTS idx_tips_date_iso ON tips(date_iso);
CREATE INDEX IF NOT EXISTS idx_tips_risk ON tips(risk);
CREATE INDEX IF NOT EXISTS idx_tips_result ON tips(result);
CREATE INDEX IF NOT EXISTS idx_tip_legs_tip_id ON tip_legs(tip_id);
CREATE INDEX IF NOT EXISTS idx_tip_legs_sport ON tip_legs(sport);
CREATE INDEX IF NOT EXISTS idx_bookmaker_odds_leg_id ON bookmaker_odds(leg_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveDailyTips(ctx context.Context, payload *model.DailyTipsPayload, overwrite bool) error {
	if errs := schema.ValidatePayload(payload); len(errs) > 0 {
		return errs
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save")
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM daily_metadata WHERE date_iso = $1)`,
		payload.DateISO,
	).Scan(&exists)
	if err != nil {
		return eris.Wrapf(err, "postgres: check existing %s", payload.DateISO)
	}
	if exists {
		if !overwrite {
			return eris.Wrapf(ErrAlreadyExists, "tips for %s", payload.DateISO)
		}
		// Supersede, never merge: the cascade removes the date's tips,
		// legs, and bookmaker rows inside this transaction.
		if _, err := tx.Exec(ctx, `DELETE FROM daily_metadata WHERE date_iso = $1`, payload.DateISO); err != nil {
			return eris.Wrapf(err, "postgres: delete prior payload %s", payload.DateISO)
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

	_, err = tx.Exec(ctx,
		`INSERT INTO daily_metadata
		 (date_iso, version, generated_at, generated_by, seo_title, seo_description,
		  tips_count, safe_tips_count, medium_tips_count, high_tips_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		payload.DateISO, payload.Version, payload.GeneratedAt, payload.GeneratedBy,
		seoTitle, seoDescription, len(payload.Tips),
		riskCounts[model.RiskSafe], riskCounts[model.RiskMedium], riskCounts[model.RiskHigh],
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert metadata %s", payload.DateISO)
	}

	for i, tip := range payload.Tips {
		if err := insertTipTx(ctx, tx, payload.DateISO, i, tip); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit save %s", payload.DateISO)
	}
	return nil
}

func insertTipTx(ctx context.Context, tx pgx.Tx, dateISO string, position int, tip model.TipItem) error {
	var combinedOdds *float64
	var combinedBookmakers []byte
	if tip.Combined != nil {
		combinedOdds = &tip.Combined.AvgOdds
		data, err := json.Marshal(tip.Combined.Bookmakers)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal combined bookmakers for %s", tip.ID)
		}
		combinedBookmakers = data
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO tips (id, date_iso, position, bet_type, risk, rationale, result, combined_avg_odds, combined_bookmakers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tip.ID, dateISO, position, string(tip.BetType), string(tip.Risk),
		tip.Rationale, string(tip.Result), combinedOdds, combinedBookmakers,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert tip %s", tip.ID)
	}

	for i, leg := range tip.Legs {
		var legID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO tip_legs (tip_id, leg_index, sport, league, event_home, event_away, event_name, event_scheduled_at, event_timezone, market, selection, avg_odds)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING id`,
			tip.ID, i, leg.Sport, nullable(leg.League),
			nullable(leg.Event.Home), nullable(leg.Event.Away), nullable(leg.Event.Name),
			nullable(leg.Event.ScheduledAt), nullable(leg.Event.Timezone),
			leg.Market, leg.Selection, leg.AvgOdds,
		).Scan(&legID)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert leg %d for tip %s", i, tip.ID)
		}

		for j, bm := range leg.Bookmakers {
			_, err := tx.Exec(ctx,
				`INSERT INTO bookmaker_odds (leg_id, position, name, odds, url) VALUES ($1, $2, $3, $4, $5)`,
				legID, j, bm.Name, bm.Odds, nullable(bm.URL),
			)
			if err != nil {
				return eris.Wrapf(err, "postgres: insert bookmaker %d for tip %s leg %d", j, tip.ID, i)
			}
		}
	}
	return nil
}

func (s *PostgresStore) LoadByDate(ctx context.Context, dateISO string) (*model.DailyTipsPayload, error) {
	tips, legIDs, err := s.loadTips(ctx, dateISO)
	if err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "tips for %s", dateISO)
	}
	if err := s.loadBookmakers(ctx, dateISO, tips, legIDs); err != nil {
		return nil, err
	}

	payload := &model.DailyTipsPayload{
		Version: model.PayloadVersion,
		DateISO: dateISO,
		Tips:    tips,
	}
	if err := s.loadMetadata(ctx, dateISO, payload); err != nil {
		return nil, err
	}

	// Defense against a corrupted store: never hand back a payload that
	// would not pass the write-side gate.
	if errs := schema.ValidatePayload(payload); len(errs) > 0 {
		return nil, eris.Wrapf(errs, "postgres: corrupt payload for %s", dateISO)
	}
	return payload, nil
}

// loadTips returns the date's tips with legs attached, plus each leg's row ID
// keyed by [tip index][leg index] for bookmaker attachment.
func (s *PostgresStore) loadTips(ctx context.Context, dateISO string) ([]model.TipItem, map[int64][2]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, bet_type, risk, rationale, result, combined_avg_odds, combined_bookmakers
		 FROM tips WHERE date_iso = $1 ORDER BY position`,
		dateISO,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: load tips %s", dateISO)
	}
	defer rows.Close()

	var tips []model.TipItem
	tipIndex := map[string]int{}
	for rows.Next() {
		var t model.TipItem
		var combinedOdds *float64
		var combinedBookmakers []byte
		if err := rows.Scan(&t.ID, &t.BetType, &t.Risk, &t.Rationale, &t.Result, &combinedOdds, &combinedBookmakers); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan tip")
		}
		if combinedOdds != nil {
			combined := &model.CombinedPrice{AvgOdds: *combinedOdds}
			if combinedBookmakers != nil {
				if err := json.Unmarshal(combinedBookmakers, &combined.Bookmakers); err != nil {
					return nil, nil, eris.Wrapf(err, "postgres: unmarshal combined bookmakers for %s", t.ID)
				}
			}
			t.Combined = combined
		}
		tipIndex[t.ID] = len(tips)
		tips = append(tips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: iterate tips %s", dateISO)
	}

	legRows, err := s.pool.Query(ctx,
		`SELECT l.id, l.tip_id, l.sport, l.league, l.event_home, l.event_away, l.event_name,
		        l.event_scheduled_at, l.event_timezone, l.market, l.selection, l.avg_odds
		 FROM tip_legs l JOIN tips t ON t.id = l.tip_id
		 WHERE t.date_iso = $1 ORDER BY t.position, l.leg_index`,
		dateISO,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: load legs %s", dateISO)
	}
	defer legRows.Close()

	legIDs := map[int64][2]int{}
	for legRows.Next() {
		var legID int64
		var tipID string
		var leg model.Leg
		var league, home, away, name, scheduledAt, timezone *string
		if err := legRows.Scan(&legID, &tipID, &leg.Sport, &league, &home, &away, &name,
			&scheduledAt, &timezone, &leg.Market, &leg.Selection, &leg.AvgOdds); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan leg")
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
		return nil, nil, eris.Wrapf(err, "postgres: iterate legs %s", dateISO)
	}

	return tips, legIDs, nil
}

func (s *PostgresStore) loadBookmakers(ctx context.Context, dateISO string, tips []model.TipItem, legIDs map[int64][2]int) error {
	rows, err := s.pool.Query(ctx,
		`SELECT o.leg_id, o.name, o.odds, o.url
		 FROM bookmaker_odds o
		 JOIN tip_legs l ON l.id = o.leg_id
		 JOIN tips t ON t.id = l.tip_id
		 WHERE t.date_iso = $1 ORDER BY o.leg_id, o.position`,
		dateISO,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: load bookmakers %s", dateISO)
	}
	defer rows.Close()

	for rows.Next() {
		var legID int64
		var bm model.BookmakerPrice
		var url *string
		if err := rows.Scan(&legID, &bm.Name, &bm.Odds, &url); err != nil {
			return eris.Wrap(err, "postgres: scan bookmaker")
		}
		bm.URL = deref(url)
		if pos, ok := legIDs[legID]; ok {
			leg := &tips[pos[0]].Legs[pos[1]]
			leg.Bookmakers = append(leg.Bookmakers, bm)
		}
	}
	return eris.Wrapf(rows.Err(), "postgres: iterate bookmakers %s", dateISO)
}

func (s *PostgresStore) loadMetadata(ctx context.Context, dateISO string, payload *model.DailyTipsPayload) error {
	var seoTitle, seoDescription *string
	err := s.pool.QueryRow(ctx,
		`SELECT version, generated_at, generated_by, seo_title, seo_description
		 FROM daily_metadata WHERE date_iso = $1`,
		dateISO,
	).Scan(&payload.Version, &payload.GeneratedAt, &payload.GeneratedBy, &seoTitle, &seoDescription)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Tips without metadata should not happen via this store's
			// write path; fall back to defaults rather than fail the read.
			payload.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
			payload.GeneratedBy = "manual"
			return nil
		}
		return eris.Wrapf(err, "postgres: load metadata %s", dateISO)
	}
	if seoTitle != nil || seoDescription != nil {
		payload.SEO = &model.SEO{Title: deref(seoTitle), Description: deref(seoDescription)}
	}
	return nil
}

func (s *PostgresStore) LoadLatest(ctx context.Context) (*model.DailyTipsPayload, error) {
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

func (s *PostgresStore) UpdateTipResult(ctx context.Context, tipID string, result model.Result) error {
	if err := schema.ValidateResult(result); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE tips SET result = $1 WHERE id = $2`,
		string(result), tipID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update result %s", tipID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "tip %s", tipID)
	}
	return nil
}

func (s *PostgresStore) DeleteTip(ctx context.Context, tipID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tips WHERE id = $1`, tipID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete tip %s", tipID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "tip %s", tipID)
	}
	return nil
}

// ListDates reads dates from the tips table, not daily_metadata, so a date
// whose last tip was deleted stops being listed.
func (s *PostgresStore) ListDates(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT date_iso FROM tips ORDER BY date_iso DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dates")
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, eris.Wrap(err, "postgres: scan date")
		}
		dates = append(dates, d)
	}
	return dates, eris.Wrap(rows.Err(), "postgres: iterate dates")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

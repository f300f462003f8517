// Package store is the only component that reads or writes persisted tip
// data. It exposes a storage-agnostic Store interface with Postgres and
// SQLite implementations behind it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

// Sentinel errors callers branch on with errors.Is. Anything else coming out
// of a Store is a storage failure.
var (
	ErrNotFound      = eris.New("not found")
	ErrAlreadyExists = eris.New("already exists")
)

// Store defines the persistence contract for daily tip payloads.
type Store interface {
	// SaveDailyTips validates the payload and writes it atomically. With
	// overwrite=false an existing payload for the date fails with
	// ErrAlreadyExists; with overwrite=true the prior payload is fully
	// superseded inside the same transaction.
	SaveDailyTips(ctx context.Context, payload *model.DailyTipsPayload, overwrite bool) error

	// LoadByDate reconstructs the full nested payload for a date, or
	// ErrNotFound. The reconstructed payload is re-validated before return.
	LoadByDate(ctx context.Context, dateISO string) (*model.DailyTipsPayload, error)

	// LoadLatest resolves the most relevant payload: today's (in the store's
	// reference timezone), else the nearest future date, else the most
	// recent past date. ErrNotFound when the store is empty.
	LoadLatest(ctx context.Context) (*model.DailyTipsPayload, error)

	// UpdateTipResult mutates one tip's result by global ID. The result enum
	// is checked standalone; no full payload re-validation.
	UpdateTipResult(ctx context.Context, tipID string, result model.Result) error

	// DeleteTip removes a tip and all of its legs and bookmaker rows.
	DeleteTip(ctx context.Context, tipID string) error

	// ListDates returns every date with tips, descending.
	ListDates(ctx context.Context) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// pickLatestDate implements the latest-resolution order over a date list:
// exact today, else smallest date >= today, else largest date < today.
// Empty string when dates is empty.
func pickLatestDate(dates []string, today string) string {
	var bestFuture, bestPast string
	for _, d := range dates {
		if d == today {
			return d
		}
		if d > today {
			if bestFuture == "" || d < bestFuture {
				bestFuture = d
			}
		} else if bestPast == "" || d > bestPast {
			bestPast = d
		}
	}
	if bestFuture != "" {
		return bestFuture
	}
	return bestPast
}

// todayISO formats the current date in the store's reference timezone.
func todayISO(loc *time.Location) string {
	return time.Now().In(loc).Format("2006-01-02")
}

// ListDatedTips flattens every payload in the inclusive date range into
// dated tips, newest date first, preserving each payload's tip order.
// Empty bounds mean unbounded. This feeds the query engine; date-range
// pushdown happens here so no date outside the bounds is ever loaded.
func ListDatedTips(ctx context.Context, s Store, dateFrom, dateTo string) ([]model.DatedTip, error) {
	dates, err := s.ListDates(ctx)
	if err != nil {
		return nil, err
	}

	var tips []model.DatedTip
	for _, date := range dates {
		if dateFrom != "" && date < dateFrom {
			continue
		}
		if dateTo != "" && date > dateTo {
			continue
		}
		payload, err := s.LoadByDate(ctx, date)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, tip := range payload.Tips {
			tips = append(tips, model.DatedTip{TipItem: tip, Date: date})
		}
	}
	return tips, nil
}

// Package query answers filtered, paginated views across all dated payloads
// and computes aggregate win-rate statistics. Callers never deal in dates
// directly; the engine flattens payloads into dated tips.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/bettingtipsai/tips-cli/internal/model"
	"github.com/bettingtipsai/tips-cli/internal/store"
)

const (
	// DefaultLimit applies when a caller passes limit <= 0.
	DefaultLimit = 20
	// MaxPublicLimit is the page-size ceiling for public-facing queries.
	MaxPublicLimit = 100
	// MaxExportLimit is the ceiling for trusted bulk-export callers.
	MaxExportLimit = 10000
)

// Result is one page of a filtered view. Total reflects the full filtered
// set, not the page.
type Result struct {
	Tips    []model.DatedTip `json:"tips"`
	Total   int              `json:"total"`
	HasMore bool             `json:"hasMore"`
}

// Engine evaluates filters over the repository.
type Engine struct {
	store store.Store
}

// New creates an Engine over the given store.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// Query returns the page-th page (1-indexed) of the filtered, sorted view.
// limit is clamped to [1, MaxPublicLimit]; page is clamped to >= 1.
func (e *Engine) Query(ctx context.Context, filters model.TipFilters, page, limit int) (*Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxPublicLimit {
		limit = MaxPublicLimit
	}
	return e.query(ctx, filters, page, limit)
}

// All returns the full filtered, sorted set, capped at MaxExportLimit.
// Used by the export projection and the stats computation.
func (e *Engine) All(ctx context.Context, filters model.TipFilters) ([]model.DatedTip, error) {
	res, err := e.query(ctx, filters, 1, MaxExportLimit)
	if err != nil {
		return nil, err
	}
	return res.Tips, nil
}

func (e *Engine) query(ctx context.Context, filters model.TipFilters, page, limit int) (*Result, error) {
	if page < 1 {
		page = 1
	}

	all, err := store.ListDatedTips(ctx, e.store, filters.DateFrom, filters.DateTo)
	if err != nil {
		return nil, err
	}

	filtered := all[:0:0]
	for _, tip := range all {
		if matches(tip, filters) {
			filtered = append(filtered, tip)
		}
	}
	sortTips(filtered)

	total := len(filtered)
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &Result{
		Tips:    filtered[start:end],
		Total:   total,
		HasMore: page*limit < total,
	}, nil
}

// matches applies every set predicate; the date range was already pushed
// down to the store. The sport filter matches if ANY leg's sport contains
// the term, so a mixed-sport accumulator is reachable through each of its
// sports.
func matches(tip model.DatedTip, f model.TipFilters) bool {
	if f.Risk != "" && tip.Risk != f.Risk {
		return false
	}
	if f.Result != "" && tip.Result != f.Result {
		return false
	}
	if f.BetType != "" && tip.BetType != f.BetType {
		return false
	}
	if f.MinLegs > 0 && len(tip.Legs) < f.MinLegs {
		return false
	}
	if f.Sport != "" {
		term := strings.ToLower(f.Sport)
		found := false
		for _, leg := range tip.Legs {
			if strings.Contains(strings.ToLower(leg.Sport), term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortTips applies the fixed product ordering: date descending, then risk
// safe < medium < high, then tip ID ascending as the deterministic tiebreak.
func sortTips(tips []model.DatedTip) {
	sort.SliceStable(tips, func(i, j int) bool {
		if tips[i].Date != tips[j].Date {
			return tips[i].Date > tips[j].Date
		}
		if tips[i].Risk.Order() != tips[j].Risk.Order() {
			return tips[i].Risk.Order() < tips[j].Risk.Order()
		}
		return tips[i].ID < tips[j].ID
	})
}

// Stats computes aggregate statistics over the filtered set. An empty set
// yields zero rates, never NaN.
func (e *Engine) Stats(ctx context.Context, filters model.TipFilters) (*model.TipStats, error) {
	tips, err := e.All(ctx, filters)
	if err != nil {
		return nil, err
	}

	stats := &model.TipStats{
		TotalTips:   len(tips),
		WinsByRisk:  map[model.Risk]int{model.RiskSafe: 0, model.RiskMedium: 0, model.RiskHigh: 0},
		TotalByRisk: map[model.Risk]int{model.RiskSafe: 0, model.RiskMedium: 0, model.RiskHigh: 0},
		BetsByType:  map[model.BetType]int{model.BetTypeSingle: 0, model.BetTypeAccumulator: 0},
	}

	wins := 0
	type sportAgg struct {
		count int
		wins  int
	}
	sportStats := map[string]*sportAgg{}
	var sportOrder []string

	for _, tip := range tips {
		stats.TotalByRisk[tip.Risk]++
		stats.BetsByType[tip.BetType]++
		won := tip.Result == model.ResultWin
		if won {
			wins++
			stats.WinsByRisk[tip.Risk]++
		}
		// A multi-sport accumulator counts toward every sport it touches.
		for _, sport := range tip.Sports() {
			agg, ok := sportStats[sport]
			if !ok {
				agg = &sportAgg{}
				sportStats[sport] = agg
				sportOrder = append(sportOrder, sport)
			}
			agg.count++
			if won {
				agg.wins++
			}
		}
	}

	if stats.TotalTips > 0 {
		stats.WinRate = float64(wins) / float64(stats.TotalTips)
	}

	stats.Sports = make([]model.SportStat, 0, len(sportOrder))
	for _, sport := range sportOrder {
		agg := sportStats[sport]
		stats.Sports = append(stats.Sports, model.SportStat{
			Sport:   sport,
			Count:   agg.count,
			WinRate: float64(agg.wins) / float64(agg.count),
		})
	}
	sort.SliceStable(stats.Sports, func(i, j int) bool {
		if stats.Sports[i].Count != stats.Sports[j].Count {
			return stats.Sports[i].Count > stats.Sports[j].Count
		}
		return stats.Sports[i].Sport < stats.Sports[j].Sport
	})

	return stats, nil
}

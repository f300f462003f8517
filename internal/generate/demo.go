// Package generate builds demo tip payloads for seeding local and staging
// environments. Output passes the same validation gate as real payloads.
package generate

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

// demo bookmaker panel, mirroring the names used by real payloads.
var bookmakerNames = []string{"bet365", "Betfair", "Betano", "Pinnacle"}

// DemoPayload builds one demo payload for the given date: one tip per risk
// tier, the high tier as a two-leg accumulator. Tip IDs carry a short UUID
// suffix so re-seeding different dates never collides on the global ID space.
func DemoPayload(dateISO string, now time.Time) *model.DailyTipsPayload {
	safeLeg := demoLeg("Football", "Premier League", "Arsenal", "Chelsea", "Match Result", "Arsenal Win", 1.85)
	mediumLeg := demoLeg("Tennis", "ATP", "", "", "Match Winner", "Alcaraz Win", 2.40)
	accLegA := demoLeg("Football", "La Liga", "Real Madrid", "Barcelona", "Both Teams To Score", "Yes", 1.70)
	accLegB := demoLeg("Basketball", "NBA", "Lakers", "Celtics", "Total Points", "Over 215.5", 1.90)
	mediumLeg.Event.Name = "Alcaraz vs Sinner"

	combinedOdds := round2(accLegA.AvgOdds * accLegB.AvgOdds)

	return &model.DailyTipsPayload{
		Version:     model.PayloadVersion,
		DateISO:     dateISO,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		GeneratedBy: "demo-system",
		Tips: []model.TipItem{
			{
				ID:        demoID("safe"),
				BetType:   model.BetTypeSingle,
				Risk:      model.RiskSafe,
				Legs:      []model.Leg{safeLeg},
				Rationale: "Strong home form and a favorable head-to-head record.",
				Result:    model.ResultPending,
			},
			{
				ID:        demoID("medium"),
				BetType:   model.BetTypeSingle,
				Risk:      model.RiskMedium,
				Legs:      []model.Leg{mediumLeg},
				Rationale: "Better recent hard-court results despite the tight ranking gap.",
				Result:    model.ResultPending,
			},
			{
				ID:      demoID("high"),
				BetType: model.BetTypeAccumulator,
				Risk:    model.RiskHigh,
				Legs:    []model.Leg{accLegA, accLegB},
				Combined: &model.CombinedPrice{
					AvgOdds:    combinedOdds,
					Bookmakers: demoBookmakers(combinedOdds),
				},
				Rationale: "Both games project high scoring; combined price carries value.",
				Result:    model.ResultPending,
			},
		},
		SEO: &model.SEO{
			Title:       fmt.Sprintf("Daily Betting Tips for %s", dateISO),
			Description: "Three curated tips across risk tiers with multi-bookmaker prices.",
		},
	}
}

func demoLeg(sport, league, home, away, market, selection string, avgOdds float64) model.Leg {
	return model.Leg{
		Sport:      sport,
		League:     league,
		Event:      model.EventTeams{Home: home, Away: away},
		Market:     market,
		Selection:  selection,
		AvgOdds:    avgOdds,
		Bookmakers: demoBookmakers(avgOdds),
	}
}

// demoBookmakers spreads prices around the average in a fixed pattern so
// seeded data is stable across runs.
func demoBookmakers(avgOdds float64) []model.BookmakerPrice {
	offsets := []float64{0, -0.05, 0.05, -0.02}
	bms := make([]model.BookmakerPrice, len(bookmakerNames))
	for i, name := range bookmakerNames {
		odds := round2(avgOdds + offsets[i])
		if odds < 1.01 {
			odds = 1.01
		}
		bms[i] = model.BookmakerPrice{Name: name, Odds: odds}
	}
	return bms
}

func demoID(risk string) string {
	return fmt.Sprintf("tip-%s-%s", risk, uuid.NewString()[:8])
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

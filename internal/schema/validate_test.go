package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

func validLeg() model.Leg {
	return model.Leg{
		Sport:     "Football",
		League:    "Premier League",
		Event:     model.EventTeams{Home: "Arsenal", Away: "Chelsea"},
		Market:    "Match Result",
		Selection: "Arsenal Win",
		AvgOdds:   1.85,
		Bookmakers: []model.BookmakerPrice{
			{Name: "bet365", Odds: 1.85},
			{Name: "Betfair", Odds: 1.83},
		},
	}
}

func validSingle(id string) model.TipItem {
	return model.TipItem{
		ID:        id,
		BetType:   model.BetTypeSingle,
		Risk:      model.RiskSafe,
		Legs:      []model.Leg{validLeg()},
		Rationale: "Strong home form.",
		Result:    model.ResultPending,
	}
}

func validAccumulator(id string) model.TipItem {
	legA := validLeg()
	legB := validLeg()
	legB.Sport = "Basketball"
	return model.TipItem{
		ID:      id,
		BetType: model.BetTypeAccumulator,
		Risk:    model.RiskHigh,
		Legs:    []model.Leg{legA, legB},
		Combined: &model.CombinedPrice{
			AvgOdds:    3.42,
			Bookmakers: []model.BookmakerPrice{{Name: "bet365", Odds: 3.42}},
		},
		Rationale: "Both legs carry value.",
		Result:    model.ResultPending,
	}
}

func validPayload() *model.DailyTipsPayload {
	return &model.DailyTipsPayload{
		Version:     model.PayloadVersion,
		DateISO:     "2026-08-31",
		GeneratedAt: "2026-08-31T06:00:00Z",
		GeneratedBy: "test",
		Tips:        []model.TipItem{validSingle("tip-a"), validAccumulator("tip-b")},
	}
}

func TestValidatePayloadAccepts(t *testing.T) {
	t.Parallel()

	errs := ValidatePayload(validPayload())
	assert.Empty(t, errs)
}

func TestValidatePayloadEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*model.DailyTipsPayload)
		path   string
	}{
		{"wrong version", func(p *model.DailyTipsPayload) { p.Version = 1 }, "version"},
		{"malformed date", func(p *model.DailyTipsPayload) { p.DateISO = "31-08-2026" }, "dateISO"},
		{"impossible date", func(p *model.DailyTipsPayload) { p.DateISO = "2026-02-30" }, "dateISO"},
		{"bad generatedAt", func(p *model.DailyTipsPayload) { p.GeneratedAt = "yesterday" }, "generatedAt"},
		{"empty generatedBy", func(p *model.DailyTipsPayload) { p.GeneratedBy = "" }, "generatedBy"},
		{"no tips", func(p *model.DailyTipsPayload) { p.Tips = nil }, "tips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validPayload()
			tt.mutate(p)
			errs := ValidatePayload(p)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.path, errs[0].Path)
		})
	}
}

func TestValidatePayloadDuplicateIDs(t *testing.T) {
	t.Parallel()

	p := validPayload()
	p.Tips = append(p.Tips, validSingle("tip-a"))
	errs := ValidatePayload(p)
	require.Len(t, errs, 1)
	assert.Equal(t, "tips[2].id", errs[0].Path)
	assert.Contains(t, errs[0].Message, "tip-a")
}

func TestValidatePayloadReportsAllViolations(t *testing.T) {
	t.Parallel()

	p := validPayload()
	p.Version = 3
	p.Tips[0].Rationale = ""
	p.Tips[1].Legs[0].AvgOdds = 0.5
	errs := ValidatePayload(p)
	assert.Len(t, errs, 3)
}

func TestValidateTipItemStructural(t *testing.T) {
	t.Parallel()

	t.Run("single with two legs", func(t *testing.T) {
		t.Parallel()
		tip := validSingle("tip-x")
		tip.Legs = append(tip.Legs, validLeg())
		errs := ValidateTipItem(&tip, "tips[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "single")
	})

	t.Run("single with combined price", func(t *testing.T) {
		t.Parallel()
		tip := validSingle("tip-x")
		tip.Combined = &model.CombinedPrice{AvgOdds: 2.0, Bookmakers: []model.BookmakerPrice{{Name: "bet365", Odds: 2.0}}}
		errs := ValidateTipItem(&tip, "tips[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "single")
	})

	t.Run("accumulator with one leg", func(t *testing.T) {
		t.Parallel()
		tip := validAccumulator("tip-x")
		tip.Legs = tip.Legs[:1]
		errs := ValidateTipItem(&tip, "tips[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "accumulator")
	})

	t.Run("accumulator without combined price", func(t *testing.T) {
		t.Parallel()
		tip := validAccumulator("tip-x")
		tip.Combined = nil
		errs := ValidateTipItem(&tip, "tips[0]")
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Message, "accumulator")
	})
}

func TestValidateTipItemFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*model.TipItem)
		path   string
	}{
		{"empty id", func(t *model.TipItem) { t.ID = "" }, "tips[0].id"},
		{"uppercase id", func(t *model.TipItem) { t.ID = "Tip-A" }, "tips[0].id"},
		{"id with spaces", func(t *model.TipItem) { t.ID = "tip a" }, "tips[0].id"},
		{"unknown risk", func(t *model.TipItem) { t.Risk = "wild" }, "tips[0].risk"},
		{"unknown result", func(t *model.TipItem) { t.Result = "maybe" }, "tips[0].result"},
		{"empty rationale", func(t *model.TipItem) { t.Rationale = "" }, "tips[0].rationale"},
		{"oversized rationale", func(t *model.TipItem) { t.Rationale = strings.Repeat("x", maxRationale+1) }, "tips[0].rationale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tip := validSingle("tip-a")
			tt.mutate(&tip)
			errs := ValidateTipItem(&tip, "tips[0]")
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.path, errs[0].Path)
		})
	}
}

func TestValidateTipItemDefaultsResult(t *testing.T) {
	t.Parallel()

	tip := validSingle("tip-a")
	tip.Result = ""
	errs := ValidateTipItem(&tip, "tips[0]")
	assert.Empty(t, errs)
	assert.Equal(t, model.ResultPending, tip.Result)
}

func TestValidateLegOddsBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		odds  float64
		valid bool
	}{
		{1.01, true},
		{1000, true},
		{1.0, false},
		{1000.01, false},
		{0, false},
		{-2, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("odds %v", tt.odds), func(t *testing.T) {
			t.Parallel()
			leg := validLeg()
			leg.AvgOdds = tt.odds
			for i := range leg.Bookmakers {
				leg.Bookmakers[i].Odds = 1.85
			}
			errs := ValidateLeg(&leg, "legs[0]")
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				require.NotEmpty(t, errs)
				assert.Equal(t, "legs[0].avgOdds", errs[0].Path)
			}
		})
	}
}

func TestValidateLegBookmakers(t *testing.T) {
	t.Parallel()

	t.Run("none", func(t *testing.T) {
		t.Parallel()
		leg := validLeg()
		leg.Bookmakers = nil
		errs := ValidateLeg(&leg, "legs[0]")
		require.NotEmpty(t, errs)
		assert.Equal(t, "legs[0].bookmakers", errs[0].Path)
	})

	t.Run("too many", func(t *testing.T) {
		t.Parallel()
		leg := validLeg()
		for len(leg.Bookmakers) <= maxBookies {
			leg.Bookmakers = append(leg.Bookmakers, model.BookmakerPrice{Name: "x", Odds: 2.0})
		}
		errs := ValidateLeg(&leg, "legs[0]")
		require.NotEmpty(t, errs)
		assert.Equal(t, "legs[0].bookmakers", errs[0].Path)
	})

	t.Run("unnamed bookmaker", func(t *testing.T) {
		t.Parallel()
		leg := validLeg()
		leg.Bookmakers[1].Name = ""
		errs := ValidateLeg(&leg, "legs[0]")
		require.NotEmpty(t, errs)
		assert.Equal(t, "legs[0].bookmakers[1].name", errs[0].Path)
	})
}

func TestValidateLegEvent(t *testing.T) {
	t.Parallel()

	leg := validLeg()
	leg.Event = model.EventTeams{}
	errs := ValidateLeg(&leg, "legs[0]")
	require.NotEmpty(t, errs)
	assert.Equal(t, "legs[0].event", errs[0].Path)

	leg.Event = model.EventTeams{Name: "Alcaraz vs Sinner"}
	assert.Empty(t, ValidateLeg(&leg, "legs[0]"))
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(validPayload())
		require.NoError(t, err)
		p, err := ParsePayload(data)
		require.NoError(t, err)
		assert.Equal(t, "2026-08-31", p.DateISO)
		assert.Len(t, p.Tips, 2)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := ParsePayload([]byte("{not json"))
		ves, ok := AsValidationErrors(err)
		require.True(t, ok)
		require.Len(t, ves, 1)
		assert.Contains(t, ves[0].Message, "invalid JSON")
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		p := validPayload()
		p.Version = 1
		data, err := json.Marshal(p)
		require.NoError(t, err)
		_, err = ParsePayload(data)
		_, ok := AsValidationErrors(err)
		assert.True(t, ok)
	})
}

func TestValidateResult(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateResult(model.ResultWin))
	assert.NoError(t, ValidateResult(model.ResultPending))
	assert.Error(t, ValidateResult(model.Result("maybe")))
	assert.Error(t, ValidateResult(model.Result("")))
}

func TestValidateFilters(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ValidateFilters(model.TipFilters{}))
	assert.Empty(t, ValidateFilters(model.TipFilters{
		Sport: "foot", Risk: model.RiskSafe, Result: model.ResultWin,
		BetType: model.BetTypeSingle, MinLegs: 2,
		DateFrom: "2026-01-01", DateTo: "2026-01-31",
	}))

	tests := []struct {
		name    string
		filters model.TipFilters
		path    string
	}{
		{"bad risk", model.TipFilters{Risk: "wild"}, "risk"},
		{"bad result", model.TipFilters{Result: "maybe"}, "result"},
		{"bad betType", model.TipFilters{BetType: "parlay"}, "betType"},
		{"bad dateFrom", model.TipFilters{DateFrom: "01-01-2026"}, "dateFrom"},
		{"bad dateTo", model.TipFilters{DateTo: "soon"}, "dateTo"},
		{"inverted range", model.TipFilters{DateFrom: "2026-02-01", DateTo: "2026-01-01"}, "dateFrom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			errs := ValidateFilters(tt.filters)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.path, errs[0].Path)
		})
	}
}

func TestValidateDateISO(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateDateISO("2026-08-31"))
	assert.Error(t, ValidateDateISO("2026-13-01"))
	assert.Error(t, ValidateDateISO("2026-8-31"))
	assert.Error(t, ValidateDateISO(""))
}

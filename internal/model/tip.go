package model

// PayloadVersion is the supported leg-based payload structure. Version 1 was
// a flat single-selection format and is only accepted by the v1 migration
// command, never by the validator.
const PayloadVersion = 2

// Risk is the coarse confidence tier assigned to a tip at creation.
type Risk string

const (
	RiskSafe   Risk = "safe"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Risks lists all tiers in display order (cheapest risk first).
var Risks = []Risk{RiskSafe, RiskMedium, RiskHigh}

// Order returns the sort rank of a risk tier: safe < medium < high.
// Unknown tiers sort last.
func (r Risk) Order() int {
	switch r {
	case RiskSafe:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	}
	return 3
}

// Valid reports whether r is one of the three known tiers.
func (r Risk) Valid() bool {
	return r == RiskSafe || r == RiskMedium || r == RiskHigh
}

// Result is the realized outcome of a tip, or pending before settlement.
type Result string

const (
	ResultPending Result = "pending"
	ResultWin     Result = "win"
	ResultLoss    Result = "loss"
	ResultVoid    Result = "void"
)

// Valid reports whether res is one of the four known outcomes.
func (res Result) Valid() bool {
	switch res {
	case ResultPending, ResultWin, ResultLoss, ResultVoid:
		return true
	}
	return false
}

// BetType distinguishes a single-selection bet from a multi-leg accumulator.
type BetType string

const (
	BetTypeSingle      BetType = "single"
	BetTypeAccumulator BetType = "accumulator"
)

// Valid reports whether bt is a known bet type.
func (bt BetType) Valid() bool {
	return bt == BetTypeSingle || bt == BetTypeAccumulator
}

// EventTeams identifies the event a leg is priced on. At least one of
// Home, Away, or Name must be populated.
type EventTeams struct {
	Home        string `json:"home,omitempty"`
	Away        string `json:"away,omitempty"`
	Name        string `json:"name,omitempty"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// DisplayName returns the event name, falling back to "home vs away".
func (e EventTeams) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Home != "" && e.Away != "" {
		return e.Home + " vs " + e.Away
	}
	if e.Home != "" {
		return e.Home
	}
	return e.Away
}

// BookmakerPrice is one bookmaker's decimal odds for a selection.
type BookmakerPrice struct {
	Name string  `json:"name"`
	Odds float64 `json:"odds"`
	URL  string  `json:"url,omitempty"`
}

// Leg is one selection within a bet.
type Leg struct {
	LegID      string           `json:"legId,omitempty"`
	Sport      string           `json:"sport"`
	League     string           `json:"league,omitempty"`
	Event      EventTeams       `json:"event"`
	Market     string           `json:"market"`
	Selection  string           `json:"selection"`
	AvgOdds    float64          `json:"avgOdds"`
	Bookmakers []BookmakerPrice `json:"bookmakers"`
}

// CombinedPrice is the accumulator-as-a-whole price. By convention its
// AvgOdds is the product of the leg odds, but that is advisory and never
// recomputed or cross-checked.
type CombinedPrice struct {
	AvgOdds    float64          `json:"avgOdds"`
	Bookmakers []BookmakerPrice `json:"bookmakers"`
}

// TipItem is one published betting recommendation. IDs are kebab-case and
// unique across the whole system; result is the only field mutated after
// creation.
type TipItem struct {
	ID        string         `json:"id"`
	BetType   BetType        `json:"betType"`
	Risk      Risk           `json:"risk"`
	Legs      []Leg          `json:"legs"`
	Combined  *CombinedPrice `json:"combined,omitempty"`
	Rationale string         `json:"rationale"`
	Result    Result         `json:"result,omitempty"`
}

// Sports returns the distinct sports touched by the tip's legs, in first
// occurrence order.
func (t TipItem) Sports() []string {
	seen := make(map[string]bool, len(t.Legs))
	var sports []string
	for _, leg := range t.Legs {
		if !seen[leg.Sport] {
			seen[leg.Sport] = true
			sports = append(sports, leg.Sport)
		}
	}
	return sports
}

// SEO is presentation metadata for the page displaying a payload. Carried
// through storage untouched; never a core invariant.
type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DailyTipsPayload is the unit of publication for one calendar date.
type DailyTipsPayload struct {
	Version     int       `json:"version"`
	DateISO     string    `json:"dateISO"`
	GeneratedAt string    `json:"generatedAt"`
	GeneratedBy string    `json:"generatedBy"`
	Tips        []TipItem `json:"tips"`
	SEO         *SEO      `json:"seo,omitempty"`
}

// DatedTip is a tip joined with its owning date, the shape the query engine
// and export projection work over.
type DatedTip struct {
	TipItem
	Date string `json:"date"`
}

// TipFilters are the predicates the query engine ANDs together. Zero values
// mean "no constraint".
type TipFilters struct {
	Sport    string  `json:"sport,omitempty"`
	Risk     Risk    `json:"risk,omitempty"`
	Result   Result  `json:"result,omitempty"`
	BetType  BetType `json:"betType,omitempty"`
	MinLegs  int     `json:"minLegs,omitempty"`
	DateFrom string  `json:"dateFrom,omitempty"`
	DateTo   string  `json:"dateTo,omitempty"`
}

// SportStat is one sport's slice of the aggregate statistics.
type SportStat struct {
	Sport   string  `json:"sport"`
	Count   int     `json:"count"`
	WinRate float64 `json:"winRate"`
}

// TipStats are the aggregate statistics over a filtered set of tips.
type TipStats struct {
	TotalTips   int             `json:"totalTips"`
	WinRate     float64         `json:"winRate"`
	WinsByRisk  map[Risk]int    `json:"winsByRisk"`
	TotalByRisk map[Risk]int    `json:"totalByRisk"`
	BetsByType  map[BetType]int `json:"betsByType"`
	Sports      []SportStat     `json:"sports"`
}

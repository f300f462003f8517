// Package export flattens the nested tip/leg/bookmaker structure into
// row-oriented records for tabular consumption. One row per leg, plus one
// summary row per accumulator carrying the combined price.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

// Row is one flattened record. Pointer fields are empty cells when nil:
// leg fields on an accumulator's summary row, combined fields on leg rows
// of singles.
type Row struct {
	DateISO                string   `json:"dateISO"`
	TipID                  string   `json:"tipId"`
	BetType                string   `json:"betType"`
	Risk                   string   `json:"risk"`
	LegIndex               *int     `json:"legIndex"`
	Sport                  *string  `json:"sport"`
	League                 *string  `json:"league"`
	EventName              *string  `json:"eventName"`
	Market                 *string  `json:"market"`
	Selection              *string  `json:"selection"`
	LegAvgOdds             *float64 `json:"legAvgOdds"`
	LegBookmakersJSON      *string  `json:"legBookmakersJSON"`
	CombinedAvgOdds        *float64 `json:"combinedAvgOdds"`
	CombinedBookmakersJSON *string  `json:"combinedBookmakersJSON"`
	Result                 string   `json:"result"`
}

// Header is the fixed CSV column order.
func Header() []string {
	return []string{
		"dateISO", "tipId", "betType", "risk", "legIndex",
		"sport", "league", "eventName", "market", "selection",
		"legAvgOdds", "legBookmakersJSON", "combinedAvgOdds",
		"combinedBookmakersJSON", "result",
	}
}

// Rows projects tips into flattened records. Input order is preserved, so
// rows come out in the query engine's sort order.
func Rows(tips []model.DatedTip) ([]Row, error) {
	var rows []Row
	for _, tip := range tips {
		for i, leg := range tip.Legs {
			legBookmakers, err := json.Marshal(leg.Bookmakers)
			if err != nil {
				return nil, eris.Wrapf(err, "export: marshal bookmakers for tip %s leg %d", tip.ID, i)
			}
			row := Row{
				DateISO:           tip.Date,
				TipID:             tip.ID,
				BetType:           string(tip.BetType),
				Risk:              string(tip.Risk),
				LegIndex:          ptr(i),
				Sport:             ptr(leg.Sport),
				LegAvgOdds:        ptr(leg.AvgOdds),
				Market:            ptr(leg.Market),
				Selection:         ptr(leg.Selection),
				LegBookmakersJSON: ptr(string(legBookmakers)),
				Result:            string(tip.Result),
			}
			if leg.League != "" {
				row.League = ptr(leg.League)
			}
			if name := leg.Event.DisplayName(); name != "" {
				row.EventName = ptr(name)
			}
			if tip.Combined != nil {
				row.CombinedAvgOdds = ptr(tip.Combined.AvgOdds)
			}
			rows = append(rows, row)
		}

		// Accumulators get one summary row with leg fields empty and the
		// combined price populated.
		if tip.BetType == model.BetTypeAccumulator && tip.Combined != nil {
			combinedBookmakers, err := json.Marshal(tip.Combined.Bookmakers)
			if err != nil {
				return nil, eris.Wrapf(err, "export: marshal combined bookmakers for tip %s", tip.ID)
			}
			rows = append(rows, Row{
				DateISO:                tip.Date,
				TipID:                  tip.ID,
				BetType:                string(tip.BetType),
				Risk:                   string(tip.Risk),
				CombinedAvgOdds:        ptr(tip.Combined.AvgOdds),
				CombinedBookmakersJSON: ptr(string(combinedBookmakers)),
				Result:                 string(tip.Result),
			})
		}
	}
	return rows, nil
}

// WriteCSV writes the header and rows. encoding/csv applies the standard
// quoting rule for embedded delimiters and quotes.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return eris.Wrapf(err, "export: write row for tip %s", row.TipID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

func record(r Row) []string {
	return []string{
		r.DateISO,
		r.TipID,
		r.BetType,
		r.Risk,
		intCell(r.LegIndex),
		strCell(r.Sport),
		strCell(r.League),
		strCell(r.EventName),
		strCell(r.Market),
		strCell(r.Selection),
		floatCell(r.LegAvgOdds),
		strCell(r.LegBookmakersJSON),
		floatCell(r.CombinedAvgOdds),
		strCell(r.CombinedBookmakersJSON),
		r.Result,
	}
}

func strCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func floatCell(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

func ptr[T any](v T) *T {
	return &v
}

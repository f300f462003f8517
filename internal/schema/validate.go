// Package schema is the validation gate between untrusted payload input
// (LLM output, admin uploads, seed files) and typed domain values. Nothing
// becomes a model.DailyTipsPayload anywhere in the system without passing
// through it.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bettingtipsai/tips-cli/internal/model"
)

const (
	minOdds      = 1.01
	maxOdds      = 1000
	maxRationale = 1000
	minBookies   = 1
	maxBookies   = 6
)

var (
	tipIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidationError is one caller-correctable violation, localized by a
// structured path such as "tips[0].legs[1].avgOdds".
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors is the union of all violations found in one pass.
// A nil or empty slice means the input is valid.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(es), strings.Join(msgs, "; "))
}

// AsValidationErrors unwraps err to a ValidationErrors list if it is one.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ves ValidationErrors
	if errors.As(err, &ves) {
		return ves, true
	}
	return nil, false
}

// ParsePayload decodes untrusted JSON and validates it. On success the
// returned payload has result default-filled; on failure the error is a
// ValidationErrors (decode failures get a single root-level entry).
func ParsePayload(data []byte) (*model.DailyTipsPayload, error) {
	var p model.DailyTipsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ValidationErrors{{Path: "", Message: "invalid JSON: " + err.Error()}}
	}
	if errs := ValidatePayload(&p); len(errs) > 0 {
		return nil, errs
	}
	return &p, nil
}

// ValidatePayload checks a decoded payload against the v2 contract and
// reports every violation. Its only side effect is defaulting each tip's
// empty result to pending.
func ValidatePayload(p *model.DailyTipsPayload) ValidationErrors {
	var errs ValidationErrors

	if p.Version != model.PayloadVersion {
		errs = append(errs, ValidationError{
			Path:    "version",
			Message: fmt.Sprintf("must be %d, got %d", model.PayloadVersion, p.Version),
		})
	}
	errs = append(errs, validateDateISO("dateISO", p.DateISO)...)
	if _, err := time.Parse(time.RFC3339, p.GeneratedAt); err != nil {
		errs = append(errs, ValidationError{Path: "generatedAt", Message: "must be an RFC 3339 timestamp"})
	}
	if p.GeneratedBy == "" {
		errs = append(errs, ValidationError{Path: "generatedBy", Message: "must not be empty"})
	}
	if len(p.Tips) == 0 {
		errs = append(errs, ValidationError{Path: "tips", Message: "must contain at least 1 tip"})
	}

	seen := make(map[string]bool, len(p.Tips))
	for i := range p.Tips {
		tip := &p.Tips[i]
		path := fmt.Sprintf("tips[%d]", i)
		if tip.ID != "" && seen[tip.ID] {
			errs = append(errs, ValidationError{
				Path:    path + ".id",
				Message: fmt.Sprintf("duplicate tip id %q", tip.ID),
			})
		}
		seen[tip.ID] = true
		errs = append(errs, ValidateTipItem(tip, path)...)
	}

	return errs
}

// ValidateTipItem checks one tip rooted at path, default-filling an empty
// result to pending.
func ValidateTipItem(t *model.TipItem, path string) ValidationErrors {
	var errs ValidationErrors

	if !tipIDPattern.MatchString(t.ID) {
		errs = append(errs, ValidationError{Path: path + ".id", Message: "must be a non-empty kebab-case token ([a-z0-9-]+)"})
	}
	if !t.Risk.Valid() {
		errs = append(errs, ValidationError{Path: path + ".risk", Message: "must be one of safe, medium, high"})
	}
	if !t.BetType.Valid() {
		errs = append(errs, ValidationError{Path: path + ".betType", Message: "must be single or accumulator"})
	}

	// One error per structural violation, naming the failing side.
	switch t.BetType {
	case model.BetTypeSingle:
		if len(t.Legs) != 1 || t.Combined != nil {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "single bets must have exactly 1 leg and no combined price",
			})
		}
	case model.BetTypeAccumulator:
		if len(t.Legs) < 2 || t.Combined == nil {
			errs = append(errs, ValidationError{
				Path:    path,
				Message: "accumulators must have at least 2 legs and a combined price",
			})
		}
	}

	if t.Rationale == "" {
		errs = append(errs, ValidationError{Path: path + ".rationale", Message: "must not be empty"})
	} else if len(t.Rationale) > maxRationale {
		errs = append(errs, ValidationError{
			Path:    path + ".rationale",
			Message: fmt.Sprintf("must be at most %d characters", maxRationale),
		})
	}

	if t.Result == "" {
		t.Result = model.ResultPending
	} else if !t.Result.Valid() {
		errs = append(errs, ValidationError{Path: path + ".result", Message: "must be one of pending, win, loss, void"})
	}

	for i := range t.Legs {
		errs = append(errs, ValidateLeg(&t.Legs[i], fmt.Sprintf("%s.legs[%d]", path, i))...)
	}
	if t.Combined != nil {
		errs = append(errs, validateOdds(path+".combined.avgOdds", t.Combined.AvgOdds)...)
		errs = append(errs, validateBookmakers(path+".combined.bookmakers", t.Combined.Bookmakers)...)
	}

	return errs
}

// ValidateLeg checks one leg rooted at path.
func ValidateLeg(l *model.Leg, path string) ValidationErrors {
	var errs ValidationErrors

	if l.Sport == "" {
		errs = append(errs, ValidationError{Path: path + ".sport", Message: "must not be empty"})
	}
	if l.Market == "" {
		errs = append(errs, ValidationError{Path: path + ".market", Message: "must not be empty"})
	}
	if l.Selection == "" {
		errs = append(errs, ValidationError{Path: path + ".selection", Message: "must not be empty"})
	}
	if l.Event.Home == "" && l.Event.Away == "" && l.Event.Name == "" {
		errs = append(errs, ValidationError{
			Path:    path + ".event",
			Message: "at least one of home, away, or name must be provided",
		})
	}
	errs = append(errs, validateOdds(path+".avgOdds", l.AvgOdds)...)
	errs = append(errs, validateBookmakers(path+".bookmakers", l.Bookmakers)...)

	return errs
}

// ValidateResult rejects any result outside the four-symbol enum. Used by
// the standalone result-update path, which skips full payload validation.
func ValidateResult(res model.Result) error {
	if !res.Valid() {
		return ValidationErrors{{Path: "result", Message: "must be one of pending, win, loss, void"}}
	}
	return nil
}

// ValidateFilters checks query filter values before they reach the engine.
func ValidateFilters(f model.TipFilters) ValidationErrors {
	var errs ValidationErrors

	if f.Risk != "" && !f.Risk.Valid() {
		errs = append(errs, ValidationError{Path: "risk", Message: "must be one of safe, medium, high"})
	}
	if f.Result != "" && !f.Result.Valid() {
		errs = append(errs, ValidationError{Path: "result", Message: "must be one of pending, win, loss, void"})
	}
	if f.BetType != "" && !f.BetType.Valid() {
		errs = append(errs, ValidationError{Path: "betType", Message: "must be single or accumulator"})
	}
	if f.MinLegs < 0 {
		errs = append(errs, ValidationError{Path: "minLegs", Message: "must be at least 1"})
	}
	if f.DateFrom != "" {
		errs = append(errs, validateDateISO("dateFrom", f.DateFrom)...)
	}
	if f.DateTo != "" {
		errs = append(errs, validateDateISO("dateTo", f.DateTo)...)
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateFrom > f.DateTo {
		errs = append(errs, ValidationError{Path: "dateFrom", Message: "must be before or equal to dateTo"})
	}

	return errs
}

// ValidateDateISO checks a standalone YYYY-MM-DD date string, as used by the
// by-date lookup path.
func ValidateDateISO(date string) error {
	if errs := validateDateISO("date", date); len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDateISO(path, date string) ValidationErrors {
	if !datePattern.MatchString(date) {
		return ValidationErrors{{Path: path, Message: "must match YYYY-MM-DD"}}
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil || parsed.Format("2006-01-02") != date {
		return ValidationErrors{{Path: path, Message: "must be a real calendar date"}}
	}
	return nil
}

func validateOdds(path string, odds float64) ValidationErrors {
	if odds < minOdds || odds > maxOdds {
		return ValidationErrors{{
			Path:    path,
			Message: fmt.Sprintf("must be between %.2f and %d", minOdds, maxOdds),
		}}
	}
	return nil
}

func validateBookmakers(path string, bms []model.BookmakerPrice) ValidationErrors {
	var errs ValidationErrors

	if len(bms) < minBookies || len(bms) > maxBookies {
		errs = append(errs, ValidationError{
			Path:    path,
			Message: fmt.Sprintf("must contain between %d and %d entries", minBookies, maxBookies),
		})
	}
	for i, bm := range bms {
		if bm.Name == "" {
			errs = append(errs, ValidationError{Path: fmt.Sprintf("%s[%d].name", path, i), Message: "must not be empty"})
		}
		errs = append(errs, validateOdds(fmt.Sprintf("%s[%d].odds", path, i), bm.Odds)...)
	}

	return errs
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
)

// DateLayout is the calendar date format accepted for date answers.
const DateLayout = "2006-01-02"

// Decimal answers keep at most 12 digits, 2 of them after the point.
var maxDecimalAnswer = decimal.New(1, 10)

// RawAnswer is a submitted value before validation. Scalar questions read the
// first entry of Values; choice questions list option codes (or ids) and
// location questions list location codes.
type RawAnswer struct {
	Values    []string `json:"values,omitempty"`
	OtherText string   `json:"other_text,omitempty"`
}

func (r RawAnswer) first() string {
	for _, v := range r.Values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (r RawAnswer) selections() []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range r.Values {
		s := strings.TrimSpace(v)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// LocationLookup resolves location codes for location-pick answers.
type LocationLookup interface {
	FindLocations(ctx context.Context, kind models.LocationKind, codes []string) ([]models.Location, error)
}

// Validator normalizes raw values into typed answers, dispatching on the question type.
type Validator struct {
	locations LocationLookup
}

func NewValidator(locations LocationLookup) *Validator {
	return &Validator{locations: locations}
}

func fieldErr(kind FieldErrorKind, format string, args ...any) *FieldError {
	return &FieldError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validate checks one question. It returns (nil, nil) when the question is
// inactive or optional and left blank. User-input failures are *FieldError;
// any other error comes from the location catalog.
func (v *Validator) Validate(ctx context.Context, q *models.Question, active bool, raw RawAnswer) (*models.Answer, error) {
	if !active {
		return nil, nil
	}
	ans := &models.Answer{QuestionID: q.ID, QuestionCode: q.Code}
	switch q.Type {
	case models.QuestionText:
		if strings.TrimSpace(raw.first()) == "" {
			return v.blank(q)
		}
		ans.Text = raw.first()
	case models.QuestionInteger:
		s := raw.first()
		if s == "" {
			return v.blank(q)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fieldErr(InvalidValue, "%q is not an integer", s)
		}
		if fe := checkRange(q, decimal.NewFromInt(n)); fe != nil {
			return nil, fe
		}
		ans.Integer = &n
	case models.QuestionDecimal:
		s := raw.first()
		if s == "" {
			return v.blank(q)
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fieldErr(InvalidValue, "%q is not a decimal number", s)
		}
		if !d.Equal(d.Round(2)) || d.Abs().GreaterThanOrEqual(maxDecimalAnswer) {
			return nil, fieldErr(InvalidValue, "%q exceeds 12 digits with 2 decimal places", s)
		}
		if fe := checkRange(q, d); fe != nil {
			return nil, fe
		}
		ans.Decimal = &d
	case models.QuestionBool:
		s := strings.ToLower(raw.first())
		switch s {
		case "":
			return v.blank(q)
		case "true", "false":
			b := s == "true"
			ans.Bool = &b
		default:
			return nil, fieldErr(InvalidValue, "%q is not true or false", s)
		}
	case models.QuestionDate:
		s := raw.first()
		if s == "" {
			return v.blank(q)
		}
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fieldErr(InvalidValue, "%q is not a date (YYYY-MM-DD)", s)
		}
		ans.Date = &d
	case models.QuestionSingle, models.QuestionLikert, models.QuestionMulti:
		return v.validateChoice(q, raw, ans)
	case models.QuestionLocation:
		return v.validateLocation(ctx, q, raw, ans)
	default:
		return nil, fieldErr(InvalidValue, "unsupported question type %q", q.Type)
	}
	return ans, nil
}

func (v *Validator) blank(q *models.Question) (*models.Answer, error) {
	if q.Required {
		return nil, fieldErr(RequiredFieldMissing, "%s is required", q.Code)
	}
	return nil, nil
}

func checkRange(q *models.Question, d decimal.Decimal) *FieldError {
	if q.MinValue != nil && d.LessThan(*q.MinValue) {
		return fieldErr(InvalidValue, "must be at least %s", q.MinValue.String())
	}
	if q.MaxValue != nil && d.GreaterThan(*q.MaxValue) {
		return fieldErr(InvalidValue, "must be at most %s", q.MaxValue.String())
	}
	return nil
}

func (v *Validator) validateChoice(q *models.Question, raw RawAnswer, ans *models.Answer) (*models.Answer, error) {
	picked := raw.selections()
	if len(picked) == 0 {
		return v.blank(q)
	}
	// counted by option id so a code and an id naming the same option are one pick
	selected := map[string]bool{}
	for _, ref := range picked {
		opt := q.OptionByCode(ref)
		if opt == nil {
			opt = q.OptionByID(ref)
		}
		if opt == nil {
			return nil, fieldErr(InvalidValue, "unknown option %q", ref)
		}
		if q.Type == models.QuestionLikert && opt.Weight == nil {
			return nil, fieldErr(MissingScaleWeight, "option %q has no weight", opt.Code)
		}
		selected[opt.ID] = true
	}
	if q.Type != models.QuestionMulti && len(selected) > 1 {
		return nil, fieldErr(TooManySelections, "only one option allowed")
	}
	if q.Type == models.QuestionMulti && q.MaxChoices > 0 && len(selected) > q.MaxChoices {
		return nil, fieldErr(TooManySelections, "at most %d options allowed", q.MaxChoices)
	}
	// keep schema order so the stored set is deterministic
	for _, opt := range q.Options {
		if selected[opt.ID] {
			ans.OptionIDs = append(ans.OptionIDs, opt.ID)
		}
	}
	if other := q.OtherOption(); other != nil && selected[other.ID] {
		text := strings.TrimSpace(raw.OtherText)
		if text == "" && q.Required {
			return nil, fieldErr(RequiredFieldMissing, "describe the %q option", other.Code)
		}
		ans.Text = text
	}
	return ans, nil
}

func (v *Validator) validateLocation(ctx context.Context, q *models.Question, raw RawAnswer, ans *models.Answer) (*models.Answer, error) {
	picked := raw.selections()
	if len(picked) == 0 {
		return v.blank(q)
	}
	if q.MaxChoices > 0 && len(picked) > q.MaxChoices {
		return nil, fieldErr(TooManySelections, "at most %d locations allowed", q.MaxChoices)
	}
	if v.locations == nil {
		return nil, errors.New("location catalog not configured")
	}
	found, err := v.locations.FindLocations(ctx, q.LocationKind, picked)
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	byCode := map[string]models.Location{}
	for _, loc := range found {
		byCode[loc.Code] = loc
	}
	for _, code := range picked {
		loc, ok := byCode[code]
		if !ok {
			return nil, fieldErr(InvalidValue, "unknown location %q", code)
		}
		ans.LocationIDs = append(ans.LocationIDs, loc.ID)
	}
	return ans, nil
}

// ValidateSection validates every question of sec in order. answers is the
// context from earlier steps and is not modified; answers accepted in this
// section become visible to later questions of the same section.
func (v *Validator) ValidateSection(ctx context.Context, sec *models.Section, answers AnswerSet, raws map[string]RawAnswer) (AnswerSet, FieldErrors, error) {
	scope := AnswerSet{}
	for id, a := range answers {
		scope[id] = a
	}
	accepted := AnswerSet{}
	errs := FieldErrors{}
	for _, q := range sec.Questions {
		ans, err := v.Validate(ctx, q, ResolveActive(q, scope), raws[q.Code])
		if err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				errs[q.Code] = fe
				continue
			}
			return nil, nil, err
		}
		if ans != nil {
			scope[q.ID] = ans
			accepted[q.ID] = ans
		}
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}
	return accepted, nil, nil
}

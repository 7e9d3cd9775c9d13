package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
)

// SchemaDocument is the JSON import format for surveys and their catalogs.
type SchemaDocument struct {
	Surveys      []SurveyDefinition   `json:"surveys"`
	Interviewers []models.Interviewer `json:"interviewers,omitempty"`
	Locations    []models.Location    `json:"locations,omitempty"`
}

type SurveyDefinition struct {
	Code         string              `json:"code"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Active       *bool               `json:"is_active,omitempty"`
	RequireToken bool                `json:"require_token,omitempty"`
	Tokens       []TokenDefinition   `json:"tokens,omitempty"`
	Sections     []SectionDefinition `json:"sections"`
}

type SectionDefinition struct {
	Title     string               `json:"title"`
	Order     int                  `json:"order"`
	Questions []QuestionDefinition `json:"questions"`
}

// QuestionDefinition references its parent by code. A code that repeats across
// sections can be qualified as "<section order>:<code>".
type QuestionDefinition struct {
	Code              string                `json:"code"`
	Text              string                `json:"text"`
	HelpText          string                `json:"help_text,omitempty"`
	Type              models.QuestionType   `json:"type"`
	Required          *bool                 `json:"required,omitempty"`
	Order             int                   `json:"order"`
	MaxChoices        int                   `json:"max_choices,omitempty"`
	MinValue          *decimal.Decimal      `json:"min_value,omitempty"`
	MaxValue          *decimal.Decimal      `json:"max_value,omitempty"`
	Display           models.DisplayVariant `json:"single_choice_display,omitempty"`
	LocationKind      models.LocationKind   `json:"location_kind,omitempty"`
	CopyFrom          string                `json:"copy_from,omitempty"`
	DependsOn         string                `json:"depends_on,omitempty"`
	DependsOnOption   string                `json:"depends_on_option,omitempty"`
	DependsOnValueMin *decimal.Decimal      `json:"depends_on_value_min,omitempty"`
	DependsOnValueMax *decimal.Decimal      `json:"depends_on_value_max,omitempty"`
	Options           []OptionDefinition    `json:"options,omitempty"`
}

type OptionDefinition struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Order   int    `json:"order"`
	Weight  *int   `json:"numeric_value,omitempty"`
	IsOther bool   `json:"is_other,omitempty"`
}

type TokenDefinition struct {
	Token                  string     `json:"token,omitempty"`
	ExpectedIdentification string     `json:"expected_identification,omitempty"`
	ExpiresAt              *time.Time `json:"expires_at,omitempty"`
}

// Respondent fields a question may copy its initial value from.
var respondentFields = map[string]bool{
	"identification": true,
	"document_type":  true,
	"full_name":      true,
	"email":          true,
	"phone":          true,
}

// SchemaLoader turns definitions into integrity-checked survey graphs.
type SchemaLoader struct {
	now   func() time.Time
	idGen func() string
}

func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		now:   func() time.Time { return time.Now().UTC() },
		idGen: uuid.NewString,
	}
}

// Build assigns ids, resolves dependency references by code and runs LoadSurvey.
func (l *SchemaLoader) Build(def SurveyDefinition) (*models.Survey, error) {
	s := &models.Survey{
		ID:           l.idGen(),
		Code:         strings.TrimSpace(def.Code),
		Name:         strings.TrimSpace(def.Name),
		Description:  def.Description,
		Active:       def.Active == nil || *def.Active,
		RequireToken: def.RequireToken,
		CreatedAt:    l.now(),
	}
	var problems []string
	type pending struct {
		q   *models.Question
		def QuestionDefinition
	}
	var deps []pending
	for _, sd := range def.Sections {
		sec := &models.Section{ID: l.idGen(), SurveyID: s.ID, Title: sd.Title, Order: sd.Order}
		for _, qd := range sd.Questions {
			q := &models.Question{
				ID:           l.idGen(),
				SectionID:    sec.ID,
				Code:         strings.TrimSpace(qd.Code),
				Text:         qd.Text,
				HelpText:     qd.HelpText,
				Type:         qd.Type,
				Required:     qd.Required == nil || *qd.Required,
				Order:        qd.Order,
				MaxChoices:   qd.MaxChoices,
				MinValue:     qd.MinValue,
				MaxValue:     qd.MaxValue,
				Display:      qd.Display,
				LocationKind: qd.LocationKind,
				CopyFrom:     qd.CopyFrom,
			}
			if q.Type == models.QuestionSingle && q.Display == "" {
				q.Display = models.DisplayRadio
			}
			for _, od := range qd.Options {
				q.Options = append(q.Options, &models.Option{
					ID:         l.idGen(),
					QuestionID: q.ID,
					Code:       strings.TrimSpace(od.Code),
					Label:      od.Label,
					Order:      od.Order,
					Weight:     od.Weight,
					IsOther:    od.IsOther,
				})
			}
			sec.Questions = append(sec.Questions, q)
			if qd.DependsOn != "" || qd.DependsOnOption != "" || qd.DependsOnValueMin != nil || qd.DependsOnValueMax != nil {
				deps = append(deps, pending{q: q, def: qd})
			}
		}
		s.Sections = append(s.Sections, sec)
	}

	for _, p := range deps {
		dep := &models.Dependency{Min: p.def.DependsOnValueMin, Max: p.def.DependsOnValueMax, OptionCode: p.def.DependsOnOption}
		parent, err := findByReference(s, p.def.DependsOn)
		if err != nil {
			problems = append(problems, fmt.Sprintf("question %q: %v", p.q.Code, err))
			continue
		}
		dep.ParentID = parent.ID
		dep.ParentCode = parent.Code
		if dep.OptionCode != "" {
			if opt := parent.OptionByCode(dep.OptionCode); opt != nil {
				dep.OptionID = opt.ID
			} else {
				problems = append(problems, fmt.Sprintf("question %q: trigger option %q not found on %q", p.q.Code, dep.OptionCode, parent.Code))
				continue
			}
		}
		p.q.DependsOn = dep
	}
	if len(problems) > 0 {
		return nil, &SchemaIntegrityError{Survey: s.Code, Problems: problems}
	}
	if err := LoadSurvey(s); err != nil {
		return nil, err
	}
	return s, nil
}

func findByReference(s *models.Survey, ref string) (*models.Question, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("dependency without depends_on")
	}
	if i := strings.Index(ref, ":"); i > 0 {
		if order, err := strconv.Atoi(ref[:i]); err == nil {
			for _, sec := range s.Sections {
				if sec.Order == order {
					if q := sec.QuestionByCode(ref[i+1:]); q != nil {
						return q, nil
					}
				}
			}
			return nil, fmt.Errorf("depends_on %q not found", ref)
		}
	}
	var found *models.Question
	for _, sec := range s.Sections {
		if q := sec.QuestionByCode(ref); q != nil {
			if found != nil {
				return nil, fmt.Errorf("depends_on %q is ambiguous, qualify it with the section order", ref)
			}
			found = q
		}
	}
	if found == nil {
		return nil, fmt.Errorf("depends_on %q not found", ref)
	}
	return found, nil
}

// LoadSurvey orders the graph (section, question, option order with ties kept
// in insertion order) and rejects it when codes collide within a scope or a
// dependency is malformed.
func LoadSurvey(s *models.Survey) error {
	if s == nil {
		return NewInvalidError("survey required")
	}
	sort.SliceStable(s.Sections, func(i, j int) bool { return s.Sections[i].Order < s.Sections[j].Order })
	for _, sec := range s.Sections {
		sort.SliceStable(sec.Questions, func(i, j int) bool { return sec.Questions[i].Order < sec.Questions[j].Order })
		for _, q := range sec.Questions {
			sort.SliceStable(q.Options, func(i, j int) bool { return q.Options[i].Order < q.Options[j].Order })
		}
	}

	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if strings.TrimSpace(s.Code) == "" {
		add("survey code required")
	}
	position := map[string]int{}
	byID := map[string]*models.Question{}
	seenOrder := map[int]bool{}
	pos := 0
	for _, sec := range s.Sections {
		if seenOrder[sec.Order] {
			add("section order %d repeated", sec.Order)
		}
		seenOrder[sec.Order] = true
		seenCode := map[string]bool{}
		for _, q := range sec.Questions {
			if q.Code == "" {
				add("section %d: question without code", sec.Order)
			} else if seenCode[q.Code] {
				add("section %d: question code %q repeated", sec.Order, q.Code)
			}
			seenCode[q.Code] = true
			position[q.ID] = pos
			byID[q.ID] = q
			pos++
			problems = append(problems, checkQuestion(q)...)
		}
	}

	for _, q := range s.Questions() {
		if q.CopyFrom != "" && !respondentFields[q.CopyFrom] {
			src := s.QuestionByCode(q.CopyFrom)
			if src == nil || position[src.ID] >= position[q.ID] {
				add("question %q: copy source %q is not a respondent field or prior question", q.Code, q.CopyFrom)
			}
		}
		dep := q.DependsOn
		if dep == nil {
			continue
		}
		if dep.IsOptionBased() && dep.IsRangeBased() {
			add("question %q: dependency sets both a trigger option and a value range", q.Code)
			continue
		}
		if !dep.IsOptionBased() && !dep.IsRangeBased() {
			add("question %q: dependency needs a trigger option or a value range", q.Code)
			continue
		}
		parent := byID[dep.ParentID]
		if parent == nil {
			add("question %q: dependency parent %q not found", q.Code, dep.ParentID)
			continue
		}
		dep.ParentCode = parent.Code
		if inCycle(q, byID) {
			add("question %q: dependency cycle", q.Code)
			continue
		}
		if position[parent.ID] >= position[q.ID] {
			add("question %q: dependency parent %q must come before it", q.Code, parent.Code)
		}
		if dep.IsOptionBased() {
			if !parent.Type.IsChoice() {
				add("question %q: option dependency on non-choice question %q", q.Code, parent.Code)
				continue
			}
			var opt *models.Option
			if dep.OptionID != "" {
				opt = parent.OptionByID(dep.OptionID)
			} else {
				opt = parent.OptionByCode(dep.OptionCode)
			}
			if opt == nil {
				add("question %q: trigger option not found on %q", q.Code, parent.Code)
				continue
			}
			dep.OptionID, dep.OptionCode = opt.ID, opt.Code
		} else {
			if !parent.Type.IsNumeric() {
				add("question %q: range dependency on non-numeric question %q", q.Code, parent.Code)
			}
			if dep.Min != nil && dep.Max != nil && dep.Min.GreaterThan(*dep.Max) {
				add("question %q: dependency range min is above max", q.Code)
			}
		}
	}

	if len(problems) > 0 {
		return &SchemaIntegrityError{Survey: s.Code, Problems: problems}
	}
	return nil
}

func checkQuestion(q *models.Question) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf("question %q: "+format, append([]any{q.Code}, args...)...))
	}
	if !q.Type.Valid() {
		add("unknown type %q", q.Type)
	}
	if q.MaxChoices < 0 {
		add("max_choices must not be negative")
	}
	if q.MinValue != nil && q.MaxValue != nil && q.MinValue.GreaterThan(*q.MaxValue) {
		add("min_value is above max_value")
	}
	if q.Display != "" && q.Display != models.DisplayRadio && q.Display != models.DisplaySelect {
		add("unknown display %q", q.Display)
	}
	if q.LocationKind != "" && !q.LocationKind.Valid() {
		add("unknown location kind %q", q.LocationKind)
	} else if q.Type == models.QuestionLocation && q.LocationKind == "" {
		add("location question without location_kind")
	}
	if q.Type.IsChoice() && len(q.Options) == 0 {
		add("choice question without options")
	}
	seen := map[string]bool{}
	others := 0
	for _, o := range q.Options {
		if o.Code == "" {
			add("option without code")
		} else if seen[o.Code] {
			add("option code %q repeated", o.Code)
		}
		seen[o.Code] = true
		if o.IsOther {
			others++
		}
		if o.Weight != nil && (*o.Weight < 0 || *o.Weight > 10) {
			add("option %q weight %d outside 0..10", o.Code, *o.Weight)
		}
	}
	if others > 1 {
		add("more than one \"other\" option")
	}
	return problems
}

func inCycle(start *models.Question, byID map[string]*models.Question) bool {
	seen := map[string]bool{start.ID: true}
	cur := start
	for cur.DependsOn != nil {
		next := byID[cur.DependsOn.ParentID]
		if next == nil {
			return false
		}
		if next.ID == start.ID {
			return true
		}
		if seen[next.ID] {
			return false
		}
		seen[next.ID] = true
		cur = next
	}
	return false
}

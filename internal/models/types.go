package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuestionType is the closed set of answer shapes a question accepts.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMulti    QuestionType = "multi"
	QuestionText     QuestionType = "text"
	QuestionInteger  QuestionType = "int"
	QuestionDecimal  QuestionType = "dec"
	QuestionBool     QuestionType = "bool"
	QuestionDate     QuestionType = "date"
	QuestionLikert   QuestionType = "likert"
	QuestionLocation QuestionType = "location"
)

// Valid reports whether t is one of the known type tags.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingle, QuestionMulti, QuestionText, QuestionInteger, QuestionDecimal,
		QuestionBool, QuestionDate, QuestionLikert, QuestionLocation:
		return true
	}
	return false
}

// IsChoice reports whether answers select options of the question.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingle || t == QuestionMulti || t == QuestionLikert
}

// IsNumeric reports whether answers carry an integer or decimal value.
func (t QuestionType) IsNumeric() bool {
	return t == QuestionInteger || t == QuestionDecimal
}

// DisplayVariant controls how a single-choice question is rendered.
type DisplayVariant string

const (
	DisplayRadio  DisplayVariant = "radio"
	DisplaySelect DisplayVariant = "select"
)

// DocumentType identifies the kind of identity document a respondent presents.
type DocumentType string

const (
	DocCitizenID         DocumentType = "C.C"
	DocIdentityCard      DocumentType = "T.I"
	DocCivilRegistry     DocumentType = "R.E"
	DocForeignerID       DocumentType = "C.E"
	DocTaxID             DocumentType = "NIT"
	DocTemporaryPermit   DocumentType = "PPT"
	DocPassport          DocumentType = "PA"
	DocForeignerCard     DocumentType = "T.E"
	DocDiplomaticCard    DocumentType = "CD"
	DocSafeConduct       DocumentType = "SP"
	DocSpecialStayPermit DocumentType = "P.E.P"
)

// DocumentTypes lists every accepted document type in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocCitizenID, DocIdentityCard, DocCivilRegistry, DocForeignerID, DocTaxID, DocTemporaryPermit,
		DocPassport, DocForeignerCard, DocDiplomaticCard, DocSafeConduct, DocSpecialStayPermit,
	}
}

func (d DocumentType) Valid() bool {
	for _, v := range DocumentTypes() {
		if v == d {
			return true
		}
	}
	return false
}

// LocationKind is the level of a location in the catalog.
type LocationKind string

const (
	LocationMunicipio LocationKind = "municipio"
	LocationUbicacion LocationKind = "ubicacion"
	LocationBarrio    LocationKind = "barrio"
)

func (k LocationKind) Valid() bool {
	return k == LocationMunicipio || k == LocationUbicacion || k == LocationBarrio
}

// ScoreCategory buckets a summed scale score.
type ScoreCategory string

const (
	CategoryNone         ScoreCategory = "none"
	CategoryMildModerate ScoreCategory = "mild-moderate"
	CategoryIntense      ScoreCategory = "intense"
)

// Survey is the root of a questionnaire definition.
type Survey struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Active       bool       `json:"is_active"`
	RequireToken bool       `json:"require_token"`
	CreatedAt    time.Time  `json:"created_at"`
	Sections     []*Section `json:"sections,omitempty"`
}

// Section groups questions answered in one wizard step.
type Section struct {
	ID        string      `json:"id"`
	SurveyID  string      `json:"survey_id"`
	Title     string      `json:"title"`
	Order     int         `json:"order"`
	Questions []*Question `json:"questions,omitempty"`
}

// Dependency makes a question active only when a prior answer matches.
// Exactly one of the option trigger or the value range is set.
type Dependency struct {
	ParentID   string           `json:"parent_id"`
	ParentCode string           `json:"parent_code,omitempty"`
	OptionID   string           `json:"option_id,omitempty"`
	OptionCode string           `json:"option_code,omitempty"`
	Min        *decimal.Decimal `json:"min,omitempty"`
	Max        *decimal.Decimal `json:"max,omitempty"`
}

func (d *Dependency) IsOptionBased() bool { return d.OptionID != "" || d.OptionCode != "" }
func (d *Dependency) IsRangeBased() bool  { return d.Min != nil || d.Max != nil }

// Question is a single typed field of a section.
type Question struct {
	ID           string           `json:"id"`
	SectionID    string           `json:"section_id"`
	Code         string           `json:"code"`
	Text         string           `json:"text"`
	HelpText     string           `json:"help_text,omitempty"`
	Type         QuestionType     `json:"type"`
	Required     bool             `json:"required"`
	Order        int              `json:"order"`
	MaxChoices   int              `json:"max_choices,omitempty"` // 0 = unlimited
	MinValue     *decimal.Decimal `json:"min_value,omitempty"`
	MaxValue     *decimal.Decimal `json:"max_value,omitempty"`
	Display      DisplayVariant   `json:"display,omitempty"`
	LocationKind LocationKind     `json:"location_kind,omitempty"`
	CopyFrom     string           `json:"copy_from,omitempty"`
	DependsOn    *Dependency      `json:"depends_on,omitempty"`
	Options      []*Option        `json:"options,omitempty"`
}

// Option is a selectable choice. Weight is required for likert questions.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Code       string `json:"code"`
	Label      string `json:"label"`
	Order      int    `json:"order"`
	Weight     *int   `json:"weight,omitempty"`
	IsOther    bool   `json:"is_other,omitempty"`
}

// Respondent is the identity snapshot captured before the first section.
type Respondent struct {
	Identification string       `json:"identification"`
	DocumentType   DocumentType `json:"document_type"`
	FullName       string       `json:"full_name,omitempty"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	InterviewerRef string       `json:"interviewer_ref,omitempty"`
}

// Answer holds the payload matching its question's type; other payload fields stay empty.
type Answer struct {
	ID           string           `json:"id,omitempty"`
	ResponseID   string           `json:"response_id,omitempty"`
	QuestionID   string           `json:"question_id"`
	QuestionCode string           `json:"question_code,omitempty"`
	Text         string           `json:"text,omitempty"`
	Integer      *int64           `json:"integer,omitempty"`
	Decimal      *decimal.Decimal `json:"decimal,omitempty"`
	Bool         *bool            `json:"bool,omitempty"`
	Date         *time.Time       `json:"date,omitempty"`
	OptionIDs    []string         `json:"option_ids,omitempty"`
	LocationIDs  []string         `json:"location_ids,omitempty"`
}

// Response is one accepted submission.
type Response struct {
	ID                     string        `json:"id"`
	SurveyID               string        `json:"survey_id"`
	Respondent             Respondent    `json:"respondent"`
	InterviewerID          string        `json:"interviewer_id,omitempty"`
	UserRef                string        `json:"user_ref,omitempty"`
	Source                 string        `json:"source,omitempty"`
	DeviceFingerprint      string        `json:"device_fingerprint,omitempty"`
	DataProtectionAccepted bool          `json:"data_protection_accepted"`
	ConsentHash            string        `json:"consent_hash,omitempty"`
	AccessTokenID          string        `json:"access_token_id,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	Score                  *int          `json:"score,omitempty"`
	ScoreCategory          ScoreCategory `json:"score_category,omitempty"`
	Answers                []*Answer     `json:"answers,omitempty"`
}

// AccessToken is a single-use credential scoped to one survey.
type AccessToken struct {
	ID                     string     `json:"id"`
	SurveyID               string     `json:"survey_id"`
	Token                  string     `json:"token"`
	ExpectedIdentification string     `json:"expected_identification,omitempty"`
	Used                   bool       `json:"used"`
	ExpiresAt              *time.Time `json:"expires_at,omitempty"`
}

// IsValid reports whether the token is unused and not expired at now.
func (t *AccessToken) IsValid(now time.Time) bool {
	return !t.Used && (t.ExpiresAt == nil || t.ExpiresAt.After(now))
}

type Interviewer struct {
	ID             string       `json:"id"`
	FullName       string       `json:"full_name"`
	DocumentNumber string       `json:"document_number"`
	DocumentType   DocumentType `json:"document_type"`
	Phone          string       `json:"phone,omitempty"`
	Email          string       `json:"email,omitempty"`
}

// Location is an entry of the municipio/ubicacion/barrio catalog.
type Location struct {
	ID         string       `json:"id"`
	Kind       LocationKind `json:"kind"`
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	ParentCode string       `json:"parent_code,omitempty"`
}

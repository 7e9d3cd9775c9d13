package db

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
	"gorm.io/datatypes"
)

type surveyRow struct {
	ID           string `gorm:"primaryKey"`
	Code         string
	Name         string
	Description  string
	IsActive     bool
	RequireToken bool
	CreatedAt    time.Time
}

func (surveyRow) TableName() string { return "surveys" }

type sectionRow struct {
	ID       string `gorm:"primaryKey"`
	SurveyID string
	Title    string
	Position int
	Seq      int
}

func (sectionRow) TableName() string { return "sections" }

type questionRow struct {
	ID                string `gorm:"primaryKey"`
	SectionID         string
	Code              string
	Text              string
	HelpText          string
	QType             string `gorm:"column:qtype"`
	Required          bool
	Position          int
	Seq               int
	MaxChoices        int
	MinValue          decimal.NullDecimal
	MaxValue          decimal.NullDecimal
	Display           string
	LocationKind      string
	CopyFrom          string
	DependsOnID       *string
	DependsOnOptionID *string
	DependsOnValueMin decimal.NullDecimal
	DependsOnValueMax decimal.NullDecimal
}

func (questionRow) TableName() string { return "questions" }

type optionRow struct {
	ID           string `gorm:"primaryKey"`
	QuestionID   string
	Code         string
	Label        string
	Position     int
	Seq          int
	NumericValue *int
	IsOther      bool
}

func (optionRow) TableName() string { return "options" }

type interviewerRow struct {
	ID             string `gorm:"primaryKey"`
	FullName       string
	DocumentNumber string
	DocumentType   string
	Phone          string
	Email          string
}

func (interviewerRow) TableName() string { return "interviewers" }

type locationRow struct {
	ID         string `gorm:"primaryKey"`
	Kind       string
	Code       string
	Name       string
	ParentCode string
}

func (locationRow) TableName() string { return "locations" }

type accessTokenRow struct {
	ID                     string `gorm:"primaryKey"`
	SurveyID               string
	Token                  string
	ExpectedIdentification string
	Used                   bool
	ExpiresAt              *time.Time
}

func (accessTokenRow) TableName() string { return "access_tokens" }

type responseRow struct {
	ID                     string `gorm:"primaryKey"`
	SurveyID               string
	Identification         string
	DocumentType           string
	FullName               string
	Email                  string
	Phone                  string
	InterviewerID          *string
	UserRef                string
	Source                 string
	DeviceFingerprint      string
	DataProtectionAccepted bool
	ConsentHash            string
	AccessTokenID          *string
	CreatedAt              time.Time
	Score                  *int
	ScoreCategory          string
}

func (responseRow) TableName() string { return "responses" }

type answerRow struct {
	ID            string `gorm:"primaryKey"`
	ResponseID    string
	QuestionID    string
	TextAnswer    string
	IntegerAnswer *int64
	DecimalAnswer decimal.NullDecimal
	BoolAnswer    *bool
	DateAnswer    *datatypes.Date
}

func (answerRow) TableName() string { return "answers" }

type answerOptionRow struct {
	AnswerID string `gorm:"primaryKey"`
	OptionID string `gorm:"primaryKey"`
}

func (answerOptionRow) TableName() string { return "answer_options" }

type answerLocationRow struct {
	AnswerID   string `gorm:"primaryKey"`
	LocationID string `gorm:"primaryKey"`
	Position   int
}

func (answerLocationRow) TableName() string { return "answer_locations" }

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toSurveyModel(r *surveyRow) *models.Survey {
	return &models.Survey{
		ID:           r.ID,
		Code:         r.Code,
		Name:         r.Name,
		Description:  r.Description,
		Active:       r.IsActive,
		RequireToken: r.RequireToken,
		CreatedAt:    r.CreatedAt,
	}
}

func toQuestionModel(r *questionRow) *models.Question {
	q := &models.Question{
		ID:           r.ID,
		SectionID:    r.SectionID,
		Code:         r.Code,
		Text:         r.Text,
		HelpText:     r.HelpText,
		Type:         models.QuestionType(r.QType),
		Required:     r.Required,
		Order:        r.Position,
		MaxChoices:   r.MaxChoices,
		MinValue:     decimalPtr(r.MinValue),
		MaxValue:     decimalPtr(r.MaxValue),
		Display:      models.DisplayVariant(r.Display),
		LocationKind: models.LocationKind(r.LocationKind),
		CopyFrom:     r.CopyFrom,
	}
	if r.DependsOnID != nil {
		q.DependsOn = &models.Dependency{
			ParentID: *r.DependsOnID,
			OptionID: strVal(r.DependsOnOptionID),
			Min:      decimalPtr(r.DependsOnValueMin),
			Max:      decimalPtr(r.DependsOnValueMax),
		}
	}
	return q
}

func toOptionModel(r *optionRow) *models.Option {
	return &models.Option{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		Code:       r.Code,
		Label:      r.Label,
		Order:      r.Position,
		Weight:     r.NumericValue,
		IsOther:    r.IsOther,
	}
}

func toTokenModel(r *accessTokenRow) *models.AccessToken {
	return &models.AccessToken{
		ID:                     r.ID,
		SurveyID:               r.SurveyID,
		Token:                  r.Token,
		ExpectedIdentification: r.ExpectedIdentification,
		Used:                   r.Used,
		ExpiresAt:              r.ExpiresAt,
	}
}

func toResponseModel(r *responseRow) *models.Response {
	return &models.Response{
		ID:       r.ID,
		SurveyID: r.SurveyID,
		Respondent: models.Respondent{
			Identification: r.Identification,
			DocumentType:   models.DocumentType(r.DocumentType),
			FullName:       r.FullName,
			Email:          r.Email,
			Phone:          r.Phone,
		},
		InterviewerID:          strVal(r.InterviewerID),
		UserRef:                r.UserRef,
		Source:                 r.Source,
		DeviceFingerprint:      r.DeviceFingerprint,
		DataProtectionAccepted: r.DataProtectionAccepted,
		ConsentHash:            r.ConsentHash,
		AccessTokenID:          strVal(r.AccessTokenID),
		CreatedAt:              r.CreatedAt,
		Score:                  r.Score,
		ScoreCategory:          models.ScoreCategory(r.ScoreCategory),
	}
}

func fromResponseModel(m *models.Response) *responseRow {
	return &responseRow{
		ID:                     m.ID,
		SurveyID:               m.SurveyID,
		Identification:         m.Respondent.Identification,
		DocumentType:           string(m.Respondent.DocumentType),
		FullName:               m.Respondent.FullName,
		Email:                  m.Respondent.Email,
		Phone:                  m.Respondent.Phone,
		InterviewerID:          strPtr(m.InterviewerID),
		UserRef:                m.UserRef,
		Source:                 m.Source,
		DeviceFingerprint:      m.DeviceFingerprint,
		DataProtectionAccepted: m.DataProtectionAccepted,
		ConsentHash:            m.ConsentHash,
		AccessTokenID:          strPtr(m.AccessTokenID),
		CreatedAt:              m.CreatedAt,
		Score:                  m.Score,
		ScoreCategory:          string(m.ScoreCategory),
	}
}

func fromAnswerModel(a *models.Answer) *answerRow {
	row := &answerRow{
		ID:            a.ID,
		ResponseID:    a.ResponseID,
		QuestionID:    a.QuestionID,
		TextAnswer:    a.Text,
		IntegerAnswer: a.Integer,
		DecimalAnswer: nullDecimal(a.Decimal),
		BoolAnswer:    a.Bool,
	}
	if a.Date != nil {
		d := datatypes.Date(*a.Date)
		row.DateAnswer = &d
	}
	return row
}

func toAnswerModel(r *answerRow) *models.Answer {
	a := &models.Answer{
		ID:         r.ID,
		ResponseID: r.ResponseID,
		QuestionID: r.QuestionID,
		Text:       r.TextAnswer,
		Integer:    r.IntegerAnswer,
		Decimal:    decimalPtr(r.DecimalAnswer),
		Bool:       r.BoolAnswer,
	}
	if r.DateAnswer != nil {
		y, m, d := time.Time(*r.DateAnswer).Date()
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		a.Date = &t
	}
	return a
}

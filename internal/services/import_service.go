package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soaringjerry/Encuesta/internal/models"
)

// ImportStore persists imported schemas and catalogs.
type ImportStore interface {
	SurveyCodeExists(ctx context.Context, code string) (bool, error)
	SaveSurvey(ctx context.Context, s *models.Survey) error
	InsertAccessTokens(ctx context.Context, tokens []*models.AccessToken) error
	UpsertInterviewer(ctx context.Context, iv *models.Interviewer) error
	UpsertLocation(ctx context.Context, loc *models.Location) error
}

type ImportReport struct {
	Created      []string `json:"created"`
	Skipped      []string `json:"skipped"`
	Tokens       int      `json:"tokens"`
	Interviewers int      `json:"interviewers"`
	Locations    int      `json:"locations"`
}

type ImportService struct {
	store  ImportStore
	loader *SchemaLoader
	idGen  func() string
}

func NewImportService(store ImportStore) *ImportService {
	return &ImportService{store: store, loader: NewSchemaLoader(), idGen: uuid.NewString}
}

// DecodeSchema reads a schema document, rejecting unknown fields.
func DecodeSchema(r io.Reader) (*SchemaDocument, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc SchemaDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, NewInvalidError("decode schema: " + err.Error())
	}
	return &doc, nil
}

// Import loads catalogs first, then every survey through the schema loader.
// Surveys whose code already exists are skipped; a survey failing integrity
// checks aborts the import.
func (s *ImportService) Import(ctx context.Context, doc *SchemaDocument) (*ImportReport, error) {
	report := &ImportReport{}
	for i := range doc.Locations {
		loc := doc.Locations[i]
		loc.Code = strings.TrimSpace(loc.Code)
		if loc.Code == "" || !loc.Kind.Valid() {
			return report, NewInvalidError(fmt.Sprintf("location %d: code and valid kind required", i))
		}
		if loc.ID == "" {
			loc.ID = s.idGen()
		}
		if err := s.store.UpsertLocation(ctx, &loc); err != nil {
			return report, err
		}
		report.Locations++
	}
	for i := range doc.Interviewers {
		iv := doc.Interviewers[i]
		iv.DocumentNumber = strings.TrimSpace(iv.DocumentNumber)
		if iv.DocumentNumber == "" || !iv.DocumentType.Valid() {
			return report, NewInvalidError(fmt.Sprintf("interviewer %d: document number and valid document type required", i))
		}
		if iv.ID == "" {
			iv.ID = s.idGen()
		}
		if err := s.store.UpsertInterviewer(ctx, &iv); err != nil {
			return report, err
		}
		report.Interviewers++
	}
	for _, def := range doc.Surveys {
		exists, err := s.store.SurveyCodeExists(ctx, strings.TrimSpace(def.Code))
		if err != nil {
			return report, err
		}
		if exists {
			report.Skipped = append(report.Skipped, def.Code)
			continue
		}
		survey, err := s.loader.Build(def)
		if err != nil {
			return report, err
		}
		if err := s.store.SaveSurvey(ctx, survey); err != nil {
			return report, err
		}
		if len(def.Tokens) > 0 {
			tokens := make([]*models.AccessToken, 0, len(def.Tokens))
			for _, td := range def.Tokens {
				tokens = append(tokens, newAccessToken(s.idGen, survey.ID, td))
			}
			if err := s.store.InsertAccessTokens(ctx, tokens); err != nil {
				return report, err
			}
			report.Tokens += len(tokens)
		}
		report.Created = append(report.Created, survey.Code)
	}
	return report, nil
}

func newAccessToken(idGen func() string, surveyID string, td TokenDefinition) *models.AccessToken {
	tok := strings.TrimSpace(td.Token)
	if tok == "" {
		tok = uuid.NewString()
	}
	return &models.AccessToken{
		ID:                     idGen(),
		SurveyID:               surveyID,
		Token:                  tok,
		ExpectedIdentification: strings.TrimSpace(td.ExpectedIdentification),
		ExpiresAt:              td.ExpiresAt,
	}
}

// TokenStore persists issued access tokens.
type TokenStore interface {
	InsertAccessTokens(ctx context.Context, tokens []*models.AccessToken) error
}

type TokenService struct {
	store TokenStore
	now   func() time.Time
	idGen func() string
}

func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store, now: func() time.Time { return time.Now().UTC() }, idGen: uuid.NewString}
}

// TokenRequest asks for Count tokens, or one per expected identification when
// Identifications is set. A positive TTL sets the expiry.
type TokenRequest struct {
	Count           int           `json:"count"`
	Identifications []string      `json:"identifications,omitempty"`
	TTL             time.Duration `json:"-"`
}

func (s *TokenService) Issue(ctx context.Context, survey *models.Survey, req TokenRequest) ([]*models.AccessToken, error) {
	var defs []TokenDefinition
	var expires *time.Time
	if req.TTL > 0 {
		t := s.now().Add(req.TTL)
		expires = &t
	}
	for _, ident := range req.Identifications {
		if strings.TrimSpace(ident) != "" {
			defs = append(defs, TokenDefinition{ExpectedIdentification: ident, ExpiresAt: expires})
		}
	}
	if len(defs) == 0 {
		if req.Count <= 0 || req.Count > 1000 {
			return nil, NewInvalidError("count must be between 1 and 1000")
		}
		for i := 0; i < req.Count; i++ {
			defs = append(defs, TokenDefinition{ExpiresAt: expires})
		}
	}
	tokens := make([]*models.AccessToken, 0, len(defs))
	for _, d := range defs {
		tokens = append(tokens, newAccessToken(s.idGen, survey.ID, d))
	}
	if err := s.store.InsertAccessTokens(ctx, tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

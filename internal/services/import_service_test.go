package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/Encuesta/internal/models"
)

type stubImportStore struct {
	codes        map[string]bool
	saved        []*models.Survey
	tokens       []*models.AccessToken
	interviewers []*models.Interviewer
	locations    []*models.Location
}

func (s *stubImportStore) SurveyCodeExists(_ context.Context, code string) (bool, error) {
	return s.codes[code], nil
}

func (s *stubImportStore) SaveSurvey(_ context.Context, sv *models.Survey) error {
	s.saved = append(s.saved, sv)
	return nil
}

func (s *stubImportStore) InsertAccessTokens(_ context.Context, tokens []*models.AccessToken) error {
	s.tokens = append(s.tokens, tokens...)
	return nil
}

func (s *stubImportStore) UpsertInterviewer(_ context.Context, iv *models.Interviewer) error {
	s.interviewers = append(s.interviewers, iv)
	return nil
}

func (s *stubImportStore) UpsertLocation(_ context.Context, loc *models.Location) error {
	s.locations = append(s.locations, loc)
	return nil
}

func newTestImport(store ImportStore) *ImportService {
	svc := NewImportService(store)
	svc.loader = testLoader()
	svc.idGen = seqIDs("imp")
	return svc
}

const importDoc = `{
  "locations": [{"kind": "barrio", "code": " B01 ", "name": "El Prado"}],
  "interviewers": [{"full_name": "Luis", "document_number": "900", "document_type": "C.C"}],
  "surveys": [
    {"code": "VIEJA", "name": "Ya existe", "sections": []},
    {"code": "NUEVA", "name": "Nueva", "require_token": true,
     "tokens": [{"token": "abc", "expected_identification": " 1020 "}, {}],
     "sections": [{"title": "Uno", "order": 1, "questions": [
       {"code": "q1", "text": "¿Sí?", "type": "single", "order": 1,
        "options": [{"code": "SI", "label": "Sí", "order": 1}, {"code": "NO", "label": "No", "order": 2}]},
       {"code": "q2", "text": "¿Por qué?", "type": "text", "order": 2, "depends_on": "q1", "depends_on_option": "SI"}
     ]}]}
  ]
}`

func TestImportSchemaDocument(t *testing.T) {
	doc, err := DecodeSchema(strings.NewReader(importDoc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	store := &stubImportStore{codes: map[string]bool{"VIEJA": true}}
	report, err := newTestImport(store).Import(context.Background(), doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Created) != 1 || report.Created[0] != "NUEVA" || len(report.Skipped) != 1 || report.Skipped[0] != "VIEJA" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Tokens != 2 || report.Interviewers != 1 || report.Locations != 1 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if store.locations[0].Code != "B01" || store.locations[0].ID == "" {
		t.Fatalf("location not normalized: %+v", store.locations[0])
	}
	sv := store.saved[0]
	q2 := sv.QuestionByCode("q2")
	if q2.DependsOn == nil || q2.DependsOn.ParentID != sv.QuestionByCode("q1").ID {
		t.Fatalf("dependency not resolved: %+v", q2.DependsOn)
	}
	if store.tokens[0].Token != "abc" || store.tokens[0].ExpectedIdentification != "1020" || store.tokens[0].SurveyID != sv.ID {
		t.Fatalf("unexpected token %+v", store.tokens[0])
	}
	if store.tokens[1].Token == "" {
		t.Fatalf("blank token should be generated")
	}
}

func TestImportRejects(t *testing.T) {
	if _, err := DecodeSchema(strings.NewReader(`{"surveys": [], "extra": 1}`)); err == nil {
		t.Fatalf("unknown fields must be rejected")
	}

	doc := &SchemaDocument{Locations: []models.Location{{Kind: "pais", Code: "CO"}}}
	if _, err := newTestImport(&stubImportStore{}).Import(context.Background(), doc); err == nil {
		t.Fatalf("invalid location kind must be rejected")
	}

	doc = &SchemaDocument{Surveys: []SurveyDefinition{{Code: "MALA", Sections: []SectionDefinition{{Order: 1, Questions: []QuestionDefinition{
		{Code: "a", Type: models.QuestionText, Order: 1, DependsOn: "nadie", DependsOnOption: "X"},
	}}}}}}
	store := &stubImportStore{}
	_, err := newTestImport(store).Import(context.Background(), doc)
	var se *SchemaIntegrityError
	if !errors.As(err, &se) || len(store.saved) != 0 {
		t.Fatalf("want integrity error and nothing saved, got %v", err)
	}
}

func TestTokenServiceIssue(t *testing.T) {
	store := &stubImportStore{}
	svc := NewTokenService(store)
	svc.now = func() time.Time { return fixedNow }
	svc.idGen = seqIDs("tok")
	survey := &models.Survey{ID: "s1"}
	ctx := context.Background()

	toks, err := svc.Issue(ctx, survey, TokenRequest{Count: 3, TTL: time.Hour})
	if err != nil || len(toks) != 3 {
		t.Fatalf("issue: %v", err)
	}
	if toks[0].ExpiresAt == nil || !toks[0].ExpiresAt.Equal(fixedNow.Add(time.Hour)) || toks[0].Token == toks[1].Token {
		t.Fatalf("unexpected token %+v", toks[0])
	}

	toks, err = svc.Issue(ctx, survey, TokenRequest{Identifications: []string{"1", " ", "2"}})
	if err != nil || len(toks) != 2 || toks[1].ExpectedIdentification != "2" || toks[0].ExpiresAt != nil {
		t.Fatalf("identification tokens: %+v %v", toks, err)
	}

	for _, n := range []int{0, 1001} {
		_, err := svc.Issue(ctx, survey, TokenRequest{Count: n})
		if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
			t.Fatalf("count %d: want invalid, got %v", n, err)
		}
	}
	if len(store.tokens) != 5 {
		t.Fatalf("want 5 stored tokens, got %d", len(store.tokens))
	}
}

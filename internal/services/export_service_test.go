package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soaringjerry/Encuesta/internal/models"
)

type stubLister struct {
	survey    *models.Survey
	responses []*models.Response
}

func (s *stubLister) GetSurveyByID(_ context.Context, id string) (*models.Survey, error) {
	if s.survey == nil || s.survey.ID != id {
		return nil, ErrSurveyNotFound
	}
	return s.survey, nil
}

func (s *stubLister) ListResponses(_ context.Context, surveyID string) ([]*models.Response, error) {
	return s.responses, nil
}

func sampleResponses(t *testing.T) (*models.Survey, []*models.Response) {
	t.Helper()
	survey := buildSample(t)
	score := 6
	r1 := &models.Response{
		ID: "r1", SurveyID: survey.ID, CreatedAt: fixedNow,
		Respondent: models.Respondent{Identification: "1020", DocumentType: models.DocCitizenID},
		Score:      &score, ScoreCategory: models.CategoryNone,
		Answers: []*models.Answer{
			answerWith(survey.QuestionByCode("consume"), "NO"),
			intAnswer(survey.QuestionByCode("edad"), 44),
			answerWith(survey.QuestionByCode("z1"), "S"),
			answerWith(survey.QuestionByCode("z2"), "A"),
		},
	}
	r2 := &models.Response{
		ID: "r2", SurveyID: survey.ID, CreatedAt: fixedNow.AddDate(0, 0, 1),
		Respondent: models.Respondent{Identification: "2030", DocumentType: models.DocPassport},
		Answers: []*models.Answer{
			answerWith(survey.QuestionByCode("z1"), "A"),
			answerWith(survey.QuestionByCode("z2"), "N"),
		},
	}
	return survey, []*models.Response{r1, r2}
}

func TestExportServiceLong(t *testing.T) {
	survey, rs := sampleResponses(t)
	svc := NewExportService(&stubLister{survey: survey, responses: rs})

	res, err := svc.ExportCSV(context.Background(), ExportParams{SurveyID: survey.ID})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Filename != "CUIDADORES_long.csv" || !strings.HasPrefix(res.ContentType, "text/csv") {
		t.Fatalf("unexpected result %s %s", res.Filename, res.ContentType)
	}
	body := string(res.Data)
	for _, line := range []string{
		"r1,consume,NO,,2024-03-01T12:00:00Z",
		"r1,edad,44,,2024-03-01T12:00:00Z",
		"r1,z1,S,4,2024-03-01T12:00:00Z",
		"r2,z2,N,0,2024-03-02T12:00:00Z",
	} {
		if !strings.Contains(body, line+"\n") {
			t.Fatalf("missing %q in\n%s", line, body)
		}
	}
	if n := strings.Count(body, "\n"); n != 7 {
		t.Fatalf("want header plus 6 rows, got %d lines", n)
	}
}

func TestExportServiceWide(t *testing.T) {
	survey, rs := sampleResponses(t)
	svc := NewExportService(&stubLister{survey: survey, responses: rs})

	res, err := svc.ExportCSV(context.Background(), ExportParams{SurveyID: survey.ID, Format: "wide"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(res.Data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got %d", len(lines))
	}
	header := "response_id,identification,document_type,created_at," +
		"s1_nombre,s1_consume,s1_sustancias,s1_edad," +
		"s2_hijos,s2_edades_hijos,s2_peso,s2_vive_solo,s2_fecha,s2_barrio,s2_nombre_copia," +
		"s3_z1,s3_z2"
	if lines[0] != header {
		t.Fatalf("unexpected header %s", lines[0])
	}
	if lines[1] != "r1,1020,C.C,2024-03-01T12:00:00Z,,NO,,44,,,,,,,,S,A" {
		t.Fatalf("unexpected row %s", lines[1])
	}
	if res.Filename != "CUIDADORES_wide.csv" {
		t.Fatalf("filename %s", res.Filename)
	}
}

func TestExportServiceScoreAndErrors(t *testing.T) {
	survey, rs := sampleResponses(t)
	svc := NewExportService(&stubLister{survey: survey, responses: rs})
	ctx := context.Background()

	res, err := svc.ExportCSV(ctx, ExportParams{SurveyID: survey.ID, Format: "score"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(res.Data), "r1,1020,C.C,6,none\nr2,2030,PA,0,\n") {
		t.Fatalf("unexpected csv\n%s", res.Data)
	}

	_, err = svc.ExportCSV(ctx, ExportParams{SurveyID: survey.ID, Format: "xlsx"})
	if se, ok := AsServiceError(err); !ok || se.Code != ErrorInvalid {
		t.Fatalf("want invalid format, got %v", err)
	}
	if _, err := svc.ExportCSV(ctx, ExportParams{}); err == nil {
		t.Fatalf("survey id is required")
	}
	if _, err := svc.ExportCSV(ctx, ExportParams{SurveyID: "nope"}); !errors.Is(err, ErrSurveyNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

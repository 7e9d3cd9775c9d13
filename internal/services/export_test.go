package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
)

func TestExportLongCSV(t *testing.T) {
	data, err := ExportLongCSV([]LongRow{
		{ResponseID: "r1", QuestionCode: "z1", Value: "S", Weight: "4", SubmittedAt: "2024-03-01T12:00:00Z"},
		{ResponseID: "r1", QuestionCode: "nombre", Value: "Pérez, Ana", SubmittedAt: "2024-03-01T12:00:00Z"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "response_id,question_code,value,weight,submitted_at\n" +
		"r1,z1,S,4,2024-03-01T12:00:00Z\n" +
		"r1,nombre,\"Pérez, Ana\",,2024-03-01T12:00:00Z\n"
	if string(data) != want {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

func TestExportWideCSVFillsMissingCells(t *testing.T) {
	data, err := ExportWideCSV([]string{"a", "b"}, []string{"r2", "r1"}, map[string]map[string]string{
		"r1": {"a": "1", "b": "2"},
		"r2": {"b": "x"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(data) != "response_id,a,b\nr2,,x\nr1,1,2\n" {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

func TestExportScoreCSV(t *testing.T) {
	data, err := ExportScoreCSV([]ScoreRow{{ResponseID: "r1", Identification: "1020", DocumentType: "C.C", Score: 30, Category: "mild-moderate"}})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasSuffix(string(data), "r1,1020,C.C,30,mild-moderate\n") {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}

func TestDisplayValue(t *testing.T) {
	survey := buildSample(t)
	sust := survey.QuestionByCode("sustancias")
	withOther := answerWith(sust, "ALC", "OTRO")
	withOther.Text = "café"
	d := decimal.RequireFromString("72.5")
	b := false
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := int64(7)

	cases := []struct {
		q    string
		a    *models.Answer
		want string
	}{
		{"sustancias", withOther, "ALC|OTRO (café)"},
		{"z1", answerWith(survey.QuestionByCode("z1"), "A"), "A"},
		{"peso", &models.Answer{Decimal: &d}, "72.50"},
		{"vive_solo", &models.Answer{Bool: &b}, "false"},
		{"fecha", &models.Answer{Date: &day}, "2024-01-01"},
		{"hijos", &models.Answer{Integer: &n}, "7"},
		{"barrio", &models.Answer{LocationIDs: []string{"loc-1", "loc-3"}}, "loc-1|loc-3"},
		{"nombre", &models.Answer{Text: "Ana"}, "Ana"},
	}
	for _, tc := range cases {
		if got := DisplayValue(survey.QuestionByCode(tc.q), tc.a); got != tc.want {
			t.Fatalf("%s: want %q, got %q", tc.q, tc.want, got)
		}
	}
}

package services

import (
	"context"
	"math"
	"testing"

	"github.com/soaringjerry/Encuesta/internal/models"
)

func TestAnalyticsSummary(t *testing.T) {
	survey, rs := sampleResponses(t)
	svc := NewAnalyticsService(&stubLister{survey: survey, responses: rs})

	sum, err := svc.Summary(context.Background(), survey.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalResponses != 2 || sum.Categories[models.CategoryNone] != 1 {
		t.Fatalf("unexpected totals %+v", sum)
	}
	if len(sum.Questions) != 2 || sum.Questions[0].Code != "z1" {
		t.Fatalf("want histograms for z1 and z2, got %+v", sum.Questions)
	}
	z1 := sum.Questions[0]
	if z1.Histogram["S"] != 1 || z1.Histogram["A"] != 1 || z1.Histogram["N"] != 0 || z1.Total != 2 {
		t.Fatalf("unexpected z1 histogram %+v", z1)
	}
	if len(sum.Timeseries) != 2 || sum.Timeseries[0].Date != "2024-03-01" || sum.Timeseries[1].Count != 1 {
		t.Fatalf("unexpected timeseries %+v", sum.Timeseries)
	}
	// weights (4,2) and (2,0) move together
	if math.Abs(sum.Alpha-1) > 1e-9 || sum.N != 2 {
		t.Fatalf("want alpha 1 over 2 rows, got %f/%d", sum.Alpha, sum.N)
	}
}

func TestAnalyticsAlphaSkipsIncompleteResponses(t *testing.T) {
	survey, rs := sampleResponses(t)
	rs = append(rs, &models.Response{ID: "r3", SurveyID: survey.ID, CreatedAt: fixedNow,
		Answers: []*models.Answer{answerWith(survey.QuestionByCode("z1"), "N")}})
	svc := NewAnalyticsService(&stubLister{survey: survey, responses: rs})

	alpha, n, err := svc.Alpha(context.Background(), survey.ID)
	if err != nil {
		t.Fatalf("alpha: %v", err)
	}
	if n != 2 || math.Abs(alpha-1) > 1e-9 {
		t.Fatalf("want alpha 1 over 2 rows, got %f/%d", alpha, n)
	}
}

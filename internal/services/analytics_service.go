package services

import (
	"context"
	"sort"

	"github.com/soaringjerry/Encuesta/internal/models"
)

type AnalyticsService struct {
	store ResponseLister
}

type AnalyticsQuestion struct {
	Code      string         `json:"code"`
	Text      string         `json:"text"`
	Histogram map[string]int `json:"histogram"` // option code -> selections
	Total     int            `json:"total"`
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type AnalyticsSummary struct {
	SurveyID       string                       `json:"survey_id"`
	TotalResponses int                          `json:"total_responses"`
	Categories     map[models.ScoreCategory]int `json:"categories"`
	Questions      []AnalyticsQuestion          `json:"questions"`
	Timeseries     []AnalyticsTimeseries        `json:"timeseries"`
	Alpha          float64                      `json:"alpha"`
	N              int                          `json:"n"`
}

func NewAnalyticsService(store ResponseLister) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Summary aggregates committed responses: category counts, per-option counts
// of likert questions, responses per day and the scale's reliability.
func (s *AnalyticsService) Summary(ctx context.Context, surveyID string) (*AnalyticsSummary, error) {
	survey, err := s.store.GetSurveyByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	likert := likertQuestions(survey)
	out := &AnalyticsSummary{
		SurveyID:       surveyID,
		TotalResponses: len(responses),
		Categories:     map[models.ScoreCategory]int{},
	}
	perDay := map[string]int{}
	hist := make([]AnalyticsQuestion, len(likert))
	for i, q := range likert {
		hist[i] = AnalyticsQuestion{Code: q.Code, Text: q.Text, Histogram: map[string]int{}}
		for _, o := range q.Options {
			hist[i].Histogram[o.Code] = 0
		}
	}
	for _, r := range responses {
		perDay[r.CreatedAt.Format(DateLayout)]++
		if r.ScoreCategory != "" {
			out.Categories[r.ScoreCategory]++
		}
		byQuestion := answersByQuestion(r)
		for i, q := range likert {
			a := byQuestion[q.ID]
			if a == nil {
				continue
			}
			for _, id := range a.OptionIDs {
				if opt := q.OptionByID(id); opt != nil {
					hist[i].Histogram[opt.Code]++
					hist[i].Total++
				}
			}
		}
	}
	out.Questions = hist
	out.Timeseries = buildTimeseries(perDay)
	matrix := buildAlphaMatrix(likert, responses)
	out.Alpha = CronbachAlpha(matrix)
	out.N = len(matrix)
	return out, nil
}

// Alpha computes Cronbach's alpha over the likert questions of responses that
// answered all of them.
func (s *AnalyticsService) Alpha(ctx context.Context, surveyID string) (float64, int, error) {
	survey, err := s.store.GetSurveyByID(ctx, surveyID)
	if err != nil {
		return 0, 0, err
	}
	responses, err := s.store.ListResponses(ctx, surveyID)
	if err != nil {
		return 0, 0, err
	}
	matrix := buildAlphaMatrix(likertQuestions(survey), responses)
	return CronbachAlpha(matrix), len(matrix), nil
}

func likertQuestions(survey *models.Survey) []*models.Question {
	var out []*models.Question
	for _, q := range survey.Questions() {
		if q.Type == models.QuestionLikert {
			out = append(out, q)
		}
	}
	return out
}

func answersByQuestion(r *models.Response) map[string]*models.Answer {
	out := make(map[string]*models.Answer, len(r.Answers))
	for _, a := range r.Answers {
		out[a.QuestionID] = a
	}
	return out
}

func buildAlphaMatrix(likert []*models.Question, responses []*models.Response) [][]float64 {
	if len(likert) < 2 {
		return nil
	}
	var matrix [][]float64
	for _, r := range responses {
		byQuestion := answersByQuestion(r)
		row := make([]float64, 0, len(likert))
		for _, q := range likert {
			a := byQuestion[q.ID]
			if a == nil {
				break
			}
			w, ok := answerWeight(q, a)
			if !ok {
				break
			}
			row = append(row, float64(w))
		}
		if len(row) == len(likert) {
			matrix = append(matrix, row)
		}
	}
	return matrix
}

func buildTimeseries(perDay map[string]int) []AnalyticsTimeseries {
	days := make([]string, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: perDay[d]})
	}
	return out
}

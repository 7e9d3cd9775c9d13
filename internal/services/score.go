package services

import (
	"context"

	"github.com/soaringjerry/Encuesta/internal/models"
)

// ScoreThresholds are the lower bounds of the mild-moderate and intense
// categories. Scores below Mild fall in "none".
type ScoreThresholds struct {
	Mild    int
	Intense int
}

// DefaultThresholds match the 22-item caregiver burden scale.
var DefaultThresholds = ScoreThresholds{Mild: 22, Intense: 47}

type ScoringEngine struct {
	thresholds ScoreThresholds
}

func NewScoringEngine(t ScoreThresholds) *ScoringEngine {
	if t.Mild <= 0 || t.Intense <= t.Mild {
		t = DefaultThresholds
	}
	return &ScoringEngine{thresholds: t}
}

// Categorize maps a summed score to its category.
func (e *ScoringEngine) Categorize(score int) models.ScoreCategory {
	switch {
	case score >= e.thresholds.Intense:
		return models.CategoryIntense
	case score >= e.thresholds.Mild:
		return models.CategoryMildModerate
	}
	return models.CategoryNone
}

// ComputeScore sums the weights of every option selected on likert questions.
func (e *ScoringEngine) ComputeScore(survey *models.Survey, resp *models.Response) (int, models.ScoreCategory) {
	total := 0
	for _, a := range resp.Answers {
		q := survey.QuestionByID(a.QuestionID)
		if q == nil || q.Type != models.QuestionLikert {
			continue
		}
		for _, id := range a.OptionIDs {
			if opt := q.OptionByID(id); opt != nil && opt.Weight != nil {
				total += *opt.Weight
			}
		}
	}
	return total, e.Categorize(total)
}

// ScoreStore is the persistence needed to refresh a cached score.
type ScoreStore interface {
	GetSurveyByID(ctx context.Context, id string) (*models.Survey, error)
	GetResponse(ctx context.Context, id string) (*models.Response, error)
	UpdateScore(ctx context.Context, responseID string, score int, category models.ScoreCategory) error
}

type ScoreService struct {
	store  ScoreStore
	engine *ScoringEngine
}

func NewScoreService(store ScoreStore, engine *ScoringEngine) *ScoreService {
	return &ScoreService{store: store, engine: engine}
}

// Refresh recomputes and caches the score of a committed response. Surveys
// without likert questions keep no score.
func (s *ScoreService) Refresh(ctx context.Context, responseID string) (*models.Response, error) {
	resp, err := s.store.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	survey, err := s.store.GetSurveyByID(ctx, resp.SurveyID)
	if err != nil {
		return nil, err
	}
	if !survey.HasScale() {
		return resp, nil
	}
	score, category := s.engine.ComputeScore(survey, resp)
	if resp.Score != nil && *resp.Score == score && resp.ScoreCategory == category {
		return resp, nil
	}
	if err := s.store.UpdateScore(ctx, resp.ID, score, category); err != nil {
		return nil, err
	}
	resp.Score = &score
	resp.ScoreCategory = category
	return resp, nil
}

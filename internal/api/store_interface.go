package api

import (
	"context"

	"github.com/soaringjerry/Encuesta/internal/models"
	"github.com/soaringjerry/Encuesta/internal/services"
)

// Store is the persistence surface the HTTP layer needs. *db.Store satisfies it.
type Store interface {
	services.SubmissionStore
	services.ScoreStore
	services.ResponseLister
	services.TokenStore
	services.LocationLookup

	GetSurveyByCode(ctx context.Context, code string) (*models.Survey, error)
	ListActiveSurveys(ctx context.Context) ([]*models.Survey, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	ListLocations(ctx context.Context, kind models.LocationKind, parent string) ([]models.Location, error)
	Ping(ctx context.Context) error
}

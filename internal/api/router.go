package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/soaringjerry/Encuesta/internal/middleware"
	"github.com/soaringjerry/Encuesta/internal/services"
)

// Router serves the survey engine over HTTP.
type Router struct {
	store     Store
	assembler *services.Assembler
	scores    *services.ScoreService
	exports   *services.ExportService
	analytics *services.AnalyticsService
	tokens    *services.TokenService
	signer    *middleware.SessionSigner
	idGen     func() string
}

type Deps struct {
	Store    Store
	Sessions services.SessionStore
	Signer   *middleware.SessionSigner
	Scorer   *services.ScoringEngine
}

func NewRouter(d Deps) *Router {
	scorer := d.Scorer
	if scorer == nil {
		scorer = services.NewScoringEngine(services.DefaultThresholds)
	}
	return &Router{
		store:     d.Store,
		assembler: services.NewAssembler(d.Store, d.Sessions, d.Store, scorer),
		scores:    services.NewScoreService(d.Store, scorer),
		exports:   services.NewExportService(d.Store),
		analytics: services.NewAnalyticsService(d.Store),
		tokens:    services.NewTokenService(d.Store),
		signer:    d.Signer,
		idGen:     newSessionID,
	}
}

// Register mounts every /api route on m.
func (rt *Router) Register(m *mux.Router) {
	a := m.PathPrefix("/api").Subrouter()
	a.Use(rt.signer.WithSession)

	a.HandleFunc("/surveys", rt.listSurveys).Methods(http.MethodGet)
	a.HandleFunc("/surveys/{code}", rt.getSurvey).Methods(http.MethodGet)
	a.HandleFunc("/questions/{id}/dependency", rt.questionDependency).Methods(http.MethodGet)
	a.HandleFunc("/locations", rt.listLocations).Methods(http.MethodGet)

	a.HandleFunc("/surveys/{code}/check-respondent", rt.checkRespondent).Methods(http.MethodPost)
	a.HandleFunc("/surveys/{code}/sessions", rt.startSession).Methods(http.MethodPost)
	a.HandleFunc("/surveys/{code}/sessions/current", rt.currentSession).Methods(http.MethodGet)
	a.HandleFunc("/surveys/{code}/sessions/current", rt.abandonSession).Methods(http.MethodDelete)
	a.HandleFunc("/surveys/{code}/sessions/current/respondent", rt.submitRespondent).Methods(http.MethodPost)
	a.HandleFunc("/surveys/{code}/sessions/current/sections/{index:[0-9]+}", rt.submitSection).Methods(http.MethodPost)

	a.HandleFunc("/responses/{id}", rt.getResponse).Methods(http.MethodGet)
	a.HandleFunc("/responses/{id}/score", rt.refreshScore).Methods(http.MethodPost)
	a.HandleFunc("/surveys/{code}/export", rt.export).Methods(http.MethodGet)
	a.HandleFunc("/surveys/{code}/reliability", rt.reliability).Methods(http.MethodGet)
	a.HandleFunc("/surveys/{code}/analytics", rt.summary).Methods(http.MethodGet)
	a.HandleFunc("/surveys/{code}/tokens", rt.issueTokens).Methods(http.MethodPost)
}

package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/soaringjerry/Encuesta/internal/models"
)

type surveySummary struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	RequireToken bool   `json:"require_token"`
}

// GET /api/surveys
func (rt *Router) listSurveys(w http.ResponseWriter, r *http.Request) {
	list, err := rt.store.ListActiveSurveys(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out := make([]surveySummary, 0, len(list))
	for _, s := range list {
		out = append(out, surveySummary{Code: s.Code, Name: s.Name, Description: s.Description, RequireToken: s.RequireToken})
	}
	writeJSON(w, http.StatusOK, map[string]any{"surveys": out})
}

// GET /api/surveys/{code}
func (rt *Router) getSurvey(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, survey)
}

// GET /api/questions/{id}/dependency
// Parent question data the client needs to evaluate skip logic locally.
func (rt *Router) questionDependency(w http.ResponseWriter, r *http.Request) {
	q, err := rt.store.GetQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	if q.DependsOn == nil {
		writeJSON(w, http.StatusOK, map[string]any{"question_id": q.ID, "depends_on": nil})
		return
	}
	parent, err := rt.store.GetQuestion(r.Context(), q.DependsOn.ParentID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"question_id": q.ID,
		"depends_on":  q.DependsOn,
		"parent": map[string]any{
			"id":      parent.ID,
			"code":    parent.Code,
			"type":    parent.Type,
			"options": parent.Options,
		},
	})
}

// GET /api/locations?kind=&parent=
func (rt *Router) listLocations(w http.ResponseWriter, r *http.Request) {
	kind := models.LocationKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && !kind.Valid() {
		writeMessage(w, r, http.StatusBadRequest, "invalid")
		return
	}
	locs, err := rt.store.ListLocations(r.Context(), kind, strings.TrimSpace(r.URL.Query().Get("parent")))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locs})
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/soaringjerry/Encuesta/internal/services"
)

// GET /api/responses/{id}
func (rt *Router) getResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := rt.store.GetResponse(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/responses/{id}/score
func (rt *Router) refreshScore(w http.ResponseWriter, r *http.Request) {
	resp, err := rt.scores.Refresh(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"response_id":    resp.ID,
		"score":          resp.Score,
		"score_category": resp.ScoreCategory,
	})
}

// GET /api/surveys/{code}/export?format=long|wide|score
func (rt *Router) export(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	out, err := rt.exports.ExportCSV(r.Context(), services.ExportParams{SurveyID: survey.ID, Format: r.URL.Query().Get("format")})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+out.Filename+"\"")
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	_, _ = w.Write(out.Data)
}

// GET /api/surveys/{code}/reliability
func (rt *Router) reliability(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	alpha, n, err := rt.analytics.Alpha(r.Context(), survey.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"survey": survey.Code, "alpha": alpha, "n": n})
}

// GET /api/surveys/{code}/analytics
func (rt *Router) summary(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	sum, err := rt.analytics.Summary(r.Context(), survey.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type issueTokensRequest struct {
	Count           int      `json:"count"`
	Identifications []string `json:"identifications,omitempty"`
	TTLHours        int      `json:"ttl_hours,omitempty"`
}

// POST /api/surveys/{code}/tokens
func (rt *Router) issueTokens(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	var req issueTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if req.TTLHours < 0 {
		writeMessage(w, r, http.StatusBadRequest, "invalid")
		return
	}
	tokens, err := rt.tokens.Issue(r.Context(), survey, services.TokenRequest{
		Count:           req.Count,
		Identifications: req.Identifications,
		TTL:             time.Duration(req.TTLHours) * time.Hour,
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"tokens": tokens})
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/soaringjerry/Encuesta/internal/middleware"
	"github.com/soaringjerry/Encuesta/internal/models"
	"github.com/soaringjerry/Encuesta/internal/services"
)

func newSessionID() string { return uuid.NewString() }

const maxUserRef = 100

type wizardView struct {
	Token    string                `json:"token,omitempty"`
	State    *services.WizardState `json:"state"`
	Section  *services.SectionView `json:"section,omitempty"`
	Response *models.Response      `json:"response,omitempty"`
}

type checkRespondentRequest struct {
	Identification string `json:"identification"`
	DocumentType   string `json:"document_type"`
	Token          string `json:"token,omitempty"`
}

type sectionRequest struct {
	Answers map[string]services.RawAnswer `json:"answers"`
}

// wizardScope resolves the survey in the path and the session bound to it.
func (rt *Router) wizardScope(w http.ResponseWriter, r *http.Request) (*models.Survey, string, bool) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return nil, "", false
	}
	c, ok := middleware.SessionFromContext(r.Context())
	if !ok || c.SurveyID != survey.ID {
		writeMessage(w, r, http.StatusUnauthorized, "session")
		return nil, "", false
	}
	return survey, c.SessionID, true
}

func (rt *Router) view(ctx context.Context, survey *models.Survey, res *services.StepResult) wizardView {
	return wizardView{
		State:    res.State,
		Section:  rt.assembler.CurrentSection(ctx, survey, res.State),
		Response: res.Response,
	}
}

// POST /api/surveys/{code}/check-respondent
func (rt *Router) checkRespondent(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	var req checkRespondentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if req.Identification == "" || !models.DocumentType(req.DocumentType).Valid() {
		writeMessage(w, r, http.StatusBadRequest, "invalid")
		return
	}
	respondent := models.Respondent{Identification: req.Identification, DocumentType: models.DocumentType(req.DocumentType)}
	err = rt.assembler.Guard().Admit(r.Context(), survey, respondent, req.Token)
	var te *services.TokenError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	case errors.Is(err, services.ErrDuplicateRespondent), errors.As(err, &te):
		_, key := classify(err)
		body := map[string]any{"valid": false, "error": key, "message": localized(r, key)}
		if te != nil {
			body["reason"] = te.Reason
		}
		writeJSON(w, http.StatusOK, body)
	default:
		writeError(w, r, err, nil)
	}
}

// POST /api/surveys/{code}/sessions
func (rt *Router) startSession(w http.ResponseWriter, r *http.Request) {
	survey, err := rt.store.GetSurveyByCode(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	sid := rt.idGen()
	st, err := rt.assembler.Start(r.Context(), sid, survey.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	tok, err := rt.signer.Sign(sid, survey.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, wizardView{Token: tok, State: st})
}

// GET /api/surveys/{code}/sessions/current
func (rt *Router) currentSession(w http.ResponseWriter, r *http.Request) {
	survey, sid, ok := rt.wizardScope(w, r)
	if !ok {
		return
	}
	st, err := rt.assembler.State(r.Context(), sid, survey.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, rt.view(r.Context(), survey, &services.StepResult{State: st}))
}

// DELETE /api/surveys/{code}/sessions/current
func (rt *Router) abandonSession(w http.ResponseWriter, r *http.Request) {
	survey, sid, ok := rt.wizardScope(w, r)
	if !ok {
		return
	}
	if err := rt.assembler.Reset(r.Context(), sid, survey.ID); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/surveys/{code}/sessions/current/respondent
func (rt *Router) submitRespondent(w http.ResponseWriter, r *http.Request) {
	survey, sid, ok := rt.wizardScope(w, r)
	if !ok {
		return
	}
	var in services.RespondentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	in.UserRef = strings.TrimSpace(r.Header.Get(middleware.UserRefHeader))
	if len(in.UserRef) > maxUserRef {
		writeMessage(w, r, http.StatusBadRequest, "invalid")
		return
	}
	rt.writeStep(w, r, survey, http.StatusOK)(rt.assembler.SubmitRespondent(r.Context(), sid, survey.ID, in))
}

// POST /api/surveys/{code}/sessions/current/sections/{index}
func (rt *Router) submitSection(w http.ResponseWriter, r *http.Request) {
	survey, sid, ok := rt.wizardScope(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "invalid")
		return
	}
	var req sectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	rt.writeStep(w, r, survey, http.StatusOK)(rt.assembler.SubmitSection(r.Context(), sid, survey.ID, index, req.Answers))
}

func (rt *Router) writeStep(w http.ResponseWriter, r *http.Request, survey *models.Survey, status int) func(*services.StepResult, error) {
	return func(res *services.StepResult, err error) {
		if err != nil {
			var state any
			if res != nil {
				state = rt.view(r.Context(), survey, res)
			}
			writeError(w, r, err, state)
			return
		}
		if res.Response != nil {
			status = http.StatusCreated
		}
		writeJSON(w, status, rt.view(r.Context(), survey, res))
	}
}

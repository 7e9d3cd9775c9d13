package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/soaringjerry/Encuesta/internal/middleware"
	"github.com/soaringjerry/Encuesta/internal/services"
	"github.com/soaringjerry/Encuesta/internal/utils"
)

type errorBody struct {
	Error   string                   `json:"error"`
	Message string                   `json:"message"`
	Reason  string                   `json:"reason,omitempty"`
	Fields  map[string]fieldErrorOut `json:"fields,omitempty"`
	State   any                      `json:"state,omitempty"`
}

type fieldErrorOut struct {
	Kind    services.FieldErrorKind `json:"kind"`
	Message string                  `json:"message"`
	Detail  string                  `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps a service error to a status and message key.
func classify(err error) (int, string) {
	var fe services.FieldErrors
	var te *services.TokenError
	var sie *services.SchemaIntegrityError
	switch {
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity, "field_errors"
	case errors.As(err, &te):
		return http.StatusForbidden, "token_invalid"
	case errors.Is(err, services.ErrSurveyNotFound):
		return http.StatusNotFound, "survey_not_found"
	case errors.Is(err, services.ErrResponseNotFound):
		return http.StatusNotFound, "response_not_found"
	case errors.Is(err, services.ErrQuestionNotFound):
		return http.StatusNotFound, "question_not_found"
	case errors.Is(err, services.ErrDuplicateRespondent):
		return http.StatusConflict, "duplicate_respondent"
	case errors.Is(err, services.ErrConsentRequired):
		return http.StatusBadRequest, "consent_required"
	case errors.Is(err, services.ErrWrongStep):
		return http.StatusConflict, "wrong_step"
	case errors.As(err, &sie):
		return http.StatusBadRequest, "invalid"
	}
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid:
			return http.StatusBadRequest, "invalid"
		case services.ErrorForbidden:
			return http.StatusForbidden, "forbidden"
		case services.ErrorNotFound:
			return http.StatusNotFound, "not_found"
		case services.ErrorConflict:
			return http.StatusConflict, "conflict"
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeError renders err in the request locale. state, when set, is the
// unchanged wizard state returned with recoverable step errors.
func writeError(w http.ResponseWriter, r *http.Request, err error, state any) {
	status, key := classify(err)
	locale := middleware.LocaleFromContext(r.Context())
	body := errorBody{Error: key, Message: utils.T(locale, "error."+key), State: state}
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		body.State = nil
	}
	var te *services.TokenError
	if errors.As(err, &te) {
		body.Reason = string(te.Reason)
	}
	var fe services.FieldErrors
	if errors.As(err, &fe) {
		body.Fields = make(map[string]fieldErrorOut, len(fe))
		for code, e := range fe {
			body.Fields[code] = fieldErrorOut{Kind: e.Kind, Message: utils.T(locale, "field."+string(e.Kind)), Detail: e.Message}
		}
	}
	if se, ok := services.AsServiceError(err); ok && status != http.StatusInternalServerError {
		body.Message = se.Message
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, key string) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, status, errorBody{Error: key, Message: utils.T(locale, "error."+key)})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return services.NewInvalidError("invalid request body: " + err.Error())
	}
	return nil
}

func localized(r *http.Request, key string) string {
	return utils.T(middleware.LocaleFromContext(r.Context()), "error."+key)
}

package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	ErrorInvalid   ErrorCode = "invalid"
	ErrorForbidden ErrorCode = "forbidden"
	ErrorNotFound  ErrorCode = "not_found"
	ErrorConflict  ErrorCode = "conflict"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrSurveyNotFound is returned when a code or id matches no active survey.
	ErrSurveyNotFound = errors.New("survey not found")
	// ErrResponseNotFound is returned when a response id is unknown.
	ErrResponseNotFound = errors.New("response not found")
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateRespondent blocks a second response for the same survey, identification and document type.
	ErrDuplicateRespondent = errors.New("respondent already answered this survey")
	// ErrTokenInvalid is the sentinel matched by every *TokenError.
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrConsentRequired is returned when the caller sent a consent flag that was not accepted.
	ErrConsentRequired = errors.New("data protection consent required")
	// ErrWrongStep is returned when a step does not match the wizard's current state.
	ErrWrongStep = errors.New("submission is not at this step")
)

type TokenReason string

const (
	TokenMissing  TokenReason = "missing"
	TokenNotFound TokenReason = "not_found"
	TokenUsed     TokenReason = "used"
	TokenExpired  TokenReason = "expired"
	TokenMismatch TokenReason = "mismatch"
)

// TokenError explains why an access token was rejected.
type TokenError struct {
	Reason TokenReason
}

func (e *TokenError) Error() string { return "access token invalid: " + string(e.Reason) }

func (e *TokenError) Is(target error) bool { return target == ErrTokenInvalid }

// SchemaIntegrityError lists every problem found while loading a survey graph.
type SchemaIntegrityError struct {
	Survey   string
	Problems []string
}

func (e *SchemaIntegrityError) Error() string {
	return fmt.Sprintf("survey %q schema integrity: %s", e.Survey, strings.Join(e.Problems, "; "))
}

// FieldErrorKind classifies a per-question input failure.
type FieldErrorKind string

const (
	RequiredFieldMissing FieldErrorKind = "required_field_missing"
	InvalidValue         FieldErrorKind = "invalid_value"
	TooManySelections    FieldErrorKind = "too_many_selections"
	MissingScaleWeight   FieldErrorKind = "missing_scale_weight"
)

type FieldError struct {
	Kind    FieldErrorKind `json:"kind"`
	Message string         `json:"message,omitempty"`
}

func (e *FieldError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// FieldErrors maps question codes to the failure found for each.
type FieldErrors map[string]*FieldError

func (fe FieldErrors) Error() string {
	codes := make([]string, 0, len(fe))
	for code := range fe {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	parts := make([]string, 0, len(codes))
	for _, code := range codes {
		parts = append(parts, code+": "+string(fe[code].Kind))
	}
	return "invalid answers: " + strings.Join(parts, ", ")
}

// Kinds flattens the map to question code -> error kind.
func (fe FieldErrors) Kinds() map[string]FieldErrorKind {
	out := make(map[string]FieldErrorKind, len(fe))
	for code, e := range fe {
		out[code] = e.Kind
	}
	return out
}

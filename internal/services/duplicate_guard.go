package services

import (
	"context"
	"strings"
	"time"

	"github.com/soaringjerry/Encuesta/internal/models"
)

// GuardStore answers the lookups the duplicate guard needs outside a commit.
type GuardStore interface {
	ResponseExists(ctx context.Context, surveyID, identification string, doc models.DocumentType) (bool, error)
	// GetAccessToken returns nil, nil when no token matches.
	GetAccessToken(ctx context.Context, surveyID, token string) (*models.AccessToken, error)
}

// DuplicateGuard enforces one response per (survey, identification, document type)
// and the single-use access token rules.
type DuplicateGuard struct {
	store GuardStore
	now   func() time.Time
}

func NewDuplicateGuard(store GuardStore) *DuplicateGuard {
	return &DuplicateGuard{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// CheckDuplicate reports whether a response already exists for the triple.
func (g *DuplicateGuard) CheckDuplicate(ctx context.Context, surveyID, identification string, doc models.DocumentType) (bool, error) {
	return g.store.ResponseExists(ctx, surveyID, strings.TrimSpace(identification), doc)
}

// CheckToken validates a looked-up token against the submitting identification.
func (g *DuplicateGuard) CheckToken(tok *models.AccessToken, identification string) error {
	if tok == nil {
		return &TokenError{Reason: TokenNotFound}
	}
	if tok.Used {
		return &TokenError{Reason: TokenUsed}
	}
	if !tok.IsValid(g.now()) {
		return &TokenError{Reason: TokenExpired}
	}
	if tok.ExpectedIdentification != "" && tok.ExpectedIdentification != strings.TrimSpace(identification) {
		return &TokenError{Reason: TokenMismatch}
	}
	return nil
}

// Admit runs the identity-step checks: no prior response and, when the survey
// requires it, a usable token. The commit repeats both under a transaction.
func (g *DuplicateGuard) Admit(ctx context.Context, survey *models.Survey, r models.Respondent, token string) error {
	dup, err := g.CheckDuplicate(ctx, survey.ID, r.Identification, r.DocumentType)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateRespondent
	}
	if !survey.RequireToken {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return &TokenError{Reason: TokenMissing}
	}
	tok, err := g.store.GetAccessToken(ctx, survey.ID, token)
	if err != nil {
		return err
	}
	return g.CheckToken(tok, r.Identification)
}

package services

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/soaringjerry/Encuesta/internal/models"
	"golang.org/x/crypto/blake2b"
)

// ConsentRecord is the data-protection acceptance captured at the identity step.
type ConsentRecord struct {
	Accepted   bool      `json:"accepted"`
	AcceptedAt time.Time `json:"accepted_at,omitempty"`
	Hash       string    `json:"hash,omitempty"`
}

type ConsentService struct {
	now func() time.Time
}

func NewConsentService() *ConsentService {
	return &ConsentService{now: func() time.Time { return time.Now().UTC() }}
}

// Sign records the caller's consent flag. A nil flag means the caller does not
// collect consent; an explicit false blocks the identity step.
func (s *ConsentService) Sign(surveyID string, r models.Respondent, accepted *bool) (*ConsentRecord, error) {
	if accepted == nil {
		return &ConsentRecord{}, nil
	}
	if !*accepted {
		return nil, ErrConsentRequired
	}
	at := s.now()
	evidence := strings.Join([]string{surveyID, r.Identification, string(r.DocumentType), at.Format(time.RFC3339Nano)}, "|")
	sum := blake2b.Sum256([]byte(evidence))
	return &ConsentRecord{Accepted: true, AcceptedAt: at, Hash: hex.EncodeToString(sum[:])}, nil
}

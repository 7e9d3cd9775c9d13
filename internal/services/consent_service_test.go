package services

import (
	"errors"
	"testing"
	"time"

	"github.com/soaringjerry/Encuesta/internal/models"
)

func TestConsentSign(t *testing.T) {
	svc := NewConsentService()
	svc.now = func() time.Time { return fixedNow }
	r := models.Respondent{Identification: "1020", DocumentType: models.DocCitizenID}

	rec, err := svc.Sign("s1", r, nil)
	if err != nil || rec.Accepted || rec.Hash != "" {
		t.Fatalf("nil flag should record nothing: %+v %v", rec, err)
	}
	if _, err := svc.Sign("s1", r, boolp(false)); !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("want consent required, got %v", err)
	}
	rec, err = svc.Sign("s1", r, boolp(true))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !rec.Accepted || !rec.AcceptedAt.Equal(fixedNow) || len(rec.Hash) != 64 {
		t.Fatalf("unexpected record %+v", rec)
	}
	again, _ := svc.Sign("s1", r, boolp(true))
	if again.Hash != rec.Hash {
		t.Fatalf("same evidence should hash the same")
	}
	other, _ := svc.Sign("s2", r, boolp(true))
	if other.Hash == rec.Hash {
		t.Fatalf("hash must depend on the survey")
	}
}

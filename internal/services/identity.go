package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/soaringjerry/Encuesta/internal/models"
)

// RespondentInput is the identity step payload.
type RespondentInput struct {
	Identification    string `json:"identification" validate:"required,max=30"`
	DocumentType      string `json:"document_type" validate:"required,doctype"`
	FullName          string `json:"full_name" validate:"max=200"`
	Email             string `json:"email" validate:"omitempty,email,max=254"`
	Phone             string `json:"phone" validate:"max=30"`
	InterviewerRef    string `json:"interviewer_ref" validate:"max=30"`
	Token             string `json:"token" validate:"max=64"`
	ConsentAccepted   *bool  `json:"data_protection_accepted"`
	Source            string `json:"source" validate:"max=80"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"max=100"`
	UserRef           string `json:"-"`
}

func (in RespondentInput) respondent() models.Respondent {
	return models.Respondent{
		Identification: strings.TrimSpace(in.Identification),
		DocumentType:   models.DocumentType(strings.TrimSpace(in.DocumentType)),
		FullName:       strings.TrimSpace(in.FullName),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		InterviewerRef: strings.TrimSpace(in.InterviewerRef),
	}
}

func newIdentityValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		return models.DocumentType(strings.TrimSpace(fl.Field().String())).Valid()
	})
	return v
}

// validateIdentity returns field errors keyed by the json field name.
func validateIdentity(v *validator.Validate, in RespondentInput) FieldErrors {
	in.Identification = strings.TrimSpace(in.Identification)
	in.DocumentType = strings.TrimSpace(in.DocumentType)
	in.Email = strings.TrimSpace(in.Email)
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"identification": {Kind: InvalidValue, Message: err.Error()}}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		kind := InvalidValue
		if fe.Tag() == "required" {
			kind = RequiredFieldMissing
		}
		out[fe.Field()] = &FieldError{Kind: kind, Message: fe.Tag()}
	}
	return out
}

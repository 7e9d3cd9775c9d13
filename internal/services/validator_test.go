package services

import (
	"context"
	"errors"
	"testing"

	"github.com/soaringjerry/Encuesta/internal/models"
)

func wantKind(t *testing.T, err error, kind FieldErrorKind) {
	t.Helper()
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("want %s field error, got %v", kind, err)
	}
	if fe.Kind != kind {
		t.Fatalf("want %s, got %s (%s)", kind, fe.Kind, fe.Message)
	}
}

func TestValidateScalarTypes(t *testing.T) {
	s := buildSample(t)
	v := NewValidator(sampleLocations())
	ctx := context.Background()

	a, err := v.Validate(ctx, s.QuestionByCode("edad"), true, raw(" 5 "))
	if err != nil || a.Integer == nil || *a.Integer != 5 {
		t.Fatalf("int 5: %+v %v", a, err)
	}
	_, err = v.Validate(ctx, s.QuestionByCode("edad"), true, raw("abc"))
	wantKind(t, err, InvalidValue)
	_, err = v.Validate(ctx, s.QuestionByCode("edad"), true, raw("121"))
	wantKind(t, err, InvalidValue)
	_, err = v.Validate(ctx, s.QuestionByCode("edad"), true, raw(""))
	wantKind(t, err, RequiredFieldMissing)

	a, err = v.Validate(ctx, s.QuestionByCode("peso"), true, raw("72.50"))
	if err != nil || !a.Decimal.Equal(*dec("72.5")) {
		t.Fatalf("decimal: %+v %v", a, err)
	}
	_, err = v.Validate(ctx, s.QuestionByCode("peso"), true, raw("72.505"))
	wantKind(t, err, InvalidValue)
	_, err = v.Validate(ctx, s.QuestionByCode("peso"), true, raw("10000000000"))
	wantKind(t, err, InvalidValue)

	a, err = v.Validate(ctx, s.QuestionByCode("vive_solo"), true, raw("TRUE"))
	if err != nil || a.Bool == nil || !*a.Bool {
		t.Fatalf("bool: %+v %v", a, err)
	}
	_, err = v.Validate(ctx, s.QuestionByCode("vive_solo"), true, raw("si"))
	wantKind(t, err, InvalidValue)

	a, err = v.Validate(ctx, s.QuestionByCode("fecha"), true, raw("2024-01-01"))
	if err != nil || a.Date == nil || a.Date.Format(DateLayout) != "2024-01-01" {
		t.Fatalf("date: %+v %v", a, err)
	}
	_, err = v.Validate(ctx, s.QuestionByCode("fecha"), true, raw("01/02/2024"))
	wantKind(t, err, InvalidValue)

	a, err = v.Validate(ctx, s.QuestionByCode("peso"), true, raw(""))
	if err != nil || a != nil {
		t.Fatalf("optional blank should be skipped: %+v %v", a, err)
	}
}

func TestValidateInactiveIsSkipped(t *testing.T) {
	s := buildSample(t)
	a, err := NewValidator(nil).Validate(context.Background(), s.QuestionByCode("sustancias"), false, raw("NOPE", "X", "Y"))
	if err != nil || a != nil {
		t.Fatalf("inactive question must not be validated: %+v %v", a, err)
	}
}

func TestValidateChoice(t *testing.T) {
	s := buildSample(t)
	v := NewValidator(nil)
	ctx := context.Background()
	sust := s.QuestionByCode("sustancias")

	_, err := v.Validate(ctx, sust, true, raw("ALC", "TAB", "MAR"))
	wantKind(t, err, TooManySelections)

	a, err := v.Validate(ctx, sust, true, raw("TAB", "ALC", "ALC"))
	if err != nil {
		t.Fatalf("two options: %v", err)
	}
	if len(a.OptionIDs) != 2 || a.OptionIDs[0] != sust.OptionByCode("ALC").ID {
		t.Fatalf("options should be deduped in schema order: %v", a.OptionIDs)
	}

	_, err = v.Validate(ctx, sust, true, raw("CAFE"))
	wantKind(t, err, InvalidValue)

	_, err = v.Validate(ctx, sust, true, raw("OTRO"))
	wantKind(t, err, RequiredFieldMissing)
	a, err = v.Validate(ctx, sust, true, RawAnswer{Values: []string{"OTRO"}, OtherText: " cafeína "})
	if err != nil || a.Text != "cafeína" {
		t.Fatalf("other text: %+v %v", a, err)
	}

	consume := s.QuestionByCode("consume")
	_, err = v.Validate(ctx, consume, true, raw("SI", "NO"))
	wantKind(t, err, TooManySelections)
	a, err = v.Validate(ctx, consume, true, raw(consume.OptionByCode("NO").ID))
	if err != nil || len(a.OptionIDs) != 1 {
		t.Fatalf("option id should be accepted: %+v %v", a, err)
	}
}

func TestValidateChoiceCountsDistinctOptions(t *testing.T) {
	s := buildSample(t)
	v := NewValidator(nil)
	ctx := context.Background()

	consume := s.QuestionByCode("consume")
	no := consume.OptionByCode("NO")
	a, err := v.Validate(ctx, consume, true, raw("NO", no.ID))
	if err != nil {
		t.Fatalf("code and id of one option are a single pick: %v", err)
	}
	if len(a.OptionIDs) != 1 || a.OptionIDs[0] != no.ID {
		t.Fatalf("option ids: %v", a.OptionIDs)
	}

	sust := s.QuestionByCode("sustancias")
	alc := sust.OptionByCode("ALC").ID
	a, err = v.Validate(ctx, sust, true, raw("ALC", alc, "TAB"))
	if err != nil || len(a.OptionIDs) != 2 {
		t.Fatalf("max choices counts distinct options: %+v %v", a, err)
	}
}

func TestValidateLikertNeedsWeight(t *testing.T) {
	q := &models.Question{ID: "l", Code: "l", Type: models.QuestionLikert, Required: true, Options: []*models.Option{
		{ID: "o1", Code: "A", Weight: intp(1)},
		{ID: "o2", Code: "B"},
	}}
	v := NewValidator(nil)
	if _, err := v.Validate(context.Background(), q, true, raw("A")); err != nil {
		t.Fatalf("weighted option: %v", err)
	}
	_, err := v.Validate(context.Background(), q, true, raw("B"))
	wantKind(t, err, MissingScaleWeight)
}

func TestValidateLocation(t *testing.T) {
	s := buildSample(t)
	q := s.QuestionByCode("barrio")
	ctx := context.Background()

	a, err := NewValidator(sampleLocations()).Validate(ctx, q, true, raw("B02", "B01"))
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if len(a.LocationIDs) != 2 || a.LocationIDs[0] != "loc-2" {
		t.Fatalf("location ids should keep pick order: %v", a.LocationIDs)
	}
	_, err = NewValidator(sampleLocations()).Validate(ctx, q, true, raw("B01", "B02", "B03"))
	wantKind(t, err, TooManySelections)
	_, err = NewValidator(sampleLocations()).Validate(ctx, q, true, raw("Z99"))
	wantKind(t, err, InvalidValue)

	_, err = NewValidator(nil).Validate(ctx, q, true, raw("B01"))
	var fe *FieldError
	if err == nil || errors.As(err, &fe) {
		t.Fatalf("missing catalog should be an infrastructure error, got %v", err)
	}
}

func TestValidateSectionUsesAnswersFromSameSection(t *testing.T) {
	s := buildSample(t)
	v := NewValidator(sampleLocations())
	datos := s.Sections[0]

	accepted, errs, err := v.ValidateSection(context.Background(), datos, AnswerSet{}, map[string]RawAnswer{
		"consume":    raw("SI"),
		"sustancias": raw("ALC"),
		"edad":       raw("40"),
	})
	if err != nil || len(errs) > 0 {
		t.Fatalf("unexpected errors: %v %v", errs, err)
	}
	if _, ok := accepted[s.QuestionByCode("sustancias").ID]; !ok {
		t.Fatalf("child activated by a sibling answer should be accepted")
	}

	accepted, errs, err = v.ValidateSection(context.Background(), datos, AnswerSet{}, map[string]RawAnswer{
		"consume":    raw("NO"),
		"sustancias": raw("ALC", "TAB", "MAR"),
		"edad":       raw("x"),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if accepted != nil {
		t.Fatalf("nothing is accepted when a question fails")
	}
	kinds := errs.Kinds()
	if len(kinds) != 1 || kinds["edad"] != InvalidValue {
		t.Fatalf("only edad should fail, inactive sustancias is ignored: %v", kinds)
	}
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%03d", prefix, n)
	}
}

func intp(v int) *int { return &v }

func boolp(v bool) *bool { return &v }

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func testLoader() *SchemaLoader {
	l := NewSchemaLoader()
	l.idGen = seqIDs("id")
	l.now = func() time.Time { return fixedNow }
	return l
}

func likertOptions() []OptionDefinition {
	return []OptionDefinition{
		{Code: "N", Label: "Nunca", Order: 1, Weight: intp(0)},
		{Code: "A", Label: "A veces", Order: 2, Weight: intp(2)},
		{Code: "S", Label: "Siempre", Order: 3, Weight: intp(4)},
	}
}

// sampleDefinition is a three-section caregiver survey covering every
// question type and both dependency kinds.
func sampleDefinition() SurveyDefinition {
	return SurveyDefinition{
		Code: "CUIDADORES",
		Name: "Cuidadores 2024",
		Sections: []SectionDefinition{
			{Title: "Escala", Order: 3, Questions: []QuestionDefinition{
				{Code: "z1", Text: "¿Siente que no tiene tiempo?", Type: models.QuestionLikert, Order: 1, Options: likertOptions()},
				{Code: "z2", Text: "¿Se siente agobiado?", Type: models.QuestionLikert, Order: 2, Options: likertOptions()},
			}},
			{Title: "Datos", Order: 1, Questions: []QuestionDefinition{
				{Code: "nombre", Text: "Nombre", Type: models.QuestionText, Order: 1, Required: boolp(false), CopyFrom: "full_name"},
				{Code: "consume", Text: "¿Consume sustancias?", Type: models.QuestionSingle, Order: 2, Options: []OptionDefinition{
					{Code: "SI", Label: "Sí", Order: 1},
					{Code: "NO", Label: "No", Order: 2},
				}},
				{Code: "sustancias", Text: "¿Cuáles?", Type: models.QuestionMulti, Order: 3, MaxChoices: 2,
					DependsOn: "consume", DependsOnOption: "SI",
					Options: []OptionDefinition{
						{Code: "ALC", Label: "Alcohol", Order: 1},
						{Code: "TAB", Label: "Tabaco", Order: 2},
						{Code: "MAR", Label: "Marihuana", Order: 3},
						{Code: "OTRO", Label: "Otra", Order: 4, IsOther: true},
					}},
				{Code: "edad", Text: "Edad", Type: models.QuestionInteger, Order: 4, MinValue: dec("0"), MaxValue: dec("120")},
			}},
			{Title: "Hogar", Order: 2, Questions: []QuestionDefinition{
				{Code: "hijos", Text: "Número de hijos", Type: models.QuestionInteger, Order: 1, Required: boolp(false)},
				{Code: "edades_hijos", Text: "Edades de los hijos", Type: models.QuestionText, Order: 2,
					DependsOn: "hijos", DependsOnValueMin: dec("1")},
				{Code: "peso", Text: "Peso (kg)", Type: models.QuestionDecimal, Order: 3, Required: boolp(false)},
				{Code: "vive_solo", Text: "¿Vive solo?", Type: models.QuestionBool, Order: 4, Required: boolp(false)},
				{Code: "fecha", Text: "Fecha de ingreso", Type: models.QuestionDate, Order: 5, Required: boolp(false)},
				{Code: "barrio", Text: "Barrio", Type: models.QuestionLocation, Order: 6, Required: boolp(false),
					LocationKind: models.LocationBarrio, MaxChoices: 2},
				{Code: "nombre_copia", Text: "Confirme su nombre", Type: models.QuestionText, Order: 7, Required: boolp(false), CopyFrom: "nombre"},
			}},
		},
	}
}

func buildSample(t *testing.T) *models.Survey {
	t.Helper()
	s, err := testLoader().Build(sampleDefinition())
	if err != nil {
		t.Fatalf("build sample: %v", err)
	}
	return s
}

func answerWith(q *models.Question, codes ...string) *models.Answer {
	a := &models.Answer{QuestionID: q.ID, QuestionCode: q.Code}
	for _, c := range codes {
		a.OptionIDs = append(a.OptionIDs, q.OptionByCode(c).ID)
	}
	return a
}

func intAnswer(q *models.Question, v int64) *models.Answer {
	return &models.Answer{QuestionID: q.ID, QuestionCode: q.Code, Integer: &v}
}

func raw(values ...string) RawAnswer { return RawAnswer{Values: values} }

type stubLocations struct {
	byKind map[models.LocationKind][]models.Location
}

func (s *stubLocations) FindLocations(_ context.Context, kind models.LocationKind, codes []string) ([]models.Location, error) {
	var out []models.Location
	for _, loc := range s.byKind[kind] {
		for _, c := range codes {
			if loc.Code == c {
				out = append(out, loc)
			}
		}
	}
	return out, nil
}

func sampleLocations() *stubLocations {
	return &stubLocations{byKind: map[models.LocationKind][]models.Location{
		models.LocationBarrio: {
			{ID: "loc-1", Kind: models.LocationBarrio, Code: "B01", Name: "El Prado"},
			{ID: "loc-2", Kind: models.LocationBarrio, Code: "B02", Name: "Boston"},
			{ID: "loc-3", Kind: models.LocationBarrio, Code: "B03", Name: "Manrique"},
		},
	}}
}

// mapSessions stores JSON copies, like the real session backends.
type mapSessions struct {
	data map[string][]byte
}

func newMapSessions() *mapSessions { return &mapSessions{data: map[string][]byte{}} }

func (m *mapSessions) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *mapSessions) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *mapSessions) Clear(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

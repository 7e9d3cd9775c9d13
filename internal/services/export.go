package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/soaringjerry/Encuesta/internal/models"
)

type LongRow struct {
	ResponseID   string
	QuestionCode string
	Value        string
	Weight       string
	SubmittedAt  string // RFC3339
}

// ExportLongCSV renders one row per answer.
func ExportLongCSV(rows []LongRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "question_code", "value", "weight", "submitted_at"})
	for _, r := range rows {
		if err := w.Write([]string{r.ResponseID, r.QuestionCode, r.Value, r.Weight, r.SubmittedAt}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportWideCSV renders one row per response with a column per header, in the
// order given. rows maps response id to header to cell.
func ExportWideCSV(headers []string, order []string, rows map[string]map[string]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(append([]string{"response_id"}, headers...))
	for _, id := range order {
		rec := make([]string, 0, 1+len(headers))
		rec = append(rec, id)
		for _, h := range headers {
			rec = append(rec, rows[id][h])
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type ScoreRow struct {
	ResponseID     string
	Identification string
	DocumentType   string
	Score          int
	Category       string
}

// ExportScoreCSV renders the cached score of each response.
func ExportScoreCSV(rows []ScoreRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "identification", "document_type", "score", "category"})
	for _, r := range rows {
		if err := w.Write([]string{r.ResponseID, r.Identification, r.DocumentType, strconv.Itoa(r.Score), r.Category}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// DisplayValue renders an answer as text. Selections join option codes with "|".
func DisplayValue(q *models.Question, a *models.Answer) string {
	switch {
	case a.Integer != nil:
		return strconv.FormatInt(*a.Integer, 10)
	case a.Decimal != nil:
		return a.Decimal.StringFixed(2)
	case a.Bool != nil:
		return strconv.FormatBool(*a.Bool)
	case a.Date != nil:
		return a.Date.Format(DateLayout)
	case len(a.OptionIDs) > 0:
		codes := make([]string, 0, len(a.OptionIDs))
		for _, id := range a.OptionIDs {
			if opt := q.OptionByID(id); opt != nil {
				codes = append(codes, opt.Code)
			}
		}
		out := strings.Join(codes, "|")
		if a.Text != "" {
			out += " (" + a.Text + ")"
		}
		return out
	case len(a.LocationIDs) > 0:
		return strings.Join(a.LocationIDs, "|")
	}
	return a.Text
}

func answerWeight(q *models.Question, a *models.Answer) (int, bool) {
	if q.Type != models.QuestionLikert || len(a.OptionIDs) == 0 {
		return 0, false
	}
	total := 0
	for _, id := range a.OptionIDs {
		if opt := q.OptionByID(id); opt != nil && opt.Weight != nil {
			total += *opt.Weight
		}
	}
	return total, true
}

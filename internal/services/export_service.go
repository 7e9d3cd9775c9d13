package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/soaringjerry/Encuesta/internal/models"
)

// ResponseLister reads committed responses of a survey with their answers.
type ResponseLister interface {
	GetSurveyByID(ctx context.Context, id string) (*models.Survey, error)
	ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error)
}

type ExportParams struct {
	SurveyID string
	Format   string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store ResponseLister
}

func NewExportService(store ResponseLister) *ExportService {
	return &ExportService{store: store}
}

func (s *ExportService) ExportCSV(ctx context.Context, params ExportParams) (*ExportResult, error) {
	if params.SurveyID == "" {
		return nil, NewInvalidError("survey required")
	}
	format := params.Format
	if format == "" {
		format = "long"
	}
	survey, err := s.store.GetSurveyByID(ctx, params.SurveyID)
	if err != nil {
		return nil, err
	}
	rs, err := s.store.ListResponses(ctx, params.SurveyID)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch format {
	case "long":
		var rows []LongRow
		for _, r := range rs {
			for _, a := range r.Answers {
				q := survey.QuestionByID(a.QuestionID)
				if q == nil {
					continue
				}
				row := LongRow{ResponseID: r.ID, QuestionCode: q.Code, Value: DisplayValue(q, a), SubmittedAt: r.CreatedAt.Format(time.RFC3339)}
				if w, ok := answerWeight(q, a); ok {
					row.Weight = strconv.Itoa(w)
				}
				rows = append(rows, row)
			}
		}
		data, err = ExportLongCSV(rows)
	case "wide":
		headers := []string{"identification", "document_type", "created_at"}
		for _, sec := range survey.Sections {
			for _, q := range sec.Questions {
				headers = append(headers, fmt.Sprintf("s%d_%s", sec.Order, q.Code))
			}
		}
		order := make([]string, 0, len(rs))
		cells := map[string]map[string]string{}
		for _, r := range rs {
			order = append(order, r.ID)
			row := map[string]string{
				"identification": r.Respondent.Identification,
				"document_type":  string(r.Respondent.DocumentType),
				"created_at":     r.CreatedAt.Format(time.RFC3339),
			}
			for _, a := range r.Answers {
				q := survey.QuestionByID(a.QuestionID)
				if q == nil {
					continue
				}
				for _, sec := range survey.Sections {
					if sec.ID == q.SectionID {
						row[fmt.Sprintf("s%d_%s", sec.Order, q.Code)] = DisplayValue(q, a)
					}
				}
			}
			cells[r.ID] = row
		}
		data, err = ExportWideCSV(headers, order, cells)
	case "score":
		rows := make([]ScoreRow, 0, len(rs))
		for _, r := range rs {
			row := ScoreRow{ResponseID: r.ID, Identification: r.Respondent.Identification, DocumentType: string(r.Respondent.DocumentType), Category: string(r.ScoreCategory)}
			if r.Score != nil {
				row.Score = *r.Score
			}
			rows = append(rows, row)
		}
		data, err = ExportScoreCSV(rows)
	default:
		return nil, NewInvalidError("unsupported format")
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("%s_%s.csv", survey.Code, format),
		ContentType: "text/csv; charset=utf-8",
		Data:        data,
	}, nil
}

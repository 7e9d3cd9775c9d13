package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
	"github.com/soaringjerry/Encuesta/internal/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed persistence for surveys, catalogs and responses.
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) (*Store, error) {
	if gdb == nil {
		return nil, errors.New("nil db")
	}
	return &Store{db: gdb}, nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ---- surveys ----

func (s *Store) SurveyCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&surveyRow{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveSurvey writes a validated survey tree in one transaction. Questions are
// inserted in schema order so dependency parents exist before their children.
func (s *Store) SaveSurvey(ctx context.Context, sv *models.Survey) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sv.CreatedAt.IsZero() {
			sv.CreatedAt = time.Now().UTC()
		}
		row := &surveyRow{
			ID:           sv.ID,
			Code:         sv.Code,
			Name:         sv.Name,
			Description:  sv.Description,
			IsActive:     sv.Active,
			RequireToken: sv.RequireToken,
			CreatedAt:    sv.CreatedAt,
		}
		var clash []surveyRow
		if err := tx.Where("code = ? OR name = ?", sv.Code, sv.Name).Limit(1).Find(&clash).Error; err != nil {
			return err
		}
		if len(clash) > 0 {
			if clash[0].Code == sv.Code {
				return services.NewConflictError(fmt.Sprintf("survey code %q already exists", sv.Code))
			}
			return services.NewConflictError(fmt.Sprintf("survey name %q is already used by %q", sv.Name, clash[0].Code))
		}
		if err := tx.Create(row).Error; err != nil {
			if isUniqueViolation(err) {
				return services.NewConflictError(fmt.Sprintf("survey %q or its name %q already exists", sv.Code, sv.Name))
			}
			return err
		}
		for si, sec := range sv.Sections {
			if err := tx.Create(&sectionRow{ID: sec.ID, SurveyID: sv.ID, Title: sec.Title, Position: sec.Order, Seq: si}).Error; err != nil {
				return fmt.Errorf("insert section %d: %w", sec.Order, err)
			}
			for qi, q := range sec.Questions {
				qr := &questionRow{
					ID:           q.ID,
					SectionID:    sec.ID,
					Code:         q.Code,
					Text:         q.Text,
					HelpText:     q.HelpText,
					QType:        string(q.Type),
					Required:     q.Required,
					Position:     q.Order,
					Seq:          qi,
					MaxChoices:   q.MaxChoices,
					MinValue:     nullDecimal(q.MinValue),
					MaxValue:     nullDecimal(q.MaxValue),
					Display:      string(q.Display),
					LocationKind: string(q.LocationKind),
					CopyFrom:     q.CopyFrom,
				}
				if d := q.DependsOn; d != nil {
					qr.DependsOnID = strPtr(d.ParentID)
					qr.DependsOnOptionID = strPtr(d.OptionID)
					qr.DependsOnValueMin = nullDecimal(d.Min)
					qr.DependsOnValueMax = nullDecimal(d.Max)
				}
				if err := tx.Create(qr).Error; err != nil {
					return fmt.Errorf("insert question %s: %w", q.Code, err)
				}
				if len(q.Options) == 0 {
					continue
				}
				opts := make([]optionRow, 0, len(q.Options))
				for oi, o := range q.Options {
					opts = append(opts, optionRow{
						ID:           o.ID,
						QuestionID:   q.ID,
						Code:         o.Code,
						Label:        o.Label,
						Position:     o.Order,
						Seq:          oi,
						NumericValue: o.Weight,
						IsOther:      o.IsOther,
					})
				}
				if err := tx.Create(&opts).Error; err != nil {
					return fmt.Errorf("insert options of %s: %w", q.Code, err)
				}
			}
		}
		return nil
	})
}

func (s *Store) GetSurveyByID(ctx context.Context, id string) (*models.Survey, error) {
	var row surveyRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrSurveyNotFound
		}
		return nil, err
	}
	return s.loadTree(ctx, &row)
}

// GetSurveyByCode returns the active survey with the code.
func (s *Store) GetSurveyByCode(ctx context.Context, code string) (*models.Survey, error) {
	var row surveyRow
	if err := s.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrSurveyNotFound
		}
		return nil, err
	}
	return s.loadTree(ctx, &row)
}

// ListActiveSurveys returns active surveys without their sections, newest first.
func (s *Store) ListActiveSurveys(ctx context.Context) ([]*models.Survey, error) {
	var rows []surveyRow
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at DESC").Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Survey, 0, len(rows))
	for i := range rows {
		out = append(out, toSurveyModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) loadTree(ctx context.Context, row *surveyRow) (*models.Survey, error) {
	sv := toSurveyModel(row)
	db := s.db.WithContext(ctx)

	var secs []sectionRow
	if err := db.Where("survey_id = ?", row.ID).Order("position").Order("seq").Find(&secs).Error; err != nil {
		return nil, err
	}
	var qs []questionRow
	if err := db.Joins("JOIN sections ON sections.id = questions.section_id").
		Where("sections.survey_id = ?", row.ID).
		Order("questions.position").Order("questions.seq").
		Find(&qs).Error; err != nil {
		return nil, err
	}
	var opts []optionRow
	if err := db.Joins("JOIN questions ON questions.id = options.question_id").
		Joins("JOIN sections ON sections.id = questions.section_id").
		Where("sections.survey_id = ?", row.ID).
		Order("options.position").Order("options.seq").
		Find(&opts).Error; err != nil {
		return nil, err
	}

	bySection := make(map[string]*models.Section, len(secs))
	for i := range secs {
		sec := &models.Section{ID: secs[i].ID, SurveyID: sv.ID, Title: secs[i].Title, Order: secs[i].Position}
		bySection[sec.ID] = sec
		sv.Sections = append(sv.Sections, sec)
	}
	byQuestion := make(map[string]*models.Question, len(qs))
	for i := range qs {
		q := toQuestionModel(&qs[i])
		byQuestion[q.ID] = q
		if sec := bySection[q.SectionID]; sec != nil {
			sec.Questions = append(sec.Questions, q)
		}
	}
	for i := range opts {
		o := toOptionModel(&opts[i])
		if q := byQuestion[o.QuestionID]; q != nil {
			q.Options = append(q.Options, o)
		}
	}
	for _, q := range byQuestion {
		fillDependencyCodes(q, byQuestion)
	}
	return sv, nil
}

func fillDependencyCodes(q *models.Question, byID map[string]*models.Question) {
	if q.DependsOn == nil {
		return
	}
	parent := byID[q.DependsOn.ParentID]
	if parent == nil {
		return
	}
	q.DependsOn.ParentCode = parent.Code
	if q.DependsOn.OptionID != "" {
		if o := parent.OptionByID(q.DependsOn.OptionID); o != nil {
			q.DependsOn.OptionCode = o.Code
		}
	}
}

// GetQuestion returns a question with its options and dependency codes.
func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	db := s.db.WithContext(ctx)
	var row questionRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrQuestionNotFound
		}
		return nil, err
	}
	q := toQuestionModel(&row)
	byID := map[string]*models.Question{q.ID: q}
	ids := []string{q.ID}
	if row.DependsOnID != nil && *row.DependsOnID != q.ID {
		var prow questionRow
		if err := db.Where("id = ?", *row.DependsOnID).First(&prow).Error; err == nil {
			p := toQuestionModel(&prow)
			byID[p.ID] = p
			ids = append(ids, p.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	var opts []optionRow
	if err := db.Where("question_id IN ?", ids).Order("position").Order("seq").Find(&opts).Error; err != nil {
		return nil, err
	}
	for i := range opts {
		o := toOptionModel(&opts[i])
		if owner := byID[o.QuestionID]; owner != nil {
			owner.Options = append(owner.Options, o)
		}
	}
	fillDependencyCodes(q, byID)
	return q, nil
}

// ---- catalogs ----

func (s *Store) UpsertInterviewer(ctx context.Context, iv *models.Interviewer) error {
	row := &interviewerRow{
		ID:             iv.ID,
		FullName:       iv.FullName,
		DocumentNumber: iv.DocumentNumber,
		DocumentType:   string(iv.DocumentType),
		Phone:          iv.Phone,
		Email:          iv.Email,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "document_type", "phone", "email"}),
	}).Create(row).Error
}

func (s *Store) FindInterviewer(ctx context.Context, documentNumber string) (*models.Interviewer, error) {
	var row interviewerRow
	if err := s.db.WithContext(ctx).Where("document_number = ?", documentNumber).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &models.Interviewer{
		ID:             row.ID,
		FullName:       row.FullName,
		DocumentNumber: row.DocumentNumber,
		DocumentType:   models.DocumentType(row.DocumentType),
		Phone:          row.Phone,
		Email:          row.Email,
	}, nil
}

func (s *Store) UpsertLocation(ctx context.Context, loc *models.Location) error {
	row := &locationRow{ID: loc.ID, Kind: string(loc.Kind), Code: loc.Code, Name: loc.Name, ParentCode: loc.ParentCode}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "parent_code"}),
	}).Create(row).Error
}

func (s *Store) FindLocations(ctx context.Context, kind models.LocationKind, codes []string) ([]models.Location, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var rows []locationRow
	if err := s.db.WithContext(ctx).Where("kind = ? AND code IN ?", string(kind), codes).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLocations(rows), nil
}

// ListLocations filters the catalog by kind and, when set, parent code.
func (s *Store) ListLocations(ctx context.Context, kind models.LocationKind, parent string) ([]models.Location, error) {
	q := s.db.WithContext(ctx).Model(&locationRow{})
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}
	if parent != "" {
		q = q.Where("parent_code = ?", parent)
	}
	var rows []locationRow
	if err := q.Order("name").Order("code").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toLocations(rows), nil
}

func toLocations(rows []locationRow) []models.Location {
	out := make([]models.Location, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Location{ID: r.ID, Kind: models.LocationKind(r.Kind), Code: r.Code, Name: r.Name, ParentCode: r.ParentCode})
	}
	return out
}

// ---- tokens ----

func (s *Store) InsertAccessTokens(ctx context.Context, tokens []*models.AccessToken) error {
	if len(tokens) == 0 {
		return nil
	}
	rows := make([]accessTokenRow, 0, len(tokens))
	for _, t := range tokens {
		rows = append(rows, accessTokenRow{
			ID:                     t.ID,
			SurveyID:               t.SurveyID,
			Token:                  t.Token,
			ExpectedIdentification: t.ExpectedIdentification,
			Used:                   t.Used,
			ExpiresAt:              t.ExpiresAt,
		})
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		if isUniqueViolation(err) {
			return services.NewConflictError("access token already exists")
		}
		return err
	}
	return nil
}

func (s *Store) GetAccessToken(ctx context.Context, surveyID, token string) (*models.AccessToken, error) {
	return getAccessToken(s.db.WithContext(ctx), surveyID, token)
}

func getAccessToken(db *gorm.DB, surveyID, token string) (*models.AccessToken, error) {
	var row accessTokenRow
	if err := db.Where("survey_id = ? AND token = ?", surveyID, token).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toTokenModel(&row), nil
}

// ---- responses ----

func (s *Store) ResponseExists(ctx context.Context, surveyID, identification string, doc models.DocumentType) (bool, error) {
	return responseExists(s.db.WithContext(ctx), surveyID, identification, doc)
}

func responseExists(db *gorm.DB, surveyID, identification string, doc models.DocumentType) (bool, error) {
	var n int64
	err := db.Model(&responseRow{}).
		Where("survey_id = ? AND identification = ? AND document_type = ?", surveyID, identification, string(doc)).
		Count(&n).Error
	return n > 0, err
}

// RunAtomic runs fn inside one database transaction. Any error rolls back.
func (s *Store) RunAtomic(ctx context.Context, fn func(tx services.CommitTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&commitTx{db: tx})
	})
}

type commitTx struct {
	db *gorm.DB
}

func (t *commitTx) ResponseExists(surveyID, identification string, doc models.DocumentType) (bool, error) {
	return responseExists(t.db, surveyID, identification, doc)
}

// LockAccessToken selects the token FOR UPDATE. SQLite ignores the locking
// clause; its single connection already serializes writers.
func (t *commitTx) LockAccessToken(surveyID, token string) (*models.AccessToken, error) {
	return getAccessToken(t.db.Clauses(clause.Locking{Strength: "UPDATE"}), surveyID, token)
}

func (t *commitTx) MarkTokenUsed(tokenID string) error {
	res := t.db.Model(&accessTokenRow{}).Where("id = ? AND used = ?", tokenID, false).Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &services.TokenError{Reason: services.TokenUsed}
	}
	return nil
}

func (t *commitTx) InsertResponse(resp *models.Response) error {
	if err := t.db.Create(fromResponseModel(resp)).Error; err != nil {
		if isUniqueViolation(err) {
			return services.ErrDuplicateRespondent
		}
		return err
	}
	for _, a := range resp.Answers {
		a.ResponseID = resp.ID
		if err := t.db.Create(fromAnswerModel(a)).Error; err != nil {
			return fmt.Errorf("insert answer %s: %w", a.QuestionCode, err)
		}
		if len(a.OptionIDs) > 0 {
			rows := make([]answerOptionRow, 0, len(a.OptionIDs))
			for _, id := range a.OptionIDs {
				rows = append(rows, answerOptionRow{AnswerID: a.ID, OptionID: id})
			}
			if err := t.db.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert options of %s: %w", a.QuestionCode, err)
			}
		}
		if len(a.LocationIDs) > 0 {
			rows := make([]answerLocationRow, 0, len(a.LocationIDs))
			for i, id := range a.LocationIDs {
				rows = append(rows, answerLocationRow{AnswerID: a.ID, LocationID: id, Position: i})
			}
			if err := t.db.Create(&rows).Error; err != nil {
				return fmt.Errorf("insert locations of %s: %w", a.QuestionCode, err)
			}
		}
	}
	return nil
}

func (s *Store) GetResponse(ctx context.Context, id string) (*models.Response, error) {
	db := s.db.WithContext(ctx)
	var row responseRow
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrResponseNotFound
		}
		return nil, err
	}
	resp := toResponseModel(&row)
	if err := s.loadAnswers(db, []*models.Response{resp}, db.Model(&responseRow{}).Select("id").Where("id = ?", id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListResponses returns every response of a survey with its answers, oldest first.
func (s *Store) ListResponses(ctx context.Context, surveyID string) ([]*models.Response, error) {
	db := s.db.WithContext(ctx)
	var rows []responseRow
	if err := db.Where("survey_id = ?", surveyID).Order("created_at").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Response, 0, len(rows))
	for i := range rows {
		out = append(out, toResponseModel(&rows[i]))
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := s.loadAnswers(db, out, db.Model(&responseRow{}).Select("id").Where("survey_id = ?", surveyID)); err != nil {
		return nil, err
	}
	return out, nil
}

// answerScan mirrors answerRow plus the joined question code. gorm ignores
// unexported embedded structs, so the columns are listed here.
type answerScan struct {
	ID            string
	ResponseID    string
	QuestionID    string
	TextAnswer    string
	IntegerAnswer *int64
	DecimalAnswer decimal.NullDecimal
	BoolAnswer    *bool
	DateAnswer    *datatypes.Date
	QuestionCode  string
}

func (a *answerScan) row() *answerRow {
	return &answerRow{
		ID:            a.ID,
		ResponseID:    a.ResponseID,
		QuestionID:    a.QuestionID,
		TextAnswer:    a.TextAnswer,
		IntegerAnswer: a.IntegerAnswer,
		DecimalAnswer: a.DecimalAnswer,
		BoolAnswer:    a.BoolAnswer,
		DateAnswer:    a.DateAnswer,
	}
}

type answerOptionScan struct {
	AnswerID string
	OptionID string
}

// loadAnswers attaches answers to responses. scope selects the response ids.
// Option ids come back in schema order and location ids in pick order.
func (s *Store) loadAnswers(db *gorm.DB, responses []*models.Response, scope *gorm.DB) error {
	var rows []answerScan
	if err := db.Table("answers").
		Select("answers.*, questions.code AS question_code").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Joins("JOIN sections ON sections.id = questions.section_id").
		Where("answers.response_id IN (?)", scope).
		Order("sections.position").Order("questions.position").Order("questions.seq").
		Scan(&rows).Error; err != nil {
		return err
	}
	var opts []answerOptionScan
	if err := db.Table("answer_options").
		Select("answer_options.answer_id, answer_options.option_id").
		Joins("JOIN options ON options.id = answer_options.option_id").
		Joins("JOIN answers ON answers.id = answer_options.answer_id").
		Where("answers.response_id IN (?)", scope).
		Order("options.position").Order("options.seq").
		Scan(&opts).Error; err != nil {
		return err
	}
	var locs []answerLocationRow
	if err := db.Table("answer_locations").
		Select("answer_locations.*").
		Joins("JOIN answers ON answers.id = answer_locations.answer_id").
		Where("answers.response_id IN (?)", scope).
		Order("answer_locations.position").
		Scan(&locs).Error; err != nil {
		return err
	}

	byResponse := make(map[string]*models.Response, len(responses))
	for _, r := range responses {
		byResponse[r.ID] = r
	}
	byAnswer := make(map[string]*models.Answer, len(rows))
	for i := range rows {
		a := toAnswerModel(rows[i].row())
		a.QuestionCode = rows[i].QuestionCode
		byAnswer[a.ID] = a
		if r := byResponse[a.ResponseID]; r != nil {
			r.Answers = append(r.Answers, a)
		}
	}
	for _, o := range opts {
		if a := byAnswer[o.AnswerID]; a != nil {
			a.OptionIDs = append(a.OptionIDs, o.OptionID)
		}
	}
	for _, l := range locs {
		if a := byAnswer[l.AnswerID]; a != nil {
			a.LocationIDs = append(a.LocationIDs, l.LocationID)
		}
	}
	return nil
}

func (s *Store) UpdateScore(ctx context.Context, responseID string, score int, category models.ScoreCategory) error {
	res := s.db.WithContext(ctx).Model(&responseRow{}).Where("id = ?", responseID).
		Updates(map[string]any{"score": score, "score_category": string(category)})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrResponseNotFound
	}
	return nil
}

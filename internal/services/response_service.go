package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/soaringjerry/Encuesta/internal/models"
)

// Stage is the position of a submission in the wizard.
type Stage string

const (
	StageRespondent Stage = "collecting_respondent"
	StageSection    Stage = "collecting_section"
	StageCommitted  Stage = "committed"
)

// WizardState is the per-submitter progress kept in the session store between steps.
type WizardState struct {
	SurveyID          string             `json:"survey_id"`
	Stage             Stage              `json:"stage"`
	SectionIndex      int                `json:"section_index"`
	Respondent        *models.Respondent `json:"respondent,omitempty"`
	InterviewerID     string             `json:"interviewer_id,omitempty"`
	Token             string             `json:"token,omitempty"`
	Source            string             `json:"source,omitempty"`
	DeviceFingerprint string             `json:"device_fingerprint,omitempty"`
	UserRef           string             `json:"user_ref,omitempty"`
	Consent           *ConsentRecord     `json:"consent,omitempty"`
	Answers           AnswerSet          `json:"answers,omitempty"`
	ResponseID        string             `json:"response_id,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// SessionStore is the transient key-value scope of one submitter.
// Get returns false when the key is absent.
type SessionStore interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Clear(ctx context.Context, keys ...string) error
}

// CommitTx is the view of the store inside the commit transaction.
type CommitTx interface {
	ResponseExists(surveyID, identification string, doc models.DocumentType) (bool, error)
	// LockAccessToken reads the token row for update; nil, nil when absent.
	LockAccessToken(surveyID, token string) (*models.AccessToken, error)
	// InsertResponse stores the response and its answers. A natural-key
	// collision is reported as ErrDuplicateRespondent.
	InsertResponse(resp *models.Response) error
	MarkTokenUsed(tokenID string) error
}

// SubmissionStore abstracts persistence operations required by the Assembler.
type SubmissionStore interface {
	GuardStore
	GetSurveyByID(ctx context.Context, id string) (*models.Survey, error)
	// FindInterviewer returns nil, nil when no interviewer has the document number.
	FindInterviewer(ctx context.Context, documentNumber string) (*models.Interviewer, error)
	RunAtomic(ctx context.Context, fn func(tx CommitTx) error) error
}

// StepResult reports the state after a step and, once committed, the response.
type StepResult struct {
	State    *WizardState     `json:"state"`
	Response *models.Response `json:"response,omitempty"`
}

// Assembler drives a multi-step submission from identity to commit.
type Assembler struct {
	store       SubmissionStore
	sessions    SessionStore
	guard       *DuplicateGuard
	validator   *Validator
	scorer      *ScoringEngine
	consent     *ConsentService
	identity    *validator.Validate
	now         func() time.Time
	idGenerator func() string
}

// NewAssembler wires the submission workflow. locations may be nil when no
// survey uses location questions.
func NewAssembler(store SubmissionStore, sessions SessionStore, locations LocationLookup, scorer *ScoringEngine) *Assembler {
	if scorer == nil {
		scorer = NewScoringEngine(DefaultThresholds)
	}
	return &Assembler{
		store:       store,
		sessions:    sessions,
		guard:       NewDuplicateGuard(store),
		validator:   NewValidator(locations),
		scorer:      scorer,
		consent:     NewConsentService(),
		identity:    newIdentityValidator(),
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

// Guard exposes the duplicate guard for early checks.
func (a *Assembler) Guard() *DuplicateGuard { return a.guard }

func sessionKey(surveyID, sessionID string) string {
	return "wizard:" + surveyID + ":" + sessionID
}

func (a *Assembler) activeSurvey(ctx context.Context, surveyID string) (*models.Survey, error) {
	survey, err := a.store.GetSurveyByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !survey.Active {
		return nil, ErrSurveyNotFound
	}
	return survey, nil
}

func (a *Assembler) fresh(surveyID string) *WizardState {
	return &WizardState{SurveyID: surveyID, Stage: StageRespondent, Answers: AnswerSet{}, UpdatedAt: a.now()}
}

// State returns the saved progress, or a new submission when none exists.
func (a *Assembler) State(ctx context.Context, sessionID, surveyID string) (*WizardState, error) {
	var st WizardState
	ok, err := a.sessions.Get(ctx, sessionKey(surveyID, sessionID), &st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return a.fresh(surveyID), nil
	}
	if st.Answers == nil {
		st.Answers = AnswerSet{}
	}
	return &st, nil
}

func (a *Assembler) save(ctx context.Context, sessionID string, st *WizardState) error {
	st.UpdatedAt = a.now()
	return a.sessions.Set(ctx, sessionKey(st.SurveyID, sessionID), st)
}

// Start opens a new submission, discarding any previous progress.
func (a *Assembler) Start(ctx context.Context, sessionID, surveyID string) (*WizardState, error) {
	if _, err := a.activeSurvey(ctx, surveyID); err != nil {
		return nil, err
	}
	st := a.fresh(surveyID)
	if err := a.save(ctx, sessionID, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Reset drops the submission's transient state.
func (a *Assembler) Reset(ctx context.Context, sessionID, surveyID string) error {
	return a.sessions.Clear(ctx, sessionKey(surveyID, sessionID))
}

// SubmitRespondent moves CollectingRespondent to CollectingSection(0). On any
// failure the state is unchanged and the error is FieldErrors,
// ErrDuplicateRespondent, a *TokenError or ErrConsentRequired.
func (a *Assembler) SubmitRespondent(ctx context.Context, sessionID, surveyID string, in RespondentInput) (*StepResult, error) {
	survey, err := a.activeSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	st, err := a.State(ctx, sessionID, surveyID)
	if err != nil {
		return nil, err
	}
	res := &StepResult{State: st}
	if st.Stage != StageRespondent {
		return res, ErrWrongStep
	}
	if errs := validateIdentity(a.identity, in); len(errs) > 0 {
		return res, errs
	}
	r := in.respondent()

	var interviewerID string
	if r.InterviewerRef != "" {
		iv, err := a.store.FindInterviewer(ctx, r.InterviewerRef)
		if err != nil {
			return nil, err
		}
		if iv == nil {
			return res, FieldErrors{"interviewer_ref": {Kind: InvalidValue, Message: "unknown interviewer"}}
		}
		interviewerID = iv.ID
	}
	consent, err := a.consent.Sign(survey.ID, r, in.ConsentAccepted)
	if err != nil {
		return res, err
	}
	if err := a.guard.Admit(ctx, survey, r, in.Token); err != nil {
		return res, err
	}

	next := *st
	next.Respondent = &r
	next.InterviewerID = interviewerID
	next.Token = in.Token
	next.Source = in.Source
	next.DeviceFingerprint = in.DeviceFingerprint
	next.UserRef = in.UserRef
	next.Consent = consent
	next.Answers = AnswerSet{}
	next.Stage = StageSection
	next.SectionIndex = 0
	if len(survey.Sections) == 0 {
		return a.commit(ctx, sessionID, survey, st, &next)
	}
	if err := a.save(ctx, sessionID, &next); err != nil {
		return nil, err
	}
	res.State = &next
	return res, nil
}

// SubmitSection validates section index against the answers collected so far.
// The last section commits the response. Validation failures return
// FieldErrors keyed by question code and leave the state where it was.
func (a *Assembler) SubmitSection(ctx context.Context, sessionID, surveyID string, index int, raws map[string]RawAnswer) (*StepResult, error) {
	survey, err := a.activeSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	st, err := a.State(ctx, sessionID, surveyID)
	if err != nil {
		return nil, err
	}
	res := &StepResult{State: st}
	if st.Stage != StageSection || st.SectionIndex != index {
		return res, ErrWrongStep
	}
	sec := survey.SectionAt(index)
	if sec == nil {
		return res, ErrWrongStep
	}
	accepted, errs, err := a.validator.ValidateSection(ctx, sec, st.Answers, raws)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return res, errs
	}

	next := *st
	next.Answers = AnswerSet{}
	for id, ans := range st.Answers {
		next.Answers[id] = ans
	}
	for id, ans := range accepted {
		next.Answers[id] = ans
	}
	if index < len(survey.Sections)-1 {
		next.SectionIndex = index + 1
		if err := a.save(ctx, sessionID, &next); err != nil {
			return nil, err
		}
		res.State = &next
		return res, nil
	}
	return a.commit(ctx, sessionID, survey, st, &next)
}

// commit persists the response in one transaction: duplicate re-check, token
// lock, response and answers insert, token consumption and cached score.
func (a *Assembler) commit(ctx context.Context, sessionID string, survey *models.Survey, prev, st *WizardState) (*StepResult, error) {
	resp := &models.Response{
		ID:                a.idGenerator(),
		SurveyID:          survey.ID,
		Respondent:        *st.Respondent,
		InterviewerID:     st.InterviewerID,
		UserRef:           st.UserRef,
		Source:            st.Source,
		DeviceFingerprint: st.DeviceFingerprint,
		CreatedAt:         a.now(),
	}
	if st.Consent != nil {
		resp.DataProtectionAccepted = st.Consent.Accepted
		resp.ConsentHash = st.Consent.Hash
	}
	for _, q := range survey.Questions() {
		ans, ok := st.Answers[q.ID]
		if !ok || !ResolveActive(q, st.Answers) {
			continue
		}
		cp := *ans
		cp.ID = a.idGenerator()
		cp.ResponseID = resp.ID
		cp.QuestionCode = q.Code
		resp.Answers = append(resp.Answers, &cp)
	}
	if survey.HasScale() {
		score, category := a.scorer.ComputeScore(survey, resp)
		resp.Score = &score
		resp.ScoreCategory = category
	}

	err := a.store.RunAtomic(ctx, func(tx CommitTx) error {
		dup, err := tx.ResponseExists(survey.ID, resp.Respondent.Identification, resp.Respondent.DocumentType)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateRespondent
		}
		var tok *models.AccessToken
		if survey.RequireToken {
			if st.Token == "" {
				return &TokenError{Reason: TokenMissing}
			}
			tok, err = tx.LockAccessToken(survey.ID, st.Token)
			if err != nil {
				return err
			}
			if err := a.guard.CheckToken(tok, resp.Respondent.Identification); err != nil {
				return err
			}
			resp.AccessTokenID = tok.ID
		}
		if err := tx.InsertResponse(resp); err != nil {
			return err
		}
		if tok != nil {
			return tx.MarkTokenUsed(tok.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRespondent) || errors.Is(err, ErrTokenInvalid) {
			return &StepResult{State: prev}, err
		}
		return nil, err
	}

	done := *st
	done.Stage = StageCommitted
	done.ResponseID = resp.ID
	if err := a.sessions.Clear(ctx, sessionKey(survey.ID, sessionID)); err != nil {
		return nil, err
	}
	return &StepResult{State: &done, Response: resp}, nil
}

// QuestionView is a question of the current section as the caller should render it.
type QuestionView struct {
	*models.Question
	Active  bool   `json:"active"`
	Prefill string `json:"prefill,omitempty"`
}

type SectionView struct {
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

// CurrentSection describes the section awaiting answers, with activity given
// earlier sections and copy-source prefill. It returns nil outside CollectingSection.
func (a *Assembler) CurrentSection(ctx context.Context, survey *models.Survey, st *WizardState) *SectionView {
	if st.Stage != StageSection {
		return nil
	}
	sec := survey.SectionAt(st.SectionIndex)
	if sec == nil {
		return nil
	}
	view := &SectionView{Index: st.SectionIndex, Total: len(survey.Sections), Title: sec.Title}
	for _, q := range sec.Questions {
		view.Questions = append(view.Questions, QuestionView{
			Question: q,
			Active:   ResolveActive(q, st.Answers),
			Prefill:  prefill(survey, st, q.CopyFrom),
		})
	}
	return view
}

func prefill(survey *models.Survey, st *WizardState, source string) string {
	if source == "" {
		return ""
	}
	if r := st.Respondent; r != nil {
		switch source {
		case "identification":
			return r.Identification
		case "document_type":
			return string(r.DocumentType)
		case "full_name":
			return r.FullName
		case "email":
			return r.Email
		case "phone":
			return r.Phone
		}
	}
	q := survey.QuestionByCode(source)
	if q == nil {
		return ""
	}
	ans, ok := st.Answers[q.ID]
	if !ok {
		return ""
	}
	return DisplayValue(q, ans)
}

// Package flow walks a respondent through the survey: it owns the step table,
// the per-step validation and the branch decisions between steps.
package flow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/submission"
)

// ConfigSource supplies the active SurveyConfig.
type ConfigSource interface {
	Config() (domain.SurveyConfig, error)
}

// Dispatcher delivers the finished accumulator.
type Dispatcher interface {
	Submit(ctx context.Context, answers domain.AnswerState) (submission.Result, error)
}

// ControllerConfig defines dependencies required by Controller.
type ControllerConfig struct {
	Configs    ConfigSource
	Dispatcher Dispatcher
	Location   *time.Location
	Now        func() time.Time
	Logger     *zap.Logger
}

// Controller applies transitions to Session values.
type Controller struct {
	configs    ConfigSource
	dispatcher Dispatcher
	location   *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

// NewController constructs a Controller.
func NewController(cfg ControllerConfig) *Controller {
	loc := cfg.Location
	if loc == nil {
		loc = time.FixedZone("JST", 9*60*60)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		configs:    cfg.Configs,
		dispatcher: cfg.Dispatcher,
		location:   loc,
		now:        now,
		logger:     logger,
	}
}

// Start opens a session at SegmentSelect. It fails while the configuration is unavailable.
func (c *Controller) Start(id string) (Session, error) {
	if _, err := c.config(); err != nil {
		return Session{}, err
	}
	now := c.now().In(c.location)
	return Session{
		ID:        id,
		State:     StateSegmentSelect,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

// Draft returns the step-local copy of the accumulator the current screen starts from.
func (c *Controller) Draft(s Session) domain.AnswerState {
	draft := s.Answers.Clone()
	if s.State == StateIntake && !draft.Has(domain.FieldVisitDate) {
		date := c.defaultVisitDate(s)
		draft.VisitDate = &date
	}
	return draft
}

// Advance validates input for the current step and, if it passes, commits the
// step's fields and moves forward. On failure the returned Session is s unchanged.
func (c *Controller) Advance(ctx context.Context, s Session, input domain.AnswerState) (Session, error) {
	switch s.State {
	case StateSegmentSelect, StateIntake, StateReviewGate, StateFeedbackEntry:
	default:
		return s, fmt.Errorf("%w: %s からは次へ進めません", apperr.ErrInvalidTransition, s.State)
	}

	cfg, err := c.config()
	if err != nil {
		return s, err
	}

	segment := s.Segment()
	if s.State == StateSegmentSelect {
		segment = input.Segment()
	}
	draft := s.Answers.Merge(input, ownedFields(s.State, segment)...)
	if s.State == StateIntake {
		draft = c.prepareIntake(s, draft)
	}

	errs := Validate(s.State, draft)
	errs = append(errs, CheckOptions(cfg, s.State, draft, c.now().In(c.location))...)
	if len(errs) > 0 {
		return s, errs
	}

	next := s.Clone()
	next.Answers = draft
	next.LastError = ""

	switch s.State {
	case StateSegmentSelect:
		next.Answers = clearOtherSegment(draft)
		next.State = StateIntake
	case StateIntake:
		next.State = StateReviewGate
	case StateReviewGate:
		if draft.HasGoogleAccount == domain.GoogleAccountYesConfirmed {
			result, err := c.dispatch(ctx, draft)
			if err != nil {
				return s, err
			}
			next.State = StateExternalRedirect
			next.RedirectURL = result.DestinationURL
		} else {
			next.State = StateFeedbackEntry
		}
	case StateFeedbackEntry:
		next.State = StateConfirm
	}

	next.UpdatedAt = c.now().In(c.location)
	return next, nil
}

// Back returns to the previous screen keeping every answer.
func (c *Controller) Back(s Session) (Session, error) {
	target, ok := BackTarget(s.State)
	if !ok {
		return s, fmt.Errorf("%w: %s からは戻れません", apperr.ErrInvalidTransition, s.State)
	}
	next := s.Clone()
	next.State = target
	next.LastError = ""
	next.UpdatedAt = c.now().In(c.location)
	return next, nil
}

// Submit sends the accumulator from Confirm or after a failed attempt. A failure
// lands on SubmitError with the accumulator untouched so the respondent can retry.
func (c *Controller) Submit(ctx context.Context, s Session) (Session, error) {
	if s.State != StateConfirm && s.State != StateSubmitError {
		return s, fmt.Errorf("%w: %s からは送信できません", apperr.ErrInvalidTransition, s.State)
	}

	next := s.Clone()
	next.State = StateSubmitting
	next.SubmitAttempts++

	result, err := c.dispatch(ctx, next.Answers)
	next.UpdatedAt = c.now().In(c.location)
	if err != nil {
		c.logger.Warn("アンケートの送信に失敗しました",
			zap.String("sessionId", s.ID),
			zap.Int("attempt", next.SubmitAttempts),
			zap.Error(err),
		)
		next.State = StateSubmitError
		next.LastError = apperr.Message(err)
		return next, err
	}

	next.LastError = ""
	switch result.Terminal {
	case submission.TerminalExternalRedirect:
		next.State = StateExternalRedirect
		next.RedirectURL = result.DestinationURL
	default:
		next.State = StateSuccess
	}
	return next, nil
}

// Recap returns the confirmation read-back for s.
func (c *Controller) Recap(s Session) ([]domain.RecapRow, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	return domain.BuildRecap(cfg, s.Answers), nil
}

func (c *Controller) config() (domain.SurveyConfig, error) {
	if c.configs == nil {
		return domain.SurveyConfig{}, apperr.ErrConfigUnavailable
	}
	return c.configs.Config()
}

func (c *Controller) dispatch(ctx context.Context, answers domain.AnswerState) (submission.Result, error) {
	if c.dispatcher == nil {
		return submission.Result{}, apperr.ErrEndpointNotConfigured
	}
	return c.dispatcher.Submit(ctx, answers.Clone())
}

// prepareIntake fills the visit date with the session's start date when the
// respondent left it untouched, collapses repeated choices and drops answers
// that no longer apply.
func (c *Controller) prepareIntake(s Session, draft domain.AnswerState) domain.AnswerState {
	draft = draft.Deduplicated()
	if !draft.Has(domain.FieldVisitDate) {
		date := c.defaultVisitDate(s)
		draft.VisitDate = &date
	}
	switch draft.Segment() {
	case domain.SegmentNew:
		if !draft.HeardFromOther() {
			draft.OtherHeardFrom = ""
		}
	case domain.SegmentRepeater:
		draft.SatisfiedPoints = domain.SelectedPoints(draft.SatisfiedPoints, draft.UsagePurpose)
		draft.ImprovementPoints = domain.SelectedPoints(draft.ImprovementPoints, draft.UsagePurpose)
	}
	return draft
}

func (c *Controller) defaultVisitDate(s Session) domain.VisitDate {
	started := s.StartedAt
	if started.IsZero() {
		started = c.now()
	}
	return domain.VisitDateOf(started.In(c.location))
}

func clearOtherSegment(answers domain.AnswerState) domain.AnswerState {
	switch answers.Segment() {
	case domain.SegmentNew:
		return answers.Without(domain.RepeaterFields...)
	case domain.SegmentRepeater:
		return answers.Without(domain.NewCustomerFields...)
	}
	return answers
}

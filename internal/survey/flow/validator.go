package flow

import (
	"strings"
	"time"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// Code classifies a FieldError for clients.
type Code string

const (
	CodeRequired             Code = "required"
	CodeConfirmationRequired Code = "confirmation_required"
	CodeInvalidOption        Code = "invalid_option"
	CodeOutOfRange           Code = "out_of_range"
)

// FieldError is one failed requirement of a step.
type FieldError struct {
	Field   domain.Field `json:"field"`
	Code    Code         `json:"code"`
	Message string       `json:"message"`
}

// FieldErrors is the set of failures of one step. It matches apperr.ErrValidation.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, string(fe.Field)+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

func (e FieldErrors) Is(target error) bool {
	return target == apperr.ErrValidation
}

// Err returns nil for an empty set so callers can return it as an error.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Has reports whether field failed.
func (e FieldErrors) Has(field domain.Field) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate applies the required-field rules of the step at state to draft.
// It looks at nothing but its arguments.
func Validate(state State, draft domain.AnswerState) FieldErrors {
	st, ok := steps[state]
	if !ok {
		return nil
	}

	var errs FieldErrors
	apply := func(rules []rule) {
		for _, r := range rules {
			if fe := r(draft); fe != nil {
				errs = append(errs, *fe)
			}
		}
	}

	apply(st.rules[domain.SegmentUnknown])
	if segment := draft.Segment(); segment != domain.SegmentUnknown {
		apply(st.rules[segment])
	}
	return errs
}

// CheckOptions verifies that every chosen value of the step at state is one the
// configuration offers, and that the visit date lies in its selectable range.
func CheckOptions(cfg domain.SurveyConfig, state State, draft domain.AnswerState, now time.Time) FieldErrors {
	if state != StateIntake {
		return nil
	}

	var errs FieldErrors
	if draft.VisitDate != nil && draft.VisitDate.Complete() {
		if err := draft.VisitDate.CheckRange(now); err != nil {
			errs = append(errs, FieldError{
				Field:   domain.FieldVisitDate,
				Code:    CodeOutOfRange,
				Message: "ご利用日の指定が正しくありません。",
			})
		}
	}

	switch draft.Segment() {
	case domain.SegmentNew:
		options := cfg.NewCustomerOptions
		for _, value := range draft.HeardFrom {
			if !domain.ContainsOption(options.HeardFromOptions, value) {
				errs = append(errs, *invalidOption(domain.FieldHeardFrom, value))
			}
		}
		for _, rating := range draft.ImpressionRatings {
			evaluation, ok := cfg.Impression(rating.Category)
			if !ok {
				errs = append(errs, *invalidOption(domain.FieldImpressionRatings, rating.Category))
				continue
			}
			if rating.Rating != "" && !domain.ContainsOption(evaluation.RatingOptions, rating.Rating) {
				errs = append(errs, *invalidOption(domain.FieldImpressionRatings, rating.Rating))
			}
		}
		if draft.WillReturn != "" && !domain.ContainsOption(options.WillReturnOptions, draft.WillReturn) {
			errs = append(errs, *invalidOption(domain.FieldWillReturn, draft.WillReturn))
		}
	case domain.SegmentRepeater:
		if draft.Satisfaction != "" && !domain.ContainsOption(cfg.RepeaterOptions.SatisfactionOptions, draft.Satisfaction) {
			errs = append(errs, *invalidOption(domain.FieldSatisfaction, draft.Satisfaction))
		}
		for _, key := range draft.UsagePurpose {
			def, ok := cfg.Service(key)
			if !ok {
				errs = append(errs, *invalidOption(domain.FieldUsagePurpose, string(key)))
				continue
			}
			for _, value := range draft.SatisfiedPoints[key] {
				if !domain.ContainsOption(def.SatisfiedOptions, value) {
					errs = append(errs, *invalidOption(domain.FieldSatisfiedPoints, value))
				}
			}
			for _, value := range draft.ImprovementPoints[key] {
				if !domain.ContainsOption(def.ImprovementOptions, value) {
					errs = append(errs, *invalidOption(domain.FieldImprovementPoints, value))
				}
			}
		}
	}
	return errs
}

func required(field domain.Field, message string) *FieldError {
	return &FieldError{Field: field, Code: CodeRequired, Message: message}
}

func invalidOption(field domain.Field, value string) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeInvalidOption,
		Message: "選択肢にない回答が含まれています: " + value,
	}
}

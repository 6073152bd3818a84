package flow

import (
	"strings"

	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// rule checks one requirement of a step against the step-local draft.
type rule func(draft domain.AnswerState) *FieldError

// step is one row of the segment-tagged step table. Entries keyed by
// domain.SegmentUnknown apply to every segment.
type step struct {
	fields map[domain.Segment][]domain.Field
	rules  map[domain.Segment][]rule
	back   State
}

var steps = map[State]step{
	StateSegmentSelect: {
		fields: map[domain.Segment][]domain.Field{
			domain.SegmentUnknown: {domain.FieldIsNewCustomer},
		},
		rules: map[domain.Segment][]rule{
			domain.SegmentUnknown: {requireSegment},
		},
	},
	StateIntake: {
		fields: map[domain.Segment][]domain.Field{
			domain.SegmentNew: {
				domain.FieldVisitDate,
				domain.FieldHeardFrom,
				domain.FieldOtherHeardFrom,
				domain.FieldImpressionRatings,
				domain.FieldWillReturn,
			},
			domain.SegmentRepeater: {
				domain.FieldVisitDate,
				domain.FieldSatisfaction,
				domain.FieldUsagePurpose,
				domain.FieldSatisfiedPoints,
				domain.FieldImprovementPoints,
			},
		},
		rules: map[domain.Segment][]rule{
			domain.SegmentUnknown:  {requireSegment, requireVisitDate},
			domain.SegmentNew:      {requireHeardFrom, requireOtherHeardFrom, requireImpression, requireWillReturn},
			domain.SegmentRepeater: {requireSatisfaction, requireUsagePurpose, requireSatisfiedPoints, requireImprovementPoints},
		},
		back: StateSegmentSelect,
	},
	StateReviewGate: {
		fields: map[domain.Segment][]domain.Field{
			domain.SegmentUnknown: {domain.FieldHasGoogleAccount},
		},
		rules: map[domain.Segment][]rule{
			domain.SegmentUnknown: {requireGoogleAccount},
		},
		back: StateIntake,
	},
	StateFeedbackEntry: {
		fields: map[domain.Segment][]domain.Field{
			domain.SegmentUnknown: {domain.FieldFeedback},
		},
		rules: map[domain.Segment][]rule{
			domain.SegmentUnknown: {requireFeedback},
		},
		back: StateReviewGate,
	},
	StateConfirm: {
		back: StateFeedbackEntry,
	},
	StateSubmitError: {
		back: StateConfirm,
	},
}

// ownedFields lists the fields the step at state commits for segment.
func ownedFields(state State, segment domain.Segment) []domain.Field {
	st, ok := steps[state]
	if !ok {
		return nil
	}
	fields := append([]domain.Field(nil), st.fields[domain.SegmentUnknown]...)
	if segment != domain.SegmentUnknown {
		fields = append(fields, st.fields[segment]...)
	}
	return fields
}

// BackTarget returns the state Back navigates to from state.
func BackTarget(state State) (State, bool) {
	st, ok := steps[state]
	if !ok || st.back == "" {
		return "", false
	}
	return st.back, true
}

func requireSegment(draft domain.AnswerState) *FieldError {
	if draft.IsNewCustomer == nil {
		return required(domain.FieldIsNewCustomer, "ご来店が初めてかどうかを選択してください。")
	}
	return nil
}

func requireVisitDate(draft domain.AnswerState) *FieldError {
	if draft.VisitDate == nil || !draft.VisitDate.Complete() {
		return required(domain.FieldVisitDate, "施設をご利用された日時を選択してください。")
	}
	return nil
}

func requireHeardFrom(draft domain.AnswerState) *FieldError {
	if len(draft.HeardFrom) == 0 {
		return required(domain.FieldHeardFrom, "当施設をどこでお知りになりましたか？について1つ以上回答を選択してください。")
	}
	return nil
}

func requireOtherHeardFrom(draft domain.AnswerState) *FieldError {
	if draft.HeardFromOther() && strings.TrimSpace(draft.OtherHeardFrom) == "" {
		return required(domain.FieldOtherHeardFrom, "「その他」を選択した場合は具体的な内容を入力してください。")
	}
	return nil
}

// requireImpression accepts the step once any single category has a rating.
func requireImpression(draft domain.AnswerState) *FieldError {
	for _, rating := range draft.ImpressionRatings {
		if strings.TrimSpace(rating.Rating) != "" {
			return nil
		}
	}
	return required(domain.FieldImpressionRatings, "当サロンの印象について1つ以上評価を選択してください。")
}

func requireWillReturn(draft domain.AnswerState) *FieldError {
	if strings.TrimSpace(draft.WillReturn) == "" {
		return required(domain.FieldWillReturn, "また来たいと思うかを選択してください。")
	}
	return nil
}

func requireSatisfaction(draft domain.AnswerState) *FieldError {
	if strings.TrimSpace(draft.Satisfaction) == "" {
		return required(domain.FieldSatisfaction, "当施設への満足度を選択してください。")
	}
	return nil
}

func requireUsagePurpose(draft domain.AnswerState) *FieldError {
	if len(draft.UsagePurpose) == 0 {
		return required(domain.FieldUsagePurpose, "ご利用目的の質問について1つ以上回答を選択してください。")
	}
	return nil
}

// Points are counted across all selected services combined, not per service.
func requireSatisfiedPoints(draft domain.AnswerState) *FieldError {
	if domain.CountPoints(domain.SelectedPoints(draft.SatisfiedPoints, draft.UsagePurpose)) == 0 {
		return required(domain.FieldSatisfiedPoints, "サービスの満足した点について1つ以上回答を選択してください。")
	}
	return nil
}

func requireImprovementPoints(draft domain.AnswerState) *FieldError {
	if domain.CountPoints(domain.SelectedPoints(draft.ImprovementPoints, draft.UsagePurpose)) == 0 {
		return required(domain.FieldImprovementPoints, "サービスの改善してほしい点について1つ以上回答を選択してください。")
	}
	return nil
}

func requireGoogleAccount(draft domain.AnswerState) *FieldError {
	switch draft.HasGoogleAccount {
	case domain.GoogleAccountYesConfirmed, domain.GoogleAccountNo:
		return nil
	case domain.GoogleAccountUnanswered:
		return required(domain.FieldHasGoogleAccount, "Googleアカウントをお持ちかどうかを選択してください。")
	case domain.GoogleAccountYes:
		return &FieldError{
			Field:   domain.FieldHasGoogleAccount,
			Code:    CodeConfirmationRequired,
			Message: "口コミ投稿の手順をご確認のうえ、確認済みを選択してください。",
		}
	}
	return invalidOption(domain.FieldHasGoogleAccount, string(draft.HasGoogleAccount))
}

func requireFeedback(draft domain.AnswerState) *FieldError {
	if strings.TrimSpace(draft.Feedback) == "" {
		return required(domain.FieldFeedback, "ご感想を入力してください。")
	}
	return nil
}

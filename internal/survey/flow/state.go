package flow

import (
	"time"

	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// State is one screen of the survey flow.
type State string

const (
	StateSegmentSelect    State = "segment_select"
	StateIntake           State = "intake"
	StateReviewGate       State = "review_gate"
	StateFeedbackEntry    State = "feedback_entry"
	StateConfirm          State = "confirm"
	StateSubmitting       State = "submitting"
	StateSuccess          State = "success"
	StateExternalRedirect State = "external_redirect"
	StateSubmitError      State = "submit_error"
)

// Terminal reports whether the flow has ended and the accumulator may be discarded.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateExternalRedirect
}

// Title is the heading the respondent sees for the state.
func (s State) Title() string {
	switch s {
	case StateSegmentSelect:
		return "ご来店について"
	case StateIntake:
		return "アンケート入力"
	case StateReviewGate:
		return "Googleアカウントについて"
	case StateFeedbackEntry:
		return "感想入力"
	case StateConfirm, StateSubmitError:
		return "入力内容確認"
	case StateSubmitting:
		return "送信中"
	case StateSuccess:
		return "ご協力ありがとうございました"
	case StateExternalRedirect:
		return "Google Mapへ移動します"
	}
	return ""
}

// Session is one respondent's walk through the flow. It is a value: the
// Controller never mutates a Session it was given and returns the next one instead.
type Session struct {
	ID             string
	State          State
	Answers        domain.AnswerState
	StartedAt      time.Time
	UpdatedAt      time.Time
	RedirectURL    string
	LastError      string
	SubmitAttempts int
}

// Segment returns the segment chosen so far.
func (s Session) Segment() domain.Segment {
	return s.Answers.Segment()
}

// Clone returns a copy that shares nothing with s.
func (s Session) Clone() Session {
	out := s
	out.Answers = s.Answers.Clone()
	return out
}

package public

import (
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/flow"
)

// sessionResponse is what the respondent's browser renders a step from.
type sessionResponse struct {
	ID             string             `json:"id"`
	State          flow.State         `json:"state"`
	Title          string             `json:"title"`
	Segment        domain.Segment     `json:"segment,omitempty"`
	Draft          domain.AnswerState `json:"draft"`
	Recap          []domain.RecapRow  `json:"recap,omitempty"`
	RedirectURL    string             `json:"redirectUrl,omitempty"`
	LastError      string             `json:"lastError,omitempty"`
	SubmitAttempts int                `json:"submitAttempts,omitempty"`
	CanGoBack      bool               `json:"canGoBack"`
	Terminal       bool               `json:"terminal"`
}

type fieldErrorsResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind"`
	Errors  []flow.FieldError `json:"errors"`
	Session sessionResponse   `json:"session"`
}

type sessionErrorResponse struct {
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
	Session sessionResponse `json:"session"`
}

type createResponseResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

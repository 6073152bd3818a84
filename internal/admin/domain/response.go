package domain

import (
	"time"

	surveydomain "github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

const summaryExcerptRunes = 60

// ResponseSummary は管理画面一覧で 1 件の回答を表す行。
type ResponseSummary struct {
	ID              string
	Segment         surveydomain.Segment
	IsGoogleReview  bool
	VisitDate       string
	Satisfaction    string
	WillReturn      string
	FeedbackExcerpt string
	ReceivedAt      time.Time
}

// Summarize は受信済み回答から一覧行を組み立てる。
func Summarize(resp surveydomain.Response) ResponseSummary {
	summary := ResponseSummary{
		ID:              resp.ID,
		Segment:         resp.Payload.Segment(),
		IsGoogleReview:  resp.Payload.IsGoogleReview,
		Satisfaction:    resp.Payload.Satisfaction,
		WillReturn:      resp.Payload.WillReturn,
		FeedbackExcerpt: Excerpt(resp.Payload.Feedback, summaryExcerptRunes),
		ReceivedAt:      resp.ReceivedAt,
	}
	if resp.Payload.VisitDate != nil {
		summary.VisitDate = resp.Payload.VisitDate.String()
	}
	return summary
}

package admin

import (
	"time"

	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	surveydomain "github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

type adminResponseSummary struct {
	ID              string    `json:"id"`
	Segment         string    `json:"segment"`
	IsGoogleReview  bool      `json:"isGoogleReview"`
	VisitDate       string    `json:"visitDate,omitempty"`
	Satisfaction    string    `json:"satisfaction,omitempty"`
	WillReturn      string    `json:"willReturn,omitempty"`
	FeedbackExcerpt string    `json:"feedbackExcerpt,omitempty"`
	ReceivedAt      time.Time `json:"receivedAt"`
}

type adminResponseListResponse struct {
	Items []adminResponseSummary `json:"items"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

type adminResponseDetail struct {
	ID         string                         `json:"id"`
	Segment    string                         `json:"segment"`
	Payload    surveydomain.SubmissionPayload `json:"payload"`
	ClientIP   string                         `json:"clientIp,omitempty"`
	ReceivedAt time.Time                      `json:"receivedAt"`
}

type countResponse struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type impressionCountResponse struct {
	Category string `json:"category"`
	Rating   string `json:"rating"`
	Count    int    `json:"count"`
}

type pointCountResponse struct {
	Service string `json:"service"`
	Point   string `json:"point"`
	Count   int    `json:"count"`
}

type adminMetricsResponse struct {
	Total                int                       `json:"total"`
	NewCustomers         int                       `json:"newCustomers"`
	Repeaters            int                       `json:"repeaters"`
	GoogleReviews        int                       `json:"googleReviews"`
	GoogleReviewShare    float64                   `json:"googleReviewShare"`
	WillReturn           []countResponse           `json:"willReturn"`
	Satisfaction         []countResponse           `json:"satisfaction"`
	ImpressionRatings    []impressionCountResponse `json:"impressionRatings"`
	TopImprovementPoints []pointCountResponse      `json:"topImprovementPoints"`
}

func toSummaryResponse(summary admindomain.ResponseSummary) adminResponseSummary {
	return adminResponseSummary{
		ID:              summary.ID,
		Segment:         string(summary.Segment),
		IsGoogleReview:  summary.IsGoogleReview,
		VisitDate:       summary.VisitDate,
		Satisfaction:    summary.Satisfaction,
		WillReturn:      summary.WillReturn,
		FeedbackExcerpt: summary.FeedbackExcerpt,
		ReceivedAt:      summary.ReceivedAt,
	}
}

func toDetailResponse(resp surveydomain.Response) adminResponseDetail {
	return adminResponseDetail{
		ID:         resp.ID,
		Segment:    string(resp.Payload.Segment()),
		Payload:    resp.Payload,
		ClientIP:   resp.ClientIP,
		ReceivedAt: resp.ReceivedAt,
	}
}

func toMetricsResponse(m admindomain.ResponseMetrics) adminMetricsResponse {
	out := adminMetricsResponse{
		Total:                m.Total,
		NewCustomers:         m.NewCustomers,
		Repeaters:            m.Repeaters,
		GoogleReviews:        m.GoogleReviews,
		GoogleReviewShare:    m.GoogleReviewShare,
		WillReturn:           make([]countResponse, 0, len(m.WillReturn)),
		Satisfaction:         make([]countResponse, 0, len(m.Satisfaction)),
		ImpressionRatings:    make([]impressionCountResponse, 0, len(m.ImpressionRatings)),
		TopImprovementPoints: make([]pointCountResponse, 0, len(m.TopImprovementPoints)),
	}
	for _, c := range m.WillReturn {
		out.WillReturn = append(out.WillReturn, countResponse{Label: c.Label, Count: c.Count})
	}
	for _, c := range m.Satisfaction {
		out.Satisfaction = append(out.Satisfaction, countResponse{Label: c.Label, Count: c.Count})
	}
	for _, c := range m.ImpressionRatings {
		out.ImpressionRatings = append(out.ImpressionRatings, impressionCountResponse{Category: c.Category, Rating: c.Rating, Count: c.Count})
	}
	for _, c := range m.TopImprovementPoints {
		out.TopImprovementPoints = append(out.TopImprovementPoints, pointCountResponse{Service: c.Service, Point: c.Point, Count: c.Count})
	}
	return out
}

package application

import (
	"context"
	"time"

	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	surveydomain "github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// ResponseRepository exposes admin reads over received responses.
type ResponseRepository interface {
	Find(ctx context.Context, filter ResponseFilter, paging Paging) ([]surveydomain.Response, error)
	Count(ctx context.Context, filter ResponseFilter) (int64, error)
	FindByID(ctx context.Context, id admindomain.ResponseID) (*surveydomain.Response, error)
	Metrics(ctx context.Context, filter ResponseFilter) (admindomain.ResponseMetrics, error)
}

// ResponseFilter expresses admin search criteria.
type ResponseFilter struct {
	Segment      admindomain.SegmentFilter
	GoogleReview *bool
	Since        *time.Time
	Until        *time.Time
}

// Paging controls pagination.
type Paging struct {
	Page  int
	Limit int
	Sort  string
}

// ResponsePage is one page of an admin listing.
type ResponsePage struct {
	Items []admindomain.ResponseSummary
	Total int64
	Page  int
	Limit int
}

// ResponseService describes admin response use-cases.
type ResponseService interface {
	List(ctx context.Context, filter ResponseFilter, paging Paging) (ResponsePage, error)
	Detail(ctx context.Context, id string) (*surveydomain.Response, error)
	Metrics(ctx context.Context, filter ResponseFilter) (admindomain.ResponseMetrics, error)
}

package application

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	admindomain "github.com/sngm3741/salon-survey-services/api/internal/admin/domain"
	surveydomain "github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// TopImprovementPoints is how many improvement points the metrics keep.
	TopImprovementPoints = 10
)

// ErrInvalidPeriod is returned when Until precedes Since.
var ErrInvalidPeriod = errors.New("集計期間の指定が不正です")

type responseService struct {
	repo ResponseRepository
}

func NewResponseService(repo ResponseRepository) ResponseService {
	return &responseService{repo: repo}
}

// List fetches the page and the total count concurrently.
func (s *responseService) List(ctx context.Context, filter ResponseFilter, paging Paging) (ResponsePage, error) {
	if err := filter.check(); err != nil {
		return ResponsePage{}, err
	}
	paging = normalizePaging(paging)

	var (
		responses []surveydomain.Response
		total     int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		responses, err = s.repo.Find(gctx, filter, paging)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return ResponsePage{}, err
	}

	items := make([]admindomain.ResponseSummary, 0, len(responses))
	for _, resp := range responses {
		items = append(items, admindomain.Summarize(resp))
	}
	return ResponsePage{Items: items, Total: total, Page: paging.Page, Limit: paging.Limit}, nil
}

func (s *responseService) Detail(ctx context.Context, id string) (*surveydomain.Response, error) {
	responseID, err := admindomain.NewResponseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, responseID)
}

func (s *responseService) Metrics(ctx context.Context, filter ResponseFilter) (admindomain.ResponseMetrics, error) {
	if err := filter.check(); err != nil {
		return admindomain.ResponseMetrics{}, err
	}
	metrics, err := s.repo.Metrics(ctx, filter)
	if err != nil {
		return admindomain.ResponseMetrics{}, err
	}
	metrics.Finalize(TopImprovementPoints)
	return metrics, nil
}

func normalizePaging(paging Paging) Paging {
	if paging.Limit <= 0 {
		paging.Limit = DefaultPageLimit
	}
	if paging.Limit > MaxPageLimit {
		paging.Limit = MaxPageLimit
	}
	if paging.Page <= 0 {
		paging.Page = 1
	}
	return paging
}

func (f ResponseFilter) check() error {
	if f.Since != nil && f.Until != nil && f.Until.Before(*f.Since) {
		return ErrInvalidPeriod
	}
	return nil
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// ResponseRepository stores received submissions.
// ResponseRepository は受信した回答を永続化するためのポート。
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.Response) error
}

// ReceiveResponseCommand captures one posted SubmissionPayload.
type ReceiveResponseCommand struct {
	Payload  domain.SubmissionPayload
	ClientIP string
}

// ResponseCommandService handles writing use-cases.
type ResponseCommandService interface {
	Receive(ctx context.Context, cmd ReceiveResponseCommand) (*domain.Response, error)
}

func NewResponseCommandService(repo ResponseRepository) ResponseCommandService {
	return &responseCommandService{repo: repo, now: time.Now}
}

type responseCommandService struct {
	repo ResponseRepository
	now  func() time.Time
}

// Receive re-checks the payload and stores it. Coherence failures wrap apperr.ErrValidation.
func (s *responseCommandService) Receive(ctx context.Context, cmd ReceiveResponseCommand) (*domain.Response, error) {
	if err := cmd.Payload.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	response := &domain.Response{
		Payload:    cmd.Payload,
		ClientIP:   cmd.ClientIP,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

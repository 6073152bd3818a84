package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

type fakeRepo struct {
	created []*domain.Response
	err     error
}

func (f *fakeRepo) Create(_ context.Context, response *domain.Response) error {
	if f.err != nil {
		return f.err
	}
	response.ID = "65f000000000000000000001"
	f.created = append(f.created, response)
	return nil
}

func TestReceiveStoresValidPayload(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := NewResponseCommandService(repo)

	resp, err := svc.Receive(context.Background(), ReceiveResponseCommand{
		Payload: domain.SubmissionPayload{
			IsNewCustomer:    true,
			HeardFrom:        []string{"Instagram"},
			HasGoogleAccount: domain.GoogleAccountNo,
			Feedback:         "丁寧でした",
		},
		ClientIP: "203.0.113.5",
	})
	require.NoError(t, err)
	assert.Equal(t, "65f000000000000000000001", resp.ID)
	assert.Equal(t, "203.0.113.5", resp.ClientIP)
	assert.False(t, resp.ReceivedAt.IsZero())
	assert.Len(t, repo.created, 1)
}

func TestReceiveRejectsIncoherentPayload(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	svc := NewResponseCommandService(repo)

	_, err := svc.Receive(context.Background(), ReceiveResponseCommand{
		Payload: domain.SubmissionPayload{HasGoogleAccount: domain.GoogleAccountNo},
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, repo.created)
}

func TestReceivePropagatesStoreFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("insert failed")
	svc := NewResponseCommandService(&fakeRepo{err: boom})

	_, err := svc.Receive(context.Background(), ReceiveResponseCommand{
		Payload: domain.SubmissionPayload{HasGoogleAccount: domain.GoogleAccountYesConfirmed, IsGoogleReview: true},
	})
	assert.ErrorIs(t, err, boom)
}

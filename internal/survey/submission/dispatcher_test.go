package submission

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticConfig struct {
	cfg domain.SurveyConfig
	err error
}

func (s staticConfig) Config() (domain.SurveyConfig, error) {
	return s.cfg, s.err
}

type recordedFailure struct {
	target  string
	payload domain.SubmissionPayload
	cause   error
}

type fakeRecorder struct {
	mu       sync.Mutex
	failures []recordedFailure
}

func (f *fakeRecorder) RecordFailure(_ context.Context, target string, payload domain.SubmissionPayload, cause error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, recordedFailure{target: target, payload: payload, cause: cause})
	return nil
}

func (f *fakeRecorder) snapshot() []recordedFailure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedFailure(nil), f.failures...)
}

func surveyConfig() domain.SurveyConfig {
	return domain.SurveyConfig{
		ServiceDefinitions: []domain.ServiceDefinition{
			{Key: "cut", Label: "カット", SatisfiedOptions: []string{"理想のスタイル"}, ImprovementOptions: []string{"特になし"}},
		},
	}
}

func repeaterAnswers() domain.AnswerState {
	return domain.AnswerState{
		IsNewCustomer:     domain.BoolPtr(false),
		VisitDate:         &domain.VisitDate{Year: "2024", Month: "5", Day: "3"},
		Satisfaction:      "同じ",
		UsagePurpose:      []domain.ServiceKey{"cut", "perm"},
		SatisfiedPoints:   map[domain.ServiceKey][]string{"cut": {"理想のスタイル"}},
		ImprovementPoints: map[domain.ServiceKey][]string{"cut": {"特になし"}},
		HasGoogleAccount:  domain.GoogleAccountNo,
		Feedback:          "また伺います",
	}
}

type capture struct {
	mu       sync.Mutex
	bodies   []domain.SubmissionPayload
	ctypes    []string
	forwarded []string
	requests  int
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var payload domain.SubmissionPayload
		_ = json.Unmarshal(raw, &payload)

		c.mu.Lock()
		c.bodies = append(c.bodies, payload)
		c.ctypes = append(c.ctypes, r.Header.Get("Content-Type"))
		c.forwarded = append(c.forwarded, r.Header.Get("X-Forwarded-For"))
		c.requests++
		c.mu.Unlock()

		w.WriteHeader(status)
	}
}

func TestSubmitBlockingSuccess(t *testing.T) {
	rec := &capture{}
	srv := httptest.NewServer(rec.handler(http.StatusCreated))
	defer srv.Close()

	d := New(Config{
		Endpoint:   srv.URL,
		HTTPClient: srv.Client(),
		Configs:    staticConfig{cfg: surveyConfig()},
	})

	result, err := d.Submit(context.Background(), repeaterAnswers())
	require.NoError(t, err)
	assert.Equal(t, TerminalSuccess, result.Terminal)

	require.Equal(t, 1, rec.requests)
	assert.Equal(t, "application/json", rec.ctypes[0])
	body := rec.bodies[0]
	assert.False(t, body.IsGoogleReview)
	assert.Equal(t, []domain.ServiceKey{"cut", "perm"}, body.UsagePurposeKeys)
	assert.Equal(t, []string{"カット", "perm"}, body.UsagePurposeLabels)
	assert.Equal(t, "また伺います", body.Feedback)
}

func TestSubmitBlockingFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "redirect status", status: http.StatusNotModified},
		{name: "bad request", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &capture{}
			srv := httptest.NewServer(rec.handler(tt.status))
			defer srv.Close()

			d := New(Config{
				Endpoint:   srv.URL,
				HTTPClient: srv.Client(),
				Configs:    staticConfig{cfg: surveyConfig()},
			})

			_, err := d.Submit(context.Background(), repeaterAnswers())
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrSubmissionFailed))
			assert.Equal(t, 1, rec.requests)
		})
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	client := srv.Client()
	srv.Close()

	d := New(Config{
		Endpoint:   endpoint,
		HTTPClient: client,
		Configs:    staticConfig{cfg: surveyConfig()},
	})

	_, err := d.Submit(context.Background(), repeaterAnswers())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrSubmissionFailed))
}

func TestSubmitWithoutEndpoint(t *testing.T) {
	d := New(Config{Configs: staticConfig{cfg: surveyConfig()}})

	for _, answer := range []domain.GoogleAccountAnswer{domain.GoogleAccountNo, domain.GoogleAccountYesConfirmed} {
		answers := repeaterAnswers()
		answers.HasGoogleAccount = answer

		_, err := d.Submit(context.Background(), answers)
		assert.ErrorIs(t, err, apperr.ErrEndpointNotConfigured, string(answer))
	}
	assert.False(t, d.Configured())
}

func TestSubmitConfigUnavailable(t *testing.T) {
	d := New(Config{
		Endpoint: "http://127.0.0.1:1",
		Configs:  staticConfig{err: apperr.ErrConfigUnavailable},
	})

	_, err := d.Submit(context.Background(), repeaterAnswers())
	assert.ErrorIs(t, err, apperr.ErrConfigUnavailable)
}

func TestSubmitRedirectDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	received := make(chan domain.SubmissionPayload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload domain.SubmissionPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(Config{
		Endpoint:   srv.URL,
		ReviewURL:  "https://maps.example.com/salon",
		HTTPClient: srv.Client(),
		Configs:    staticConfig{cfg: surveyConfig()},
	})

	answers := repeaterAnswers()
	answers.HasGoogleAccount = domain.GoogleAccountYesConfirmed

	result, err := d.Submit(context.Background(), answers)
	require.NoError(t, err)
	assert.Equal(t, TerminalExternalRedirect, result.Terminal)
	assert.Equal(t, "https://maps.example.com/salon", result.DestinationURL)
	assert.True(t, result.Payload.IsGoogleReview)

	select {
	case payload := <-received:
		assert.True(t, payload.IsGoogleReview)
		assert.Equal(t, domain.GoogleAccountYesConfirmed, payload.HasGoogleAccount)
	case <-time.After(5 * time.Second):
		t.Fatal("redirect submission was not sent")
	}

	close(release)
	d.Wait()
}

func TestSubmitRedirectFailureIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	recorder := &fakeRecorder{}
	d := New(Config{
		Endpoint:   srv.URL,
		HTTPClient: srv.Client(),
		Configs:    staticConfig{cfg: surveyConfig()},
		Failures:   recorder,
	})

	answers := repeaterAnswers()
	answers.HasGoogleAccount = domain.GoogleAccountYesConfirmed

	result, err := d.Submit(context.Background(), answers)
	require.NoError(t, err)
	assert.Equal(t, DefaultReviewURL, result.DestinationURL)

	d.Wait()

	failures := recorder.snapshot()
	require.Len(t, failures, 1)
	assert.Equal(t, FailureTarget, failures[0].target)
	assert.True(t, failures[0].payload.IsGoogleReview)
	assert.ErrorIs(t, failures[0].cause, apperr.ErrSubmissionFailed)
}

func TestSubmitForwardsRespondentAddress(t *testing.T) {
	rec := &capture{}
	srv := httptest.NewServer(rec.handler(http.StatusCreated))
	defer srv.Close()

	d := New(Config{
		Endpoint:   srv.URL,
		HTTPClient: srv.Client(),
		Configs:    staticConfig{cfg: surveyConfig()},
	})

	_, err := d.Submit(context.Background(), repeaterAnswers())
	require.NoError(t, err)

	ctx := WithClientIP(context.Background(), " 203.0.113.9 ")
	assert.Equal(t, "203.0.113.9", ClientIPFrom(ctx))
	_, err = d.Submit(ctx, repeaterAnswers())
	require.NoError(t, err)

	google := repeaterAnswers()
	google.HasGoogleAccount = domain.GoogleAccountYesConfirmed
	_, err = d.Submit(WithClientIP(context.Background(), "198.51.100.4"), google)
	require.NoError(t, err)
	d.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"", "203.0.113.9", "198.51.100.4"}, rec.forwarded)
}

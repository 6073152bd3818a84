// Package submission turns a finished answer accumulator into one POST to the
// configured survey endpoint.
package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

// DefaultReviewURL is used when no external review destination is configured.
const DefaultReviewURL = "https://www.google.com/maps"

// FailureTarget tags redirect-path submissions that never reached the endpoint.
const FailureTarget = "redirect_submission"

// Terminal is the screen a successful submission ends on.
type Terminal string

const (
	TerminalSuccess          Terminal = "success"
	TerminalExternalRedirect Terminal = "external_redirect"
)

// Result is the outcome of Submit.
type Result struct {
	Terminal       Terminal
	DestinationURL string
	Payload        domain.SubmissionPayload
}

// ConfigSource supplies the configuration used to resolve service labels.
type ConfigSource interface {
	Config() (domain.SurveyConfig, error)
}

// FailureRecorder keeps redirect-path payloads whose delivery failed.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, target string, payload domain.SubmissionPayload, cause error) error
}

type clientIPKey struct{}

// WithClientIP records the respondent's address on ctx. Submit forwards it as
// X-Forwarded-For so the receiving endpoint sees the respondent, not this process.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, strings.TrimSpace(ip))
}

// ClientIPFrom returns the address stored by WithClientIP.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// Config defines dependencies required by Dispatcher.
type Config struct {
	Endpoint   string
	ReviewURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	Configs    ConfigSource
	Failures   FailureRecorder
}

// Dispatcher posts SubmissionPayloads. The redirect path is not awaited;
// Wait drains those sends.
type Dispatcher struct {
	endpoint  string
	reviewURL string
	timeout   time.Duration
	client    *http.Client
	logger    *zap.Logger
	configs   ConfigSource
	failures  FailureRecorder

	inflight sync.WaitGroup
}

// New constructs a Dispatcher.
func New(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reviewURL := strings.TrimSpace(cfg.ReviewURL)
	if reviewURL == "" {
		reviewURL = DefaultReviewURL
	}
	return &Dispatcher{
		endpoint:  strings.TrimSpace(cfg.Endpoint),
		reviewURL: reviewURL,
		timeout:   timeout,
		client:    client,
		logger:    logger,
		configs:   cfg.Configs,
		failures:  cfg.Failures,
	}
}

// Submit sends answers. A confirmed Google account selects the redirect path:
// the POST is started in the background and Submit returns at once with the
// review URL. Otherwise Submit blocks until the endpoint answers.
func (d *Dispatcher) Submit(ctx context.Context, answers domain.AnswerState) (Result, error) {
	if d.endpoint == "" {
		return Result{}, apperr.ErrEndpointNotConfigured
	}
	if d.configs == nil {
		return Result{}, apperr.ErrConfigUnavailable
	}
	cfg, err := d.configs.Config()
	if err != nil {
		return Result{}, err
	}

	isGoogleReview := answers.HasGoogleAccount == domain.GoogleAccountYesConfirmed
	payload := domain.NewSubmissionPayload(cfg, answers, isGoogleReview)
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("送信データの作成に失敗: %w", err)
	}

	clientIP := ClientIPFrom(ctx)
	if isGoogleReview {
		d.inflight.Add(1)
		go d.sendDetached(payload, body, clientIP)
		return Result{Terminal: TerminalExternalRedirect, DestinationURL: d.reviewURL, Payload: payload}, nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.post(sendCtx, body, clientIP); err != nil {
		return Result{Payload: payload}, err
	}
	return Result{Terminal: TerminalSuccess, Payload: payload}, nil
}

// Wait blocks until every background send has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// Configured reports whether an endpoint is set.
func (d *Dispatcher) Configured() bool {
	return d.endpoint != ""
}

func (d *Dispatcher) sendDetached(payload domain.SubmissionPayload, body []byte, clientIP string) {
	defer d.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.post(ctx, body, clientIP)
	if err == nil {
		return
	}
	d.logger.Warn("Google口コミ遷移時のアンケート送信に失敗しました", zap.Error(err))
	if d.failures == nil {
		return
	}
	recordCtx, recordCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recordCancel()
	if recErr := d.failures.RecordFailure(recordCtx, FailureTarget, payload, err); recErr != nil {
		d.logger.Error("failed_notifications への保存に失敗", zap.Error(recErr))
	}
}

func (d *Dispatcher) post(ctx context.Context, body []byte, clientIP string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: 送信リクエストの作成に失敗: %w", apperr.ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}

	res, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: 送信リクエストに失敗: %w", apperr.ErrSubmissionFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("%w: status=%d body=%s", apperr.ErrSubmissionFailed, res.StatusCode, strings.TrimSpace(string(message)))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
	return nil
}

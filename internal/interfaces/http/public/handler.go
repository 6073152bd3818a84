package public

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mongorepo "github.com/sngm3741/salon-survey-services/api/internal/infrastructure/mongo"
	publicapp "github.com/sngm3741/salon-survey-services/api/internal/public/application"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/flow"
)

// ConfigSource supplies the active SurveyConfig.
type ConfigSource interface {
	Config() (domain.SurveyConfig, error)
}

// SessionStore keeps in-flight survey sessions.
type SessionStore interface {
	NewID() string
	Create(session flow.Session) error
	Get(id string) (flow.Session, error)
	Update(id string, fn func(flow.Session) (flow.Session, error)) (flow.Session, error)
}

// NotificationFailureRecorder keeps staff notifications that could not be delivered.
type NotificationFailureRecorder interface {
	Record(ctx context.Context, n mongorepo.FailedNotification) error
}

// Handler wires public HTTP endpoints to the survey flow and the intake service.
type Handler struct {
	logger               *zap.Logger
	configs              ConfigSource
	controller           *flow.Controller
	sessions             SessionStore
	responses            publicapp.ResponseCommandService
	failedNotifications  NotificationFailureRecorder
	httpClient           *http.Client
	messengerEndpoint    string
	discordDestination   string
	slackDestination     string
	adminResponseBaseURL string
	background           sync.WaitGroup
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger               *zap.Logger
	Configs              ConfigSource
	Controller           *flow.Controller
	Sessions             SessionStore
	Responses            publicapp.ResponseCommandService
	FailedNotifications  NotificationFailureRecorder
	HTTPClient           *http.Client
	MessengerEndpoint    string
	DiscordDestination   string
	SlackDestination     string
	AdminResponseBaseURL string
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{
		logger:               logger,
		configs:              cfg.Configs,
		controller:           cfg.Controller,
		sessions:             cfg.Sessions,
		responses:            cfg.Responses,
		failedNotifications:  cfg.FailedNotifications,
		httpClient:           client,
		messengerEndpoint:    cfg.MessengerEndpoint,
		discordDestination:   cfg.DiscordDestination,
		slackDestination:     cfg.SlackDestination,
		adminResponseBaseURL: cfg.AdminResponseBaseURL,
	}
}

// Register mounts all public routes onto the router. intakeLimiter wraps the
// intake endpoint and may be nil.
func (h *Handler) Register(r chi.Router, intakeLimiter func(http.Handler) http.Handler) {
	r.Get("/survey/config", h.surveyConfigHandler())
	r.Post("/survey/sessions", h.sessionCreateHandler())
	r.Get("/survey/sessions/{id}", h.sessionDetailHandler())
	r.Post("/survey/sessions/{id}/advance", h.sessionAdvanceHandler())
	r.Post("/survey/sessions/{id}/back", h.sessionBackHandler())
	r.Post("/survey/sessions/{id}/submit", h.sessionSubmitHandler())

	if intakeLimiter != nil {
		r.With(intakeLimiter).Post("/responses", h.responseCreateHandler())
	} else {
		r.Post("/responses", h.responseCreateHandler())
	}
}

// Wait blocks until background staff notifications have finished.
func (h *Handler) Wait() {
	h.background.Wait()
}

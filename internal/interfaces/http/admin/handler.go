package admin

import (
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	adminapp "github.com/sngm3741/salon-survey-services/api/internal/admin/application"
)

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger    *zap.Logger
	responses adminapp.ResponseService
	location  *time.Location
}

// Config provides dependencies for Handler.
type Config struct {
	Logger    *zap.Logger
	Responses adminapp.ResponseService
	Location  *time.Location
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		logger:    logger,
		responses: cfg.Responses,
		location:  loc,
	}
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/responses", h.responseListHandler())
	r.Get("/responses/metrics", h.responseMetricsHandler())
	r.Get("/responses/{id}", h.responseDetailHandler())
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	adminapp "github.com/sngm3741/salon-survey-services/api/internal/admin/application"
	"github.com/sngm3741/salon-survey-services/api/internal/config"
	"github.com/sngm3741/salon-survey-services/api/internal/infrastructure/memory"
	mongorepo "github.com/sngm3741/salon-survey-services/api/internal/infrastructure/mongo"
	adminhttp "github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/salon-survey-services/api/internal/interfaces/http/public"
	publicapp "github.com/sngm3741/salon-survey-services/api/internal/public/application"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/configsource"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/flow"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/submission"
)

const (
	sessionSweepInterval = time.Minute
	shutdownTimeout      = 10 * time.Second
)

// Server は HTTP サーバーのライフサイクルを管理し、Public/Admin の各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger         *zap.Logger
	client         *mongo.Client
	ping           func(ctx context.Context) error
	configs        *configsource.Provider
	sessions       *memory.SessionStore
	dispatcher     *submission.Dispatcher
	publicHandler  *publichttp.Handler
	adminHandler   *adminhttp.Handler
	intakeLimiter  *visitorLimiter
	jwtConfigs     []config.JWTConfig
	jwtAudience    string
	addr           string
	allowedOrigins []string
}

// Routes はミドルウェアとルーティングを組み立てた http.Handler を返す。
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())

	var limit func(http.Handler) http.Handler
	if s.intakeLimiter != nil {
		limit = s.intakeLimiter.Middleware
	}
	if s.publicHandler != nil {
		s.publicHandler.Register(router, limit)
	}
	if s.adminHandler != nil {
		router.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			s.adminHandler.Register(r)
		})
	}
	return router
}

// Run は HTTP サーバー、シグナル監視、セッション掃除を errgroup で並走させ、
// いずれかが終了したら全体を停止する。
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP サーバー起動", zap.String("addr", s.addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーが異常終了: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("サーバー停止処理を開始します")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバー停止時にエラー: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.sessions.Run(gctx, sessionSweepInterval)
	})
	if s.intakeLimiter != nil {
		g.Go(func() error {
			return s.intakeLimiter.Run(gctx, visitorSweepInterval)
		})
	}

	err := g.Wait()
	s.shutdown(context.WithoutCancel(ctx))
	return err
}

// shutdown は未完了の送信と通知を待ち、MongoDB クライアントを切断する。
func (s *Server) shutdown(ctx context.Context) {
	if s.dispatcher != nil {
		s.dispatcher.Wait()
	}
	if s.publicHandler != nil {
		s.publicHandler.Wait()
	}
	if s.client == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(shutdownCtx); err != nil {
		s.logger.Warn("MongoDB 切断時にエラー", zap.Error(err))
	}
}

// healthHandler は MongoDB への疎通確認を行い、監視系からのヘルスチェック要求に応える。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if s.ping == nil {
			commonhttp.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  "MongoDB が構成されていません",
			})
			return
		}
		if err := s.ping(ctx); err != nil {
			commonhttp.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		status := map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		}
		if _, err := s.configs.Config(); err != nil {
			status["surveyConfig"] = "unavailable"
		}
		if s.dispatcher != nil && !s.dispatcher.Configured() {
			status["submissionEndpoint"] = "unconfigured"
		}
		commonhttp.WriteJSON(s.logger, w, http.StatusOK, status)
	}
}

// normaliseBaseURL は入力文字列をトリムして末尾スラッシュを削除したURLを返す。
func normaliseBaseURL(input string) string {
	trimmed := strings.TrimSpace(input)
	return strings.TrimRight(trimmed, "/")
}

// New は Config と Mongo クライアントを受け取り、アプリケーションサービスとハンドラを組み立てた Server を返す。
func New(cfg config.Config, client *mongo.Client) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.FixedZone("JST", 9*60*60)
		logger.Warn("タイムゾーンの読み込みに失敗したため JST を使用します", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	database := client.Database(cfg.MongoDatabase)
	responseRepo := mongorepo.NewResponseRepository(database, cfg.ResponseCollection)
	failedNotifications := mongorepo.NewFailedNotificationRepository(database, cfg.FailedNotificationCollection)

	indexCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	if err := responseRepo.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("インデックスの作成に失敗しました", zap.Error(err))
	}
	cancel()

	configs := configsource.Load(configsource.Options{
		Inline: cfg.SurveyConfigInline,
		File:   cfg.SurveyConfigFile,
	}, logger)

	dispatcher := submission.New(submission.Config{
		Endpoint:  cfg.SurveyAPIEndpoint,
		ReviewURL: cfg.GoogleReviewURL,
		Timeout:   cfg.SubmissionTimeout,
		Logger:    logger.Named("submission"),
		Configs:   configs,
		Failures:  failedNotifications,
	})

	controller := flow.NewController(flow.ControllerConfig{
		Configs:    configs,
		Dispatcher: dispatcher,
		Location:   loc,
		Logger:     logger.Named("flow"),
	})
	sessions := memory.NewSessionStore(cfg.SessionTTL, logger.Named("sessions"))

	endpoint := normaliseBaseURL(cfg.MessengerEndpoint)
	if endpoint == "" {
		endpoint = "http://messenger-gateway:3000"
	}

	srv := &Server{
		logger:     logger,
		client:     client,
		configs:    configs,
		sessions:   sessions,
		dispatcher: dispatcher,
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		jwtConfigs:     append([]config.JWTConfig(nil), cfg.JWTConfigs...),
		jwtAudience:    cfg.JWTAudience,
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
	}
	if cfg.IntakeRateLimit > 0 {
		srv.intakeLimiter = newVisitorLimiter(cfg.IntakeRateLimit, intakeBurst(cfg.IntakeRateLimit), logger)
	}

	srv.publicHandler = publichttp.NewHandler(publichttp.Config{
		Logger:               logger.Named("public"),
		Configs:              configs,
		Controller:           controller,
		Sessions:             sessions,
		Responses:            publicapp.NewResponseCommandService(responseRepo),
		FailedNotifications:  failedNotifications,
		HTTPClient:           &http.Client{Timeout: cfg.MessengerTimeout},
		MessengerEndpoint:    endpoint,
		DiscordDestination:   cfg.DiscordDestination,
		SlackDestination:     cfg.SlackDestination,
		AdminResponseBaseURL: normaliseBaseURL(cfg.AdminResponseBaseURL),
	})
	srv.adminHandler = adminhttp.NewHandler(adminhttp.Config{
		Logger:    logger.Named("admin"),
		Responses: adminapp.NewResponseService(responseRepo),
		Location:  loc,
	})

	return srv
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr                         string
	MongoURI                     string
	MongoDatabase                string
	ResponseCollection           string
	FailedNotificationCollection string
	Timeout                      time.Duration
	Timezone                     string
	Logger                       *zap.Logger
	LogLevel                     string

	SurveyAPIEndpoint  string
	GoogleReviewURL    string
	SubmissionTimeout  time.Duration
	SurveyConfigInline string
	SurveyConfigFile   string
	SessionTTL         time.Duration
	IntakeRateLimit    float64

	JWTConfigs           []JWTConfig
	JWTAudience          string
	MessengerEndpoint    string
	DiscordDestination   string
	SlackDestination     string
	MessengerTimeout     time.Duration
	AdminResponseBaseURL string
	AllowedOrigins       []string
}

// Load reads environment variables and returns a fully populated Config.
func Load() (Config, error) {
	timeout, err := durationOrDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	submissionTimeout, err := durationOrDefault("SUBMISSION_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := durationOrDefault("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	messengerTimeout, err := durationOrDefault("MESSENGER_GATEWAY_TIMEOUT", 3*time.Second)
	if err != nil {
		return Config{}, err
	}

	intakeRateLimit := 5.0
	if raw := strings.TrimSpace(os.Getenv("INTAKE_RATE_LIMIT")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			return Config{}, fmt.Errorf("INTAKE_RATE_LIMIT の値が不正です: %q", raw)
		}
		intakeRateLimit = parsed
	}

	messengerEndpoint := strings.TrimSpace(os.Getenv("MESSENGER_GATEWAY_URL"))
	if messengerEndpoint == "" {
		messengerEndpoint = "http://messenger-gateway:3000"
	}

	var jwtConfigs []JWTConfig
	if secret := strings.TrimSpace(os.Getenv("AUTH_ADMIN_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: envOrDefault("AUTH_ADMIN_JWT_ISSUER", "salon-survey-auth"),
			Secret: []byte(secret),
		})
	}

	logLevel := strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	logger, err := NewLogger(logLevel)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:                         envOrDefault("HTTP_ADDR", ":8080"),
		MongoURI:                     envOrDefault("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:                envOrDefault("MONGO_DB", "salon-survey"),
		ResponseCollection:           envOrDefault("RESPONSE_COLLECTION", "survey_responses"),
		FailedNotificationCollection: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
		Timeout:                      timeout,
		Timezone:                     envOrDefault("TIMEZONE", "Asia/Tokyo"),
		Logger:                       logger,
		LogLevel:                     logLevel,
		SurveyAPIEndpoint:            strings.TrimSpace(os.Getenv("SURVEY_API_ENDPOINT")),
		GoogleReviewURL:              strings.TrimSpace(os.Getenv("GOOGLE_REVIEW_URL")),
		SubmissionTimeout:            submissionTimeout,
		SurveyConfigInline:           strings.TrimSpace(os.Getenv("SURVEY_CONFIG")),
		SurveyConfigFile:             strings.TrimSpace(os.Getenv("SURVEY_CONFIG_FILE")),
		SessionTTL:                   sessionTTL,
		IntakeRateLimit:              intakeRateLimit,
		JWTConfigs:                   jwtConfigs,
		JWTAudience:                  strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
		MessengerEndpoint:            messengerEndpoint,
		DiscordDestination:           strings.TrimSpace(os.Getenv("MESSENGER_DISCORD_INCOMING_DESTINATION")),
		SlackDestination:             strings.TrimSpace(os.Getenv("MESSENGER_SLACK_DESTINATION")),
		MessengerTimeout:             messengerTimeout,
		AdminResponseBaseURL:         strings.TrimSpace(os.Getenv("ADMIN_RESPONSE_BASE_URL")),
		AllowedOrigins:               parseList("API_ALLOWED_ORIGINS", []string{"*"}),
	}

	if len(cfg.JWTConfigs) == 0 {
		logger.Warn("AUTH_ADMIN_JWT_SECRET が未設定のため管理 API は利用できません")
	}
	if cfg.SurveyAPIEndpoint == "" {
		logger.Warn("SURVEY_API_ENDPOINT が未設定です。アンケートは送信できません")
	}
	logger.Info("設定を読み込みました",
		zap.String("addr", cfg.Addr),
		zap.String("surveyApiEndpoint", cfg.SurveyAPIEndpoint),
		zap.String("messengerEndpoint", cfg.MessengerEndpoint),
		zap.String("adminResponseBaseURL", cfg.AdminResponseBaseURL),
	)

	return cfg, nil
}

// NewLogger builds the production zap logger; "debug" lowers the level.
func NewLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return nil, fmt.Errorf("LOG_LEVEL の値が不正です: %q", level)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	return logger.Named("salon-survey-api"), nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s の値が不正です: %q", key, raw)
	}
	return parsed, nil
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}

// Package configsource loads the SurveyConfig document that drives every step's choices.
package configsource

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sngm3741/salon-survey-services/api/internal/apperr"
	"github.com/sngm3741/salon-survey-services/api/internal/survey/domain"
)

//go:embed default_config.yaml
var defaultConfigYAML []byte

//go:embed survey_config.schema.json
var schemaJSON string

const schemaURL = "https://salon-survey.local/schemas/survey_config.schema.json"

// Source names where the active configuration came from.
type Source string

const (
	SourceInline  Source = "env:SURVEY_CONFIG"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
	SourceStatic  Source = "static"
)

// Options selects the configuration source. Inline wins over File; with neither
// set the embedded salon default is used.
type Options struct {
	Inline string
	File   string
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("survey config schema load failed: %w", err)
	}
	return c.Compile(schemaURL)
})

// Provider holds the loaded configuration, or the reason it is unavailable.
type Provider struct {
	cfg    domain.SurveyConfig
	source Source
	err    error
}

// Load resolves opts into a Provider. It never returns nil: a failed load
// yields a Provider whose Config reports apperr.ErrConfigUnavailable.
func Load(opts Options, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		cfg    domain.SurveyConfig
		source Source
		err    error
	)
	switch {
	case strings.TrimSpace(opts.Inline) != "":
		source = SourceInline
		cfg, err = ParseJSON([]byte(opts.Inline))
	case strings.TrimSpace(opts.File) != "":
		source = SourceFile
		cfg, err = LoadFile(opts.File)
	default:
		source = SourceDefault
		cfg, err = Default()
	}

	if err != nil {
		logger.Error("アンケート設定の読み込みに失敗しました", zap.String("source", string(source)), zap.Error(err))
		return Unavailable(err)
	}

	logger.Info("アンケート設定を読み込みました",
		zap.String("source", string(source)),
		zap.Int("services", len(cfg.ServiceDefinitions)),
		zap.Int("impressionCategories", len(cfg.NewCustomerOptions.ImpressionEvaluations)),
	)
	return &Provider{cfg: cfg, source: source}
}

// Static wraps an already validated configuration.
func Static(cfg domain.SurveyConfig) *Provider {
	return &Provider{cfg: cfg, source: SourceStatic}
}

// Unavailable returns a Provider that blocks the flow with err.
func Unavailable(err error) *Provider {
	if err == nil {
		err = apperr.ErrConfigUnavailable
	}
	return &Provider{err: err}
}

// Config returns the active configuration or an error wrapping apperr.ErrConfigUnavailable.
func (p *Provider) Config() (domain.SurveyConfig, error) {
	if p == nil {
		return domain.SurveyConfig{}, apperr.ErrConfigUnavailable
	}
	if p.err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(p.err)
	}
	return p.cfg, nil
}

func (p *Provider) Source() Source {
	if p == nil {
		return ""
	}
	return p.source
}

// Default parses the embedded salon configuration.
func Default() (domain.SurveyConfig, error) {
	return ParseYAML(defaultConfigYAML)
}

// LoadFile reads a YAML or JSON configuration file.
func LoadFile(path string) (domain.SurveyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(fmt.Errorf("設定ファイル %s を読み込めません: %w", path, err))
	}
	return ParseYAML(data)
}

// ParseYAML accepts YAML and, since JSON is a subset of it, JSON documents.
func ParseYAML(data []byte) (domain.SurveyConfig, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(fmt.Errorf("YAML の解析に失敗: %w", err))
	}
	normalised, err := json.Marshal(doc)
	if err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(fmt.Errorf("JSON への変換に失敗: %w", err))
	}
	return ParseJSON(normalised)
}

// ParseJSON checks data against the configuration schema and the domain invariants.
func ParseJSON(data []byte) (domain.SurveyConfig, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(fmt.Errorf("JSON の解析に失敗: %w", err))
	}

	schema, err := compileSchema()
	if err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(err)
	}
	if err := schema.Validate(doc); err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(fmt.Errorf("スキーマ検証に失敗: %w", err))
	}

	var cfg domain.SurveyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(fmt.Errorf("設定の変換に失敗: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return domain.SurveyConfig{}, wrapUnavailable(err)
	}
	return cfg, nil
}

func wrapUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrConfigUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrConfigUnavailable, err)
}

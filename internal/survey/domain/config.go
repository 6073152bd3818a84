package domain

import (
	"fmt"
	"strings"
)

// ServiceKey identifies a service offering. It is resolved to a label via SurveyConfig.
type ServiceKey string

func (k ServiceKey) String() string {
	return string(k)
}

// ServiceDefinition describes one service and its per-service option lists.
type ServiceDefinition struct {
	Key                ServiceKey `json:"key"`
	Label              string     `json:"label"`
	SatisfiedOptions   []string   `json:"satisfiedOptions"`
	ImprovementOptions []string   `json:"improvementOptions"`
}

// ImpressionEvaluation is one rated category on the new-customer path.
type ImpressionEvaluation struct {
	Category      string   `json:"category"`
	RatingOptions []string `json:"ratingOptions"`
}

// NewCustomerOptions groups the choices only shown to first-time customers.
type NewCustomerOptions struct {
	HeardFromOptions      []string               `json:"heardFromOptions"`
	ImpressionEvaluations []ImpressionEvaluation `json:"impressionEvaluations"`
	WillReturnOptions     []string               `json:"willReturnOptions"`
}

// RepeaterOptions groups the choices only shown to returning customers.
type RepeaterOptions struct {
	SatisfactionOptions []string `json:"satisfactionOptions"`
}

// SurveyConfig is the read-only document that drives every step's choices.
type SurveyConfig struct {
	NewCustomerOptions NewCustomerOptions  `json:"newCustomerOptions"`
	RepeaterOptions    RepeaterOptions     `json:"repeaterOptions"`
	ServiceDefinitions []ServiceDefinition `json:"serviceDefinitions"`
}

// Validate enforces unique service keys and non-empty option lists.
func (c SurveyConfig) Validate() error {
	if err := requireOptions("heardFromOptions", c.NewCustomerOptions.HeardFromOptions); err != nil {
		return err
	}
	if len(c.NewCustomerOptions.ImpressionEvaluations) == 0 {
		return fmt.Errorf("impressionEvaluations must not be empty")
	}
	seenCategory := make(map[string]struct{}, len(c.NewCustomerOptions.ImpressionEvaluations))
	for _, evaluation := range c.NewCustomerOptions.ImpressionEvaluations {
		category := strings.TrimSpace(evaluation.Category)
		if category == "" {
			return fmt.Errorf("impression category is required")
		}
		if _, ok := seenCategory[category]; ok {
			return fmt.Errorf("duplicate impression category: %s", category)
		}
		seenCategory[category] = struct{}{}
		if err := requireOptions("ratingOptions of "+category, evaluation.RatingOptions); err != nil {
			return err
		}
	}
	if err := requireOptions("willReturnOptions", c.NewCustomerOptions.WillReturnOptions); err != nil {
		return err
	}
	if err := requireOptions("satisfactionOptions", c.RepeaterOptions.SatisfactionOptions); err != nil {
		return err
	}
	if len(c.ServiceDefinitions) == 0 {
		return fmt.Errorf("serviceDefinitions must not be empty")
	}
	seenKey := make(map[ServiceKey]struct{}, len(c.ServiceDefinitions))
	for _, def := range c.ServiceDefinitions {
		if strings.TrimSpace(string(def.Key)) == "" {
			return fmt.Errorf("service key is required")
		}
		if _, ok := seenKey[def.Key]; ok {
			return fmt.Errorf("duplicate service key: %s", def.Key)
		}
		seenKey[def.Key] = struct{}{}
		if err := requireOptions("satisfiedOptions of "+string(def.Key), def.SatisfiedOptions); err != nil {
			return err
		}
		if err := requireOptions("improvementOptions of "+string(def.Key), def.ImprovementOptions); err != nil {
			return err
		}
	}
	return nil
}

func requireOptions(name string, options []string) error {
	if len(options) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	for _, option := range options {
		if strings.TrimSpace(option) == "" {
			return fmt.Errorf("%s contains an empty option", name)
		}
	}
	return nil
}

// Service looks up a service definition by key.
func (c SurveyConfig) Service(key ServiceKey) (ServiceDefinition, bool) {
	for _, def := range c.ServiceDefinitions {
		if def.Key == key {
			return def, true
		}
	}
	return ServiceDefinition{}, false
}

// ServiceLabel resolves key to its display label; unknown keys label themselves.
func (c SurveyConfig) ServiceLabel(key ServiceKey) string {
	if def, ok := c.Service(key); ok && def.Label != "" {
		return def.Label
	}
	return string(key)
}

// Impression looks up an impression category.
func (c SurveyConfig) Impression(category string) (ImpressionEvaluation, bool) {
	for _, evaluation := range c.NewCustomerOptions.ImpressionEvaluations {
		if evaluation.Category == category {
			return evaluation, true
		}
	}
	return ImpressionEvaluation{}, false
}

// ContainsOption reports whether value is one of options.
func ContainsOption(options []string, value string) bool {
	for _, option := range options {
		if option == value {
			return true
		}
	}
	return false
}

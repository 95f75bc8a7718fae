package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

//go:embed default_plans.yaml
var defaultPlans []byte

// ParsePlans decodes and validates a plan catalogue.
func ParsePlans(data []byte) (*model.PlanCatalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("plans: catalogue payload is empty")
	}
	var catalog model.PlanCatalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("plans: decode catalogue: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("plans: %w", err)
	}
	return &catalog, nil
}

// LoadPlans reads the configured plans file, falling back to the built-in catalogue.
func LoadPlans(cfg *Config) (*model.PlanCatalog, error) {
	if cfg == nil || cfg.PlansFile == "" {
		return ParsePlans(defaultPlans)
	}
	content, err := os.ReadFile(cfg.PlansFile)
	if err != nil {
		return nil, fmt.Errorf("plans: read %s: %w", cfg.PlansFile, err)
	}
	catalog, err := ParsePlans(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.PlansFile, err)
	}
	return catalog, nil
}

// Package routerconfig loads the host-facing configuration documents
// the spec defines: graph documents, LLM provider credentials and the
// model pricing table. Credentials and prices are validated with
// go-playground/validator.
package routerconfig

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dshills/intentrouter-go/dag/model"
	"github.com/dshills/intentrouter-go/dag/model/anthropic"
	"github.com/dshills/intentrouter-go/dag/model/google"
	"github.com/dshills/intentrouter-go/dag/model/ollama"
	"github.com/dshills/intentrouter-go/dag/model/openai"
	"github.com/dshills/intentrouter-go/dag/model/openrouter"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// LLMConfig is the LLM config object (spec §6): opaque to the engine
// except for provider dispatch.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=openai anthropic google openrouter ollama"`
	APIKey   string `yaml:"api_key" validate:"required_unless=Provider ollama"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// ParseLLMConfig reads and validates an LLM config document from path
// (YAML or JSON; yaml.v3 unmarshals both).
func ParseLLMConfig(path string) (*LLMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("routerconfig: read %s: %w", path, err)
	}

	var cfg LLMConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("routerconfig: parse %s: %w", path, err)
	}
	if err := validatorInstance().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("routerconfig: invalid llm config %s: %w", path, err)
	}
	return &cfg, nil
}

// BuildClient constructs the model.LLMClient named by cfg.Provider,
// wired against pricing for cost calculation.
func BuildClient(cfg *LLMConfig, pricing model.PricingLookup) (model.LLMClient, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(cfg.APIKey, cfg.Model, pricing), nil
	case "anthropic":
		return anthropic.New(cfg.APIKey, cfg.Model, pricing), nil
	case "google":
		return google.New(cfg.APIKey, cfg.Model, pricing), nil
	case "openrouter":
		return openrouter.New(cfg.APIKey, cfg.Model, pricing), nil
	case "ollama":
		return ollama.New(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("routerconfig: unknown provider %q", cfg.Provider)
	}
}

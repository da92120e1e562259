package llmfactory

import (
	"os"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

// Environment variables used to build a provider when no config file
// is given.
const (
	EnvAPIType = "CODRIVER_API_TYPE"
	EnvAPIKey  = "CODRIVER_API_KEY"
	EnvBaseURL = "CODRIVER_BASE_URL"
	EnvModel   = "CODRIVER_MODEL"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"required,min=1,dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
}

// ProviderConfig describes a single LLM provider.
type ProviderConfig struct {
	Name            string    `json:"name" yaml:"name" validate:"required"`
	Token           string    `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string    `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string  `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	API             APIConfig `json:"api" yaml:"api"`
}

// APIConfig specifies endpoint options of a provider.
type APIConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	// APIType specifies the type of API to use:
	// OPENAI|AZURE|AZURE_AD|ANTHROPIC|PERPLEXITY
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" validate:"omitempty,oneof=OPENAI OPEN_AI AZURE AZURE_AD ANTHROPIC PERPLEXITY"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig loads provider configuration from a YAML or JSON file,
// expanding environment variables. When file is empty, a single
// provider is built from the CODRIVER_* environment variables.
func LoadConfig(file string) (*Config, error) {
	if file == "" {
		return configFromEnv()
	}

	cfg := new(Config)
	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to load config: %s", file)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.WithMessagef(err, "invalid config: %s", file)
	}
	return cfg, nil
}

// configFromEnv builds a single-provider config from environment
// variables. The provider token may also come from the
// provider-specific variables understood by the provider packages,
// such as ANTHROPIC_API_KEY and OPENAI_API_KEY.
func configFromEnv() (*Config, error) {
	apiType := values.StringsCoalesce(os.Getenv(EnvAPIType), "ANTHROPIC")
	model := os.Getenv(EnvModel)

	cfg := &Config{
		Providers: []*ProviderConfig{
			{
				Name:         "default",
				Token:        os.Getenv(EnvAPIKey),
				DefaultModel: model,
				API: APIConfig{
					APIType: apiType,
					BaseURL: os.Getenv(EnvBaseURL),
				},
			},
		},
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.WithMessage(err, "invalid environment configuration")
	}
	return cfg, nil
}

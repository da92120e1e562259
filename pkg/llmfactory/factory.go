// Package llmfactory creates LLM models from provider configuration.
package llmfactory

import (
	"slices"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/codriver-ai/codriver/pkg/llms"
	"github.com/codriver-ai/codriver/pkg/llms/anthropic"
	"github.com/codriver-ai/codriver/pkg/llms/openai"
)

var logger = xlog.NewPackageLogger("github.com/codriver-ai/codriver", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// OPENAI, AZURE, AZURE_AD, ANTHROPIC, PERPLEXITY
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
}

// Load returns a factory configured from the given file, or from the
// environment when location is empty.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	byType          map[string]llms.Model
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:    cfg,
		byType: make(map[string]llms.Model),
		byName: make(map[string]llms.Model),
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}

	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

// CreateLLM builds a model for the provider. The OpenAI client serves
// the whole chat-completions family: OpenAI itself, Azure deployments
// and Perplexity.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	switch provType := strings.ToUpper(cfg.API.APIType); provType {
	case "OPENAI", "OPEN_AI":
		return newOpenAI(cfg, openai.ProviderOpenAI, preferredModels...)
	case "PERPLEXITY":
		return newOpenAI(cfg, openai.ProviderPerplexity, preferredModels...)
	case "AZURE":
		return newOpenAI(cfg, openai.ProviderAzure, preferredModels...)
	case "AZURE_AD":
		return newOpenAI(cfg, openai.ProviderAzureAD, preferredModels...)
	case "ANTHROPIC":
		return newAnthropic(cfg, preferredModels...)
	default:
		return nil, errors.Errorf("unsupported provider type: %s", provType)
	}
}

func newOpenAI(cfg *ProviderConfig, provider openai.ProviderType, preferredModels ...string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.FindModel(preferredModels...)),
		openai.WithProvider(provider),
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.API.BaseURL))
	}
	if cfg.API.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.API.OrgID))
	}
	if cfg.API.APIVersion != "" {
		opts = append(opts, openai.WithAPIVersion(cfg.API.APIVersion))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(cfg.FindModel(preferredModels...)),
	}
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.API.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.API.BaseURL))
	}
	return anthropic.New(opts...)
}

// DefaultModel returns a model from the default provider.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}

	return NewLLM(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byType[providerType]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if strings.EqualFold(cfg.API.APIType, providerType) {
			model, err := NewLLM(cfg)
			if err != nil {
				return nil, err
			}

			logger.KV(xlog.DEBUG,
				"status", "created_llm",
				"type", cfg.API.APIType,
				"version", cfg.API.APIVersion,
				"name", cfg.Name)

			f.byType[providerType] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, nil
		}

		for _, cfg := range f.cfg.Providers {
			if slices.Contains(cfg.AvailableModels, modelName) {
				model, err := NewLLM(cfg, modelNames...)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.API.APIType,
						"version", cfg.API.APIVersion,
						"models", modelNames,
						"err", err.Error())
					continue
				}

				logger.KV(xlog.DEBUG,
					"status", "created_llm",
					"type", cfg.API.APIType,
					"version", cfg.API.APIVersion,
					"name", cfg.Name)

				f.byName[modelName] = model
				return model, nil
			}
		}
	}
	return f.DefaultModel()
}

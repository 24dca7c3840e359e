package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	unknownProviderReasonTemplate         = "unknown provider %q"
	credentialUnavailableReasonTemplate   = "credential for provider %s is unavailable"
	credentialSourceInvalidReasonTemplate = "credential source for provider %s is invalid"
	backendSelectedMessageConstant        = "inference backend selected"
	credentialSkippedMessageConstant      = "inference backend credential unavailable"
	logFieldProviderConstant              = "provider"
	logFieldModelConstant                 = "model"
	logFieldReasonConstant                = "reason"
	defaultRequestBurstConstant           = 3
)

// Configuration describes backend selection and provider settings.
type Configuration struct {
	Provider          string                `mapstructure:"provider"`
	Precedence        []string              `mapstructure:"precedence"`
	RequestTimeout    time.Duration         `mapstructure:"request_timeout"`
	RequestsPerMinute float64               `mapstructure:"requests_per_minute"`
	OpenAI            ProviderConfiguration `mapstructure:"openai"`
	Anthropic         ProviderConfiguration `mapstructure:"anthropic"`
}

// ProviderConfiguration holds per-provider connection settings.
type ProviderConfiguration struct {
	BaseURL          string  `mapstructure:"base_url"`
	Model            string  `mapstructure:"model"`
	CredentialSource string  `mapstructure:"credential_source"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature"`
	// MaxRetries bounds client-side retries of rate-limited or failed Anthropic calls.
	MaxRetries int `mapstructure:"max_retries"`
}

// DefaultConfiguration returns the provider defaults used when configuration omits them.
func DefaultConfiguration() Configuration {
	return Configuration{
		Provider:       string(ProviderAuto),
		Precedence:     []string{string(ProviderOpenAI), string(ProviderAnthropic)},
		RequestTimeout: defaultRequestTimeoutConstant,
		OpenAI: ProviderConfiguration{
			BaseURL:          defaultOpenAIBaseURLConstant,
			Model:            defaultOpenAIModelConstant,
			CredentialSource: defaultOpenAITokenSourceConstant,
			MaxTokens:        defaultMaxTokensConstant,
			Temperature:      defaultOpenAITemperatureConstant,
		},
		Anthropic: ProviderConfiguration{
			BaseURL:          defaultAnthropicBaseURLConstant,
			Model:            defaultAnthropicModelConstant,
			CredentialSource: defaultAnthropicTokenSourceConstant,
			MaxTokens:        defaultMaxTokensConstant,
			MaxRetries:       defaultMaxRetriesConstant,
		},
	}
}

// DefaultConfigurationValues exposes backend defaults keyed for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	keyPrefix := strings.TrimSpace(prefix)
	if len(keyPrefix) > 0 {
		keyPrefix += "."
	}
	values := map[string]any{
		keyPrefix + "provider":            defaults.Provider,
		keyPrefix + "precedence":          defaults.Precedence,
		keyPrefix + "request_timeout":     defaults.RequestTimeout,
		keyPrefix + "requests_per_minute": defaults.RequestsPerMinute,
	}
	for providerKey, providerDefaults := range map[string]ProviderConfiguration{
		string(ProviderOpenAI):    defaults.OpenAI,
		string(ProviderAnthropic): defaults.Anthropic,
	} {
		providerPrefix := keyPrefix + providerKey + "."
		values[providerPrefix+"base_url"] = providerDefaults.BaseURL
		values[providerPrefix+"model"] = providerDefaults.Model
		values[providerPrefix+"credential_source"] = providerDefaults.CredentialSource
		values[providerPrefix+"max_tokens"] = providerDefaults.MaxTokens
		values[providerPrefix+"temperature"] = providerDefaults.Temperature
		values[providerPrefix+"max_retries"] = providerDefaults.MaxRetries
	}
	return values
}

// Selection is the backend chosen at startup.
type Selection struct {
	Provider Provider
	Model    string
	Backend  InferenceBackend
}

// Selector chooses and constructs one backend.
type Selector struct {
	credentialResolver CredentialResolver
	httpClient         *http.Client
	logger             *zap.Logger
}

// NewSelector constructs a Selector; nil dependencies fall back to process defaults.
func NewSelector(credentialResolver CredentialResolver, httpClient *http.Client, logger *zap.Logger) *Selector {
	if credentialResolver == nil {
		credentialResolver = NewCredentialResolver(nil, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{credentialResolver: credentialResolver, httpClient: httpClient, logger: logger}
}

// Select resolves the configured provider. An explicit provider must have a credential;
// auto selection walks the precedence list and picks the first provider with one.
func (selector *Selector) Select(selectionContext context.Context, configuration Configuration) (Selection, error) {
	requestedProvider := Provider(strings.ToLower(strings.TrimSpace(configuration.Provider)))
	if len(requestedProvider) == 0 {
		requestedProvider = ProviderAuto
	}

	if requestedProvider != ProviderAuto {
		selection, selectionError := selector.construct(selectionContext, requestedProvider, configuration)
		if selectionError != nil {
			return Selection{}, selectionError
		}
		return selector.finalize(selection, configuration), nil
	}

	precedence := configuration.Precedence
	if len(precedence) == 0 {
		precedence = DefaultConfiguration().Precedence
	}

	for _, providerName := range precedence {
		candidateProvider := Provider(strings.ToLower(strings.TrimSpace(providerName)))
		selection, selectionError := selector.construct(selectionContext, candidateProvider, configuration)
		if selectionError != nil {
			selector.logger.Debug(credentialSkippedMessageConstant, zap.String(logFieldProviderConstant, string(candidateProvider)), zap.Error(selectionError))
			continue
		}
		return selector.finalize(selection, configuration), nil
	}

	return Selection{}, StartupError{Reason: string(ProviderAuto), Cause: ErrCredentialsUnavailable}
}

func (selector *Selector) construct(selectionContext context.Context, provider Provider, configuration Configuration) (Selection, error) {
	var providerSettings ProviderConfiguration
	switch provider {
	case ProviderOpenAI:
		providerSettings = configuration.OpenAI
	case ProviderAnthropic:
		providerSettings = configuration.Anthropic
	default:
		return Selection{}, StartupError{Reason: fmt.Sprintf(unknownProviderReasonTemplate, provider)}
	}

	credentialSource, parseError := ParseCredentialSource(providerSettings.CredentialSource)
	if parseError != nil {
		return Selection{}, StartupError{Reason: fmt.Sprintf(credentialSourceInvalidReasonTemplate, provider), Cause: parseError}
	}

	apiKey, resolveError := selector.credentialResolver.ResolveCredential(selectionContext, credentialSource)
	if resolveError != nil {
		return Selection{}, StartupError{Reason: fmt.Sprintf(credentialUnavailableReasonTemplate, provider), Cause: resolveError}
	}

	httpClient := selector.httpClient
	if httpClient == nil {
		httpClient = NewHTTPClient(configuration.RequestTimeout)
	}

	switch provider {
	case ProviderOpenAI:
		openAIBackend := NewOpenAIBackend(httpClient, apiKey, providerSettings)
		return Selection{Provider: provider, Model: openAIBackend.model, Backend: openAIBackend}, nil
	default:
		anthropicBackend := NewAnthropicBackend(httpClient, apiKey, providerSettings)
		return Selection{Provider: provider, Model: anthropicBackend.model, Backend: anthropicBackend}, nil
	}
}

func (selector *Selector) finalize(selection Selection, configuration Configuration) Selection {
	if configuration.RequestsPerMinute > 0 {
		selection.Backend = NewRateLimitedBackend(selection.Backend, selection.Provider, configuration.RequestsPerMinute, defaultRequestBurstConstant)
	}
	selector.logger.Info(
		backendSelectedMessageConstant,
		zap.String(logFieldProviderConstant, string(selection.Provider)),
		zap.String(logFieldModelConstant, selection.Model),
	)
	return selection
}

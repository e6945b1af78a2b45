// Package vision turns venue photos into flat ambiance tags by way of
// vision-capable model providers. Providers are interchangeable: each is an
// OpenAI-style chat completion endpoint described by a small config record,
// so adding a third provider is a data change, not a code change.
package vision

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vibelymap/internal/constants"
	"vibelymap/pkg/circuit"
	errs "vibelymap/pkg/errors"
	"vibelymap/pkg/logging"
)

// chatClient is the slice of the OpenAI SDK surface we use. Tests swap in
// a mock.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ProviderConfig describes one upstream vision endpoint.
type ProviderConfig struct {
	Name    string // "openai", "gemini", ...
	APIKey  string
	BaseURL string // empty = SDK default (api.openai.com)
	Model   string
	Timeout time.Duration // per-call budget; zero falls back to the default
}

// operationTimeout resolves the per-call budget for a provider config.
func operationTimeout(cfg ProviderConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return constants.VisionOperationTimeout
}

// Provider is a configured upstream with its own circuit breaker and usage
// accounting. A provider without an API key stays constructible; calls
// against it fail with a typed external error so the orchestrator can move
// on to the next one.
type Provider struct {
	cfg     ProviderConfig
	client  chatClient
	breaker *circuit.Breaker
	usage   *UsageTracker
}

func NewProvider(cfg ProviderConfig, log *logging.Logger) *Provider {
	var client chatClient
	if cfg.APIKey != "" {
		cc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			cc.BaseURL = cfg.BaseURL
		}
		client = openai.NewClientWithConfig(cc)
	}

	br := circuit.New(circuit.Config{
		Name:                "vision_" + cfg.Name,
		OperationTimeout:    operationTimeout(cfg),
		OpenFor:             constants.VisionBreakerOpenFor,
		MaxConsecFailures:   constants.VisionMaxConsecFailures,
		WindowSize:          20,
		FailureRate:         0.6,
		SlowCallThreshold:   constants.VisionSlowCallThreshold,
		SlowCallRate:        0.8,
		HalfOpenMaxInFlight: 1,
	}, log)

	return &Provider{
		cfg:     cfg,
		client:  client,
		breaker: br,
		usage:   NewUsageTracker(cfg.Name),
	}
}

// Name returns the provider's configured name.
func (p *Provider) Name() string { return p.cfg.Name }

// Usage returns the provider's usage tracker.
func (p *Provider) Usage() *UsageTracker { return p.usage }

// Configured reports whether the provider has credentials and can accept
// calls at all.
func (p *Provider) Configured() bool { return p.client != nil }

// complete runs one chat completion through the breaker.
func (p *Provider) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if p.client == nil {
		return openai.ChatCompletionResponse{},
			errs.NewExternal("vision.complete", p.cfg.Name, "provider has no api key", nil)
	}

	var resp openai.ChatCompletionResponse
	err := p.breaker.Do(ctx, func(ctx context.Context) error {
		var cerr error
		resp, cerr = p.client.CreateChatCompletion(ctx, req)
		return cerr
	}, nil)
	if err != nil {
		return openai.ChatCompletionResponse{},
			errs.NewExternal("vision.complete", p.cfg.Name, "chat completion failed", err)
	}

	p.usage.AddUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

package backend

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	secondsPerMinuteConstant = 60.0
	defaultBurstConstant     = 1
)

// RateLimitedBackend bounds the request rate of a delegate backend.
type RateLimitedBackend struct {
	delegate InferenceBackend
	provider Provider
	limiter  *rate.Limiter
}

// NewRateLimitedBackend wraps delegate with a limiter allowing requestsPerMinute
// calls; burst lets concurrent stage queries start together.
func NewRateLimitedBackend(delegate InferenceBackend, provider Provider, requestsPerMinute float64, burst int) *RateLimitedBackend {
	if burst <= 0 {
		burst = defaultBurstConstant
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Limit(requestsPerMinute / secondsPerMinuteConstant)
	}
	return &RateLimitedBackend{
		delegate: delegate,
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Generate waits for a limiter token and then delegates.
func (rateLimitedBackend *RateLimitedBackend) Generate(executionContext context.Context, prompt string, promptContext string) (string, error) {
	if waitError := rateLimitedBackend.limiter.Wait(executionContext); waitError != nil {
		return "", RequestError{Provider: rateLimitedBackend.provider, Cause: waitError}
	}
	return rateLimitedBackend.delegate.Generate(executionContext, prompt, promptContext)
}

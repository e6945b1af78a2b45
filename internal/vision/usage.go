package vision

import (
	"sync"
	"time"
)

// UsageTracker tracks provider API usage and estimated cost.
type UsageTracker struct {
	mu               sync.RWMutex
	provider         string
	totalTokens      int
	totalRequests    int
	estimatedCostUSD float64
	startTime        time.Time
}

func NewUsageTracker(provider string) *UsageTracker {
	return &UsageTracker{provider: provider, startTime: time.Now()}
}

func (u *UsageTracker) AddUsage(promptTokens, completionTokens int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.totalTokens += promptTokens + completionTokens
	u.totalRequests++

	// gpt-4o-mini class pricing: $0.15/1M prompt tokens, $0.60/1M completion
	// tokens. Gemini Flash is in the same band; close enough for a budget
	// gauge, this is not billing.
	promptCost := float64(promptTokens) * 0.15 / 1_000_000
	completionCost := float64(completionTokens) * 0.60 / 1_000_000
	u.estimatedCostUSD += promptCost + completionCost
}

func (u *UsageTracker) GetStats() (totalTokens, totalRequests int, estimatedCostUSD float64, duration time.Duration) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return u.totalTokens, u.totalRequests, u.estimatedCostUSD, time.Since(u.startTime)
}

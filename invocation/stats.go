package invocation

import (
	"sync"
	"time"
)

// maxHistory bounds the per-manager call history ring.
const maxHistory = 100

// CallRecord captures one accounted invocation for the history ring.
type CallRecord struct {
	Time             time.Time     `json:"time"`
	InvocationID     string        `json:"invocation_id"`
	Provider         string        `json:"provider"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Cost             float64       `json:"cost"`
	CacheHit         bool          `json:"cache_hit"`
	Latency          time.Duration `json:"latency"`
	Error            string        `json:"error,omitempty"`
}

// StatsSnapshot is an immutable view of a manager's usage counters.
type StatsSnapshot struct {
	TotalCalls         int64        `json:"total_calls"`
	CacheHits          int64        `json:"cache_hits"`
	FailedCalls        int64        `json:"failed_calls"`
	PromptTokens       int64        `json:"prompt_tokens"`
	CompletionTokens   int64        `json:"completion_tokens"`
	TotalTokens        int64        `json:"total_tokens"`
	TotalCost          float64      `json:"total_cost"`
	AverageCostPerCall float64      `json:"average_cost_per_call"`
	History            []CallRecord `json:"history"`
}

// UsageStats holds the process-wide counters owned by one Manager. All
// mutation goes through record(); concurrent Generate calls share one
// instance safely.
type UsageStats struct {
	mu               sync.Mutex
	totalCalls       int64
	cacheHits        int64
	failedCalls      int64
	promptTokens     int64
	completionTokens int64
	totalCost        float64
	history          []CallRecord
}

// NewUsageStats creates an empty stats record.
func NewUsageStats() *UsageStats {
	return &UsageStats{}
}

// record accounts one invocation (successful, cached or failed).
func (s *UsageStats) record(rec CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCalls++
	if rec.CacheHit {
		s.cacheHits++
	}
	if rec.Error != "" {
		s.failedCalls++
	}
	s.promptTokens += int64(rec.PromptTokens)
	s.completionTokens += int64(rec.CompletionTokens)
	s.totalCost += rec.Cost

	s.history = append(s.history, rec)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
}

// Snapshot returns a copy of the current counters and history.
func (s *UsageStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]CallRecord, len(s.history))
	copy(history, s.history)

	snap := StatsSnapshot{
		TotalCalls:       s.totalCalls,
		CacheHits:        s.cacheHits,
		FailedCalls:      s.failedCalls,
		PromptTokens:     s.promptTokens,
		CompletionTokens: s.completionTokens,
		TotalTokens:      s.promptTokens + s.completionTokens,
		TotalCost:        s.totalCost,
		History:          history,
	}
	if s.totalCalls > 0 {
		snap.AverageCostPerCall = s.totalCost / float64(s.totalCalls)
	}
	return snap
}

// Reset clears all counters and the history ring.
func (s *UsageStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCalls = 0
	s.cacheHits = 0
	s.failedCalls = 0
	s.promptTokens = 0
	s.completionTokens = 0
	s.totalCost = 0
	s.history = nil
}

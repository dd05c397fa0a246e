package keypool

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/lysyi3m/tube-comb/app/metrics"
)

type Strategy string

const (
	RoundRobin Strategy = "round_robin"
	LeastUsed  Strategy = "least_used"
	Random     Strategy = "random"
)

const (
	hourlyWindow = time.Hour
	dailyWindow  = 24 * time.Hour

	minKeyLength = 30
)

var ErrExhausted = errors.New("all API keys exhausted")

// ExhaustedError is returned by Next when every key is over one of its quotas.
type ExhaustedError struct {
	Keys int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d API keys exhausted", e.Keys)
}

func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// Spec describes one configured key. A quota of zero or less disables that window.
type Spec struct {
	Key         string
	Label       string
	DailyQuota  int
	HourlyQuota int
}

type record struct {
	spec Spec

	total   int64
	success int64
	failed  int64

	daily       int
	hourly      int
	dailyStart  time.Time
	hourlyStart time.Time
	lastUsed    time.Time
}

func (r *record) resetWindows(now time.Time) {
	if now.Sub(r.hourlyStart) >= hourlyWindow {
		r.hourly = 0
		r.hourlyStart = now
	}
	if now.Sub(r.dailyStart) >= dailyWindow {
		r.daily = 0
		r.dailyStart = now
	}
}

func (r *record) exhausted() bool {
	if r.spec.DailyQuota > 0 && r.daily >= r.spec.DailyQuota {
		return true
	}
	return r.spec.HourlyQuota > 0 && r.hourly >= r.spec.HourlyQuota
}

// Pool selects upstream keys under a rotation strategy and owns their usage counters.
type Pool struct {
	mu       sync.Mutex
	records  []*record
	byKey    map[string]*record
	strategy Strategy
	cursor   int

	now  func() time.Time
	intn func(n int) int
}

func New(specs []Spec, strategy Strategy) (*Pool, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}

	switch strategy {
	case RoundRobin, LeastUsed, Random:
	default:
		return nil, fmt.Errorf("unknown key strategy %q", strategy)
	}

	p := &Pool{
		byKey:    make(map[string]*record, len(specs)),
		strategy: strategy,
		now:      time.Now,
		intn:     rand.IntN,
	}

	now := p.now()
	for i, spec := range specs {
		if err := validateKey(spec.Key); err != nil {
			return nil, fmt.Errorf("API key #%d: %w", i+1, err)
		}
		if _, dup := p.byKey[spec.Key]; dup {
			return nil, fmt.Errorf("API key #%d is configured more than once", i+1)
		}

		r := &record{spec: spec, dailyStart: now, hourlyStart: now}
		p.records = append(p.records, r)
		p.byKey[spec.Key] = r
	}

	return p, nil
}

// Specs builds key specs that share the same quotas.
func Specs(keys []string, dailyQuota, hourlyQuota int) []Spec {
	specs := make([]Spec, 0, len(keys))
	for _, key := range keys {
		specs = append(specs, Spec{Key: key, DailyQuota: dailyQuota, HourlyQuota: hourlyQuota})
	}
	return specs
}

func validateKey(key string) error {
	if len(key) < minKeyLength {
		return fmt.Errorf("key is too short (%d characters, want at least %d)", len(key), minKeyLength)
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return fmt.Errorf("key contains whitespace")
	}
	return nil
}

func (p *Pool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	available := make([]int, 0, len(p.records))
	for i, r := range p.records {
		r.resetWindows(now)
		if !r.exhausted() {
			available = append(available, i)
		}
	}

	if len(available) == 0 {
		metrics.KeyPoolExhausted.Inc()
		slog.Warn("All API keys exhausted", "component", "keypool", "keys", len(p.records))
		return "", &ExhaustedError{Keys: len(p.records)}
	}

	var idx int
	switch p.strategy {
	case LeastUsed:
		idx = available[0]
		for _, i := range available[1:] {
			if p.records[i].total < p.records[idx].total {
				idx = i
			}
		}
	case Random:
		idx = available[p.intn(len(available))]
	default:
		idx = p.nextRoundRobin()
	}

	return p.records[idx].spec.Key, nil
}

// nextRoundRobin walks from the cursor in configured order and returns the
// first key that is not exhausted. Callers guarantee one exists.
func (p *Pool) nextRoundRobin() int {
	n := len(p.records)
	for step := 0; step < n; step++ {
		i := (p.cursor + step) % n
		if !p.records[i].exhausted() {
			p.cursor = (i + 1) % n
			return i
		}
	}
	return p.cursor
}

// RecordResult counts one request made with key. Unknown keys are ignored.
func (p *Pool) RecordResult(key string, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.byKey[key]
	if !ok {
		return
	}

	now := p.now()
	r.resetWindows(now)

	r.total++
	if success {
		r.success++
	} else {
		r.failed++
	}
	r.daily++
	r.hourly++
	r.lastUsed = now
}

type KeyStats struct {
	Key                string     `json:"key"`
	Label              string     `json:"label,omitempty"`
	TotalRequests      int64      `json:"total_requests"`
	SuccessfulRequests int64      `json:"successful_requests"`
	FailedRequests     int64      `json:"failed_requests"`
	SuccessRate        float64    `json:"success_rate"`
	DailyRequests      int        `json:"daily_requests"`
	HourlyRequests     int        `json:"hourly_requests"`
	DailyQuota         int        `json:"daily_quota"`
	HourlyQuota        int        `json:"hourly_quota"`
	DailyWindowStart   time.Time  `json:"daily_window_start"`
	HourlyWindowStart  time.Time  `json:"hourly_window_start"`
	LastUsed           *time.Time `json:"last_used"`
	Exhausted          bool       `json:"exhausted"`
}

type Stats struct {
	Strategy      Strategy   `json:"strategy"`
	TotalKeys     int        `json:"total_keys"`
	AvailableKeys int        `json:"available_keys"`
	TotalRequests int64      `json:"total_requests"`
	Keys          []KeyStats `json:"keys"`
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	stats := Stats{
		Strategy:  p.strategy,
		TotalKeys: len(p.records),
		Keys:      make([]KeyStats, 0, len(p.records)),
	}

	for _, r := range p.records {
		r.resetWindows(now)

		ks := KeyStats{
			Key:                mask(r.spec.Key),
			Label:              r.spec.Label,
			TotalRequests:      r.total,
			SuccessfulRequests: r.success,
			FailedRequests:     r.failed,
			DailyRequests:      r.daily,
			HourlyRequests:     r.hourly,
			DailyQuota:         r.spec.DailyQuota,
			HourlyQuota:        r.spec.HourlyQuota,
			DailyWindowStart:   r.dailyStart,
			HourlyWindowStart:  r.hourlyStart,
			Exhausted:          r.exhausted(),
		}
		if r.total > 0 {
			ks.SuccessRate = float64(r.success) / float64(r.total) * 100
		}
		if !r.lastUsed.IsZero() {
			lastUsed := r.lastUsed
			ks.LastUsed = &lastUsed
		}
		if !ks.Exhausted {
			stats.AvailableKeys++
		}
		stats.TotalRequests += r.total
		stats.Keys = append(stats.Keys, ks)
	}

	return stats
}

func mask(key string) string {
	if len(key) <= 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

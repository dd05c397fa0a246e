package cfg

import "time"

type Cfg struct {
	// Upstream credentials
	APIKeys     []string
	KeysFile    string
	KeyStrategy string
	DailyQuota  int
	HourlyQuota int

	// Upstream endpoints
	APIBaseURL  string
	FeedBaseURL string
	UserAgent   string

	// Cache TTLs
	CacheTTLChannel time.Duration
	CacheTTLVideo   time.Duration
	CacheTTLRSS     time.Duration
	DefaultCacheTTL time.Duration

	// Request pacing
	MinRequestInterval time.Duration
	RetryDelay         time.Duration
	RequestTimeout     time.Duration
	BreakerFailures    int

	// Batching
	MaxVideoBatchSize    int
	MaxChannelBatchSize  int
	MaxConcurrentWorkers int
	BatchTaskTimeout     time.Duration

	DefaultChannelParts []string
	DefaultVideoParts   []string

	LanguagesFile string

	MaintenanceInterval time.Duration

	// Log store
	LogDBPath        string
	LogRetentionDays int

	Port    string
	Debug   bool
	Version string
}

package cfg

import (
	"cmp"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

var strategies = map[string]bool{
	"round_robin": true,
	"least_used":  true,
	"random":      true,
}

type rawCfg struct {
	// Upstream credentials
	APIKeys     string `long:"api-keys" env:"YOUTUBE_API_KEYS" description:"Comma-separated list of upstream API keys"`
	KeysFile    string `long:"keys-file" env:"KEYS_FILE" description:"YAML file with upstream API keys and per-key quotas"`
	KeyStrategy string `long:"key-strategy" env:"KEY_STRATEGY" default:"round_robin" description:"Key rotation strategy (round_robin, least_used, random)"`
	DailyQuota  int    `long:"daily-quota" env:"DAILY_QUOTA" default:"10000" description:"Requests allowed per key per day (0 disables)"`
	HourlyQuota int    `long:"hourly-quota" env:"HOURLY_QUOTA" default:"1000" description:"Requests allowed per key per hour (0 disables)"`

	// Upstream endpoints
	APIBaseURL  string `long:"api-base-url" env:"YOUTUBE_API_BASE_URL" default:"https://www.googleapis.com/youtube/v3" description:"Upstream data API base URL"`
	FeedBaseURL string `long:"feed-base-url" env:"FEED_BASE_URL" default:"https://www.youtube.com/feeds/videos.xml" description:"Upstream channel feed URL"`
	UserAgent   string `long:"user-agent" env:"USER_AGENT" default:"Tube Comb/1.0" description:"User agent string for outbound requests"`

	// Cache TTLs
	CacheTTLChannel time.Duration `long:"cache-ttl-channel" env:"CACHE_TTL_CHANNEL" default:"30m" description:"TTL for channel lookups"`
	CacheTTLVideo   time.Duration `long:"cache-ttl-video" env:"CACHE_TTL_VIDEO" default:"10m" description:"TTL for video lookups"`
	CacheTTLRSS     time.Duration `long:"cache-ttl-rss" env:"CACHE_TTL_RSS" default:"5m" description:"TTL for channel feeds"`
	DefaultCacheTTL time.Duration `long:"default-cache-ttl" env:"DEFAULT_CACHE_TTL" default:"1h" description:"TTL used when an operation has none"`

	// Request pacing
	MinRequestInterval time.Duration `long:"min-request-interval" env:"MIN_REQUEST_INTERVAL" default:"100ms" description:"Minimum gap between outbound requests"`
	RetryDelay         time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"1s" description:"Delay before retrying a rate-limited request"`
	RequestTimeout     time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30s" description:"Outbound HTTP timeout"`
	BreakerFailures    int           `long:"breaker-failures" env:"BREAKER_FAILURES" default:"5" description:"Consecutive upstream failures that open the circuit (0 disables)"`

	// Batching
	MaxVideoBatchSize    int           `long:"max-video-batch-size" env:"MAX_VIDEO_BATCH_SIZE" default:"50" description:"Video ids per upstream call"`
	MaxChannelBatchSize  int           `long:"max-channel-batch-size" env:"MAX_CHANNEL_BATCH_SIZE" default:"50" description:"Channel ids per upstream call"`
	MaxConcurrentWorkers int           `long:"max-workers" env:"MAX_CONCURRENT_WORKERS" default:"5" description:"Concurrent tasks for batch requests"`
	BatchTaskTimeout     time.Duration `long:"batch-task-timeout" env:"BATCH_TASK_TIMEOUT" default:"30s" description:"Per-task timeout for batch requests"`

	DefaultChannelParts string `long:"channel-parts" env:"DEFAULT_CHANNEL_PARTS" default:"contentDetails,localizations,snippet,statistics,status,topicDetails" description:"Default channel parts"`
	DefaultVideoParts   string `long:"video-parts" env:"DEFAULT_VIDEO_PARTS" default:"contentDetails,id,liveStreamingDetails,localizations,paidProductPlacementDetails,player,recordingDetails,snippet,statistics,status,topicDetails" description:"Default video parts"`

	LanguagesFile string `long:"languages-file" env:"LANGUAGES_FILE" description:"Language list file (YAML or upstream i18nLanguages JSON)"`

	MaintenanceInterval time.Duration `long:"maintenance-interval" env:"MAINTENANCE_INTERVAL" default:"10m" description:"Interval for cache sweeps and log retention (0 runs them once at startup)"`

	// Log store
	LogDBPath        string `long:"log-db-path" env:"LOG_DB_PATH" default:"./data/logs.db" description:"SQLite log store path (empty disables)"`
	LogRetentionDays int    `long:"log-retention-days" env:"LOG_RETENTION_DAYS" default:"30" description:"Days of logs kept in the log store"`

	Port  string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Debug bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		APIKeys:              splitList(raw.APIKeys),
		KeysFile:             raw.KeysFile,
		KeyStrategy:          raw.KeyStrategy,
		DailyQuota:           raw.DailyQuota,
		HourlyQuota:          raw.HourlyQuota,
		APIBaseURL:           strings.TrimRight(raw.APIBaseURL, "/"),
		FeedBaseURL:          raw.FeedBaseURL,
		UserAgent:            raw.UserAgent,
		CacheTTLChannel:      raw.CacheTTLChannel,
		CacheTTLVideo:        raw.CacheTTLVideo,
		CacheTTLRSS:          raw.CacheTTLRSS,
		DefaultCacheTTL:      raw.DefaultCacheTTL,
		MinRequestInterval:   raw.MinRequestInterval,
		RetryDelay:           raw.RetryDelay,
		RequestTimeout:       raw.RequestTimeout,
		BreakerFailures:      raw.BreakerFailures,
		MaxVideoBatchSize:    raw.MaxVideoBatchSize,
		MaxChannelBatchSize:  raw.MaxChannelBatchSize,
		MaxConcurrentWorkers: raw.MaxConcurrentWorkers,
		BatchTaskTimeout:     raw.BatchTaskTimeout,
		DefaultChannelParts:  splitList(raw.DefaultChannelParts),
		DefaultVideoParts:    splitList(raw.DefaultVideoParts),
		LanguagesFile:        raw.LanguagesFile,
		MaintenanceInterval:  raw.MaintenanceInterval,
		LogDBPath:            raw.LogDBPath,
		LogRetentionDays:     raw.LogRetentionDays,
		Port:                 raw.Port,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Cfg) validate() error {
	if len(c.APIKeys) == 0 && c.KeysFile == "" {
		return fmt.Errorf("no upstream API keys configured: set YOUTUBE_API_KEYS or KEYS_FILE")
	}
	if !strategies[c.KeyStrategy] {
		return fmt.Errorf("unknown key strategy %q", c.KeyStrategy)
	}
	if c.MaxVideoBatchSize <= 0 || c.MaxChannelBatchSize <= 0 {
		return fmt.Errorf("batch sizes must be positive")
	}
	if c.MaxConcurrentWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", c.MaxConcurrentWorkers)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package database

import (
	"encoding/json"
	"time"
)

type LogEntry struct {
	ID         int64           `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Logger     string          `json:"logger"`
	Level      string          `json:"level"`
	LevelNo    int             `json:"level_no"`
	Message    string          `json:"message"`
	SourceFile string          `json:"source_file,omitempty"`
	SourceFunc string          `json:"source_func,omitempty"`
	SourceLine int             `json:"source_line,omitempty"`
	Attrs      json.RawMessage `json:"attrs,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Log type filters
const (
	LogTypeAll    = "all"
	LogTypeAPI    = "api"
	LogTypeError  = "error"
	LogTypeAccess = "access"
)

type LogFilter struct {
	Level  string
	Type   string
	Logger string
	Limit  int
	Offset int
}

type LogPage struct {
	Logs          []LogEntry `json:"logs"`
	TotalCount    int        `json:"total_count"`
	ReturnedCount int        `json:"returned_count"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
	HasMore       bool       `json:"has_more"`
}

type LogStats struct {
	TotalLogs int            `json:"total_logs"`
	ByLevel   map[string]int `json:"by_level"`
	ByLogger  map[string]int `json:"by_logger"`
	Last24h   map[string]int `json:"last_24h"`
}

type CleanupResult struct {
	DeletedLogs int64 `json:"deleted_logs"`
	DaysKept    int   `json:"days_kept"`
}

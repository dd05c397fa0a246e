package database

// LogRepository persists application log records.
type LogRepository interface {
	InsertLogs(entries []LogEntry) error
	GetLogs(filter LogFilter) (*LogPage, error)
	GetLogStats() (*LogStats, error)
	CleanupLogs(daysToKeep int) (*CleanupResult, error)
}

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var _ LogRepository = (*LogRepo)(nil)

const (
	// Fixed width so text comparison matches time order.
	timeLayout = "2006-01-02T15:04:05.000000Z"

	defaultLogLimit = 100
	maxLogLimit     = 1000
	topLoggers      = 10
)

// Loggers whose records count as API activity.
var apiLoggers = []string{"youtube", "upstream", "keypool", "feed", "tasks"}

const accessLogger = "http"

type LogRepo struct {
	db  *DB
	now func() time.Time
}

func NewLogRepository(db *DB) *LogRepo {
	return &LogRepo{db: db, now: time.Now}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// InsertLogs stores entries in a single transaction.
func (r *LogRepo) InsertLogs(entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO logs (timestamp, logger_name, level, level_no, message, source_file, source_func, source_line, attrs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare log insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var attrs any
		if len(e.Attrs) > 0 {
			attrs = string(e.Attrs)
		}

		_, err := stmt.Exec(
			formatTime(e.Timestamp), e.Logger, e.Level, e.LevelNo, e.Message,
			nullString(e.SourceFile), nullString(e.SourceFunc), nullInt(e.SourceLine), attrs,
		)
		if err != nil {
			return fmt.Errorf("failed to insert log entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entries: %w", err)
	}
	return nil
}

// GetLogs returns one page of entries, newest first.
func (r *LogRepo) GetLogs(filter LogFilter) (*LogPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLogLimit
	}
	filter.Limit = min(filter.Limit, maxLogLimit)
	filter.Offset = max(filter.Offset, 0)

	where, args := buildLogWhere(filter)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM logs"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT id, timestamp, logger_name, level, level_no, message,
		       source_file, source_func, source_line, attrs, created_at
		FROM logs`+where+`
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	logs := []LogEntry{}
	for rows.Next() {
		var (
			e                      LogEntry
			timestamp, createdAt   string
			sourceFile, sourceFunc sql.NullString
			sourceLine             sql.NullInt64
			attrs                  sql.NullString
		)
		err := rows.Scan(
			&e.ID, &timestamp, &e.Logger, &e.Level, &e.LevelNo, &e.Message,
			&sourceFile, &sourceFunc, &sourceLine, &attrs, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}

		e.Timestamp = parseTime(timestamp)
		e.CreatedAt = parseTime(createdAt)
		e.SourceFile = sourceFile.String
		e.SourceFunc = sourceFunc.String
		e.SourceLine = int(sourceLine.Int64)
		if attrs.Valid {
			e.Attrs = []byte(attrs.String)
		}
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log rows: %w", err)
	}

	return &LogPage{
		Logs:          logs,
		TotalCount:    total,
		ReturnedCount: len(logs),
		Limit:         filter.Limit,
		Offset:        filter.Offset,
		HasMore:       filter.Offset+len(logs) < total,
	}, nil
}

func buildLogWhere(filter LogFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Level != "" && !strings.EqualFold(filter.Level, "all") {
		conditions = append(conditions, "UPPER(level) = UPPER(?)")
		args = append(args, filter.Level)
	}

	switch filter.Type {
	case LogTypeAPI:
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(apiLoggers)), ",")
		conditions = append(conditions, "logger_name IN ("+placeholders+")")
		for _, name := range apiLoggers {
			args = append(args, name)
		}
	case LogTypeError:
		conditions = append(conditions, "level_no >= ?")
		args = append(args, int(slog.LevelError))
	case LogTypeAccess:
		conditions = append(conditions, "logger_name = ?")
		args = append(args, accessLogger)
	}

	if filter.Logger != "" {
		conditions = append(conditions, "logger_name LIKE ?")
		args = append(args, "%"+filter.Logger+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *LogRepo) GetLogStats() (*LogStats, error) {
	stats := &LogStats{
		ByLevel:  make(map[string]int),
		ByLogger: make(map[string]int),
		Last24h:  make(map[string]int),
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM logs").Scan(&stats.TotalLogs); err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}

	if err := r.countInto(stats.ByLevel, "SELECT level, COUNT(*) FROM logs GROUP BY level"); err != nil {
		return nil, err
	}

	err := r.countInto(stats.ByLogger, `
		SELECT logger_name, COUNT(*) AS count FROM logs
		GROUP BY logger_name ORDER BY count DESC LIMIT ?
	`, topLoggers)
	if err != nil {
		return nil, err
	}

	since := formatTime(r.now().Add(-24 * time.Hour))
	err = r.countInto(stats.Last24h, "SELECT level, COUNT(*) FROM logs WHERE timestamp > ? GROUP BY level", since)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *LogRepo) countInto(dst map[string]int, query string, args ...any) error {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("failed to query log stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return fmt.Errorf("failed to scan log stats: %w", err)
		}
		dst[name] = count
	}
	return rows.Err()
}

// CleanupLogs deletes entries older than daysToKeep days.
func (r *LogRepo) CleanupLogs(daysToKeep int) (*CleanupResult, error) {
	if daysToKeep < 0 {
		return nil, fmt.Errorf("days to keep must not be negative, got %d", daysToKeep)
	}

	cutoff := formatTime(r.now().AddDate(0, 0, -daysToKeep))
	res, err := r.db.Exec("DELETE FROM logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to delete old logs: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to count deleted logs: %w", err)
	}

	if deleted > 0 {
		if _, err := r.db.Exec("VACUUM"); err != nil {
			slog.Warn("Failed to vacuum log database", "component", "database", "error", err)
		}
	}

	return &CleanupResult{DeletedLogs: deleted, DaysKept: daysToKeep}, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

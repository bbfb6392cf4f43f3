// Package logging wraps log/slog with a process-wide logger, request ids
// carried in contexts and one helper per event the service emits.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format selects the handler that renders log records.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type requestIDKey struct{}

var defaultLogger *slog.Logger

func init() {
	InitLogger(slog.LevelInfo, FormatJSON)
}

// ParseLevel maps "debug", "info", "warn" ("warning") and "error" to a slog
// level. Anything else is info.
func ParseLevel(s string) slog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseFormat maps "text" to FormatText and anything else to FormatJSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}

// InitLogger installs a logger writing to stderr; stdout is reserved for
// command output.
func InitLogger(level slog.Level, format Format) {
	InitLoggerTo(os.Stderr, level, format)
}

// InitLoggerTo installs a logger writing to w. Timestamps are RFC3339.
func InitLoggerTo(w io.Writer, level slog.Level, format Format) {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if format == FormatText {
		h = slog.NewTextHandler(w, opts)
	}
	defaultLogger = slog.New(h)
	slog.SetDefault(defaultLogger)
}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the id stored by WithRequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func fromContext(ctx context.Context) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return defaultLogger.With("request_id", id)
	}
	return defaultLogger
}

func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

// DebugContext logs at debug level with the context's request id.
func DebugContext(ctx context.Context, msg string, args ...any) {
	fromContext(ctx).Debug(msg, args...)
}

// InfoContext logs at info level with the context's request id.
func InfoContext(ctx context.Context, msg string, args ...any) {
	fromContext(ctx).Info(msg, args...)
}

// event logs msg with the fixed fields first and caller extras after them.
func event(ctx context.Context, level slog.Level, msg string, fields []any, extra []any) {
	fromContext(ctx).Log(ctx, level, msg, append(fields, extra...)...)
}

func httpRequest(ctx context.Context, r requestLine, status int, d time.Duration) {
	event(ctx, slog.LevelInfo, "http_request", []any{
		"method", r.method,
		"path", r.path,
		"remote_addr", r.remoteAddr,
		"status_code", status,
		"duration_ms", d.Milliseconds(),
	}, nil)
}

// RankingRun logs the outcome of one ranking pipeline run.
func RankingRun(ctx context.Context, runID string, filters, passages int, d time.Duration, args ...any) {
	event(ctx, slog.LevelInfo, "ranking_run", []any{
		"run_id", runID,
		"filters", filters,
		"passages", passages,
		"duration_ms", d.Milliseconds(),
	}, args)
}

// FilterStage logs one filter application: debug on success, error on
// failure.
func FilterStage(ctx context.Context, runID, filter string, stage int, d time.Duration, err error) {
	fields := []any{
		"run_id", runID,
		"filter", filter,
		"stage", stage,
		"duration_us", d.Microseconds(),
	}
	if err != nil {
		event(ctx, slog.LevelError, "filter_stage", fields, []any{"error", err.Error()})
		return
	}
	event(ctx, slog.LevelDebug, "filter_stage", fields, nil)
}

// DatasetLoad logs a dataset file load.
func DatasetLoad(path string, records int, err error) {
	if err != nil {
		defaultLogger.Error("dataset_load", "path", path, "error", err.Error())
		return
	}
	defaultLogger.Info("dataset_load", "path", path, "records", records)
}

// RemoteCall logs a request to the Bible text service.
func RemoteCall(ctx context.Context, endpoint string, status int, d time.Duration, args ...any) {
	event(ctx, slog.LevelDebug, "remote_call", []any{
		"endpoint", endpoint,
		"status_code", status,
		"duration_ms", d.Milliseconds(),
	}, args)
}

func WebSocketEvent(name string, clients int, args ...any) {
	event(context.Background(), slog.LevelInfo, "websocket_event", []any{
		"event", name,
		"client_count", clients,
	}, args)
}

func ServerStartup(serverType, protocol string, port int, args ...any) {
	event(context.Background(), slog.LevelInfo, "server_startup", []any{
		"server_type", serverType,
		"protocol", protocol,
		"port", port,
	}, args)
}

// SecurityEvent logs a rejected origin, rate-limited client and similar at
// warn level.
func SecurityEvent(name, component string, args ...any) {
	event(context.Background(), slog.LevelWarn, "security_event", []any{
		"event", name,
		"component", component,
	}, args)
}

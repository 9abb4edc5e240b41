// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig controls the global logger.
type LogConfig struct {
	Level       string
	Pretty      bool
	ServiceName string
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys read by Ctx.
const (
	RequestIDKey LogContextKey = "request_id"
	UserIDKey    LogContextKey = "user_id"
	TraceIDKey   LogContextKey = "trace_id"
)

// Field names shared by request and repository logs.
const (
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldTraceID   = "trace_id"
	FieldService   = "service"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "ip"
)

var (
	global zerolog.Logger
	once   sync.Once
)

func init() {
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// NewLogger builds a zerolog.Logger from cfg.
func NewLogger(cfg LogConfig) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		logger = logger.With().Str(FieldService, cfg.ServiceName).Logger()
	}
	return logger
}

// InitLogger replaces the global logger. Only the first call has an effect.
// The stdlib logger is bridged so stray log.Printf calls stay structured.
func InitLogger(cfg LogConfig) {
	once.Do(func() {
		global = NewLogger(cfg)

		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

// L returns the global logger.
func L() *zerolog.Logger {
	return &global
}

// Ctx returns the global logger enriched with the request, user and trace
// identifiers found in ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return L()
	}

	lc := global.With()
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		lc = lc.Str(FieldRequestID, rid)
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok && uid != 0 {
		lc = lc.Uint(FieldUserID, uid)
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok && tid != "" {
		lc = lc.Str(FieldTraceID, tid)
	}
	logger := lc.Logger()
	return &logger
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

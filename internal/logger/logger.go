// Package logger provides structured logging using zerolog.
package logger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	matchIDKey   contextKey = "match_id"
	requestIDKey contextKey = "request_id"
)

const milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options configures Init.
type Options struct {
	Level string    // zerolog level name; defaults to info
	File  string    // optional file the console output is also appended to
	Dev   bool      // colored output
	Out   io.Writer // defaults to os.Stderr
}

// Init initializes the global logger. Logging goes to stderr by default so
// an interactive match can own stdout.
func Init(opts Options) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }

	const callerWidth = 24
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		path := fmt.Sprintf("%s:%d", filepath.Base(file), line)
		if len(path) >= callerWidth {
			return path[len(path)-callerWidth:]
		}
		return path + strings.Repeat(" ", callerWidth-len(path))
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: milliTimeFormat,
		NoColor:    !opts.Dev,
	}

	if opts.File != "" {
		f, ferr := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if ferr == nil {
			output = io.MultiWriter(output, f)
		}
	}

	log.Logger = log.Output(output).With().Caller().Logger()

	log.Debug().
		Str("level", level.String()).
		Bool("dev", opts.Dev).
		Msg("Logger initialized")
}

// NewMatchID generates a cryptographically secure random 8-character alphanumeric string.
func NewMatchID() string { return newID("m") }

// NewRequestID generates an ID for one HTTP request, in the same form as NewMatchID.
func NewRequestID() string { return newID("r") }

func newID(fallbackPrefix string) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return fmt.Sprintf("%s%07d", fallbackPrefix, time.Now().UnixNano()%10000000)
	}

	for i := range b {
		b[i] = charset[b[i]%byte(len(charset))]
	}
	return string(b)
}

// WithMatchID returns a new context with the given match ID stored.
func WithMatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, matchIDKey, id)
}

// MatchIDFromContext extracts the match ID from context, or empty string.
func MatchIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(matchIDKey).(string)
	return id
}

// ForMatch returns a logger enriched with the match ID from context.
func ForMatch(ctx context.Context) zerolog.Logger {
	id := MatchIDFromContext(ctx)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("matchId", id).Logger()
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Logger struct{ zerolog.Logger }

func New(level string) *Logger { return NewWithWriter(os.Stdout, level) }

func NewWithWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	return &Logger{z}
}

// Nop discards everything; used by tests and library callers without a logger.
func Nop() *Logger { return &Logger{zerolog.Nop()} }

// HTTP logs one line per request with the final status code.
func (l *Logger) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := l.Info()
		if status >= http.StatusInternalServerError {
			ev = l.Error()
		}
		ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).
			Int("bytes", ww.BytesWritten()).Dur("dur", time.Since(start)).Msg("http")
	})
}

// Package logger holds the process logger. Panel URLs carry credentials in both the
// query string and the media path, so every message can be passed through Redact.
package logger

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/grafana/regexp"
	"github.com/rs/zerolog"
)

var (
	queryCreds = regexp.MustCompile(`(?i)((?:username|password)=)[^&\s"]*`)
	pathCreds  = regexp.MustCompile(`(/(?:live|movie|series)/)[^/\s"]+/[^/\s"]+/`)
)

// Redact masks username/password query values and the user/pass segments of media paths.
func Redact(s string) string {
	s = queryCreds.ReplaceAllString(s, "${1}***")
	return pathCreds.ReplaceAllString(s, "${1}***/***/")
}

// Options configures the process logger.
type Options struct {
	Out      io.Writer
	Debug    bool
	SafeLogs bool
	NoColor  bool
}

type redactWriter struct {
	w io.Writer
}

func (r redactWriter) Write(p []byte) (int, error) {
	if _, err := r.w.Write([]byte(Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}

var current atomic.Pointer[zerolog.Logger]

func init() {
	Configure(Options{SafeLogs: true})
}

// New builds a logger without installing it.
func New(o Options) zerolog.Logger {
	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.SafeLogs {
		out = redactWriter{w: out}
	}
	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime, NoColor: o.NoColor}
	lvl := zerolog.InfoLevel
	if o.Debug {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger()
}

// Configure replaces the process logger.
func Configure(o Options) zerolog.Logger {
	l := New(o)
	current.Store(&l)
	return l
}

// L returns the process logger.
func L() zerolog.Logger {
	return *current.Load()
}

package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"GET http://x.test/player_api.php?username=alice&password=s3cret&action=get_series",
			"GET http://x.test/player_api.php?username=***&password=***&action=get_series",
		},
		{
			"http://x.test/live/alice/s3cret/501.ts",
			"http://x.test/live/***/***/501.ts",
		},
		{
			"http://x.test/series/a/b/77.mkv and http://x.test/movie/a/b/9.mp4",
			"http://x.test/series/***/***/77.mkv and http://x.test/movie/***/***/9.mp4",
		},
		{"no credentials here", "no credentials here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Redact(tt.in))
	}
}

func TestNew_safeLogs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Out: &buf, SafeLogs: true, NoColor: true})
	l.Info().Str("url", "http://x.test/get.php?username=a&password=b").Msg("export")
	assert.NotContains(t, buf.String(), "password=b")
	assert.Contains(t, buf.String(), "password=***")
}

func TestNew_debugLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Out: &buf, NoColor: true})
	l.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	l = New(Options{Out: &buf, Debug: true, NoColor: true})
	l.Debug().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestConfigure_replacesL(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Out: &buf, NoColor: true})
	t.Cleanup(func() { Configure(Options{SafeLogs: true}) })
	l := L()
	l.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

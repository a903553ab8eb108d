package shared

import (
	"bytes"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseDuration(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want int
	}{
		{name: "minutes and seconds", in: "3:45", want: 225},
		{name: "hours", in: "1:02:03", want: 3723},
		{name: "plain seconds", in: "42", want: 42},
		{name: "unknown marker", in: "?:??", want: 0},
		{name: "empty", in: "", want: 0},
		{name: "garbage", in: "a:bc", want: 0},
		{name: "too many parts", in: "1:2:3:4", want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.in); got != tt.want {
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "3:45", FormatDuration(225))
	assert.Equal(t, "0:07", FormatDuration(7))
	assert.Equal(t, "?:??", FormatDuration(0))
	assert.Equal(t, "1:05", FormatPosition(65*time.Second+300*time.Millisecond))
	assert.Equal(t, "0:00", FormatPosition(-time.Second))
	assert.Equal(t, 225, ParseDuration(FormatDuration(225)))
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		WithLogger(logger, "component", "test").Info("hello")
		assert.Contains(t, buf.String(), "hello")
		assert.Contains(t, buf.String(), "component=test")
	})

	t.Run("ParseLogLevel", func(t *testing.T) {
		assert.Equal(t, log.DebugLevel, ParseLogLevel("DEBUG"))
		assert.Equal(t, log.WarnLevel, ParseLogLevel(" warn "))
		assert.Equal(t, log.InfoLevel, ParseLogLevel("nonsense"))
	})

	t.Run("SetLogLevel filters", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("quiet")
		assert.Empty(t, buf.String())
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestBrowserCommand(t *testing.T) {
	for _, goos := range []string{"darwin", "linux", "windows"} {
		t.Run(goos, func(t *testing.T) {
			cmd, err := browserCommand(goos, "http://127.0.0.1:3001/login")
			assert.NoError(t, err)
			assert.Contains(t, cmd.Args, "http://127.0.0.1:3001/login")
		})
	}

	_, err := browserCommand("plan9", "http://x")
	assert.Error(t, err)
}

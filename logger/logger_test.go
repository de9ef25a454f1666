package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlogLogger_JSON(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlog(&buf, InfoLevel, false)

	l.Debug("dropped")
	assert.Zero(t, buf.Len())

	l.With("port", "/dev/ttyUSB0").Info("opened", "baud", 9600)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "opened", rec["msg"])
	assert.Equal(t, "/dev/ttyUSB0", rec["port"])
	assert.EqualValues(t, 9600, rec["baud"])
	assert.Contains(t, rec, "ts")
}

func TestSlogLogger_SetLevelSharedWithChildren(t *testing.T) {
	t.Setenv("ENV", "")

	var buf bytes.Buffer
	l := NewSlog(&buf, WarnLevel, false)
	child := l.With("axis", 1)

	child.Info("hidden")
	assert.Zero(t, buf.Len())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.Level())

	child.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSetDefault(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetDefault(prev) })

	m := NewMockLogger()
	m.On("Warn", "busy", []any{"axis", 2}).Once()

	SetDefault(m)
	Warn("busy", "axis", 2)

	m.AssertExpectations(t)

	SetDefault(nil)
	assert.Same(t, m, GetLogger())
}

package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestWriterLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("collapse", &buf, INFO)

	l.Debug("скрыто")
	assert.Empty(t, buf.String())

	l.Info("обрушение %d", 3)
	assert.Contains(t, buf.String(), "[INFO] [collapse] обрушение 3")

	buf.Reset()
	l.SetLevels(TRACE, ERROR+1)
	LogBreakEvent(l, "steve", "world:1,2,3", "STONE")
	assert.Contains(t, buf.String(), "Break from steve at world:1,2,3 (STONE)")
}

func TestNilLogger_IsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("ничего")
		LogCollapse(l, "VERTICAL_SHAFT", "w:0,0,0", 1, 1)
		assert.NoError(t, l.Close())
	})
	assert.False(t, l.Enabled(ERROR))
}

func TestDefaultLogger(t *testing.T) {
	LogsDir = filepath.Join(t.TempDir(), "logs")
	require.NoError(t, InitDefaultLogger("test"))
	defer CloseDefaultLogger()

	assert.NotPanics(t, func() { Info("✅ запуск") })
	assert.NotNil(t, getDefault())
}

func TestLoggerManager_SetComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	lm := GetLoggerManager()
	lm.SetComponentLogger("unit", NewWriterLogger("unit", &buf, DEBUG))

	GetComponentLogger("unit").Debug("hello")
	assert.Contains(t, buf.String(), "hello")
	require.NoError(t, lm.SetLogLevel("unit", ERROR, ERROR))
	GetComponentLogger("unit").Info("muted")
	assert.NotContains(t, buf.String(), "muted")
}

func TestLoggerManager_ConsoleLevelAndClose(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger), consoleLevel: INFO}

	var a, b bytes.Buffer
	lm.SetComponentLogger("b", NewWriterLogger("b", &b, INFO))
	lm.SetComponentLogger("a", NewWriterLogger("a", &a, INFO))
	assert.Equal(t, []string{"a", "b"}, lm.ListComponents())

	lm.SetConsoleLevel(WARN)
	lm.loggers["a"].Info("скрыто")
	lm.loggers["b"].Warn("видно")
	assert.Empty(t, a.String())
	assert.Contains(t, b.String(), "видно")

	assert.Error(t, lm.SetLogLevel("missing", INFO, INFO))
	require.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}

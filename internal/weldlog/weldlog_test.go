package weldlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsoleOnlyDoesNotPanic(t *testing.T) {
	l := New(Config{Level: InfoLevel})
	l.Infof("hello %s", "world")
	l.Debugf("suppressed at info level")
	l.Warnf("warn %d", 1)
	l.Errorf("error %v", os.ErrClosed)
	l.Sync()
}

func TestNewWithFileCoreWritesToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arcweld.log")
	l := New(Config{Level: DebugLevel, File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	l.Infof("message %d", 1)
	l.Sync()

	info, err := os.Stat(path)
	require.NoError(t, err, "expected log file to exist")
	assert.NotZero(t, info.Size(), "expected log file to contain at least one entry")
}

func TestNilLoggerMethodsAreNoOps(t *testing.T) {
	var l *Logger
	l.Infof("unreachable")
	l.Debugf("unreachable")
	l.Warnf("unreachable")
	l.Errorf("unreachable")
	l.Sync()
}

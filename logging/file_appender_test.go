package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camcalib.log")
	appender := NewFileAppender(path, 1)
	logger := &impl{"file", NewAtomicLevelAt(INFO), true, []Appender{appender}}

	logger.Debug("hidden")
	logger.Warnw("numerical instability", "stage", "rq pivot")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 1)
	test.That(t, lines[0], test.ShouldContainSubstring, "WARN\tfile")
	test.That(t, lines[0], test.ShouldContainSubstring, `{"stage":"rq pivot"}`)
}

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// consoleFormatter renders the exact line layout spec.md §4.2.2 requires:
//
//	[ sss hhh lll ]  YYYY-MM-DD HH:MM:SS.mmmZ  [ PRIORITY ]  [ SUBSYSTEM ]  message
//
// Label widths default to the spec's fallback values (9, 18) and are
// recomputed from a configured priority/subsystem table when one is set.
type consoleFormatter struct {
	priorityWidth  int
	subsystemWidth int
}

func newConsoleFormatter() *consoleFormatter {
	return &consoleFormatter{priorityWidth: 9, subsystemWidth: 18}
}

// setWidths recomputes label widths from the longest configured
// priority/subsystem label, falling back to the spec's built-in defaults
// when nothing is configured.
func (f *consoleFormatter) setWidths(priorityLabels, subsystemLabels []string) {
	pw := 9
	for _, l := range priorityLabels {
		if len(l) > pw {
			pw = len(l)
		}
	}
	sw := 18
	for _, l := range subsystemLabels {
		if len(l) > sw {
			sw = len(l)
		}
	}
	f.priorityWidth = pw
	f.subsystemWidth = sw
}

func (f *consoleFormatter) renderLine(rec record) string {
	label := rec.Priority.String()
	if label == "" {
		label = "UNKNOWN"
	}
	return fmt.Sprintf("[ %03d %03d %03d ]  %s  [ %-*s ]  [ %-*s ]  %s",
		rec.CounterSuper, rec.CounterHigh, rec.CounterLow,
		time.Now().UTC().Format("2006-01-02 15:04:05.000")+"Z",
		f.priorityWidth, label,
		f.subsystemWidth, rec.Subsystem,
		rec.Details)
}

// Format implements logrus.Formatter. The record fields travel in
// e.Data, stashed there by consoleLogger.write.
func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	rec, _ := e.Data["record"].(record)
	line := f.renderLine(rec)
	return []byte(line + "\n"), nil
}

// bufferHook appends every formatted console line to the rolling buffer,
// the canonical logrus extension point for a side effect that must run
// whenever a line is actually emitted — spec.md §4.2.2's "every formatted
// line is also appended to the rolling buffer."
type bufferHook struct {
	buf *ringBuffer
}

func (h *bufferHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *bufferHook) Fire(e *logrus.Entry) error {
	line, err := e.String()
	if err != nil {
		return err
	}
	h.buf.push(strings.TrimRight(line, "\n"))
	return nil
}

// consoleLogger wraps a logrus.Logger the way the teacher's Logger wraps
// a stdlib *log.Logger: a struct holding the underlying logger and its
// formatter. logrus itself already serializes individual writes.
type consoleLogger struct {
	logger *logrus.Logger
	fmtr   *consoleFormatter
}

func newConsoleLogger(out io.Writer) *consoleLogger {
	if out == nil {
		out = os.Stdout
	}
	f := newConsoleFormatter()
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(f)
	l.SetLevel(logrus.TraceLevel)
	return &consoleLogger{logger: l, fmtr: f}
}

func (c *consoleLogger) write(rec record) {
	c.logger.WithField("record", rec).Log(rec.Priority.logrusLevel())
}

func (c *consoleLogger) renderLine(rec record) string {
	return c.fmtr.renderLine(rec)
}

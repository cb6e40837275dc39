package logging

import "github.com/sirupsen/logrus"

// Priority is a totally ordered logging priority. ALL and NONE are
// bookends: they are only ever valid as filter thresholds, never as the
// priority of an actual record.
type Priority int

const (
	All Priority = iota
	Trace
	Debug
	State
	Alert
	Error
	Fatal
	Quiet
	None
)

// priorityNames is the built-in fallback table used whenever no
// configuration-supplied width/name table is available.
var priorityNames = map[Priority]string{
	Trace: "TRACE",
	Debug: "DEBUG",
	State: "STATE",
	Alert: "ALERT",
	Error: "ERROR",
	Fatal: "FATAL",
	Quiet: "QUIET",
}

// String renders the priority's display label, or an empty string for the
// ALL/NONE bookends, which are never displayed.
func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return ""
}

// logrusLevel maps a displayable priority onto the nearest logrus level.
// QUIET is a valid emission priority with no useful logrus level, so it is
// mapped to logrus.ErrorLevel to stay visible rather than silently dropped
// by logrus's own level filter. ALL and NONE are never record priorities;
// they fall through to logrus.InfoLevel.
func (p Priority) logrusLevel() logrus.Level {
	switch p {
	case Trace:
		return logrus.TraceLevel
	case Debug:
		return logrus.DebugLevel
	case State:
		return logrus.InfoLevel
	case Alert:
		return logrus.WarnLevel
	case Error:
		return logrus.ErrorLevel
	case Fatal:
		return logrus.FatalLevel
	case Quiet:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

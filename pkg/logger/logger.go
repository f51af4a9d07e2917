package logger

import (
	"fmt"
	"log"
	"strings"
)

const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(msg string, a ...any)
	Infof(msg string, a ...any)
	Warnf(msg string, a ...any)
	Errorf(msg string, a ...any)
}

type defaultLogger struct {
	level  int
	prefix string
}

func NewLogger(level int) *defaultLogger {
	return &defaultLogger{level: level}
}

// WithPrefix returns a logger which writes every line behind the prefix, e.g.
// the name of the component.
func WithPrefix(l Logger, prefix string) Logger {
	if dl, ok := l.(*defaultLogger); ok {
		return &defaultLogger{level: dl.level, prefix: dl.prefix + "[" + prefix + "] "}
	}

	return l
}

// ParseLevel converts the name of a level to its value. Unknown names fall
// back to INFO.
func ParseLevel(name string) int {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "silence", "none":
		return SILENCE
	default:
		return INFO
	}
}

func (l *defaultLogger) Debugf(msg string, a ...any) {
	if l.level <= DEBUG {
		l.print("DEBUG", msg, a...)
	}
}

func (l *defaultLogger) Infof(msg string, a ...any) {
	if l.level <= INFO {
		l.print("INFO", msg, a...)
	}
}

func (l *defaultLogger) Warnf(msg string, a ...any) {
	if l.level <= WARNING {
		l.print("WARN", msg, a...)
	}
}

func (l *defaultLogger) Errorf(msg string, a ...any) {
	if l.level <= ERROR {
		l.print("ERROR", msg, a...)
	}
}

func (l *defaultLogger) print(level, msg string, a ...any) {
	log.Printf("%-5s %s%s\n", level, l.prefix, fmt.Sprintf(msg, a...))
}

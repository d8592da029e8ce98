// Package logger provides leveled, named loggers for the library's
// subsystems (kv, sweep, db, rpc). Loggers are obtained by name through
// GetLogger and share one line format so interleaved output from the
// coordinator, the sweeper and the server stays readable.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Log Levels
// --------------------------------------------------------------------------

type LogLevel int

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// ParseLevel converts a string level to a LogLevel
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warning", "warn":
		return WARNING, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger Interface
// --------------------------------------------------------------------------

// ILogger is the leveled logging interface used throughout the library
type ILogger interface {
	SetLevel(level LogLevel)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// --------------------------------------------------------------------------
// Implementation
// --------------------------------------------------------------------------

// namedLogger implements the ILogger interface with custom formatting
type namedLogger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

func (l *namedLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *namedLogger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *namedLogger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *namedLogger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *namedLogger) Errorf(format string, args ...interface{}) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *namedLogger) Panicf(format string, args ...interface{}) {
	if l.level >= CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *namedLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

var (
	mu      sync.Mutex
	loggers = make(map[string]*namedLogger)
)

// GetLogger returns the logger for the given subsystem name, creating it at
// INFO level on first use. The same instance is returned for the same name.
func GetLogger(name string) ILogger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}

	l := &namedLogger{
		name:   name,
		level:  INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
	loggers[name] = l
	return l
}

// SetLevelAll sets the level of every known logger. Loggers created later
// start at INFO again; call this after all subsystems are initialized.
func SetLevelAll(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()

	for _, l := range loggers {
		l.level = level
	}
}

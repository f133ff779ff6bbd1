package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"campcompass/roompotcrawler/logger"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogError(target string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends failures to an error file and sends info messages to the
// structured logger
type Logger struct {
	mu        sync.Mutex
	errorFile string
	log       *logger.Logger
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string, log *logger.Logger) *Logger {
	if log == nil {
		log = logger.Nop()
	}
	return &Logger{
		errorFile: errorFile,
		log:       log,
	}
}

// LogError logs an error to a file with the target name and timestamp
func (l *Logger) LogError(target string, err error) {
	l.log.Error().Str("target", target).Err(err).Msg("Crawl failed")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		l.log.Warn().Err(fileErr).Str("file", l.errorFile).Msg("Failed to open error log file")
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, target, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

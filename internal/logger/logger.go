// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Logger wraps the standard log package with file output alongside stdout.
type Logger struct {
	file   *os.File
	logger *log.Logger
	mu     sync.RWMutex
	closed bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger. If already initialized, returns the
// existing logger (even if closed).
func Init(logFile string) (*Logger, error) {
	var err error
	once.Do(func() {
		defaultLogger, err = NewLogger(logFile)
	})
	return defaultLogger, err
}

// NewLogger creates a new logger instance writing to stdout and logFile.
func NewLogger(logFile string) (*Logger, error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)

	return &Logger{
		file:   file,
		logger: log.New(multiWriter, "", log.LstdFlags|log.Lshortfile),
	}, nil
}

// GetDefault returns the default logger instance, falling back to a
// stdout-only logger if Init was never called or the default was closed.
func GetDefault() *Logger {
	if defaultLogger == nil {
		defaultLogger = &Logger{
			logger: log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile),
		}
		return defaultLogger
	}

	defaultLogger.mu.RLock()
	closed := defaultLogger.closed
	defaultLogger.mu.RUnlock()

	if closed {
		defaultLogger = &Logger{
			logger: log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile),
		}
	}

	return defaultLogger
}

func (l *Logger) logMessage(level, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return
	}

	message := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	logLine := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	if l.logger != nil {
		l.logger.Output(3, logLine)
	}
}

func (l *Logger) Printf(format string, v ...interface{}) { l.logMessage("INFO", format, v...) }
func (l *Logger) Print(v ...interface{})                 { l.logMessage("INFO", "%s", fmt.Sprint(v...)) }
func (l *Logger) Println(v ...interface{})               { l.logMessage("INFO", "%s", fmt.Sprint(v...)) }
func (l *Logger) Errorf(format string, v ...interface{})  { l.logMessage("ERROR", format, v...) }
func (l *Logger) Error(v ...interface{})                  { l.logMessage("ERROR", "%s", fmt.Sprint(v...)) }
func (l *Logger) Warnf(format string, v ...interface{})   { l.logMessage("WARN", format, v...) }
func (l *Logger) Warn(v ...interface{})                   { l.logMessage("WARN", "%s", fmt.Sprint(v...)) }
func (l *Logger) Debugf(format string, v ...interface{})  { l.logMessage("DEBUG", format, v...) }
func (l *Logger) Debug(v ...interface{})                  { l.logMessage("DEBUG", "%s", fmt.Sprint(v...)) }

func (l *Logger) Fatal(v ...interface{}) {
	l.logMessage("FATAL", "%s", fmt.Sprint(v...))
	os.Exit(1)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.logMessage("FATAL", format, v...)
	os.Exit(1)
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Package-level convenience functions delegating to the default logger.
func Printf(format string, v ...interface{})  { GetDefault().Printf(format, v...) }
func Print(v ...interface{})                  { GetDefault().Print(v...) }
func Println(v ...interface{})                { GetDefault().Println(v...) }
func Errorf(format string, v ...interface{})  { GetDefault().Errorf(format, v...) }
func Error(v ...interface{})                  { GetDefault().Error(v...) }
func Warnf(format string, v ...interface{})   { GetDefault().Warnf(format, v...) }
func Warn(v ...interface{})                   { GetDefault().Warn(v...) }
func Debugf(format string, v ...interface{})  { GetDefault().Debugf(format, v...) }
func Debug(v ...interface{})                  { GetDefault().Debug(v...) }
func Fatal(v ...interface{})                  { GetDefault().Fatal(v...) }
func Fatalf(format string, v ...interface{})  { GetDefault().Fatalf(format, v...) }

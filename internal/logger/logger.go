package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger writes category-tagged log lines to stdout with per-level colors
// and optionally mirrors every line to a file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

var (
	infoColor    = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.FgCyan)
	processColor = color.New(color.FgMagenta)
)

func NewLogger() *Logger {
	l := &Logger{}
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			l.file = f
		}
	}
	return l
}

func (l *Logger) write(level string, c *color.Color, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] %-5s [%s] %s", timestamp, level, category, message)
	c.Fprintln(os.Stdout, line)

	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

func (l *Logger) Info(category, message string)  { l.write("INFO", infoColor, category, message) }
func (l *Logger) Warn(category, message string)  { l.write("WARN", warnColor, category, message) }
func (l *Logger) Error(category, message string) { l.write("ERROR", errorColor, category, message) }
func (l *Logger) Debug(category, message string) {
	if os.Getenv("LOG_DEBUG") == "" {
		return
	}
	l.write("DEBUG", debugColor, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.write("FATAL", errorColor, category, message)
	l.Close()
	os.Exit(1)
}

// LogProcess records lifecycle milestones (startup, shutdown, component init).
func (l *Logger) LogProcess(stage, message string) {
	l.write("PROC", processColor, stage, message)
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.write("DB", debugColor, operation, fmt.Sprintf("[%s] %s", table, message))
}

func (l *Logger) LogKafka(operation, topic, message string) {
	l.write("KAFKA", debugColor, operation, fmt.Sprintf("[%s] %s", topic, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write("API", infoColor, method, fmt.Sprintf("%s - %s (%s)", path, status, duration))
}

// LogPayment tags every step of a payment attempt with its reference id.
func (l *Logger) LogPayment(stage, reference, message string) {
	l.write("PAY", processColor, stage, fmt.Sprintf("[%s] %s", reference, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.write("SEC", warnColor, event, message)
}

func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

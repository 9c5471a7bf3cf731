// Package logger provides leveled, package-aware logging for depot
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger interface for abstracted logging
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	Success(message string, fields ...Field)
	WithPackage(name string) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// WithError creates an "error" field
func WithError(err error) Field {
	return Field{Key: "error", Value: err}
}

const packageKey = "package"

// PackageLogger implements Logger on top of logrus, tagging every entry
// with the workspace package it concerns.
type PackageLogger struct {
	logger      *logrus.Logger
	packageName string
	mu          sync.RWMutex
}

// CustomFormatter renders entries as a single colored line
type CustomFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

var levelStyles = map[logrus.Level]struct {
	text  string
	color *color.Color
}{
	logrus.ErrorLevel: {"ERROR", color.New(color.FgRed, color.Bold)},
	logrus.WarnLevel:  {"WARN", color.New(color.FgYellow, color.Bold)},
	logrus.InfoLevel:  {"INFO", color.New(color.FgCyan)},
	logrus.DebugLevel: {"DEBUG", color.New(color.FgWhite, color.Faint)},
}

// Format implements logrus.Formatter
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	style, ok := levelStyles[entry.Level]
	if !ok {
		style = levelStyles[logrus.InfoLevel]
	}

	level := style.text
	if !f.DisableColors {
		level = style.color.Sprint(style.text)
	}

	prefix := ""
	if pkg, ok := entry.Data[packageKey]; ok {
		name := fmt.Sprint(pkg)
		if !f.DisableColors {
			name = PackageColor(name).Sprint(name)
		}
		prefix = fmt.Sprintf("[%s] ", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 [%s] %s: %s%s", entry.Time.Format(f.TimestampFormat), level, prefix, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != packageKey {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, entry.Data[k]))
		}
		fields := " {" + strings.Join(parts, ", ") + "}"
		if !f.DisableColors {
			fields = color.New(color.FgWhite, color.Faint).Sprint(fields)
		}
		b.WriteString(fields)
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

var packagePalette = []color.Attribute{
	color.FgBlue,
	color.FgMagenta,
	color.FgGreen,
	color.FgYellow,
	color.FgCyan,
	color.FgHiBlue,
	color.FgHiMagenta,
	color.FgHiGreen,
}

// PackageColor returns a stable color for a package name, so the same
// package is always printed the same way across log lines and processes.
func PackageColor(name string) *color.Color {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return color.New(packagePalette[h%uint32(len(packagePalette))])
}

func parseLevel(logLevel string) logrus.Level {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// CreateLogger creates a console logger, additionally appending to logFile
// when one is given.
func CreateLogger(logFile string, logLevel string) Logger {
	log := logrus.New()
	log.SetLevel(parseLevel(logLevel))
	log.SetFormatter(&CustomFormatter{TimestampFormat: "15:04:05"})
	log.SetOutput(os.Stderr)

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			log.SetOutput(io.MultiWriter(os.Stderr, file))
		} else {
			log.WithError(err).Warn("could not open log file")
		}
	}

	return &PackageLogger{logger: log}
}

// CreateLoggerWithOutput creates an uncolored logger writing to output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) Logger {
	log := logrus.New()
	log.SetLevel(parseLevel(logLevel))
	log.SetFormatter(&CustomFormatter{
		TimestampFormat: "15:04:05",
		DisableColors:   true,
	})
	log.SetOutput(output)

	return &PackageLogger{logger: log}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() Logger {
	return CreateLoggerWithOutput("error", io.Discard)
}

// WithPackage returns a logger that tags entries with a package name
func (l *PackageLogger) WithPackage(name string) Logger {
	return &PackageLogger{
		logger:      l.logger,
		packageName: name,
	}
}

func (l *PackageLogger) entry(fields []Field) *logrus.Entry {
	data := make(logrus.Fields, len(fields)+1)
	if l.packageName != "" {
		data[packageKey] = l.packageName
	}
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return l.logger.WithFields(data)
}

// Info logs an info message
func (l *PackageLogger) Info(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.entry(fields).Info(message)
}

// Error logs an error message
func (l *PackageLogger) Error(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.entry(fields).Error(message)
}

// Warn logs a warning message
func (l *PackageLogger) Warn(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.entry(fields).Warn(message)
}

// Debug logs a debug message
func (l *PackageLogger) Debug(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.entry(fields).Debug(message)
}

// Success logs at info level with a check mark
func (l *PackageLogger) Success(message string, fields ...Field) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.entry(fields).Info("✅ " + message)
}

// Console prints plain, user-facing CLI output
type Console struct {
	out    io.Writer
	errOut io.Writer
}

// NewConsole creates a console printing to out and errOut
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{out: out, errOut: errOut}
}

// Info prints an informational line
func (c *Console) Info(format string, a ...any) {
	fmt.Fprintf(c.out, "📦 %s %s\n", color.CyanString("[depot]"), fmt.Sprintf(format, a...))
}

// Warn prints a warning line
func (c *Console) Warn(format string, a ...any) {
	fmt.Fprintf(c.out, "📦 %s %s\n", color.YellowString("[depot]"), fmt.Sprintf(format, a...))
}

// Error prints an error line to the error stream
func (c *Console) Error(format string, a ...any) {
	fmt.Fprintf(c.errOut, "📦 %s %s\n", color.RedString("[depot]"), fmt.Sprintf(format, a...))
}

// Success prints a success line
func (c *Console) Success(format string, a ...any) {
	fmt.Fprintf(c.out, "📦 %s ✅ %s\n", color.GreenString("[depot]"), fmt.Sprintf(format, a...))
}

// Println prints a raw line
func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

// Package logging is the colored, leveled logger every other package in
// this module writes through: ANSI colors, bracketed level tags, and
// banner/section helpers, with level filtering and structured fields
// backed by logrus instead of a hand-rolled switch.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// ANSI color codes used by the formatter and the banner/section helpers.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[37m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Fields is an alias so callers don't need to import logrus directly.
type Fields = logrus.Fields

var std = logrus.New()

func init() {
	std.SetOutput(os.Stdout)
	std.SetFormatter(&consoleFormatter{})
	std.SetLevel(logrus.InfoLevel)
}

// consoleFormatter renders the "[time] [LEVEL] message" layout with
// logrus's field machinery underneath.
type consoleFormatter struct{}

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.DebugLevel:
		return ColorGray
	case logrus.WarnLevel:
		return ColorYellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ColorRed
	default:
		return ColorWhite
	}
}

func (f *consoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	color := levelColor(e.Level)
	if v, ok := e.Data["color"]; ok {
		if c, ok := v.(string); ok {
			color = c
		}
	}
	ts := fmt.Sprintf("%s[%s]%s ", ColorGray, e.Time.Format("15:04:05"), ColorReset)
	tag := fmt.Sprintf("%s[%s]%s", color, levelTag(e), ColorReset)
	line := fmt.Sprintf("%s%s %s", ts, tag, e.Message)
	for k, v := range e.Data {
		if k == "color" {
			continue
		}
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	return []byte(line + "\n"), nil
}

func levelTag(e *logrus.Entry) string {
	if v, ok := e.Data["tag"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	switch e.Level {
	case logrus.DebugLevel:
		return "DEBUG"
	case logrus.WarnLevel:
		return "WARN"
	case logrus.ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// SetLevel sets the minimum level that is actually rendered.
func SetLevel(level logrus.Level) { std.SetLevel(level) }

// WithFields returns an entry carrying structured fields alongside the
// message, e.g. logging.WithFields(logging.Fields{"peer": addr}).Info("connected").
func WithFields(fields Fields) *logrus.Entry { return std.WithFields(fields) }

func Debug(format string, args ...interface{}) { std.Debugf(format, args...) }
func Info(format string, args ...interface{})  { std.Infof(format, args...) }
func Warn(format string, args ...interface{})  { std.Warnf(format, args...) }
func Error(format string, args ...interface{}) { std.Errorf(format, args...) }
func Fatal(format string, args ...interface{}) { std.Fatalf(format, args...) }

// Success logs at info level tagged and colored as a success, a fifth
// level logrus has no native equivalent for.
func Success(format string, args ...interface{}) {
	std.WithFields(Fields{"tag": "SUCCESS", "color": ColorGreen}).Infof(format, args...)
}

// InfoCyan logs an info message in cyan, for highlights (handshake
// completions, round transitions).
func InfoCyan(format string, args ...interface{}) {
	std.WithFields(Fields{"color": ColorCyan}).Infof(format, args...)
}

// Section prints a section header.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   █████╗ █████╗       ██████╗  ██████╗ ██████╗ ███████╗  ║
║  ██╔══██╗██╔══██╗      ██╔═══╝ ██╔═══██╗██╔══██╗██╔════╝  ║
║  ███████║█████╔╝ █████╗██║     ██║   ██║██████╔╝█████╗    ║
║  ██╔══██║██╔══██╗╚════╝██║     ██║   ██║██╔══██╗██╔══╝    ║
║  ██║  ██║██║  ██║      ╚██████╗╚██████╔╝██║  ██║███████╗  ║
║  ╚═╝  ╚═╝╚═╝  ╚═╝       ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝  ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}

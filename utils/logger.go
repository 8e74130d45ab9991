/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	defaultLevel      = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "debug"))
	loggerRegistryMu  sync.RWMutex
	loggerRegistry              = map[string]*logrus.Logger{}
	consoleOutput     io.Writer = os.Stdout
	consoleLogFormat            = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	fileLogEnabled              = EnvDefaultBool("FILE_LOG_ENABLED", false)
	fileLogDir                  = EnvDefaultString("FILE_LOG_DIR", "logs")
	fileLogMaxSizeMB            = 100
	fileLogMaxBackups           = 7
	fileLogMaxAgeDays           = 30
)

// ConfigureFileLog sets where and how rotated log files are written. It only
// affects loggers created afterwards.
func ConfigureFileLog(enabled bool, dir string, maxSizeMB, maxBackups, maxAgeDays int) {
	fileLogEnabled = enabled
	if dir != "" {
		fileLogDir = dir
	}
	if maxSizeMB > 0 {
		fileLogMaxSizeMB = maxSizeMB
	}
	if maxBackups >= 0 {
		fileLogMaxBackups = maxBackups
	}
	if maxAgeDays >= 0 {
		fileLogMaxAgeDays = maxAgeDays
	}
}

// ConfigureConsoleLogFormat selects "json" or "text" console output.
func ConfigureConsoleLogFormat(format string) {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		consoleLogFormat = "json"
	} else {
		consoleLogFormat = "text"
	}
}

// ConfigureConsoleOutput redirects console output of loggers created afterwards.
func ConfigureConsoleOutput(w io.Writer) {
	if w != nil {
		consoleOutput = w
	}
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// LookupLogger returns a registered logger by name.
func LookupLogger(name string) (*logrus.Logger, bool) {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	l, ok := loggerRegistry[name]
	return l, ok
}

// RegisteredLoggers returns the names of all registered loggers, sorted.
func RegisteredLoggers() []string {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	names := make([]string, 0, len(loggerRegistry))
	for name := range loggerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func SetLoggerLevel(name string, lvlStr string) bool {
	lg, ok := LookupLogger(name)
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

// ConfigureLogLevel sets the level of every registered logger and of loggers
// created afterwards.
func ConfigureLogLevel(levelStr string) {
	lvl := ParseLogLevel(levelStr)
	defaultLevel = lvl
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	logrus.SetLevel(lvl)
}

// NewLogger returns the registered logger called name, creating it on first use.
func NewLogger(name string) *logrus.Logger {
	if l, ok := LookupLogger(name); ok {
		return l
	}
	l := logrus.New()
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	if consoleLogFormat == "json" {
		l.SetFormatter(newJSONFormatter(name))
	} else {
		l.SetFormatter(&Log4jColorFormatter{LoggerName: name, NameWidth: 10, Color: true})
	}
	l.SetOutput(consoleOutput)
	if fileLogEnabled {
		l.AddHook(newFileHook(name))
	}
	RegisterLogger(name, l)
	return l
}

// fileHook writes every entry, uncolored, into a size-rotated file per logger.
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func newFileHook(name string) *fileHook {
	return &fileHook{
		writer: &lumberjack.Logger{
			Filename:   filepath.Join(fileLogDir, strings.ToLower(name)+".log"),
			MaxSize:    fileLogMaxSizeMB,
			MaxBackups: fileLogMaxBackups,
			MaxAge:     fileLogMaxAgeDays,
			LocalTime:  true,
		},
		formatter: &Log4jColorFormatter{LoggerName: name, NameWidth: 10},
	}
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(e *logrus.Entry) error {
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}

func newJSONFormatter(name string) logrus.Formatter {
	return &namedJSONFormatter{
		name: name,
		JSONFormatter: logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg:  "message",
				logrus.FieldKeyFile: "caller",
			},
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				return "", fmt.Sprintf("%s:%d", shortPath(f.File), f.Line)
			},
		},
	}
}

type namedJSONFormatter struct {
	logrus.JSONFormatter
	name string
}

func (f *namedJSONFormatter) Format(e *logrus.Entry) ([]byte, error) {
	data := make(logrus.Fields, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data["model"] = f.name
	clone := *e
	clone.Data = data
	return f.JSONFormatter.Format(&clone)
}

// Log4jColorFormatter renders entries as
// "2006-01-02 15:04:05.000   INFO 1234   - [main]   DATABASE dir/file.go:42 : message k=v".
type Log4jColorFormatter struct {
	LoggerName string
	NameWidth  int
	Color      bool
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(entry.Time.Format(timestampFormat))
	b.WriteByte(' ')
	b.WriteString(f.paint(fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String())), levelColor(entry.Level)))
	b.WriteByte(' ')
	b.WriteString(f.paint(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta))
	b.WriteString(" - ")
	b.WriteString(f.paint("[main]", ansiMagenta))
	b.WriteByte(' ')
	b.WriteString(f.paint(fmt.Sprintf("%*s", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth)), ansiCyan))
	if entry.Caller != nil {
		b.WriteString(f.paint(fmt.Sprintf(" %s:%d", shortPath(entry.Caller.File), entry.Caller.Line), ansiFaint))
	}
	b.WriteString(" " + f.paint(":", ansiFaint) + " ")
	b.WriteString(entry.Message)
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *Log4jColorFormatter) paint(s, code string) string {
	if !f.Color {
		return s
	}
	return code + s + ansiReset
}

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func levelColor(level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ansiRed
	case logrus.WarnLevel:
		return ansiYellow
	case logrus.InfoLevel:
		return ansiGreen
	case logrus.DebugLevel:
		return ansiBlue
	default:
		return ansiMagenta
	}
}

// shortPath keeps the last directory and the file name.
func shortPath(p string) string {
	parts := strings.Split(filepath.ToSlash(p), "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return parts[0]
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}

// EnvDefaultDuration reads a Go duration ("5s") or a number of seconds.
func EnvDefaultDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

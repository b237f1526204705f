package logging

import (
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger provides structured JSON logging on top of zap. Loggers derived with
// WithField share the parent's level.
type Logger struct {
	mu     sync.Mutex
	level  zap.AtomicLevel
	zl     *zap.Logger
	fields map[string]interface{}
}

func newCore(w io.Writer, level zap.AtomicLevel) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
}

// New creates a logger writing JSON lines to stdout at info level.
func New() *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return &Logger{
		level:  level,
		zl:     zap.New(newCore(os.Stdout, level)),
		fields: make(map[string]interface{}),
	}
}

// SetOutput redirects the logger. Loggers already derived from it keep their
// previous output.
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = zap.New(newCore(w, l.level))
	return l
}

func (l *Logger) SetLevel(level Level) *Logger {
	l.level.SetLevel(level.zapLevel())
	return l
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()
	return &Logger{
		level:  l.level,
		zl:     zl,
		fields: newFields,
	}
}

// Zap exposes the underlying logger for libraries that take a *zap.Logger.
func (l *Logger) Zap() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zl
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(zapcore.DebugLevel, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(zapcore.InfoLevel, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(zapcore.WarnLevel, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(zapcore.ErrorLevel, msg, fields...)
}

func (l *Logger) log(level zapcore.Level, msg string, additionalFields ...map[string]interface{}) {
	if !l.level.Enabled(level) {
		return
	}

	merged := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range additionalFields {
		for k, v := range f {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zapFields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := merged[k].(error); ok {
			zapFields = append(zapFields, zap.NamedError(k, err))
			continue
		}
		zapFields = append(zapFields, zap.Any(k, merged[k]))
	}

	l.mu.Lock()
	zl := l.zl
	l.mu.Unlock()
	if ce := zl.Check(level, msg); ce != nil {
		ce.Write(zapFields...)
	}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.Zap().Sync()
}

// Default is the default logger instance.
var Default = New()

func SetDefaultLevel(level Level) {
	Default.SetLevel(level)
}

func Debug(msg string, fields ...map[string]interface{}) {
	Default.Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	Default.Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	Default.Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	Default.Error(msg, fields...)
}

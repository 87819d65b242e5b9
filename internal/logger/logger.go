package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured JSON logging with journald-style upper-case keys.
type Logger struct {
	z *zap.Logger
}

// New creates a logger writing INFO and above to stderr.
func New() *Logger {
	return newLogger(os.Stderr, zapcore.InfoLevel)
}

// NewWithWriter creates a logger with a custom writer that records every level.
func NewWithWriter(w io.Writer) *Logger {
	return newLogger(w, zapcore.DebugLevel)
}

// NewWithLevel creates a logger for w that drops entries below level
// ("debug", "info", "warn", "error").
func NewWithLevel(w io.Writer, level string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return newLogger(w, lvl), nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func newLogger(w io.Writer, level zapcore.Level) *Logger {
	encCfg := zapcore.EncoderConfig{
		LevelKey:       "LEVEL",
		MessageKey:     "MESSAGE",
		EncodeLevel:    encodeLevel,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return &Logger{z: zap.New(core)}
}

// encodeLevel keeps the WARNING spelling journald expects.
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapcore.WarnLevel {
		enc.AppendString("WARNING")
		return
	}
	enc.AppendString(l.CapitalString())
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...Field) {
	l.z.Info(msg, toZap(fields)...)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...Field) {
	l.z.Error(msg, toZap(fields)...)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, toZap(fields)...)
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, toZap(fields)...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(toZap(fields)...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new field (shorthand)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Common field constructors
func Action(value string) Field          { return F("ACTION", value) }
func Status(value string) Field          { return F("STATUS", value) }
func Station(value string) Field         { return F("STATION", value) }
func Booking(value string) Field         { return F("BOOKING", value) }
func Query(value string) Field           { return F("QUERY", value) }
func Count(value int) Field              { return F("COUNT", value) }
func Error(value error) Field            { return F("ERROR", value) }
func DateKey(value string) Field         { return F("DATE", value) }
func Endpoint(value string) Field        { return F("ENDPOINT", value) }
func Generation(value uint64) Field      { return F("GENERATION", value) }
func Reason(value string) Field          { return F("REASON", value) }
func URL(value string) Field             { return F("URL", value) }
func Duration(value time.Duration) Field { return F("DURATION", value) }
func RequestID(value string) Field       { return F("REQUEST_ID", value) }
func HTTPStatus(value int) Field         { return F("HTTP_STATUS", value) }

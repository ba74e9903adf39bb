package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// Logger writes JSON lines; warnings and errors go to stderr, the rest to stdout.
type Logger struct {
	z *zap.SugaredLogger
}

func parseLevel(levelStr string) zapcore.Level {
	switch Level(levelStr) {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

func New(levelStr string) *Logger {
	global := parseLevel(levelStr)
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= global && l >= zapcore.WarnLevel
	})
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= global && l < zapcore.WarnLevel
	})

	enc := encoder()
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), high),
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), low),
	)
	return NewWithCore(core)
}

// NewWriter sends every enabled level to w. CLI commands use it to keep
// stdout free for results.
func NewWriter(levelStr string, w io.Writer) *Logger {
	return NewWithCore(zapcore.NewCore(encoder(), zapcore.AddSync(w), parseLevel(levelStr)))
}

func encoder() zapcore.Encoder {
	ecfg := zap.NewProductionEncoderConfig()
	ecfg.TimeKey = "ts"
	ecfg.MessageKey = "msg"
	ecfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return zapcore.NewJSONEncoder(ecfg)
}

// NewWithCore wraps an arbitrary zap core, e.g. an observer in tests.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{z: zap.New(core).Sugar()}
}

func Nop() *Logger { return &Logger{z: zap.NewNop().Sugar()} }

// With returns a child logger that always carries the given fields.
func (l *Logger) With(fields ...any) *Logger { return &Logger{z: l.z.With(fields...)} }

func (l *Logger) Debug(msg string, fields ...any) { l.z.Debugw(msg, fields...) }
func (l *Logger) Info(msg string, fields ...any)  { l.z.Infow(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.z.Warnw(msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.z.Errorw(msg, fields...) }

func (l *Logger) Sync() { _ = l.z.Sync() }

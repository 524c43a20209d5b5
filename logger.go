package lapis

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger used by the client and the built-in
// middlewares. keysAndValues alternate between a string key and its value.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LogConfig selects and tunes a logging backend.
type LogConfig struct {
	Backend string    `yaml:"backend" env:"LAPIS_LOG_BACKEND"`
	Level   string    `yaml:"level" env:"LAPIS_LOG_LEVEL"`
	Output  io.Writer `yaml:"-"`
}

// Logging backends accepted by NewLogger.
const (
	LogBackendZap     = "zap"
	LogBackendLogrus  = "logrus"
	LogBackendZerolog = "zerolog"
	LogBackendNop     = "nop"
)

// NewLogger builds a Logger from cfg. An empty backend means zap; an empty
// level means info.
func NewLogger(cfg LogConfig) (Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	level := strings.ToLower(cfg.Level)
	if level == "" {
		level = "info"
	}

	switch strings.ToLower(cfg.Backend) {
	case "", LogBackendZap:
		var zl zapcore.Level
		if err := zl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfig, cfg.Level)
		}
		encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		core := zapcore.NewCore(encoder, zapcore.AddSync(out), zl)
		return NewZapLogger(zap.New(core)), nil
	case LogBackendLogrus:
		ll, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfig, cfg.Level)
		}
		l := logrus.New()
		l.SetOutput(out)
		l.SetLevel(ll)
		return NewLogrusLogger(l), nil
	case LogBackendZerolog:
		zl, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("%w: log level %q", ErrInvalidConfig, cfg.Level)
		}
		return NewZerologLogger(zerolog.New(out).Level(zl).With().Timestamp().Logger()), nil
	case LogBackendNop:
		return NopLogger(), nil
	default:
		return nil, fmt.Errorf("%w: unknown log backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

// NewSimpleLogger returns a zap development logger writing to stderr.
func NewSimpleLogger() Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return NopLogger()
	}
	return NewZapLogger(l)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger adapts a zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{s: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

type logrusLogger struct {
	l logrus.FieldLogger
}

// NewLogrusLogger adapts a logrus logger or entry.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLogger{l: l}
}

func (l *logrusLogger) Debug(msg string, kv ...interface{}) {
	l.l.WithFields(fields(kv)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, kv ...interface{}) {
	l.l.WithFields(fields(kv)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, kv ...interface{}) {
	l.l.WithFields(fields(kv)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, kv ...interface{}) {
	l.l.WithFields(fields(kv)).Error(msg)
}

type zerologLogger struct {
	l zerolog.Logger
}

// NewZerologLogger adapts a zerolog logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{l: l}
}

func (l *zerologLogger) Debug(msg string, kv ...interface{}) {
	l.l.Debug().Fields(map[string]interface{}(fields(kv))).Msg(msg)
}

func (l *zerologLogger) Info(msg string, kv ...interface{}) {
	l.l.Info().Fields(map[string]interface{}(fields(kv))).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, kv ...interface{}) {
	l.l.Warn().Fields(map[string]interface{}(fields(kv))).Msg(msg)
}

func (l *zerologLogger) Error(msg string, kv ...interface{}) {
	l.l.Error().Fields(map[string]interface{}(fields(kv))).Msg(msg)
}

type nopLogger struct{}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// fields pairs up keysAndValues. A dangling key gets a nil value; non-string
// keys are formatted.
func fields(kv []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 < len(kv) {
			f[key] = kv[i+1]
		} else {
			f[key] = nil
		}
	}
	return f
}

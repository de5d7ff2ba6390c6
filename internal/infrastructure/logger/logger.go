package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"browser-query/internal/application/port/output"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ output.LoggerPort = (*LoggerAdapter)(nil)

type LoggerAdapter struct {
	zl   *zap.Logger
	file *os.File
}

// NewLoggerAdapter writes JSON lines to ./log/<timestamp>_<name>.log.
func NewLoggerAdapter(name string, level zapcore.Level) (*LoggerAdapter, error) {
	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(name))

	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.Create(filepath.Join("log", filename))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	l := New(file, level)
	l.file = file
	return l, nil
}

// New builds a JSON logger on top of an arbitrary writer.
func New(w io.Writer, level zapcore.Level) *LoggerAdapter {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return &LoggerAdapter{zl: zap.New(core)}
}

func NewNop() *LoggerAdapter {
	return &LoggerAdapter{zl: zap.NewNop()}
}

func (l *LoggerAdapter) Debug(msg string, args ...any) {
	l.zl.Debug(msg, fields(args)...)
}

func (l *LoggerAdapter) Info(msg string, args ...any) {
	l.zl.Info(msg, fields(args)...)
}

func (l *LoggerAdapter) Warn(msg string, args ...any) {
	l.zl.Warn(msg, fields(args)...)
}

func (l *LoggerAdapter) Error(msg string, args ...any) {
	l.zl.Error(msg, fields(args)...)
}

func (l *LoggerAdapter) WithField(key string, value any) output.LoggerPort {
	return &LoggerAdapter{zl: l.zl.With(zap.Any(key, value)), file: l.file}
}

func (l *LoggerAdapter) WithFields(kv map[string]any) output.LoggerPort {
	fs := make([]zap.Field, 0, len(kv))
	for k, v := range kv {
		fs = append(fs, zap.Any(k, v))
	}
	return &LoggerAdapter{zl: l.zl.With(fs...), file: l.file}
}

func (l *LoggerAdapter) Close() error {
	_ = l.zl.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// fields turns alternating key/value args into zap fields. Non-string keys
// and a trailing odd value are dropped.
func fields(args []any) []zap.Field {
	fs := make([]zap.Field, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if err, ok := args[i+1].(error); ok {
			fs = append(fs, zap.NamedError(key, err))
			continue
		}
		fs = append(fs, zap.Any(key, args[i+1]))
	}
	return fs
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "query"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

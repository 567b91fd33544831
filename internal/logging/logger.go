package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mediawiper/internal/config"
)

// Logger журнал MediaWiper поверх zap
type Logger struct {
	sugar   *zap.SugaredLogger
	file    *os.File
	verbose bool
}

// NewLogger создаёт логгер: консоль в stderr и, если задан файл, JSON в файл
func NewLogger(cfg config.LoggingConfig, verbose bool) (*Logger, error) {
	level := parseLevel(cfg.Level)
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewProductionEncoderConfig()
	consoleCfg.TimeKey = "T"
	consoleCfg.LevelKey = "L"
	consoleCfg.MessageKey = "M"
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	l := &Logger{verbose: verbose}

	if cfg.File != "" {
		logDir := filepath.Dir(cfg.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("не удалось создать директорию логов %s: %w", logDir, err)
		}

		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("не удалось открыть файл логов %s: %w", cfg.File, err)
		}
		l.file = f

		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		jsonCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(f), level))
	}

	l.sugar = zap.New(zapcore.NewTee(cores...)).Sugar()
	return l, nil
}

// NewNop логгер, который ничего не пишет
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// FromZap оборачивает готовый zap логгер (используется в тестах с observer)
func FromZap(z *zap.Logger, verbose bool) *Logger {
	return &Logger{sugar: z.Sugar(), verbose: verbose}
}

// Log пишет запись указанного уровня с парами ключ-значение
func (l *Logger) Log(level, message string, fields ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}

	switch strings.ToUpper(level) {
	case "DEBUG":
		l.sugar.Debugw(message, fields...)
	case "WARN":
		l.sugar.Warnw(message, fields...)
	case "ERROR":
		l.sugar.Errorw(message, fields...)
	default:
		l.sugar.Infow(message, fields...)
	}
}

// Verbose включён ли подробный режим
func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	if l.sugar != nil {
		_ = l.sugar.Sync()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

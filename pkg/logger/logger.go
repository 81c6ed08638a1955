package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 10
	maxBackups = 5
	maxAgeDays = 30
)

// New builds the service logger: human-readable console output plus a
// rotated JSON file at filePath.
func New(filePath, serviceName string) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	fileRotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	multiWriter := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileRotator)

	l := zerolog.New(multiWriter).With().
		Timestamp().
		Str("service", serviceName).
		Logger().
		Level(zerolog.InfoLevel)

	l.Info().
		Str("logsFilePath", filePath).
		Msg("Logger initialized with file rotation")

	return l
}

// NewMailLogger builds the outbound mail audit log: JSON lines rotated the
// same way as the service log. It stays on zap so the emailer can record
// structured send events without going through the service logger.
func NewMailLogger(filePath string) *zap.Logger {
	rotator := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:     "ts",
		LevelKey:    "level",
		MessageKey:  "event",
		EncodeTime:  zapcore.RFC3339TimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(rotator),
		zap.InfoLevel,
	)

	return zap.New(core)
}

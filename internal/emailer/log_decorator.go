package emailer

import (
	"time"

	"go.uber.org/zap"
)

// LogSender records every outbound message to a dedicated mail log.
type LogSender struct {
	Logger  *zap.Logger
	Wrapped sender
}

func NewLogSender(logger *zap.Logger, wrapped sender) *LogSender {
	return &LogSender{Logger: logger, Wrapped: wrapped}
}

func (l *LogSender) Send(to, subject, additionalHeaders, body string) error {
	start := time.Now()
	err := l.Wrapped.Send(to, subject, additionalHeaders, body)
	duration := time.Since(start)

	if err != nil {
		l.Logger.Error("mail send failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return err
	}

	l.Logger.Info("mail sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
		zap.Duration("duration", duration),
	)
	return nil
}

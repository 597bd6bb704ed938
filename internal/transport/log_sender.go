package transport

import (
	"context"
	"log/slog"

	"theftalert/internal/logging"
)

// LogSender records messages instead of delivering them.
type LogSender struct {
	logger *slog.Logger
	dryRun bool
}

// NewLogSender returns a sender that logs each message at info level.
func NewLogSender(logger *slog.Logger, dryRun bool) *LogSender {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSender{logger: logger, dryRun: dryRun}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("message logged",
		logging.String(logging.FieldChannel, string(msg.Channel)),
		logging.String("key", msg.Key),
		logging.String("recipient", msg.Recipient),
		logging.String("subject", msg.Subject),
		logging.Int("body_runes", len([]rune(msg.Body))),
		logging.Bool("dry_run", s.dryRun),
	)
	return nil
}

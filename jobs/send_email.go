package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// EmailSender delivers one message. The mailer package provides the SMTP
// implementation.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SendEmailJob delivers queued transactional mail.
type SendEmailJob struct {
	Sender EmailSender
	Logger *slog.Logger
}

// NewSendEmailJob wires dependencies for the mail handler.
func NewSendEmailJob(sender EmailSender, logger *slog.Logger) *SendEmailJob {
	return &SendEmailJob{Sender: sender, Logger: logger}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sender == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := j.Sender.Send(payload.To, payload.Subject, payload.Body); err != nil {
		j.logger().Error("send email", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	j.logger().Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

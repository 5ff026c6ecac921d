package memdefault

import (
	"context"

	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
)

// LoggingMailer is the default collab.Mailer: it never dials an SMTP host,
// it just records intent at info level, matching how the teacher's
// lower-priority notification paths degrade to a log line when no
// provider is configured.
type LoggingMailer struct {
	log *logging.Logger
}

// NewLoggingMailer builds a mailer that logs through log.
func NewLoggingMailer(log *logging.Logger) *LoggingMailer {
	return &LoggingMailer{log: log}
}

func (m *LoggingMailer) Enqueue(ctx context.Context, to, subject, body string) error {
	m.log.WithContext(ctx).WithField("to", to).WithField("subject", subject).Info("mail enqueued")
	return nil
}

package core

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AuthEventLogger records verification outcomes to an external sink.
// Implementations should be non-blocking and best-effort.
type AuthEventLogger interface {
	LogVerification(ctx context.Context, subject, outcome, reason string)
}

// Verification outcomes reported to the audit sink.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
)

// LogrusAuditLogger writes auth events as structured log lines.
type LogrusAuditLogger struct {
	Log *logrus.Logger
}

func (l LogrusAuditLogger) LogVerification(_ context.Context, subject, outcome, reason string) {
	if l.Log == nil {
		return
	}
	l.Log.WithFields(logrus.Fields{
		"subject": subject,
		"outcome": outcome,
		"reason":  reason,
	}).Info("auth event")
}

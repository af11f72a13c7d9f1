package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is one entry in the security audit trail: logins, recovery
// attempts and account changes all pass through here.
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit events through the application logger so they
// land in the same structured stream.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt records login, refresh and recovery attempts. Failures log
// at warn so they stand out when scanning for abuse.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.Bool("success", event.Success),
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	al.emit(event.EventType, event, attrs)
}

// LogPasswordChange records forced resets and recovery resets.
func (al *AuditLogger) LogPasswordChange(userID, ipAddress string, success bool) {
	al.emit("password_change", AuditEvent{
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   success,
	}, []slog.Attr{
		slog.String("audit_type", "password"),
		slog.Bool("success", success),
	})
}

// LogAccountAction records provisioning and other account mutations.
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{slog.String("audit_type", "account")}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(eventType, AuditEvent{UserID: userID, IPAddress: ipAddress, Success: true}, attrs)
}

func (al *AuditLogger) emit(eventType string, event AuditEvent, attrs []slog.Attr) {
	attrs = append(attrs,
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

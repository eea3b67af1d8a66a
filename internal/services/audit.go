package services

import (
	"context"

	"github.com/docuvault/document-service/internal/models"
	"github.com/sirupsen/logrus"
)

// Actor is whoever triggered an operation. Public share accesses have no
// user; the request context (IP, user agent) is still recorded.
type Actor struct {
	UserID    *string
	Email     *string
	IP        string
	UserAgent string
}

// User builds an authenticated actor.
func User(id, email, ip, userAgent string) Actor {
	return Actor{UserID: &id, Email: &email, IP: ip, UserAgent: userAgent}
}

// Anonymous builds an unauthenticated actor for public accesses.
func Anonymous(ip, userAgent string) Actor {
	return Actor{IP: ip, UserAgent: userAgent}
}

// Auditor appends events to the compliance ledger. Recording is
// fire-and-forget: a failed write is logged for operational monitoring but
// never rolls back or fails the primary operation.
type Auditor struct {
	store AuditStore
	log   *logrus.Entry
}

func NewAuditor(store AuditStore, log *logrus.Logger) *Auditor {
	return &Auditor{store: store, log: log.WithField("component", "audit")}
}

// Record appends one event. errMsg is empty for successes.
func (a *Auditor) Record(ctx context.Context, actor Actor, action models.AuditAction, subject models.SubjectRef, metadata map[string]any, result string, errMsg string) {
	event := &models.AuditEvent{
		UserID:    actor.UserID,
		UserEmail: actor.Email,
		Subject:   subject,
		Action:    action,
		Metadata:  metadata,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
		Result:    result,
	}
	if errMsg != "" {
		event.ErrorMessage = &errMsg
	}

	if err := a.store.InsertAuditEvent(ctx, event); err != nil {
		a.log.WithFields(logrus.Fields{
			"action":       action,
			"subject_kind": subject.Kind,
			"subject_id":   subject.ID,
		}).Errorf("failed to record audit event: %v", err)
	}
}

// Success records a successful operation.
func (a *Auditor) Success(ctx context.Context, actor Actor, action models.AuditAction, subject models.SubjectRef, metadata map[string]any) {
	a.Record(ctx, actor, action, subject, metadata, models.ResultSuccess, "")
}

// Failure records a failed operation with the error kind.
func (a *Auditor) Failure(ctx context.Context, actor Actor, action models.AuditAction, subject models.SubjectRef, metadata map[string]any, errMsg string) {
	a.Record(ctx, actor, action, subject, metadata, models.ResultFailure, errMsg)
}

// List returns a page of the user's audit trail.
func (a *Auditor) List(ctx context.Context, userID string, limit, offset int) ([]models.AuditEvent, int64, error) {
	return a.store.ListAuditEvents(ctx, userID, limit, offset)
}

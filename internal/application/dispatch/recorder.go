package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campus-push/internal/domain"
)

// DeliveryStore persists the outcome of one attempt on a single record.
type DeliveryStore interface {
	RecordDelivery(ctx context.Context, notificationID string, u domain.DeliveryUpdate) error
}

const unresolvableDiagnostic = "no delivery target: record has neither userId nor universityId"

type Recorder struct {
	store       DeliveryStore
	maxAttempts int
	now         func() time.Time
}

// NewRecorder returns a recorder. maxAttempts caps call-level failures before a
// record turns permanent; 0 means retry forever.
func NewRecorder(store DeliveryStore, maxAttempts int) *Recorder {
	return &Recorder{store: store, maxAttempts: maxAttempts, now: time.Now}
}

// Update computes the new delivery state without writing it.
func (r *Recorder) Update(n *domain.Notification, out Outcome, deliverErr error) domain.DeliveryUpdate {
	u := domain.DeliveryUpdate{
		Attempts:         n.Attempts + 1,
		AttemptedAt:      r.now().UTC(),
		DeliveredTargets: n.DeliveredTargets,
		FailedTargets:    n.FailedTargets,
	}
	switch {
	case deliverErr == nil:
		u.Sent = true
		u.DeliveredTargets = out.Delivered()
		u.FailedTargets = out.Failed()
	case errors.Is(deliverErr, domain.ErrUnresolvableTarget):
		u.PermanentFailure = true
		u.LastError = unresolvableDiagnostic
	default:
		u.LastError = deliverErr.Error()
		if r.maxAttempts > 0 && u.Attempts >= r.maxAttempts {
			u.PermanentFailure = true
		}
	}
	return u
}

// Record writes the attempt outcome onto the record and mirrors it on n.
// When a failed attempt loses to a run that already delivered the record, the
// store keeps the sent state and the returned update reports Sent.
func (r *Recorder) Record(ctx context.Context, n *domain.Notification, out Outcome, deliverErr error) (domain.DeliveryUpdate, error) {
	u := r.Update(n, out, deliverErr)
	err := r.store.RecordDelivery(ctx, n.NotificationID, u)
	switch {
	case errors.Is(err, domain.ErrAlreadySent):
		n.Sent = true
		n.PermanentFailure = false
		return domain.DeliveryUpdate{
			Sent:             true,
			Attempts:         u.Attempts,
			DeliveredTargets: n.DeliveredTargets,
			FailedTargets:    n.FailedTargets,
			AttemptedAt:      u.AttemptedAt,
		}, nil
	case err != nil:
		return u, fmt.Errorf("record delivery for %s: %w", n.NotificationID, err)
	}
	apply(n, u)
	return u, nil
}

func apply(n *domain.Notification, u domain.DeliveryUpdate) {
	n.Sent = u.Sent
	n.PermanentFailure = u.PermanentFailure
	n.Attempts = u.Attempts
	n.DeliveredTargets = u.DeliveredTargets
	n.FailedTargets = u.FailedTargets
	n.LastError = domain.StrPtr(u.LastError)
	at := u.AttemptedAt
	n.LastAttemptAt = &at
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/logger"
)

// NotificationStore is the slice of the record store the pipeline needs.
type NotificationStore interface {
	DeliveryStore
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
}

// TokenPruner is implemented by token stores that can drop tokens the provider
// reported as unregistered.
type TokenPruner interface {
	DeleteToken(ctx context.Context, userID, token string) error
}

type PipelineDeps struct {
	Store       NotificationStore
	Tokens      TokenStore
	Transport   Transport
	Images      ImageStore // optional
	Logger      logrus.FieldLogger
	MaxAttempts int
}

// Pipeline runs Resolve, Build, Deliver and Record for one record.
type Pipeline struct {
	store    NotificationStore
	tokens   TokenStore
	resolver *Resolver
	engine   *Engine
	recorder *Recorder
	images   ImageStore
	log      logrus.FieldLogger
}

func NewPipeline(d PipelineDeps) *Pipeline {
	log := d.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		store:    d.Store,
		tokens:   d.Tokens,
		resolver: NewResolver(d.Tokens),
		engine:   NewEngine(d.Transport),
		recorder: NewRecorder(d.Store, d.MaxAttempts),
		images:   d.Images,
		log:      log,
	}
}

// Result describes what one Run did.
type Result struct {
	NotificationID string
	Target         Target
	Outcome        Outcome
	Update         domain.DeliveryUpdate
	Skipped        bool
}

// Run delivers n and records the outcome. Records already sent or permanently
// failed are skipped. The returned error is the delivery or recording failure;
// either way the record keeps a diagnostic unless the recording itself failed.
func (p *Pipeline) Run(ctx context.Context, n *domain.Notification) (Result, error) {
	res := Result{NotificationID: n.NotificationID}
	log := p.log.WithField("notification_id", n.NotificationID)
	if n.Sent || n.PermanentFailure {
		res.Skipped = true
		log.Debug("notification already settled, skipping")
		return res, nil
	}

	target, err := p.resolver.Resolve(ctx, n)
	if err != nil {
		return res, p.recordFailure(ctx, log, n, &res, err)
	}
	res.Target = target

	payload := BuildPayload(n)
	if target.Kind != TargetUnresolvable {
		p.attachEmbeddedImage(ctx, log, n, payload)
	}

	out, deliverErr := p.engine.Deliver(ctx, target, payload)
	res.Outcome = out
	if deliverErr != nil {
		return res, p.recordFailure(ctx, log, n, &res, deliverErr)
	}

	rctx, cancel := recordCtx(ctx)
	defer cancel()
	u, err := p.recorder.Record(rctx, n, out, nil)
	res.Update = u
	if err != nil {
		// Delivered but not marked; the next poll re-sends it.
		log.WithError(err).Error("push sent but delivery state not recorded")
		return res, err
	}

	entry := log.WithFields(logrus.Fields{
		"target":    target.String(),
		"delivered": u.DeliveredTargets,
		"failed":    u.FailedTargets,
	})
	if u.FailedTargets > 0 {
		entry.WithField("errors", out.FailureSummary()).Warn("push sent with partial failures")
	} else {
		entry.Info("push sent")
	}
	p.pruneUnregistered(ctx, log, target, out)
	return res, nil
}

func (p *Pipeline) recordFailure(ctx context.Context, log logrus.FieldLogger, n *domain.Notification, res *Result, cause error) error {
	rctx, cancel := recordCtx(ctx)
	defer cancel()
	u, err := p.recorder.Record(rctx, n, res.Outcome, cause)
	res.Update = u
	if err != nil {
		log.WithError(err).Error("could not record failed delivery")
		return errors.Join(cause, err)
	}
	if u.Sent {
		log.WithError(cause).Info("delivery failed but another run already sent the notification")
		return nil
	}
	log.WithFields(logrus.Fields{
		"attempts":  u.Attempts,
		"permanent": u.PermanentFailure,
	}).WithError(cause).Error("push delivery failed")
	return cause
}

// DispatchByID loads a record and runs it. A record that is already sent is a no-op.
func (p *Pipeline) DispatchByID(ctx context.Context, notificationID string) (Result, error) {
	n, err := p.store.Get(ctx, notificationID)
	if err != nil {
		return Result{NotificationID: notificationID}, fmt.Errorf("load notification %s: %w", notificationID, err)
	}
	return p.Run(ctx, n)
}

func (p *Pipeline) attachEmbeddedImage(ctx context.Context, log logrus.FieldLogger, n *domain.Notification, payload *domain.Payload) {
	if n.ImageRef == nil || *n.ImageRef == "" || payload.ImageURL != "" {
		return
	}
	if p.images == nil {
		log.Warn("embedded image dropped: no image store configured")
		return
	}
	data, ct, err := decodeEmbeddedImage(*n.ImageRef)
	if err != nil {
		log.WithError(err).Warn("embedded image dropped")
		return
	}
	url, err := p.images.UploadImage(ctx, imageKey(n.NotificationID, ct), data, ct)
	if err != nil {
		log.WithError(err).Warn("embedded image upload failed, sending without image")
		return
	}
	payload.ImageURL = url
}

func (p *Pipeline) pruneUnregistered(ctx context.Context, log logrus.FieldLogger, target Target, out Outcome) {
	pruner, ok := p.tokens.(TokenPruner)
	if !ok || target.Kind != TargetUserTokens {
		return
	}
	for _, tok := range out.Unregistered() {
		if err := pruner.DeleteToken(ctx, target.UserID, tok); err != nil {
			log.WithError(err).Warn("could not prune unregistered token")
		}
	}
}

// recordCtx keeps the outcome write alive when the per-record deadline expired
// during delivery.
func recordCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}

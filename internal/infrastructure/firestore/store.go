package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/campus-push/internal/domain"
)

const (
	colNotifications = "notifications"
	colUsers         = "users"
	colFCMTokens     = "fcmTokens"
)

// Store keeps notifications and device tokens in Firestore using the mobile
// app's layout: notifications/{id} and users/{uid}/fcmTokens/{token}.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func notFound(err error, what string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}

func (s *Store) Create(ctx context.Context, n *domain.Notification) error {
	_, err := s.client.Collection(colNotifications).Doc(n.NotificationID).Create(ctx, n)
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("notification %s: %w", n.NotificationID, domain.ErrConflict)
	}
	return err
}

func (s *Store) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	snap, err := s.client.Collection(colNotifications).Doc(notificationID).Get(ctx)
	if err != nil {
		return nil, notFound(err, "notification "+notificationID)
	}
	return decodeNotification(snap)
}

func decodeNotification(snap *firestore.DocumentSnapshot) (*domain.Notification, error) {
	var n domain.Notification
	if err := snap.DataTo(&n); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", snap.Ref.ID, err)
	}
	n.NotificationID = snap.Ref.ID
	return &n, nil
}

// deliveryUpdates maps an attempt outcome to field updates. An empty
// LastError deletes the stored diagnostic.
func deliveryUpdates(u domain.DeliveryUpdate) []firestore.Update {
	var lastError interface{} = firestore.Delete
	if u.LastError != "" {
		lastError = u.LastError
	}
	return []firestore.Update{
		{Path: "isPushSent", Value: u.Sent},
		{Path: "pushFailed", Value: u.PermanentFailure},
		{Path: "attempts", Value: firestore.Increment(1)},
		{Path: "deliveredTargets", Value: u.DeliveredTargets},
		{Path: "failedTargets", Value: u.FailedTargets},
		{Path: "lastError", Value: lastError},
		{Path: "lastAttempt", Value: u.AttemptedAt},
	}
}

// supersededBy reports whether a failed attempt would clobber a record that
// is already sent.
func supersededBy(stored map[string]interface{}, u domain.DeliveryUpdate) bool {
	sent, _ := stored["isPushSent"].(bool)
	return sent && !u.Sent
}

// RecordDelivery applies one attempt outcome inside a transaction. A failed
// attempt on a record that is already sent returns domain.ErrAlreadySent and
// leaves the record untouched.
func (s *Store) RecordDelivery(ctx context.Context, notificationID string, u domain.DeliveryUpdate) error {
	ref := s.client.Collection(colNotifications).Doc(notificationID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if supersededBy(snap.Data(), u) {
			return domain.ErrAlreadySent
		}
		return tx.Update(ref, deliveryUpdates(u))
	})
	if errors.Is(err, domain.ErrAlreadySent) {
		return fmt.Errorf("notification %s: %w", notificationID, err)
	}
	return notFound(err, "notification "+notificationID)
}

// ListPending returns up to limit records that are neither sent nor
// permanently failed, oldest first. Records written by the mobile app carry no
// pushFailed field, so permanent failures are filtered here rather than in the
// query. Needs a composite index on (isPushSent, createdAt).
func (s *Store) ListPending(ctx context.Context, limit int) ([]domain.Notification, error) {
	it := s.client.Collection(colNotifications).
		Where("isPushSent", "==", false).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer it.Stop()

	out := make([]domain.Notification, 0, limit)
	for len(out) < limit {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		n, err := decodeNotification(snap)
		if err != nil {
			return nil, err
		}
		if !pendingRecord(n) {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func pendingRecord(n *domain.Notification) bool {
	return !n.Sent && !n.PermanentFailure
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Notification, error) {
	q := s.client.Collection(colNotifications).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(int(limit))
	return s.collect(ctx, q)
}

func (s *Store) ListByUniversity(ctx context.Context, universityID string, limit int32) ([]domain.Notification, error) {
	q := s.client.Collection(colNotifications).
		Where("universityId", "==", universityID).
		OrderBy("createdAt", firestore.Desc).
		Limit(int(limit))
	return s.collect(ctx, q)
}

func (s *Store) collect(ctx context.Context, q firestore.Query) ([]domain.Notification, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := decodeNotification(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *Store) MarkAsRead(ctx context.Context, notificationID string) error {
	_, err := s.client.Collection(colNotifications).Doc(notificationID).Update(ctx, []firestore.Update{
		{Path: "isRead", Value: true},
	})
	return notFound(err, "notification "+notificationID)
}

func (s *Store) tokens(userID string) *firestore.CollectionRef {
	return s.client.Collection(colUsers).Doc(userID).Collection(colFCMTokens)
}

// ListTokens returns the document ids under users/{uid}/fcmTokens; the id is the token.
func (s *Store) ListTokens(ctx context.Context, userID string) ([]string, error) {
	refs, err := s.tokens(userID).DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, t *domain.DeviceToken) error {
	_, err := s.tokens(t.UserID).Doc(t.Token).Set(ctx, map[string]interface{}{
		"token":     t.Token,
		"platform":  t.Platform,
		"createdAt": t.CreatedAt,
	})
	return err
}

func (s *Store) DeleteToken(ctx context.Context, userID, token string) error {
	_, err := s.tokens(userID).Doc(token).Delete(ctx)
	return err
}

// GetUser reads users/{uid}. Older profiles store the university as "uniId".
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	snap, err := s.client.Collection(colUsers).Doc(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err, "user "+userID)
	}
	var u domain.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	u.UserID = snap.Ref.ID
	if u.UniversityID == "" {
		if legacy, ok := snap.Data()["uniId"].(string); ok {
			u.UniversityID = legacy
		}
	}
	return &u, nil
}

// Users exposes GetUser under the Get name user readers expect.
func (s *Store) Users() UserReader { return UserReader{s: s} }

type UserReader struct{ s *Store }

func (r UserReader) Get(ctx context.Context, userID string) (*domain.User, error) {
	return r.s.GetUser(ctx, userID)
}

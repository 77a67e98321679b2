package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"homefolio/pkg/logger"
	"homefolio/store"
)

const (
	sessionsCollection   = "sessions"
	propertiesCollection = "properties"
	documentsCollection  = "documents"
	profilesCollection   = "profiles"
)

type sessionDoc struct {
	Title          string     `firestore:"title"`
	ClientName     string     `firestore:"clientName"`
	OwnerID        string     `firestore:"ownerId"`
	SessionDate    time.Time  `firestore:"sessionDate"`
	ShareToken     string     `firestore:"shareToken"`
	ShareExpiresAt *time.Time `firestore:"shareExpiresAt"`
}

// FirestoreRepository reads the same records from Cloud Firestore, one
// collection per record type.
type FirestoreRepository struct {
	Client *firestore.Client
	now    func() time.Time
}

func NewFirestoreRepository(client *firestore.Client) *FirestoreRepository {
	return &FirestoreRepository{Client: client, now: time.Now}
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func tokenActive(expiresAt *time.Time, now time.Time) bool {
	return expiresAt == nil || expiresAt.After(now)
}

func (r *FirestoreRepository) ValidateShareToken(ctx context.Context, token, propertyID string) (string, error) {
	iter := r.Client.Collection(sessionsCollection).Where("shareToken", "==", token).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrInvalidToken
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to validate share token: %v", err)
		return "", err
	}

	var s sessionDoc
	if err := snap.DataTo(&s); err != nil {
		return "", fmt.Errorf("decode session %s: %w", snap.Ref.ID, err)
	}
	if !tokenActive(s.ShareExpiresAt, r.now()) {
		return "", ErrInvalidToken
	}

	if propertyID != "" {
		p, err := r.GetProperty(ctx, propertyID)
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		if err != nil {
			return "", err
		}
		if p.SessionID != snap.Ref.ID {
			return "", ErrInvalidToken
		}
	}
	return snap.Ref.ID, nil
}

func (r *FirestoreRepository) GetProperty(ctx context.Context, id string) (*store.PropertyRecord, error) {
	snap, err := r.Client.Collection(propertiesCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get property %s: %v", id, err)
		return nil, err
	}
	var p store.PropertyRecord
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode property %s: %w", id, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *FirestoreRepository) GetSession(ctx context.Context, id string) (*store.SessionRecord, error) {
	snap, err := r.Client.Collection(sessionsCollection).Doc(id).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get session %s: %v", id, err)
		return nil, err
	}
	var s sessionDoc
	if err := snap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &store.SessionRecord{
		ID:          snap.Ref.ID,
		Title:       s.Title,
		ClientName:  s.ClientName,
		OwnerID:     s.OwnerID,
		SessionDate: s.SessionDate,
	}, nil
}

func (r *FirestoreRepository) ListSessionProperties(ctx context.Context, sessionID string) ([]store.PropertyRecord, error) {
	snaps, err := r.Client.Collection(propertiesCollection).
		Where("sessionId", "==", sessionID).
		OrderBy("orderIndex", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		logger.Sugar.Errorf("Failed to list properties for session %s: %v", sessionID, err)
		return nil, err
	}
	props := make([]store.PropertyRecord, 0, len(snaps))
	for _, snap := range snaps {
		var p store.PropertyRecord
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode property %s: %w", snap.Ref.ID, err)
		}
		p.ID = snap.Ref.ID
		props = append(props, p)
	}
	return props, nil
}

func (r *FirestoreRepository) ListAttachments(ctx context.Context, propertyID string) ([]store.AttachmentRecord, error) {
	snaps, err := r.Client.Collection(documentsCollection).
		Where("propertyId", "==", propertyID).
		OrderBy("orderIndex", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for property %s: %v", propertyID, err)
		return nil, err
	}
	atts := make([]store.AttachmentRecord, 0, len(snaps))
	for _, snap := range snaps {
		var a store.AttachmentRecord
		if err := snap.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", snap.Ref.ID, err)
		}
		a.ID = snap.Ref.ID
		atts = append(atts, a)
	}
	return atts, nil
}

func (r *FirestoreRepository) GetAgent(ctx context.Context, userID string) (*store.AgentIdentity, error) {
	snap, err := r.Client.Collection(profilesCollection).Doc(userID).Get(ctx)
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get profile %s: %v", userID, err)
		return nil, err
	}
	var a store.AgentIdentity
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	a.ID = snap.Ref.ID
	return &a, nil
}

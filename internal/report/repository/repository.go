package repository

import (
	"context"
	"errors"

	"homefolio/store"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidToken = errors.New("share token is invalid or expired")
)

// Repository reads the collaborator store. Implementations return
// ErrNotFound for absent records and ErrInvalidToken when a share token does
// not grant access.
type Repository interface {
	// ValidateShareToken resolves token to the session it grants. When
	// propertyID is set the property must also belong to that session.
	ValidateShareToken(ctx context.Context, token, propertyID string) (string, error)
	GetProperty(ctx context.Context, id string) (*store.PropertyRecord, error)
	GetSession(ctx context.Context, id string) (*store.SessionRecord, error)
	ListSessionProperties(ctx context.Context, sessionID string) ([]store.PropertyRecord, error)
	ListAttachments(ctx context.Context, propertyID string) ([]store.AttachmentRecord, error)
	GetAgent(ctx context.Context, userID string) (*store.AgentIdentity, error)
}

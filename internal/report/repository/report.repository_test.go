package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homefolio/store"
)

var propertyCols = []string{"id", "session_id", "street", "city", "state", "zip", "price", "beds", "baths", "sqft",
	"year_built", "lot_size", "garage", "heating", "cooling", "summary", "description", "agent_notes",
	"features", "order_index", "showing_time"}

func newMock(t *testing.T) (*ReportRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReportRepository(db), mock
}

func TestValidateShareToken(t *testing.T) {
	ctx := context.Background()

	t.Run("session scope", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`SELECT id FROM sessions\s+WHERE share_token = \$1`).
			WithArgs("tok").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))

		id, err := repo.ValidateShareToken(ctx, "tok", "")
		require.NoError(t, err)
		assert.Equal(t, "s1", id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("property scope", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`SELECT s.id FROM sessions s JOIN properties p`).
			WithArgs("tok", "p1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1"))

		id, err := repo.ValidateShareToken(ctx, "tok", "p1")
		require.NoError(t, err)
		assert.Equal(t, "s1", id)
	})

	t.Run("no match", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`SELECT s.id FROM sessions s`).
			WithArgs("tok", "p2").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.ValidateShareToken(ctx, "tok", "p2")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("id the key column rejects", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`SELECT s.id FROM sessions s`).
			WithArgs("tok", "Xk2p9QmLr7TbV3nY1aZc").
			WillReturnError(&pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"})

		_, err := repo.ValidateShareToken(ctx, "tok", "Xk2p9QmLr7TbV3nY1aZc")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`SELECT id FROM sessions`).WillReturnError(errors.New("connection reset"))

		_, err := repo.ValidateShareToken(ctx, "tok", "")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})
}

func TestGetProperty(t *testing.T) {
	ctx := context.Background()
	showing := time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`SELECT id, session_id, street, .* FROM properties WHERE id = \$1`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows(propertyCols).AddRow(
				"p1", "s1", "123 Main St", "Springfield", "IL", nil, 500000.0, 3.0, 2.5, 1800,
				1998, "0.25 acres", nil, "Forced air", nil, "Updated kitchen", nil, nil,
				`{"Hardwood floors","Fireplace"}`, 2, showing))

		p, err := repo.GetProperty(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "123 Main St", p.Street)
		assert.Equal(t, "", p.Zip)
		assert.Equal(t, 500000.0, p.Price)
		assert.Equal(t, 2.5, p.Baths)
		assert.Equal(t, 1800, p.Sqft)
		assert.Equal(t, 1998, p.YearBuilt)
		assert.Equal(t, []string{"Hardwood floors", "Fireplace"}, p.Features)
		assert.Equal(t, 2, p.OrderIndex)
		require.NotNil(t, p.ShowingTime)
		assert.True(t, showing.Equal(*p.ShowingTime))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`FROM properties WHERE id = \$1`).
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows(propertyCols))

		_, err := repo.GetProperty(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("id the key column rejects", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(`FROM properties WHERE id = \$1`).
			WithArgs("Xk2p9QmLr7TbV3nY1aZc").
			WillReturnError(&pq.Error{Code: "22P02"})

		_, err := repo.GetProperty(ctx, "Xk2p9QmLr7TbV3nY1aZc")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetSession(t *testing.T) {
	repo, mock := newMock(t)
	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, title, client_name, owner_id, session_date FROM sessions WHERE id = \$1`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "client_name", "owner_id", "session_date"}).
			AddRow("s1", "Saturday Tour", nil, "u1", date))

	s, err := repo.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, store.SessionRecord{ID: "s1", Title: "Saturday Tour", OwnerID: "u1", SessionDate: date}, *s)

	mock.ExpectQuery(`FROM sessions WHERE id = \$1`).
		WithArgs("s2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "client_name", "owner_id", "session_date"}))
	_, err = repo.GetSession(context.Background(), "s2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessionProperties(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows(propertyCols).
		AddRow("p1", "s1", "1 Oak Ave", "Springfield", "IL", "62701", 300000.0, 3.0, 2.0, 1500,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, 0, nil).
		AddRow("p2", "s1", "2 Elm St", "Springfield", "IL", "62701", 400000.0, 4.0, 3.0, 2100,
			nil, nil, nil, nil, nil, nil, nil, nil, nil, 1, nil)
	mock.ExpectQuery(`FROM properties WHERE session_id = \$1 ORDER BY order_index`).
		WithArgs("s1").
		WillReturnRows(rows)

	props, err := repo.ListSessionProperties(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, "1 Oak Ave", props[0].Street)
	assert.Equal(t, "2 Elm St", props[1].Street)
	assert.Nil(t, props[0].ShowingTime)
	assert.Empty(t, props[0].Features)
}

func TestListAttachments(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM property_documents WHERE property_id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "property_id", "name", "doc_type", "storage_path", "order_index"}).
			AddRow("d1", "p1", "Inspection", "inspection", "docs/p1/inspection.pdf", 0).
			AddRow("d2", "p1", "Front", "photo", "docs/p1/front.jpg", 1))

	atts, err := repo.ListAttachments(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, store.DocInspection, atts[0].Type)
	assert.Equal(t, "docs/p1/front.jpg", atts[1].StorageRef)
}

func TestGetAgent(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, display_name, avatar_url, company_name FROM profiles WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "avatar_url", "company_name"}).
			AddRow("u1", "Jane Agent", "avatars/u1.png", nil))

	a, err := repo.GetAgent(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, store.AgentIdentity{ID: "u1", DisplayName: "Jane Agent", AvatarRef: "avatars/u1.png"}, *a)

	mock.ExpectQuery(`FROM profiles`).WithArgs("u2").WillReturnError(errors.New("timeout"))
	_, err = repo.GetAgent(context.Background(), "u2")
	assert.Error(t, err)
}

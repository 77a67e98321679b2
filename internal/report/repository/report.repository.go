package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"homefolio/pkg/logger"
	"homefolio/store"
)

type ReportRepository struct {
	DB *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) ValidateShareToken(ctx context.Context, token, propertyID string) (string, error) {
	var sessionID string
	var err error
	if propertyID == "" {
		err = r.DB.QueryRowContext(ctx, `
			SELECT id FROM sessions
			WHERE share_token = $1 AND (share_expires_at IS NULL OR share_expires_at > NOW())`,
			token).Scan(&sessionID)
	} else {
		err = r.DB.QueryRowContext(ctx, `
			SELECT s.id FROM sessions s JOIN properties p ON p.session_id = s.id
			WHERE s.share_token = $1 AND p.id = $2
			AND (s.share_expires_at IS NULL OR s.share_expires_at > NOW())`,
			token, propertyID).Scan(&sessionID)
	}
	if errors.Is(err, sql.ErrNoRows) || badKey(err) {
		return "", ErrInvalidToken
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to validate share token: %v", err)
		return "", err
	}
	return sessionID, nil
}

// badKey reports an id the key column type cannot represent (for example
// a non-UUID string against a uuid column). No row can match it.
func badKey(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

const propertyColumns = `id, session_id, street, city, state, zip, price, beds, baths, sqft,
	year_built, lot_size, garage, heating, cooling, summary, description, agent_notes,
	features, order_index, showing_time`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (*store.PropertyRecord, error) {
	var p store.PropertyRecord
	var (
		state, zip, lotSize, garage, heating, cooling sql.NullString
		summary, description, notes                   sql.NullString
		price, beds, baths                            sql.NullFloat64
		sqft, yearBuilt                               sql.NullInt64
		showing                                       sql.NullTime
		features                                      pq.StringArray
	)
	err := row.Scan(&p.ID, &p.SessionID, &p.Street, &p.City, &state, &zip, &price, &beds, &baths, &sqft,
		&yearBuilt, &lotSize, &garage, &heating, &cooling, &summary, &description, &notes,
		&features, &p.OrderIndex, &showing)
	if err != nil {
		return nil, err
	}
	p.State, p.Zip = state.String, zip.String
	p.Price, p.Beds, p.Baths = price.Float64, beds.Float64, baths.Float64
	p.Sqft, p.YearBuilt = int(sqft.Int64), int(yearBuilt.Int64)
	p.LotSize, p.Garage, p.Heating, p.Cooling = lotSize.String, garage.String, heating.String, cooling.String
	p.Summary, p.Description, p.AgentNotes = summary.String, description.String, notes.String
	p.Features = []string(features)
	if showing.Valid {
		t := showing.Time
		p.ShowingTime = &t
	}
	return &p, nil
}

func (r *ReportRepository) GetProperty(ctx context.Context, id string) (*store.PropertyRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) || badKey(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get property %s: %v", id, err)
		return nil, err
	}
	return p, nil
}

func (r *ReportRepository) GetSession(ctx context.Context, id string) (*store.SessionRecord, error) {
	var s store.SessionRecord
	var title, client sql.NullString
	var date sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, title, client_name, owner_id, session_date FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &title, &client, &s.OwnerID, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get session %s: %v", id, err)
		return nil, err
	}
	s.Title, s.ClientName = title.String, client.String
	if date.Valid {
		s.SessionDate = date.Time
	}
	return &s, nil
}

func (r *ReportRepository) ListSessionProperties(ctx context.Context, sessionID string) ([]store.PropertyRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE session_id = $1 ORDER BY order_index ASC, created_at ASC`,
		sessionID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list properties for session %s: %v", sessionID, err)
		return nil, err
	}
	defer rows.Close()

	var props []store.PropertyRecord
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

func (r *ReportRepository) ListAttachments(ctx context.Context, propertyID string) ([]store.AttachmentRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, property_id, name, doc_type, storage_path, order_index
		FROM property_documents WHERE property_id = $1
		ORDER BY order_index ASC, created_at ASC`, propertyID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents for property %s: %v", propertyID, err)
		return nil, err
	}
	defer rows.Close()

	var atts []store.AttachmentRecord
	for rows.Next() {
		var a store.AttachmentRecord
		var docType string
		if err := rows.Scan(&a.ID, &a.PropertyID, &a.Name, &docType, &a.StorageRef, &a.OrderIndex); err != nil {
			return nil, err
		}
		a.Type = store.DocumentType(docType)
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

func (r *ReportRepository) GetAgent(ctx context.Context, userID string) (*store.AgentIdentity, error) {
	var a store.AgentIdentity
	var name, avatar, company sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, display_name, avatar_url, company_name FROM profiles WHERE id = $1`, userID,
	).Scan(&a.ID, &name, &avatar, &company)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to get profile %s: %v", userID, err)
		return nil, err
	}
	a.DisplayName, a.AvatarRef, a.CompanyName = name.String, avatar.String, company.String
	return &a, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qazdocs/docsign/internal/core/domain"
)

type ParticipantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.ParticipantIdentity, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.document_id, p.user_id, p.role, p.status, p.signed_at,
	u.iin, u.full_name, u.organization, u.email
FROM document_participants p
JOIN users u ON u.id = p.user_id
WHERE p.document_id = $1
ORDER BY p.role, u.full_name
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var parties []domain.ParticipantIdentity
	for rows.Next() {
		var p domain.ParticipantIdentity
		var role, status string
		var signedAt sql.NullTime
		var fullName, organization, email sql.NullString

		err := rows.Scan(&p.ID, &p.DocumentID, &p.UserID, &role, &status, &signedAt,
			&p.IIN, &fullName, &organization, &email)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.Role = domain.ParticipantRole(role)
		p.Status = domain.ParticipantStatus(status)
		if signedAt.Valid {
			t := signedAt.Time
			p.SignedAt = &t
		}
		p.FullName = fullName.String
		p.Organization = organization.String
		p.Email = email.String
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return parties, nil
}

// MarkSigned flips the given participants to signed and reports how many
// pending participants remain on the document. The status guard makes the
// update idempotent under resubmission.
func (r *ParticipantRepository) MarkSigned(ctx context.Context, documentID string, updates []domain.ParticipantUpdate) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, u := range updates {
		_, err := tx.ExecContext(ctx, `
UPDATE document_participants
SET status = $3, signed_at = $4
WHERE id = $1 AND document_id = $2 AND status = $5
`, u.ParticipantID, documentID, string(domain.ParticipantSigned), u.SignedAt, string(domain.ParticipantPending))
		if err != nil {
			return 0, fmt.Errorf("mark participant %s signed: %w", u.ParticipantID, err)
		}
	}

	var pending int
	err = tx.QueryRowContext(ctx, `
SELECT COUNT(*) FROM document_participants
WHERE document_id = $1 AND status = $2
`, documentID, string(domain.ParticipantPending)).Scan(&pending)
	if err != nil {
		return 0, fmt.Errorf("count pending participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return pending, nil
}

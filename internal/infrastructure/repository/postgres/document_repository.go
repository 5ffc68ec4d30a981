package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qazdocs/docsign/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) CreateWithParticipants(ctx context.Context, doc *domain.Document, participants []domain.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (id, owner_id, title, filename, external_id, storage_path, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		doc.ID, doc.OwnerID, nullable(doc.Title), doc.Filename, nullable(doc.ExternalID),
		nullable(doc.StoragePath), string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, p := range participants {
		_, err = tx.ExecContext(ctx, `
INSERT INTO document_participants (id, document_id, user_id, role, status, signed_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
			p.ID, p.DocumentID, p.UserID, string(p.Role), string(p.Status), p.SignedAt,
		)
		if err != nil {
			return fmt.Errorf("insert participant %s: %w", p.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, title, filename, external_id, storage_path, status, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var title, externalID, storagePath sql.NullString
	var status string

	err := row.Scan(&doc.ID, &doc.OwnerID, &title, &doc.Filename, &externalID, &storagePath,
		&status, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Title = title.String
	doc.ExternalID = externalID.String
	doc.StoragePath = storagePath.String
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *DocumentRepository) ListForParticipant(ctx context.Context, userID string, status domain.ParticipantStatus) ([]domain.DocumentSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT d.id, d.title, d.filename, d.status, d.created_at,
	o.id, o.iin, o.bin, o.full_name, o.organization, o.email
FROM documents d
JOIN document_participants p ON p.document_id = d.id
JOIN users o ON o.id = d.owner_id
WHERE p.user_id = $1 AND p.status = $2 AND d.status <> $3
ORDER BY d.created_at DESC
`, userID, string(status), string(domain.StatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var summaries []domain.DocumentSummary
	for rows.Next() {
		var s domain.DocumentSummary
		var title sql.NullString
		var docStatus string
		var ownerBin, ownerName, ownerOrg, ownerEmail sql.NullString

		err := rows.Scan(&s.ID, &title, &s.Title, &docStatus, &s.CreatedAt,
			&s.Initiator.ID, &s.Initiator.IIN, &ownerBin, &ownerName, &ownerOrg, &ownerEmail)
		if err != nil {
			return nil, fmt.Errorf("scan document summary: %w", err)
		}
		// Title falls back to the original file name.
		if title.Valid && title.String != "" {
			s.Title = title.String
		}
		s.Status = domain.DocumentStatus(docStatus)
		s.Initiator.BIN = ownerBin.String
		s.Initiator.FullName = ownerName.String
		s.Initiator.Organization = ownerOrg.String
		s.Initiator.Email = ownerEmail.String
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	participants := NewParticipantRepository(r.db)
	for i := range summaries {
		parties, err := participants.ListByDocument(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].Parties = parties
	}
	return summaries, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

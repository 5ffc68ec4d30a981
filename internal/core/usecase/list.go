package usecase

import (
	"context"
	"fmt"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

// ListDocumentsUseCase serves the pending/signed dashboards.
type ListDocumentsUseCase struct {
	docs ports.DocumentRepository
}

func NewListDocumentsUseCase(docs ports.DocumentRepository) *ListDocumentsUseCase {
	return &ListDocumentsUseCase{docs: docs}
}

func (uc *ListDocumentsUseCase) ListPending(ctx context.Context, userID string) ([]domain.DocumentSummary, error) {
	docs, err := uc.docs.ListForParticipant(ctx, userID, domain.ParticipantPending)
	if err != nil {
		return nil, fmt.Errorf("list pending documents: %w", err)
	}
	return docs, nil
}

func (uc *ListDocumentsUseCase) ListSigned(ctx context.Context, userID string) ([]domain.DocumentSummary, error) {
	docs, err := uc.docs.ListForParticipant(ctx, userID, domain.ParticipantSigned)
	if err != nil {
		return nil, fmt.Errorf("list signed documents: %w", err)
	}
	return docs, nil
}

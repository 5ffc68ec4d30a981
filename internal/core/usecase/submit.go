package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

// SubmitSignatureUseCase runs the signing workflow for one inbound
// submission: forward the signature to the authority, normalize its view
// of all signatures, reconcile against participants and append the
// attestation pages before committing the transitions.
type SubmitSignatureUseCase struct {
	docs         ports.DocumentRepository
	participants ports.ParticipantRepository
	authority    ports.SigningAuthority
	normalizer   *Normalizer
	composer     ports.AttestationComposer
	locker       ports.DocumentLocker
	publisher    ports.EventPublisher

	completeOnAllSigned bool
	logger              *slog.Logger
}

func NewSubmitSignatureUseCase(
	docs ports.DocumentRepository,
	participants ports.ParticipantRepository,
	authority ports.SigningAuthority,
	normalizer *Normalizer,
	composer ports.AttestationComposer,
	locker ports.DocumentLocker,
	publisher ports.EventPublisher,
	completeOnAllSigned bool,
	logger *slog.Logger,
) *SubmitSignatureUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitSignatureUseCase{
		docs:                docs,
		participants:        participants,
		authority:           authority,
		normalizer:          normalizer,
		composer:            composer,
		locker:              locker,
		publisher:           publisher,
		completeOnAllSigned: completeOnAllSigned,
		logger:              logger,
	}
}

func (uc *SubmitSignatureUseCase) Submit(ctx context.Context, input ports.SubmitSignatureInput) (*ports.SubmitResult, error) {
	doc, err := uc.docs.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.ExternalID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit signature",
			errors.New("document is not registered with the signing authority"))
	}
	if doc.Status == domain.StatusCancelled {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit signature",
			errors.New("document is cancelled"))
	}

	// Two submissions for the same document must not interleave between
	// reading the already-signed set and committing the new one.
	release := uc.locker.Acquire(doc.ID)
	defer release()

	if err := uc.authority.AddSignature(ctx, doc.ExternalID, input.Signature); err != nil {
		return nil, fmt.Errorf("add signature: %w", err)
	}

	raws, err := uc.authority.FetchSignatures(ctx, doc.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("fetch signatures: %w", err)
	}

	events := uc.normalizer.Normalize(ctx, doc.ExternalID, raws)

	parts, err := uc.participants.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	reconciled := Reconcile(parts, events)
	result := &ports.SubmitResult{
		DocumentID:      doc.ID,
		TotalSignatures: len(raws),
	}
	if reconciled.Empty() {
		uc.logger.Info("no_new_signatures", "document_id", doc.ID, "total", len(raws))
		return result, nil
	}

	if err := uc.composer.AppendAttestation(ctx, doc.StoragePath, reconciled.NewEvents); err != nil {
		return nil, fmt.Errorf("compose attestation: %w", err)
	}

	pendingLeft, err := uc.participants.MarkSigned(ctx, doc.ID, reconciled.Updates)
	if err != nil {
		return nil, fmt.Errorf("commit participant updates: %w", err)
	}
	result.NewSignatures = len(reconciled.NewEvents)

	if uc.completeOnAllSigned && pendingLeft == 0 && doc.Status == domain.StatusPending {
		if err := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusCompleted); err != nil {
			return nil, fmt.Errorf("complete document: %w", err)
		}
		result.Completed = true
	}

	uc.notify(ctx, result)
	return result, nil
}

// notify is best effort: a notification failure never fails a submission
// that already committed.
func (uc *SubmitSignatureUseCase) notify(ctx context.Context, result *ports.SubmitResult) {
	if uc.publisher == nil {
		return
	}
	err := uc.publisher.PublishDocumentSigned(ctx, ports.DocumentSignedEvent{
		DocumentID:    result.DocumentID,
		NewSignatures: result.NewSignatures,
		Completed:     result.Completed,
	})
	if err != nil {
		uc.logger.Warn("publish_document_signed_failed", "document_id", result.DocumentID, "error", err)
	}
}

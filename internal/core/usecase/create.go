package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

// CreateDocumentUseCase opens a signing workflow: validates participants,
// registers the document with the external authority and persists the
// document with its participant rows as one logical unit.
type CreateDocumentUseCase struct {
	docs      ports.DocumentRepository
	users     ports.UserDirectory
	storage   ports.ObjectStorage
	authority ports.SigningAuthority
	inspector ports.DocumentInspector
}

func NewCreateDocumentUseCase(
	docs ports.DocumentRepository,
	users ports.UserDirectory,
	storage ports.ObjectStorage,
	authority ports.SigningAuthority,
	inspector ports.DocumentInspector,
) *CreateDocumentUseCase {
	return &CreateDocumentUseCase{
		docs:      docs,
		users:     users,
		storage:   storage,
		authority: authority,
		inspector: inspector,
	}
}

func (uc *CreateDocumentUseCase) Create(ctx context.Context, input ports.CreateDocumentInput) (*domain.Document, error) {
	partners := dedupePartners(input.PartnerIDs, input.OwnerID)
	if len(partners) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("participants required"))
	}
	if len(partners) > domain.MaxPartners {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document",
			fmt.Errorf("max %d partners allowed, got %d", domain.MaxPartners, len(partners)))
	}
	if input.Filename == "" || len(input.Content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("file name and content required"))
	}

	if err := uc.verifyUsersExist(ctx, append(append([]string{}, partners...), input.OwnerID)); err != nil {
		return nil, err
	}

	if _, err := uc.inspector.Validate(input.Content); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate upload", err)
	}

	externalID, err := uc.register(ctx, input, len(partners)+1)
	if err != nil {
		return nil, err
	}

	if err := uc.authority.UploadContent(ctx, externalID, input.Content); err != nil {
		return nil, fmt.Errorf("upload content: %w", err)
	}

	storageKey := externalID + ".pdf"
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(input.Content)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		OwnerID:     input.OwnerID,
		Title:       input.Title,
		Filename:    input.Filename,
		ExternalID:  externalID,
		StoragePath: storageKey,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	participants := make([]domain.Participant, 0, len(partners)+1)
	participants = append(participants, domain.Participant{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		UserID:     input.OwnerID,
		Role:       domain.RoleInitiator,
		Status:     domain.ParticipantPending,
	})
	for _, pid := range partners {
		participants = append(participants, domain.Participant{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			UserID:     pid,
			Role:       domain.RoleSigner,
			Status:     domain.ParticipantPending,
		})
	}

	if err := uc.docs.CreateWithParticipants(ctx, doc, participants); err != nil {
		// Best effort: the stored file must not outlive the rows it
		// belongs to.
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, fmt.Errorf("persist document: %w", err)
	}

	return doc, nil
}

// Content returns the stored file bytes so a client can sign locally.
func (uc *CreateDocumentUseCase) Content(ctx context.Context, documentID string) ([]byte, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.StoragePath == "" {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "read document content",
			fmt.Errorf("document %s has no stored file", documentID))
	}
	rc, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	return content, nil
}

// Cancel moves a pending document into its terminal cancelled state. Only
// the initiator may cancel.
func (uc *CreateDocumentUseCase) Cancel(ctx context.Context, documentID, requesterID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != requesterID {
		return domain.WrapError(domain.ErrUnauthorized, "cancel document", errors.New("only the initiator may cancel"))
	}
	if doc.Status != domain.StatusPending {
		return domain.WrapError(domain.ErrInvalidInput, "cancel document",
			fmt.Errorf("document is %s", doc.Status))
	}
	return uc.docs.UpdateStatus(ctx, documentID, domain.StatusCancelled)
}

func (uc *CreateDocumentUseCase) verifyUsersExist(ctx context.Context, ids []string) error {
	users, err := uc.users.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	found := make(map[string]struct{}, len(users))
	for _, u := range users {
		found[u.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return domain.WrapError(domain.ErrUnknownParticipant, "create document",
				fmt.Errorf("user %s not found", id))
		}
	}
	return nil
}

func (uc *CreateDocumentUseCase) register(ctx context.Context, input ports.CreateDocumentInput, signers int) (string, error) {
	digest := sha256.Sum256(input.Content)

	title := input.Title
	if title == "" {
		title = input.Filename
	}

	externalID, err := uc.authority.Register(ctx, ports.RegisterRequest{
		Title:           title,
		Description:     input.Filename,
		SignType:        "sha256",
		Signature:       hex.EncodeToString(digest[:]),
		SignaturesLimit: signers,
		Uniqueness:      "iin",
	})
	if err != nil {
		return "", fmt.Errorf("register document: %w", err)
	}
	return externalID, nil
}

func dedupePartners(ids []string, ownerID string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == ownerID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

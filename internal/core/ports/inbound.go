package ports

import (
	"context"

	"github.com/qazdocs/docsign/internal/core/domain"
)

// CreateDocumentInput carries everything needed to open a signing workflow.
type CreateDocumentInput struct {
	OwnerID    string
	Title      string
	Filename   string
	Content    []byte
	PartnerIDs []string
}

// DocumentCreator is the inbound contract for document creation.
type DocumentCreator interface {
	Create(ctx context.Context, input CreateDocumentInput) (*domain.Document, error)
}

// SubmitSignatureInput carries one raw signature submission.
type SubmitSignatureInput struct {
	DocumentID string
	Signature  string
}

// SubmitResult reports the outcome of one signature submission. Zero new
// signatures is a valid no-op, not an error.
type SubmitResult struct {
	DocumentID      string `json:"document_id"`
	TotalSignatures int    `json:"total_signatures"`
	NewSignatures   int    `json:"new_signatures"`
	Completed       bool   `json:"completed"`
}

// SignatureSubmitter is the inbound contract for the signing workflow.
type SignatureSubmitter interface {
	Submit(ctx context.Context, input SubmitSignatureInput) (*SubmitResult, error)
}

// DocumentLister serves the pending/signed dashboards.
type DocumentLister interface {
	ListPending(ctx context.Context, userID string) ([]domain.DocumentSummary, error)
	ListSigned(ctx context.Context, userID string) ([]domain.DocumentSummary, error)
}

// Authenticator exchanges an authority-verified signature for a local user.
type Authenticator interface {
	Nonce(ctx context.Context) (string, error)
	VerifySignature(ctx context.Context, nonce, signature string) (*domain.User, error)
}

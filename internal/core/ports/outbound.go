package ports

import (
	"context"
	"io"

	"github.com/qazdocs/docsign/internal/core/domain"
)

// DocumentRepository persists document state and read models.
type DocumentRepository interface {
	// CreateWithParticipants inserts the document and all of its
	// participant rows as one transaction.
	CreateWithParticipants(ctx context.Context, doc *domain.Document, participants []domain.Participant) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	// ListForParticipant returns documents where the given user holds a
	// participant row in the given status, newest first.
	ListForParticipant(ctx context.Context, userID string, status domain.ParticipantStatus) ([]domain.DocumentSummary, error)
}

// ParticipantRepository reads and transitions participant rows.
type ParticipantRepository interface {
	ListByDocument(ctx context.Context, documentID string) ([]domain.ParticipantIdentity, error)
	// MarkSigned applies all pending->signed transitions in a single
	// transaction and reports how many participants remain pending.
	MarkSigned(ctx context.Context, documentID string, updates []domain.ParticipantUpdate) (pendingLeft int, err error)
}

// UserDirectory owns identity-bearing users.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	UpsertByIIN(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateEmail(ctx context.Context, id, email string) error
	SearchPartners(ctx context.Context, query string, limit int, excludeID string) ([]domain.User, error)
}

// ObjectStorage stores document files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Replace atomically swaps the stored content; the previous version
	// stays intact if the write fails partway.
	Replace(ctx context.Context, key string, data io.Reader) error
	// Delete removes the stored file; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// RegisterRequest is the registration contract of the external authority.
type RegisterRequest struct {
	Title           string
	Description     string
	SignType        string
	Signature       string
	SignaturesLimit int
	Uniqueness      string
}

// AuthVerification is the authority's answer to a signature-based login.
type AuthVerification struct {
	Subject    string
	UserID     string
	BusinessID string
}

// SigningAuthority is the external signing service boundary.
type SigningAuthority interface {
	GetNonce(ctx context.Context) (string, error)
	VerifyAuth(ctx context.Context, nonce, signature string) (*AuthVerification, error)
	Register(ctx context.Context, req RegisterRequest) (externalID string, err error)
	UploadContent(ctx context.Context, externalID string, content []byte) error
	AddSignature(ctx context.Context, externalID, signature string) error
	FetchSignatures(ctx context.Context, externalID string) ([]domain.RawSignature, error)
	FetchQR(ctx context.Context, externalID string, signID int64) ([][]byte, error)
}

// AttestationComposer appends attestation pages for the given events to
// the stored PDF, rewriting it in place on success only.
type AttestationComposer interface {
	AppendAttestation(ctx context.Context, storageKey string, events []domain.SignatureEvent) error
}

// DocumentInspector validates uploaded file content before registration.
type DocumentInspector interface {
	Validate(content []byte) (pages int, err error)
}

// DocumentLocker serializes reconcile-compose-commit sequences per
// document.
type DocumentLocker interface {
	Acquire(documentID string) (release func())
}

// DocumentSignedEvent is published after a reconciliation pass commits
// new signatures.
type DocumentSignedEvent struct {
	DocumentID    string `json:"document_id"`
	NewSignatures int    `json:"new_signatures"`
	Completed     bool   `json:"completed"`
}

// EventPublisher notifies downstream consumers about signed documents.
type EventPublisher interface {
	PublishDocumentSigned(ctx context.Context, event DocumentSignedEvent) error
}

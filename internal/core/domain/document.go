package domain

import "time"

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusCompleted DocumentStatus = "completed"
	StatusCancelled DocumentStatus = "cancelled"
)

type ParticipantRole string

const (
	RoleInitiator ParticipantRole = "initiator"
	RoleSigner    ParticipantRole = "signer"
)

type ParticipantStatus string

const (
	ParticipantPending ParticipantStatus = "pending"
	ParticipantSigned  ParticipantStatus = "signed"
)

// MaxPartners bounds the number of non-owner signers per document.
const MaxPartners = 4

type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Title       string         `json:"title,omitempty"`
	Filename    string         `json:"filename"`
	ExternalID  string         `json:"external_id,omitempty"`
	StoragePath string         `json:"storage_path,omitempty"`
	Status      DocumentStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Participant struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	UserID     string            `json:"user_id"`
	Role       ParticipantRole   `json:"role"`
	Status     ParticipantStatus `json:"status"`
	SignedAt   *time.Time        `json:"signed_at,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	IIN          string    `json:"iin"`
	BIN          string    `json:"bin,omitempty"`
	FullName     string    `json:"full_name,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ParticipantIdentity joins a participant row with the identity number of
// its user. Reconciliation matches signature events against the identity
// number, never against internal ids.
type ParticipantIdentity struct {
	Participant
	IIN          string `json:"iin"`
	FullName     string `json:"full_name,omitempty"`
	Organization string `json:"organization,omitempty"`
	Email        string `json:"email,omitempty"`
}

// ParticipantUpdate is one pending->signed transition to commit.
type ParticipantUpdate struct {
	ParticipantID string
	SignedAt      time.Time
}

// DocumentSummary is the read model for pending/signed listings.
type DocumentSummary struct {
	ID        string                `json:"id"`
	Title     string                `json:"title"`
	Status    DocumentStatus        `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	Parties   []ParticipantIdentity `json:"parties"`
	Initiator User                  `json:"initiator"`
}

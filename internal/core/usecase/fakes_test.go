package usecase

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

type docRepoFake struct {
	doc          *domain.Document
	created      *domain.Document
	participants []domain.Participant
	createErr    error
	statusSet    domain.DocumentStatus
}

func (f *docRepoFake) CreateWithParticipants(_ context.Context, doc *domain.Document, participants []domain.Participant) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.created = &copyDoc
	f.participants = append([]domain.Participant{}, participants...)
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.doc == nil || f.doc.ID != id {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus) error {
	f.statusSet = status
	return nil
}

func (f *docRepoFake) ListForParticipant(context.Context, string, domain.ParticipantStatus) ([]domain.DocumentSummary, error) {
	return nil, errors.New("not implemented")
}

type participantRepoFake struct {
	rows        []domain.ParticipantIdentity
	marked      []domain.ParticipantUpdate
	markCalls   int
	pendingLeft int
	markErr     error
}

func (f *participantRepoFake) ListByDocument(context.Context, string) ([]domain.ParticipantIdentity, error) {
	return f.rows, nil
}

func (f *participantRepoFake) MarkSigned(_ context.Context, _ string, updates []domain.ParticipantUpdate) (int, error) {
	if f.markErr != nil {
		return 0, f.markErr
	}
	f.markCalls++
	f.marked = append(f.marked, updates...)
	return f.pendingLeft, nil
}

type userDirectoryFake struct {
	users map[string]domain.User
}

func (f *userDirectoryFake) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrUserNotFound, "get user", errors.New(id))
	}
	return &u, nil
}

func (f *userDirectoryFake) GetByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *userDirectoryFake) UpsertByIIN(_ context.Context, user *domain.User) (*domain.User, error) {
	copyUser := *user
	copyUser.ID = "upserted"
	return &copyUser, nil
}

func (f *userDirectoryFake) UpdateEmail(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (f *userDirectoryFake) SearchPartners(context.Context, string, int, string) ([]domain.User, error) {
	return nil, errors.New("not implemented")
}

type storageFake struct {
	saved    map[string][]byte
	saveErr  error
	replaced map[string][]byte
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string][]byte{}, replaced: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	delete(f.saved, key)
	return nil
}

func (f *storageFake) Replace(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.replaced[key] = raw
	return nil
}

type authorityFake struct {
	nonce        string
	verification *ports.AuthVerification

	registerErr error
	externalID  string
	registered  *ports.RegisterRequest
	uploaded    map[string][]byte

	addErr   error
	addCalls int

	signatures []domain.RawSignature
	fetchErr   error

	qrCodes  map[int64][][]byte
	qrErr    error
	qrCalls  int
	verifyEr error
}

func newAuthorityFake() *authorityFake {
	return &authorityFake{
		externalID: "ext-1",
		uploaded:   map[string][]byte{},
		qrCodes:    map[int64][][]byte{},
	}
}

func (f *authorityFake) GetNonce(context.Context) (string, error) { return f.nonce, nil }

func (f *authorityFake) VerifyAuth(context.Context, string, string) (*ports.AuthVerification, error) {
	if f.verifyEr != nil {
		return nil, f.verifyEr
	}
	return f.verification, nil
}

func (f *authorityFake) Register(_ context.Context, req ports.RegisterRequest) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	copyReq := req
	f.registered = &copyReq
	return f.externalID, nil
}

func (f *authorityFake) UploadContent(_ context.Context, externalID string, content []byte) error {
	f.uploaded[externalID] = content
	return nil
}

func (f *authorityFake) AddSignature(context.Context, string, string) error {
	f.addCalls++
	return f.addErr
}

func (f *authorityFake) FetchSignatures(context.Context, string) ([]domain.RawSignature, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.signatures, nil
}

func (f *authorityFake) FetchQR(_ context.Context, _ string, signID int64) ([][]byte, error) {
	f.qrCalls++
	if f.qrErr != nil {
		return nil, f.qrErr
	}
	return f.qrCodes[signID], nil
}

type inspectorFake struct{ err error }

func (f *inspectorFake) Validate([]byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

type composerFake struct {
	calls  int
	keys   []string
	events [][]domain.SignatureEvent
	err    error
}

func (f *composerFake) AppendAttestation(_ context.Context, key string, events []domain.SignatureEvent) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	f.keys = append(f.keys, key)
	f.events = append(f.events, events)
	return nil
}

type lockerFake struct{ acquired int }

func (f *lockerFake) Acquire(string) func() {
	f.acquired++
	return func() {}
}

type publisherFake struct {
	events []ports.DocumentSignedEvent
	err    error
}

func (f *publisherFake) PublishDocumentSigned(_ context.Context, event ports.DocumentSignedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

package attestation

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/infrastructure/storage/localfs"
)

func fixturePDF(t *testing.T) []byte {
	t.Helper()
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Text(50, 50, "original content")
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}
	return buf.Bytes()
}

func fixtureQR(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func asciiEvent(signID int64) domain.SignatureEvent {
	return domain.SignatureEvent{
		SignID:     signID,
		SignedAt:   "31.08.2026 10:00:00",
		Subject:    "SERIALNUMBER=IIN900101300123,CN=DOE JOHN,GIVENNAME=JOHN",
		IIN:        "900101300123",
		KeyUsages:  []domain.KeyUsage{domain.KeyUsageDigitalSignature, domain.KeyUsageNonRepudiation},
		ValidFrom:  "01.01.2026 00:00:00",
		ValidUntil: "01.01.2027 00:00:00",
		Issuer:     "CN=TEST CA,O=AUTHORITY",
	}
}

func pageCount(t *testing.T, raw []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(raw), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	return n
}

func newTestComposer(t *testing.T) (*Composer, *localfs.Storage) {
	t.Helper()
	store, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	fonts, err := NewFontRegistry("")
	if err != nil {
		t.Fatalf("NewFontRegistry() error = %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewComposer(store, fonts, logger), store
}

func TestAppendAttestationAddsPage(t *testing.T) {
	composer, store := newTestComposer(t)
	ctx := context.Background()

	original := fixturePDF(t)
	if err := store.Save(ctx, "doc.pdf", bytes.NewReader(original)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := composer.AppendAttestation(ctx, "doc.pdf", []domain.SignatureEvent{asciiEvent(1)}); err != nil {
		t.Fatalf("AppendAttestation() error = %v", err)
	}

	rc, err := store.Open(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	merged, _ := io.ReadAll(rc)
	rc.Close()

	if got := pageCount(t, merged); got != pageCount(t, original)+1 {
		t.Fatalf("pages = %d, want %d", got, pageCount(t, original)+1)
	}
}

func TestAppendAttestationWithQRCodes(t *testing.T) {
	composer, store := newTestComposer(t)
	ctx := context.Background()

	if err := store.Save(ctx, "doc.pdf", bytes.NewReader(fixturePDF(t))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	ev := asciiEvent(2)
	qr := fixtureQR(t)
	ev.QRCodes = [][]byte{qr, qr, qr, qr}

	if err := composer.AppendAttestation(ctx, "doc.pdf", []domain.SignatureEvent{ev}); err != nil {
		t.Fatalf("AppendAttestation() error = %v", err)
	}
}

func TestAppendAttestationManyEventsSpanPages(t *testing.T) {
	composer, store := newTestComposer(t)
	ctx := context.Background()

	original := fixturePDF(t)
	if err := store.Save(ctx, "doc.pdf", bytes.NewReader(original)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	events := make([]domain.SignatureEvent, 8)
	for i := range events {
		events[i] = asciiEvent(int64(i + 1))
		events[i].Issuer = strings.Repeat("CN=VERY LONG ISSUER NAME ", 4)
	}

	if err := composer.AppendAttestation(ctx, "doc.pdf", events); err != nil {
		t.Fatalf("AppendAttestation() error = %v", err)
	}

	rc, err := store.Open(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	merged, _ := io.ReadAll(rc)
	rc.Close()

	if got := pageCount(t, merged); got < pageCount(t, original)+2 {
		t.Fatalf("pages = %d, want at least %d", got, pageCount(t, original)+2)
	}
}

func TestAppendAttestationCorruptSourceLeavesFileIntact(t *testing.T) {
	composer, store := newTestComposer(t)
	ctx := context.Background()

	if err := store.Save(ctx, "doc.pdf", strings.NewReader("not a pdf")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	err := composer.AppendAttestation(ctx, "doc.pdf", []domain.SignatureEvent{asciiEvent(1)})
	if !domain.IsKind(err, domain.ErrDocumentCorrupt) {
		t.Fatalf("expected ErrDocumentCorrupt, got %v", err)
	}

	rc, err := store.Open(ctx, "doc.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()
	if string(raw) != "not a pdf" {
		t.Fatalf("stored file was modified on failure")
	}
}

func TestAppendAttestationNoEventsIsNoOp(t *testing.T) {
	composer, store := newTestComposer(t)
	ctx := context.Background()

	if err := store.Save(ctx, "doc.pdf", strings.NewReader("untouched")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := composer.AppendAttestation(ctx, "doc.pdf", nil); err != nil {
		t.Fatalf("AppendAttestation() error = %v", err)
	}
}

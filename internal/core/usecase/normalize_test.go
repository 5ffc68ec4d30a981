package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qazdocs/docsign/internal/core/domain"
)

func TestNormalizeConvertsRawRecords(t *testing.T) {
	authority := newAuthorityFake()
	authority.qrCodes[7] = [][]byte{[]byte("qr-1"), []byte("qr-2")}
	n := NewNormalizer(authority, nil)

	storedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.Local)
	raws := []domain.RawSignature{{
		SignID:    7,
		StoredAt:  storedAt.UnixMilli(),
		Subject:   "CN=DOE,SERIALNUMBER=IIN900101300123",
		KeyUsages: []string{"digitalSignature", "keyEncipherment"},
		From:      storedAt.UnixMilli(),
		Until:     storedAt.Add(365 * 24 * time.Hour).UnixMilli(),
		Issuer:    "CN=TEST CA",
	}}

	events := n.Normalize(context.Background(), "ext-1", raws)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.SignedAt != "14.03.2025 09:26:53" {
		t.Fatalf("SignedAt = %q", e.SignedAt)
	}
	if e.IIN != "900101300123" {
		t.Fatalf("IIN = %q", e.IIN)
	}
	if len(e.KeyUsages) != 1 || e.KeyUsages[0] != domain.KeyUsageDigitalSignature {
		t.Fatalf("KeyUsages = %v, unrecognized usages must be dropped", e.KeyUsages)
	}
	if len(e.QRCodes) != 2 {
		t.Fatalf("QRCodes = %d, want 2", len(e.QRCodes))
	}
	if authority.qrCalls != 1 {
		t.Fatalf("qr fetches = %d, want one per event", authority.qrCalls)
	}
}

func TestNormalizeSwallowsQRFailures(t *testing.T) {
	authority := newAuthorityFake()
	authority.qrErr = errors.New("503 from authority")
	n := NewNormalizer(authority, nil)

	events := n.Normalize(context.Background(), "ext-1", []domain.RawSignature{
		{SignID: 1, StoredAt: 1741936013000, Subject: "CN=A,SERIALNUMBER=IIN111"},
		{SignID: 2, StoredAt: 1741936013000, Subject: "CN=B,SERIALNUMBER=IIN222"},
	})
	if len(events) != 2 {
		t.Fatalf("a QR failure must not drop events, got %d", len(events))
	}
	for _, e := range events {
		if len(e.QRCodes) != 0 {
			t.Fatalf("event %d should have no QR codes", e.SignID)
		}
	}
}

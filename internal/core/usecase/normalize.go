package usecase

import (
	"context"
	"log/slog"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

// Normalizer converts raw authority signature records into signature
// events, attaching QR artifacts via a secondary fetch per event.
type Normalizer struct {
	authority ports.SigningAuthority
	logger    *slog.Logger
}

func NewNormalizer(authority ports.SigningAuthority, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{authority: authority, logger: logger}
}

// Normalize never fails the batch: a QR fetch error degrades the single
// event to rendering without its QR grid.
func (n *Normalizer) Normalize(ctx context.Context, externalID string, raws []domain.RawSignature) []domain.SignatureEvent {
	events := make([]domain.SignatureEvent, 0, len(raws))
	for _, raw := range raws {
		event := domain.SignatureEvent{
			SignID:     raw.SignID,
			SignedAt:   domain.FormatTimestampMillis(raw.StoredAt),
			Subject:    raw.Subject,
			IIN:        domain.ExtractIIN(raw.Subject),
			KeyUsages:  domain.FilterKeyUsages(raw.KeyUsages),
			ValidFrom:  domain.FormatTimestampMillis(raw.From),
			ValidUntil: domain.FormatTimestampMillis(raw.Until),
			Issuer:     raw.Issuer,
		}

		qrCodes, err := n.authority.FetchQR(ctx, externalID, raw.SignID)
		if err != nil {
			n.logger.Warn("qr_fetch_failed",
				"external_id", externalID,
				"sign_id", raw.SignID,
				"error", err,
			)
		} else {
			event.QRCodes = qrCodes
		}

		events = append(events, event)
	}
	return events
}

package usecase

import (
	"github.com/qazdocs/docsign/internal/core/domain"
)

// ReconcileResult is the outcome of one reconciliation pass: the events
// that must be rendered and the participant transitions to commit.
type ReconcileResult struct {
	NewEvents []domain.SignatureEvent
	Updates   []domain.ParticipantUpdate
}

func (r ReconcileResult) Empty() bool { return len(r.NewEvents) == 0 }

// Reconcile filters a normalized event batch against the participants that
// already signed and computes the pending->signed transitions.
//
// Matching is by identity number only. An identity number that already
// produced a signed transition never renders again and never triggers a
// second status write, so re-running the same batch is a no-op.
func Reconcile(participants []domain.ParticipantIdentity, events []domain.SignatureEvent) ReconcileResult {
	signed := make(map[string]struct{})
	for _, p := range participants {
		if p.Status == domain.ParticipantSigned && p.IIN != "" {
			signed[p.IIN] = struct{}{}
		}
	}

	var result ReconcileResult
	seen := make(map[string]domain.SignatureEvent)
	for _, e := range events {
		if e.IIN == "" {
			continue
		}
		if _, ok := signed[e.IIN]; ok {
			continue
		}
		if _, ok := seen[e.IIN]; ok {
			// Duplicate identity number within one batch: first event wins.
			continue
		}
		if _, err := e.SignedTime(); err != nil {
			continue
		}
		seen[e.IIN] = e
		result.NewEvents = append(result.NewEvents, e)
	}

	if len(result.NewEvents) == 0 {
		return result
	}

	for _, p := range participants {
		if p.Status != domain.ParticipantPending {
			continue
		}
		e, ok := seen[p.IIN]
		if !ok {
			continue
		}
		signedAt, err := e.SignedTime()
		if err != nil {
			continue
		}
		result.Updates = append(result.Updates, domain.ParticipantUpdate{
			ParticipantID: p.ID,
			SignedAt:      signedAt,
		})
	}

	return result
}

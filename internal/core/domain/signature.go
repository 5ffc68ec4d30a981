package domain

import "time"

type KeyUsage string

const (
	KeyUsageDigitalSignature KeyUsage = "digitalSignature"
	KeyUsageNonRepudiation   KeyUsage = "nonRepudiation"
)

// SignedAtLayout is the display format for authority timestamps.
const SignedAtLayout = "02.01.2006 15:04:05"

// RawSignature is one per-signature record as returned by the external
// authority. Epoch fields are milliseconds.
type RawSignature struct {
	SignID    int64    `json:"signId"`
	StoredAt  int64    `json:"storedAt"`
	Subject   string   `json:"subject"`
	KeyUsages []string `json:"keyUsages"`
	From      int64    `json:"from"`
	Until     int64    `json:"until"`
	Issuer    string   `json:"issuer"`
}

// SignatureEvent is the normalized form of a RawSignature. It is ephemeral:
// produced per reconciliation pass, never persisted.
type SignatureEvent struct {
	SignID     int64      `json:"sign_id"`
	SignedAt   string     `json:"signed_at"`
	Subject    string     `json:"subject"`
	IIN        string     `json:"iin"`
	KeyUsages  []KeyUsage `json:"key_usages"`
	ValidFrom  string     `json:"valid_from"`
	ValidUntil string     `json:"valid_until"`
	Issuer     string     `json:"issuer"`
	QRCodes    [][]byte   `json:"-"`
}

// SignedTime parses the normalized timestamp back into a time value.
func (e SignatureEvent) SignedTime() (time.Time, error) {
	return time.ParseInLocation(SignedAtLayout, e.SignedAt, time.Local)
}

func (e SignatureEvent) HasKeyUsage(usage KeyUsage) bool {
	for _, u := range e.KeyUsages {
		if u == usage {
			return true
		}
	}
	return false
}

// FormatTimestampMillis renders an epoch-millis value in local time.
func FormatTimestampMillis(ms int64) string {
	return time.UnixMilli(ms).Format(SignedAtLayout)
}

// FilterKeyUsages keeps only the two recognized usages, dropping anything
// else the authority reports.
func FilterKeyUsages(usages []string) []KeyUsage {
	out := make([]KeyUsage, 0, len(usages))
	for _, u := range usages {
		switch KeyUsage(u) {
		case KeyUsageDigitalSignature, KeyUsageNonRepudiation:
			out = append(out, KeyUsage(u))
		}
	}
	return out
}

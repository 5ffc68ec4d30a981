package domain

import (
	"reflect"
	"testing"
)

func TestParseSubjectQuotedEscapes(t *testing.T) {
	s := ParseSubject(`CN=Doe,GIVENNAME=John,O="Acme\"Corp"`)

	if got := s.FullName(); got != "John Doe" {
		t.Fatalf("FullName() = %q, want %q", got, "John Doe")
	}
	if got := s.Organization(); got != "AcmeCorp" {
		t.Fatalf("Organization() = %q, want %q", got, "AcmeCorp")
	}
}

func TestParseSubjectMalformedYieldsEmptyMap(t *testing.T) {
	for _, raw := range []string{"", "no pairs here at all ???", ",,,"} {
		if got := ParseSubject(raw); len(got) != 0 {
			t.Fatalf("ParseSubject(%q) = %v, want empty", raw, got)
		}
	}
}

func TestParseSubjectRoundTrip(t *testing.T) {
	inputs := []string{
		"CN=DOE,GIVENNAME=JOHN,SERIALNUMBER=IIN900101300123",
		`CN=ИВАНОВ,O="ТОО Ромашка",C=KZ`,
		`O="Acme, Inc",CN=Smith`,
	}
	for _, raw := range inputs {
		first := ParseSubject(raw)
		second := ParseSubject(first.String())
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("round trip for %q: %v != %v", raw, first, second)
		}
	}
}

func TestGivenNamePlaceholders(t *testing.T) {
	for _, v := range []string{"null", "NULL", "none", ""} {
		s := Subject{"CN": "DOE", "GIVENNAME": v}
		if got := s.DisplayName(); got != "DOE" {
			t.Fatalf("DisplayName with placeholder %q = %q", v, got)
		}
	}
	s := Subject{"CN": "DOE", "GIVENNAME": "JOHN"}
	if got := s.DisplayName(); got != "DOE JOHN" {
		t.Fatalf("DisplayName = %q, want %q", got, "DOE JOHN")
	}
}

func TestExtractIIN(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"CN=DOE,SERIALNUMBER=IIN900101300123,C=KZ", "900101300123"},
		{"CN=DOE,C=KZ", ""},
		{"SERIALNUMBER=IINnotdigits", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractIIN(tt.subject); got != tt.want {
			t.Fatalf("ExtractIIN(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestStripIdentityPrefix(t *testing.T) {
	tests := []struct {
		value  string
		prefix string
		want   string
	}{
		{"IIN900101300123", "IIN", "900101300123"},
		{"BIN123456789012", "BIN", "123456789012"},
		{"900101300123", "IIN", "900101300123"},
		{"IINabc", "IIN", "IINabc"},
		{"IIN12x", "IIN", "IIN12x"},
		{"IIN", "IIN", "IIN"},
		{"", "IIN", ""},
	}
	for _, tt := range tests {
		if got := StripIdentityPrefix(tt.value, tt.prefix); got != tt.want {
			t.Fatalf("StripIdentityPrefix(%q, %q) = %q, want %q", tt.value, tt.prefix, got, tt.want)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"JOHN  DOE", "John Doe"},
		{"иванов иван", "Иванов Иван"},
		{"  single ", "Single"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.raw); got != tt.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

package domain

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"regexp"
)

// Subject is the parsed form of an authority-issued distinguished-name
// string, e.g. `CN=DOE,GIVENNAME=JOHN,O="Acme"`. Keys not present in the
// input are absent from the map.
type Subject map[string]string

// subjectPairPattern accepts quoted values (escaped quotes allowed) and
// unquoted values up to the next comma.
var subjectPairPattern = regexp.MustCompile(`(\w+)=("(?:\\.|[^"])*"|[^,]+)`)

var iinPattern = regexp.MustCompile(`SERIALNUMBER=IIN(\d+)`)

// ParseSubject extracts KEY=value pairs from a raw subject string.
// Malformed input yields an empty map, never an error.
func ParseSubject(raw string) Subject {
	result := Subject{}
	for _, m := range subjectPairPattern.FindAllStringSubmatch(raw, -1) {
		result[m[1]] = unquote(m[2])
	}
	return result
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = v[1 : len(v)-1]
	}
	return v
}

// String re-serializes the subject with keys in sorted order. Values that
// would not survive unquoted are quoted.
func (s Subject) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		v := s[k]
		if strings.ContainsAny(v, `,"`) || v != strings.TrimSpace(v) {
			b.WriteByte('"')
			b.WriteString(v)
			b.WriteByte('"')
		} else {
			b.WriteString(v)
		}
	}
	return b.String()
}

func (s Subject) CommonName() string { return s["CN"] }

// GivenName returns the GIVENNAME field, treating the authority's null
// placeholders as absent.
func (s Subject) GivenName() string {
	v := s["GIVENNAME"]
	switch strings.ToLower(v) {
	case "null", "none", "":
		return ""
	}
	return v
}

// Organization returns the O field with escape characters stripped.
func (s Subject) Organization() string {
	o := s["O"]
	o = strings.ReplaceAll(o, `\`, "")
	o = strings.ReplaceAll(o, `"`, "")
	return o
}

// FullName builds the account display name: given name first, then the
// common name, normalized.
func (s Subject) FullName() string {
	parts := make([]string, 0, 2)
	if g := s.GivenName(); g != "" {
		parts = append(parts, g)
	}
	if cn := s.CommonName(); cn != "" {
		parts = append(parts, cn)
	}
	return NormalizeName(strings.Join(parts, " "))
}

// DisplayName is the attestation-page rendering order: common name first,
// given name appended when present.
func (s Subject) DisplayName() string {
	parts := make([]string, 0, 2)
	if cn := s.CommonName(); cn != "" {
		parts = append(parts, cn)
	}
	if g := s.GivenName(); g != "" {
		parts = append(parts, g)
	}
	return strings.Join(parts, " ")
}

// ExtractIIN pulls the digit suffix out of a SERIALNUMBER=IIN<digits>
// fragment, or "" when absent.
func ExtractIIN(subject string) string {
	m := iinPattern.FindStringSubmatch(subject)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripIdentityPrefix removes a fixed identity prefix (IIN or BIN) from a
// raw identifier. The prefix must be followed by digits only; anything
// else passes through unchanged.
func StripIdentityPrefix(value, prefix string) string {
	rest, ok := strings.CutPrefix(value, prefix)
	if !ok || rest == "" {
		return value
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return value
		}
	}
	return rest
}

// NormalizeName splits on whitespace, capitalizes the first letter of each
// token and joins with single spaces.
func NormalizeName(raw string) string {
	fields := strings.Fields(raw)
	for i, f := range fields {
		fields[i] = capitalize(f)
	}
	return strings.Join(fields, " ")
}

func capitalize(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

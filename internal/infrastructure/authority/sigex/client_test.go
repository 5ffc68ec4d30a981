package sigex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
)

func TestRegisterSendsSettingsAndReturnsDocumentID(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/register" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"documentId":12345}`))
	}))
	defer server.Close()

	client := New(server.URL)
	id, err := client.Register(context.Background(), ports.RegisterRequest{
		Title:           "Contract",
		SignType:        "sha256",
		Signature:       "abc",
		SignaturesLimit: 3,
		Uniqueness:      "iin",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if id != "12345" {
		t.Fatalf("Register() = %q, want 12345", id)
	}

	settings, _ := captured["settings"].(map[string]any)
	if settings == nil || settings["signaturesLimit"] != float64(3) || settings["uniqueness"] != "iin" {
		t.Fatalf("unexpected settings: %v", captured["settings"])
	}
}

func TestAddSignatureIncludesBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "signature rejected", http.StatusBadRequest)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.AddSignature(context.Background(), "12345", "sig")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "signature rejected") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestFetchSignaturesDecodesRawRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/12345" || r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{
			"signaturesTotal": 1,
			"signatures": [{
				"signId": 7,
				"storedAt": 1741936013000,
				"subject": "CN=DOE,SERIALNUMBER=IIN900101300123",
				"keyUsages": ["digitalSignature","nonRepudiation"],
				"from": 1700000000000,
				"until": 1800000000000,
				"issuer": "CN=TEST CA"
			}]
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	raws, err := client.FetchSignatures(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchSignatures() error = %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("signatures = %d, want 1", len(raws))
	}
	if raws[0].SignID != 7 || raws[0].Subject != "CN=DOE,SERIALNUMBER=IIN900101300123" {
		t.Fatalf("unexpected record: %+v", raws[0])
	}
	if len(raws[0].KeyUsages) != 2 {
		t.Fatalf("keyUsages = %v", raws[0].KeyUsages)
	}
}

func TestFetchQRDecodesBase64AndSendsParams(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/12345/signature/7/qr" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("qrVersion") != "25" || q.Get("qrLevel") != "M" || q.Get("signFormat") != "0" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		resp := map[string]any{
			"qrCodes": []string{base64.StdEncoding.EncodeToString(payload)},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(server.URL)
	codes, err := client.FetchQR(context.Background(), "12345", 7)
	if err != nil {
		t.Fatalf("FetchQR() error = %v", err)
	}
	if len(codes) != 1 || string(codes[0]) != string(payload) {
		t.Fatalf("unexpected qr codes: %v", codes)
	}
}

func TestVerifyAuthMapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["external"] != true {
			t.Fatalf("external flag missing: %v", payload)
		}
		_, _ = w.Write([]byte(`{"subject":"CN=DOE","userId":"IIN900101300123","businessId":"BIN123"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	v, err := client.VerifyAuth(context.Background(), "nonce", "sig")
	if err != nil {
		t.Fatalf("VerifyAuth() error = %v", err)
	}
	if v.UserID != "IIN900101300123" || v.Subject != "CN=DOE" {
		t.Fatalf("unexpected verification: %+v", v)
	}
}

package secure

import (
	"errors"
	"strings"
	"testing"
)

var testParams = KeyParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}

func TestSealerRoundTrip(t *testing.T) {
	t.Parallel()

	sealer, err := NewSealerWithParams("top-secret", "prayer-debt", testParams)
	if err != nil {
		t.Fatalf("NewSealerWithParams failed: %v", err)
	}

	plaintext := []byte(`{"birth_date":"2000-01-01T00:00:00Z","gender":"female"}`)
	sealed, err := sealer.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatalf("expected sealed prefix, got %q", sealed)
	}
	if parts := strings.Split(strings.TrimPrefix(sealed, "enc:v1:"), ":"); len(parts) != 3 || len(parts[0]) != 24 || len(parts[1]) != 32 {
		t.Fatalf("unexpected sealed layout %q", sealed)
	}
	if strings.Contains(sealed, "female") {
		t.Fatalf("sealed value leaks plaintext: %q", sealed)
	}

	again, err := sealer.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if again == sealed {
		t.Fatalf("expected a fresh nonce per call")
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Fatalf("expected %s, got %s", plaintext, opened)
	}
}

func TestSealerRejectsTampering(t *testing.T) {
	t.Parallel()

	sealer, err := NewSealerWithParams("top-secret", "prayer-debt", testParams)
	if err != nil {
		t.Fatalf("NewSealerWithParams failed: %v", err)
	}
	sealed, err := sealer.Seal([]byte("facts"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	tampered := sealed[:len(sealed)-2] + "00"
	if tampered == sealed {
		tampered = sealed[:len(sealed)-2] + "11"
	}
	if _, err := sealer.Open(tampered); !errors.Is(err, ErrMalformedCiphertext) {
		t.Fatalf("expected ErrMalformedCiphertext, got %v", err)
	}
	if _, err := sealer.Open("enc:v1:zz"); !errors.Is(err, ErrMalformedCiphertext) {
		t.Fatalf("expected ErrMalformedCiphertext for bad layout, got %v", err)
	}

	other, err := NewSealerWithParams("another-secret", "prayer-debt", testParams)
	if err != nil {
		t.Fatalf("NewSealerWithParams failed: %v", err)
	}
	if _, err := other.Open(sealed); !errors.Is(err, ErrMalformedCiphertext) {
		t.Fatalf("expected wrong key to fail, got %v", err)
	}
}

func TestSealerPlaintextPassthrough(t *testing.T) {
	t.Parallel()

	var nilSealer *Sealer
	sealed, err := nilSealer.Seal([]byte("plain"))
	if err != nil || sealed != "plain" {
		t.Fatalf("expected nil sealer to pass through, got %q, %v", sealed, err)
	}

	sealer, err := NewSealerWithParams("top-secret", "prayer-debt", testParams)
	if err != nil {
		t.Fatalf("NewSealerWithParams failed: %v", err)
	}
	opened, err := sealer.Open(`{"gender":"male"}`)
	if err != nil || string(opened) != `{"gender":"male"}` {
		t.Fatalf("expected legacy plaintext to be readable, got %q, %v", opened, err)
	}

	if _, err := NewSealer("", "salt"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestSignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{"job_id":"job-12345","status":"done"}`)
	header := Sign("hook-secret", body)
	if !strings.HasPrefix(header, "sha256=") || len(header) != len("sha256=")+64 {
		t.Fatalf("unexpected signature %q", header)
	}

	if err := Verify("hook-secret", body, header); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := Verify("hook-secret", append(body, ' '), header); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected modified body to fail, got %v", err)
	}
	if err := Verify("hook-secret", body, ""); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected missing header to fail, got %v", err)
	}
	if err := Verify("hook-secret", body, "sha256=zz"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected malformed header to fail, got %v", err)
	}
	if err := Verify("", body, ""); err != nil {
		t.Fatalf("expected empty secret to disable verification, got %v", err)
	}
}

package security

import (
	"strings"
	"testing"
	"time"
)

func TestDownloadTokenRoundTrip(t *testing.T) {
	token, err := GenerateDownloadToken(42, 7, 99, time.Minute, "secret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := VerifyDownloadToken(token, "secret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.GrantID != 42 || claims.AssetID != 7 || claims.UserID != 99 {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestDownloadTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateDownloadToken(1, 2, 3, time.Minute, "secret-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := VerifyDownloadToken(token, "secret-b"); err == nil {
		t.Fatalf("expected wrong secret to be rejected")
	}
}

func TestDownloadTokenRejectsTampering(t *testing.T) {
	token, err := GenerateDownloadToken(1, 2, 3, time.Minute, "secret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + "x." + parts[1]
	if _, err := VerifyDownloadToken(tampered, "secret-key"); err == nil {
		t.Fatalf("expected tampered payload to be rejected")
	}
	if _, err := VerifyDownloadToken("not-a-token", "secret-key"); err == nil {
		t.Fatalf("expected malformed token to be rejected")
	}
}

func TestDownloadTokenExpiry(t *testing.T) {
	token, err := GenerateDownloadToken(1, 2, 3, -time.Minute, "secret-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := VerifyDownloadToken(token, "secret-key"); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestDownloadTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateDownloadToken(1, 2, 3, time.Minute, ""); err == nil {
		t.Fatalf("expected generation without secret to fail")
	}
	if _, err := VerifyDownloadToken("a.b", ""); err == nil {
		t.Fatalf("expected verification without secret to fail")
	}
}

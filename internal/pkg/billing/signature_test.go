package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"testing"
	"time"
)

const testSecret = "whsec_dGVzdC1zaWduaW5nLWtleS0wMQ=="

func signPayload(t *testing.T, payload []byte, msgID, ts string) string {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString("dGVzdC1zaWduaW5nLWtleS0wMQ==")
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, ts, payload)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	now := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{"type":"payment.succeeded"}`)
	sig := signPayload(t, payload, "msg_1", ts)

	if !VerifyWebhookSignature(payload, "msg_1", ts, sig, testSecret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected valid signature to verify")
	}
}

func TestVerifyWebhookSignature_MultipleCandidates(t *testing.T) {
	now := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{}`)
	good := signPayload(t, payload, "msg_2", ts)
	header := "v1,Zm9vYmFy " + good

	if !VerifyWebhookSignature(payload, "msg_2", ts, header, testSecret, DefaultSignatureTolerance, now) {
		t.Fatalf("expected one matching candidate to verify")
	}
}

func TestVerifyWebhookSignature_Rejections(t *testing.T) {
	now := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{"type":"payment.succeeded"}`)
	sig := signPayload(t, payload, "msg_3", ts)

	tests := []struct {
		name    string
		payload []byte
		msgID   string
		ts      string
		sig     string
		secret  string
		now     time.Time
	}{
		{name: "tampered payload", payload: []byte(`{"type":"payment.refunded"}`), msgID: "msg_3", ts: ts, sig: sig, secret: testSecret, now: now},
		{name: "wrong message id", payload: payload, msgID: "msg_other", ts: ts, sig: sig, secret: testSecret, now: now},
		{name: "wrong secret", payload: payload, msgID: "msg_3", ts: ts, sig: sig, secret: "whsec_b3RoZXIta2V5", now: now},
		{name: "timestamp too old", payload: payload, msgID: "msg_3", ts: ts, sig: sig, secret: testSecret, now: now.Add(6 * time.Minute)},
		{name: "timestamp in future", payload: payload, msgID: "msg_3", ts: ts, sig: sig, secret: testSecret, now: now.Add(-6 * time.Minute)},
		{name: "malformed timestamp", payload: payload, msgID: "msg_3", ts: "not-a-number", sig: sig, secret: testSecret, now: now},
		{name: "empty signature", payload: payload, msgID: "msg_3", ts: ts, sig: "", secret: testSecret, now: now},
		{name: "unknown version", payload: payload, msgID: "msg_3", ts: ts, sig: "v2,Zm9vYmFy", secret: testSecret, now: now},
	}

	for _, tt := range tests {
		if VerifyWebhookSignature(tt.payload, tt.msgID, tt.ts, tt.sig, tt.secret, DefaultSignatureTolerance, tt.now) {
			t.Fatalf("%s: expected verification to fail", tt.name)
		}
	}
}

func TestVerifyWebhookSignature_ZeroToleranceSkipsClockCheck(t *testing.T) {
	now := time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC)
	ts := strconv.FormatInt(now.Unix(), 10)
	payload := []byte(`{}`)
	sig := signPayload(t, payload, "msg_4", ts)

	if !VerifyWebhookSignature(payload, "msg_4", ts, sig, testSecret, 0, now.Add(48*time.Hour)) {
		t.Fatalf("expected zero tolerance to skip the timestamp check")
	}
}

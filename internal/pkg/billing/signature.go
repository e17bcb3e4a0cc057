package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how far a webhook timestamp may drift from
// the local clock before the delivery is rejected as a possible replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyWebhookSignature checks a Svix-style webhook signature as used by the
// payment provider. The signed content is "{id}.{timestamp}.{body}", the
// secret is "whsec_" plus base64, and the signature header carries one or
// more space-separated "v1,<base64>" candidates.
func VerifyWebhookSignature(payload []byte, msgID, timestampHeader, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) bool {
	id := strings.TrimSpace(msgID)
	ts := strings.TrimSpace(timestampHeader)
	sigHeader := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if id == "" || ts == "" || sigHeader == "" || secret == "" {
		return false
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if tolerance > 0 {
		drift := now.Sub(time.Unix(unix, 0))
		if drift < 0 {
			drift = -drift
		}
		if drift > tolerance {
			return false
		}
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", id, ts, payload)
	expected := mac.Sum(nil)

	// The header may list several versioned candidates after a key rotation.
	for _, candidate := range strings.Fields(sigHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return true
		}
	}
	return false
}

package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// StripeVerifier checks Stripe-style webhook signatures: the header carries
// a timestamp and one or more v1 HMAC-SHA256 digests over "{t}.{body}".
type StripeVerifier struct {
	secret []byte
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: []byte(secret)}
}

// Verify accepts the delivery when any v1 digest matches. Comparison is
// constant time; malformed headers simply fail to match.
func (v *StripeVerifier) Verify(payload []byte, signatureHeader string) bool {
	if len(v.secret) == 0 || signatureHeader == "" {
		return false
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1 {
			return true
		}
	}
	return false
}

package ports

// SignatureVerifier authenticates an inbound payment-event payload against
// its signature header. False means reject before any data access.
type SignatureVerifier interface {
	Verify(payload []byte, signatureHeader string) bool
}

type AuthClaims struct {
	UserID string
	Email  string
	Role   string
}

// TokenVerifier parses and validates a bearer token for the read and admin
// endpoints. Identity issuance lives in the auth service; this engine only
// verifies.
type TokenVerifier interface {
	Verify(raw string) (AuthClaims, error)
}

package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the X-Nylas-Signature value against an HMAC-SHA256
// digest of the exact raw request bytes. The body must not be re-serialized
// before verification; re-encoding can change byte content and break the
// digest. Comparison is constant time. Malformed hex, length mismatch or a
// missing secret all yield false, never an error.
func VerifySignature(raw []byte, secret, signatureHex string) bool {
	if secret == "" || signatureHex == "" {
		return false
	}

	presented, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)

	return hmac.Equal(mac.Sum(nil), presented)
}

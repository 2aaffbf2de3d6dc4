package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of "intentID|paymentID" keyed by secret.
func Sign(secret, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature fails closed on any empty input.
func VerifySignature(secret, intentID, paymentID, signature string) bool {
	if secret == "" || intentID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(secret, intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

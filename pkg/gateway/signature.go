package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the callback signature the gateway
// computes over "<gateway order id>|<gateway payment id>". Comparison
// is constant time.
func VerifyPaymentSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := signPayload(secret, gatewayOrderID+"|"+gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyWebhookSignature checks the signature over the raw webhook body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := signPayload(secret, string(body))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayload is exported for tests that need to produce valid
// signatures.
func SignPayload(secret, payload string) string {
	return signPayload(secret, payload)
}

func signPayload(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign computes the callback signature the gateway sends alongside a
// successful payment: hex(HMAC-SHA256(orderID|paymentID, secret)).
func Sign(orderID, paymentID, secret string) string {
	data := fmt.Sprintf("%s|%s", orderID, paymentID)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a callback signature in constant time.
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	expected := Sign(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

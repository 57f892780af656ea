package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of message under secret
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentSignature is the checkout signature: HMAC(secret, orderID + "|" + paymentID)
func PaymentSignature(secret, orderID, paymentID string) string {
	return Sign(secret, []byte(orderID+"|"+paymentID))
}

// WebhookSignature is the X-Razorpay-Signature value for a raw body
func WebhookSignature(secret string, body []byte) string {
	return Sign(secret, body)
}

// VerifyPaymentSignature reports whether signature matches the checkout signature
func VerifyPaymentSignature(secret, orderID, paymentID, signature string) bool {
	return equalSignature(PaymentSignature(secret, orderID, paymentID), signature)
}

// VerifyWebhookSignature reports whether signature matches the raw, unparsed body
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	return equalSignature(WebhookSignature(secret, body), signature)
}

func equalSignature(expected, supplied string) bool {
	return hmac.Equal([]byte(expected), []byte(supplied))
}

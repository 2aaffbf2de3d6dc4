package razorpay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	const secret = "rzp_secret"
	sig := Sign(secret, "order_1", "pay_1")

	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature(secret, "order_1", "pay_1", sig))
	assert.True(t, NewClient("k", secret).VerifySignature("order_1", "pay_1", sig))

	assert.False(t, VerifySignature(secret, "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	tampered := []byte(sig)
	tampered[0] ^= 1
	assert.False(t, VerifySignature(secret, "order_1", "pay_1", string(tampered)))
	assert.False(t, VerifySignature(secret, "order_1", "pay_1", ""))
	assert.False(t, VerifySignature("", "order_1", "pay_1", Sign("", "order_1", "pay_1")))
}

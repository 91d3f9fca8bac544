package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	domainErrors "github.com/polkiloo/orderdesk/internal/domain/errors"
	"github.com/polkiloo/orderdesk/internal/domain/model"
)

const defaultReplayWindow = 5 * time.Minute

// WebhookVerifier checks provider signatures: hex HMAC-SHA256 of
// timestamp+token under the shared signing key.
type WebhookVerifier struct {
	key    []byte
	window time.Duration
	now    func() time.Time
}

// NewWebhookVerifier builds a verifier with the given replay window.
func NewWebhookVerifier(signingKey string, window time.Duration) *WebhookVerifier {
	if window <= 0 {
		window = defaultReplayWindow
	}
	return &WebhookVerifier{key: []byte(signingKey), window: window, now: time.Now}
}

// Sign computes the expected signature for a timestamp and token.
func (v *WebhookVerifier) Sign(timestamp, token string) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify returns ErrInvalidSignature on mismatch and ErrStaleEvent when the
// timestamp is outside the replay window.
func (v *WebhookVerifier) Verify(sig model.WebhookSignature) error {
	if len(v.key) == 0 || sig.Signature == "" || sig.Token == "" {
		return domainErrors.ErrInvalidSignature
	}
	expected := v.Sign(sig.Timestamp, sig.Token)
	if !hmac.Equal([]byte(expected), []byte(sig.Signature)) {
		return domainErrors.ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(sig.Timestamp, 10, 64)
	if err != nil {
		return domainErrors.ErrStaleEvent
	}
	age := v.now().Sub(time.Unix(unix, 0))
	if age < 0 {
		age = -age
	}
	if age > v.window {
		return domainErrors.ErrStaleEvent
	}
	return nil
}

package notify

import (
	"crypto/sha256"
	"encoding/hex"
)

// Subscription is the web-push endpoint descriptor supplied by a client on
// subscribe. The service treats it as opaque delivery state; equality is
// structural over the whole descriptor.
type Subscription struct {
	Endpoint string           `json:"endpoint" validate:"required,url"`
	Keys     SubscriptionKeys `json:"keys"`
}

// SubscriptionKeys carries the client's web-push encryption material.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Key returns a stable identity derived from the descriptor's content, used
// to deduplicate structurally equal subscriptions in the registry.
func (s Subscription) Key() string {
	h := sha256.New()
	h.Write([]byte(s.Endpoint))
	h.Write([]byte{0})
	h.Write([]byte(s.Keys.P256dh))
	h.Write([]byte{0})
	h.Write([]byte(s.Keys.Auth))
	return hex.EncodeToString(h.Sum(nil))
}

// Payload is the push notification message body.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

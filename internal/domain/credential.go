package domain

import "time"

// Credential is the gateway bearer token. It lives only in process memory.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Usable reports whether the token can still be sent at now, leaving skew for
// the request to reach the gateway. A zero ExpiresAt means the gateway gave none.
func (c Credential) Usable(now time.Time, skew time.Duration) bool {
	if c.Token == "" {
		return false
	}
	if c.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(skew).Before(c.ExpiresAt)
}

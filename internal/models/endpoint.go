package models

import (
	"net/url"
	"strings"
	"time"
)

// Endpoint is a forwarding rule: webhooks posted to /hook/{id} are relayed
// to the owner's live client and replayed against Target.
type Endpoint struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Target    string    `json:"target"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// ValidTarget reports whether target is a plain-http URL pointing at
// localhost. Anything else would turn the relay into an open proxy.
func ValidTarget(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "http" && u.Hostname() == "localhost"
}

// NormalizeMethod upper-cases m and reports whether it is an allowed verb.
func NormalizeMethod(m string) (string, bool) {
	upper := strings.ToUpper(m)
	return upper, allowedMethods[upper]
}

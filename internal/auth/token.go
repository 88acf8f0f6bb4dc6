package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashToken maps an opaque session token to its at-rest form. Keyed so a
// leaked database alone is not enough to mint valid credentials.
func HashToken(key, token string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

package cloak

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint derives a stable, non-reversible identifier from the client IP
// and user agent. The same inputs always produce the same fingerprint; an
// empty user agent is valid input. The fingerprint is used only as a cache
// key and is never displayed in reversible form.
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + userAgent))
	return hex.EncodeToString(sum[:])
}

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"mercator-hq/callisto/pkg/storage"
)

// wipePatternSize is the length of the random overwrite pattern.
const wipePatternSize = 32

// secureWipe overwrites the mutable string fields of a session in place
// with data derived from a fresh random pattern, so that the final store
// write before deletion carries no recoverable content. The session ID is
// left intact for the delete that follows. Returns the hex SHA-256 of the
// pattern for the audit trail.
func secureWipe(s *storage.Session) (string, error) {
	pattern := make([]byte, wipePatternSize)
	if _, err := rand.Read(pattern); err != nil {
		return "", fmt.Errorf("generating wipe pattern: %w", err)
	}

	s.OwnerID = scramble(pattern, 0, len(s.OwnerID))
	s.SecurityLevel = scramble(pattern, 1, len(s.SecurityLevel))
	s.Classification = scramble(pattern, 2, len(s.Classification))
	s.ExtensionCount = 0
	s.MaxExtensions = 0
	s.GracePeriodEndsAt = nil

	sum := sha256.Sum256(pattern)
	return hex.EncodeToString(sum[:]), nil
}

// scramble derives a hex string of the given length from the pattern and a
// per-field counter, so distinct fields never share bytes.
func scramble(pattern []byte, field int, length int) string {
	if length == 0 {
		return ""
	}
	h := sha256.New()
	h.Write(pattern)
	h.Write([]byte{byte(field)})
	out := make([]byte, 0, length+sha256.Size*2)
	for len(out) < length {
		sum := h.Sum(nil)
		out = append(out, []byte(hex.EncodeToString(sum))...)
		h.Write(sum)
	}
	return string(out[:length])
}

package cheque

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fingerprint returns a deterministic hash of the raw upload bytes. Only the
// content matters; the filename and declared media type are excluded so the
// same file is recognized however it is named.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Session holds per-session mutable state: the set of submission fingerprints
// already accepted for processing. It exists to guard against double-clicks
// within one interactive session and is discarded when the session ends; it is
// never shared across sessions or persisted.
type Session struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{seen: make(map[string]struct{})}
}

// Seen reports whether a fingerprint was already marked in this session
func (s *Session) Seen(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[fingerprint]
	return ok
}

// Mark records a fingerprint as accepted for processing. Marking happens when
// a submission is accepted, not when it completes, so a partially failed
// submission still counts as already attempted.
func (s *Session) Mark(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[fingerprint] = struct{}{}
}

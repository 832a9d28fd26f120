package passkey

import (
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// challengeTTL bounds how long a started ceremony may wait for its browser
// response.
const challengeTTL = 5 * time.Minute

type challengeEntry struct {
	session webauthn.SessionData
	created time.Time
}

// ChallengeStore holds in-flight ceremony sessions keyed by user id. Entries
// are one-time use: Take removes what it returns. Stale entries are swept
// lazily on every access, so no background timer is needed.
type ChallengeStore struct {
	mu      sync.Mutex
	entries map[string]challengeEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewChallengeStore constructs an empty store with the default TTL.
func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		entries: make(map[string]challengeEntry),
		ttl:     challengeTTL,
		now:     time.Now,
	}
}

// Put stores the session for the user, replacing any pending one. Starting a
// new ceremony invalidates the previous challenge.
func (s *ChallengeStore) Put(userID string, session webauthn.SessionData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[userID] = challengeEntry{session: session, created: s.now()}
}

// Take removes and returns the pending session for the user. The second
// return is false when there is no live challenge, either because none was
// stored or because it aged out.
func (s *ChallengeStore) Take(userID string) (webauthn.SessionData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	entry, ok := s.entries[userID]
	if !ok {
		return webauthn.SessionData{}, false
	}
	delete(s.entries, userID)
	return entry.session, true
}

// sweep drops aged-out entries. Callers must hold the mutex.
func (s *ChallengeStore) sweep() {
	cutoff := s.now().Add(-s.ttl)
	for userID, entry := range s.entries {
		if entry.created.Before(cutoff) {
			delete(s.entries, userID)
		}
	}
}

// Package history keeps bounded, in-process conversation history per sender.
// Entries live only for the lifetime of the process; there is no persistence.
package history

import (
	"sync"

	"wagate/internal/llm"
)

// Store maps sender IDs to their recent conversation turns. Keys are disjoint
// across senders, so concurrent requests for different senders never contend
// beyond the map lock. Two concurrent messages from the same sender are
// serialized by Lock/Unlock to avoid lost appends.
type Store struct {
	mu       sync.RWMutex
	maxTurns int
	turns    map[string][]llm.Message
	locks    map[string]*sync.Mutex
}

func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Store{
		maxTurns: maxTurns,
		turns:    make(map[string][]llm.Message),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Get returns a copy of the sender's turns, oldest first.
func (s *Store) Get(senderID string) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[senderID]
	out := make([]llm.Message, len(turns))
	copy(out, turns)
	return out
}

// Append adds turns for a sender and truncates to maxTurns, dropping the
// oldest turns first.
func (s *Store) Append(senderID string, msgs ...llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.turns[senderID], msgs...)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.turns[senderID] = turns
}

// Len returns the number of stored turns for a sender.
func (s *Store) Len(senderID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[senderID])
}

// Evict removes all history for a sender.
func (s *Store) Evict(senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, senderID)
	delete(s.locks, senderID)
}

// Lock acquires the per-sender mutex. Callers must pair with Unlock.
func (s *Store) Lock(senderID string) {
	s.lockFor(senderID).Lock()
}

// Unlock releases the per-sender mutex.
func (s *Store) Unlock(senderID string) {
	s.lockFor(senderID).Unlock()
}

func (s *Store) lockFor(senderID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[senderID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[senderID] = l
	}
	return l
}

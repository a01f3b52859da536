// Package replay implements the optional payment-id registry described in
// spec.md's Safety/Policy layer: servers that want replay defence beyond the
// wire model's nonce/expiration fields can claim a payment_id exactly once
// before admitting a request.
package replay

import (
	"container/list"
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Store claims payment IDs exactly once. Claim returns alreadyClaimed=true
// (with the resourceID first associated with that payment ID) if the ID was
// already claimed and has not yet expired; otherwise it records the claim
// and returns alreadyClaimed=false.
type Store interface {
	Claim(ctx context.Context, paymentID string, resourceID string, ttl time.Duration) (firstSeenResourceID string, alreadyClaimed bool, err error)
}

// GenerateNonce produces a random payment_id suitable for the wire model's
// nonce field.
func GenerateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type claimEntry struct {
	paymentID  string
	resourceID string
	element    *list.Element
}

// MemoryStore is an in-memory Store with LRU eviction, the same shape as
// internal/idempotency's MemoryStore, re-expressed over a claim-once
// semantic instead of a cached-response semantic.
type MemoryStore struct {
	mu          sync.Mutex
	claims      map[string]*claimEntry
	expires     map[string]time.Time
	lru         *list.List
	maxSize     int
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewMemoryStore creates an in-memory replay registry capped at maxSize
// tracked payment IDs.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 100000
	}
	s := &MemoryStore{
		claims:      make(map[string]*claimEntry),
		expires:     make(map[string]time.Time),
		lru:         list.New(),
		maxSize:     maxSize,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Claim(ctx context.Context, paymentID string, resourceID string, ttl time.Duration) (string, bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.expires[paymentID]; ok && now.Before(expiry) {
		entry := s.claims[paymentID]
		return entry.resourceID, true, nil
	}

	if entry, ok := s.claims[paymentID]; ok {
		s.lru.Remove(entry.element)
		delete(s.claims, paymentID)
	}

	if len(s.claims) >= s.maxSize {
		s.evictLRU()
	}

	entry := &claimEntry{paymentID: paymentID, resourceID: resourceID}
	entry.element = s.lru.PushFront(entry)
	s.claims[paymentID] = entry
	s.expires[paymentID] = now.Add(ttl)

	return resourceID, false, nil
}

func (s *MemoryStore) evictLRU() {
	element := s.lru.Back()
	if element == nil {
		return
	}
	entry := element.Value.(*claimEntry)
	s.lru.Remove(element)
	delete(s.claims, entry.paymentID)
	delete(s.expires, entry.paymentID)
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			var expired []string
			for id, expiry := range s.expires {
				if now.After(expiry) {
					expired = append(expired, id)
				}
			}
			for _, id := range expired {
				if entry, ok := s.claims[id]; ok {
					s.lru.Remove(entry.element)
					delete(s.claims, id)
					delete(s.expires, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop gracefully stops the background cleanup goroutine.
func (s *MemoryStore) Stop() {
	close(s.stopCleanup)
	<-s.cleanupDone
}

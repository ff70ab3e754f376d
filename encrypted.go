package secureterm

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeyManager supplies session-scoped encryption keys as opaque AEAD handles.
// Implementations typically delegate to a platform key store; this core never
// sees raw key material, only the sealed/open capability.
type KeyManager interface {
	// GetOrCreateKey returns the AEAD bound to the session, creating it on
	// first use.
	GetOrCreateKey(sessionID string) (cipher.AEAD, error)
	// DeleteKey irreversibly destroys the session's key. Ciphertext sealed
	// under it becomes permanently unreadable.
	DeleteKey(sessionID string) error
}

// MemoryKeyManager keeps ChaCha20-Poly1305 session keys in process memory.
// The raw key bytes are wiped as soon as the AEAD is constructed.
type MemoryKeyManager struct {
	mu    sync.Mutex
	aeads map[string]cipher.AEAD
}

var _ KeyManager = (*MemoryKeyManager)(nil)

// NewMemoryKeyManager creates an in-memory key manager.
func NewMemoryKeyManager() *MemoryKeyManager {
	return &MemoryKeyManager{aeads: make(map[string]cipher.AEAD)}
}

// GetOrCreateKey returns the session AEAD, generating a fresh random key on
// first use.
func (k *MemoryKeyManager) GetOrCreateKey(sessionID string) (cipher.AEAD, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if aead, ok := k.aeads[sessionID]; ok {
		return aead, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	zeroBytes(key)

	k.aeads[sessionID] = aead
	return aead, nil
}

// DeleteKey forgets the session's AEAD.
func (k *MemoryKeyManager) DeleteKey(sessionID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.aeads, sessionID)
	return nil
}

// encryptedEntry is one retained scrollback line: sequence number, fresh
// nonce, AEAD ciphertext, and the insertion time used by age retention.
type encryptedEntry struct {
	seq        uint64
	nonce      []byte
	ciphertext []byte
	addedAt    time.Time
}

// EncryptedLineStore retains evicted lines encrypted at rest. Each appended
// line is flattened to text, sealed under the session key with a fresh
// nonce, and the plaintext buffer is zeroed before Append returns. Reads
// decrypt on demand; the caller must not retain the returned strings longer
// than needed.
//
// The store allows concurrent readers but excludes them during writes,
// retention enforcement, and destruction.
type EncryptedLineStore struct {
	mu sync.RWMutex

	sessionID string
	keys      KeyManager
	aead      cipher.AEAD

	policy  RetentionPolicy
	entries []*encryptedEntry
	nextSeq uint64

	now func() time.Time

	destroyed bool
}

var _ LineStore = (*EncryptedLineStore)(nil)

// NewEncryptedLineStore creates an encrypted line store bound to sessionID.
// The key is obtained from (or created by) the key manager; Destroy deletes
// it again.
func NewEncryptedLineStore(sessionID string, keys KeyManager, policy RetentionPolicy) (*EncryptedLineStore, error) {
	aead, err := keys.GetOrCreateKey(sessionID)
	if err != nil {
		return nil, fmt.Errorf("obtain session key: %w", err)
	}
	return &EncryptedLineStore{
		sessionID: sessionID,
		keys:      keys,
		aead:      aead,
		policy:    policy,
		now:       time.Now,
	}, nil
}

// Append seals the line's text under the session key and discards the
// plaintext. The plaintext buffer is zeroed before returning; see zeroBytes
// for the limits of that guarantee.
func (s *EncryptedLineStore) Append(line Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrDestroyed
	}

	plaintext := []byte(line.Text())
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		zeroBytes(plaintext)
		return fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext := s.aead.Seal(nil, nonce, plaintext, nil)
	zeroBytes(plaintext)

	s.entries = append(s.entries, &encryptedEntry{
		seq:        s.nextSeq,
		nonce:      nonce,
		ciphertext: ciphertext,
		addedAt:    s.now(),
	})
	s.nextSeq++

	return s.enforceRetentionLocked()
}

// ReadAll decrypts and returns every retained line, oldest first.
// A failed authentication check aborts the read with ErrDecryptFailed.
func (s *EncryptedLineStore) ReadAll() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return nil, ErrDestroyed
	}
	return s.decryptRange(0, len(s.entries))
}

// ReadRange decrypts up to count lines starting at start (0 is the oldest
// retained entry). Out-of-range requests are clamped.
func (s *EncryptedLineStore) ReadRange(start, count int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return nil, ErrDestroyed
	}
	if start < 0 {
		start = 0
	}
	if start >= len(s.entries) || count <= 0 {
		return nil, nil
	}
	end := start + count
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.decryptRange(start, end)
}

// decryptRange must be called with at least a read lock held.
func (s *EncryptedLineStore) decryptRange(start, end int) ([]string, error) {
	out := make([]string, 0, end-start)
	for _, e := range s.entries[start:end] {
		plaintext, err := s.aead.Open(nil, e.nonce, e.ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.seq, ErrDecryptFailed)
		}
		out = append(out, string(plaintext))
		zeroBytes(plaintext)
	}
	return out, nil
}

// Size returns the number of retained entries.
func (s *EncryptedLineStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return 0
	}
	return len(s.entries)
}

// Clear wipes and removes every retained entry.
func (s *EncryptedLineStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.wipeEntriesLocked(len(s.entries))
	return nil
}

// EnforceRetention applies the retention policy immediately.
func (s *EncryptedLineStore) EnforceRetention() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	return s.enforceRetentionLocked()
}

// enforceRetentionLocked drops entries beyond MaxLines and older than
// MaxAge, wiping each dropped entry's ciphertext and nonce. Entries are
// ordered oldest-first, so both bounds trim a prefix.
func (s *EncryptedLineStore) enforceRetentionLocked() error {
	drop := 0
	if s.policy.MaxLines > 0 && len(s.entries) > s.policy.MaxLines {
		drop = len(s.entries) - s.policy.MaxLines
	}
	if s.policy.MaxAge > 0 {
		cutoff := s.now().Add(-s.policy.MaxAge)
		for drop < len(s.entries) && s.entries[drop].addedAt.Before(cutoff) {
			drop++
		}
	}
	s.wipePrefixLocked(drop)
	return nil
}

// wipePrefixLocked wipes and removes the first n entries.
func (s *EncryptedLineStore) wipePrefixLocked(n int) {
	if n <= 0 {
		return
	}
	for _, e := range s.entries[:n] {
		zeroBytes(e.ciphertext)
		zeroBytes(e.nonce)
	}
	s.entries = s.entries[n:]
}

// wipeEntriesLocked wipes and removes the first n entries and resets the
// slice.
func (s *EncryptedLineStore) wipeEntriesLocked(n int) {
	s.wipePrefixLocked(n)
	s.entries = nil
}

// Destroy wipes every retained entry, deletes the session key via the key
// manager, and marks the store unusable. A second call fails with
// ErrDestroyed and performs no further wiping.
func (s *EncryptedLineStore) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.wipeEntriesLocked(len(s.entries))
	s.destroyed = true
	if err := s.keys.DeleteKey(s.sessionID); err != nil {
		return fmt.Errorf("delete session key: %w", err)
	}
	return nil
}

// zeroBytes overwrites b with zeros. This is a best-effort mitigation: a
// garbage-collected runtime may already have copied the bytes (stack growth,
// string conversions) before the wipe runs, so it narrows the exposure
// window rather than guaranteeing erasure.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

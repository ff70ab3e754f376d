package secureterm

import (
	"errors"
	"time"
)

// ErrDestroyed is returned by every operation on a destroyed terminal or
// line store. Destruction is deliberate on security-sensitive state, so a
// call arriving afterwards is a programming error that must not be silent.
var ErrDestroyed = errors.New("secureterm: destroyed")

// ErrDecryptFailed is returned when an encrypted scrollback entry fails the
// authenticated-decryption check. It indicates corruption or tampering and
// is never retried or skipped.
var ErrDecryptFailed = errors.New("secureterm: authenticated decryption failed")

// RetentionPolicy bounds how much and how long scrollback is retained.
// A zero MaxLines or MaxAge disables the respective bound.
type RetentionPolicy struct {
	// MaxLines is the maximum number of retained entries; the oldest are
	// dropped first.
	MaxLines int
	// MaxAge drops entries older than this. Only the encrypted store tracks
	// entry age; the plain store ignores it.
	MaxAge time.Duration
	// WipeOnClose requests a full wipe when the store is destroyed. The
	// encrypted store always wipes; the flag exists so callers can demand it
	// explicitly in configuration.
	WipeOnClose bool
}

// DefaultRetentionPolicy bounds scrollback to 10000 lines with no age limit.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{MaxLines: 10000, WipeOnClose: true}
}

// LineStore holds lines evicted from the top of the active grid. The plain
// and encrypted strategies are interchangeable behind this contract; the
// buffer never knows which one it feeds.
type LineStore interface {
	// Append stores one evicted line. The store takes ownership of the line.
	Append(line Line) error
	// ReadAll returns the text of every retained entry, oldest first.
	ReadAll() ([]string, error)
	// ReadRange returns up to count entries starting at start (0 is the
	// oldest retained entry). Out-of-range requests are clamped, not errors.
	ReadRange(start, count int) ([]string, error)
	// Size returns the number of retained entries.
	Size() int
	// Clear removes all retained entries.
	Clear() error
	// EnforceRetention applies the retention policy immediately. It also
	// runs after every Append.
	EnforceRetention() error
	// Destroy irreversibly disposes of the store. Every later call,
	// including a second Destroy, fails with ErrDestroyed.
	Destroy() error
}

// NoopLineStore discards every line. It stands in when scrollback retention
// is not wanted.
type NoopLineStore struct{}

func (NoopLineStore) Append(Line) error                  { return nil }
func (NoopLineStore) ReadAll() ([]string, error)         { return nil, nil }
func (NoopLineStore) ReadRange(int, int) ([]string, error) { return nil, nil }
func (NoopLineStore) Size() int                          { return 0 }
func (NoopLineStore) Clear() error                       { return nil }
func (NoopLineStore) EnforceRetention() error            { return nil }
func (NoopLineStore) Destroy() error                     { return nil }

// MemoryLineStore retains evicted lines in memory as structured values,
// bounded by RetentionPolicy.MaxLines (oldest evicted silently). Age-based
// retention does not apply to the plain strategy.
//
// The store performs no locking; like the buffer that feeds it, it relies on
// the caller serializing mutations.
type MemoryLineStore struct {
	policy    RetentionPolicy
	lines     []Line
	nextSeq   uint64
	firstSeq  uint64
	destroyed bool
}

var _ LineStore = (*MemoryLineStore)(nil)

// NewMemoryLineStore creates a plain in-memory line store.
func NewMemoryLineStore(policy RetentionPolicy) *MemoryLineStore {
	return &MemoryLineStore{policy: policy}
}

// Append stores a line and enforces the line-count bound.
func (m *MemoryLineStore) Append(line Line) error {
	if m.destroyed {
		return ErrDestroyed
	}
	m.lines = append(m.lines, line)
	m.nextSeq++
	return m.EnforceRetention()
}

// ReadAll returns the text of all retained lines, oldest first, with
// trailing spaces trimmed.
func (m *MemoryLineStore) ReadAll() ([]string, error) {
	return m.ReadRange(0, len(m.lines))
}

// ReadRange returns the text of up to count lines starting at start.
func (m *MemoryLineStore) ReadRange(start, count int) ([]string, error) {
	if m.destroyed {
		return nil, ErrDestroyed
	}
	if start < 0 {
		start = 0
	}
	if start >= len(m.lines) || count <= 0 {
		return nil, nil
	}
	end := start + count
	if end > len(m.lines) {
		end = len(m.lines)
	}
	out := make([]string, 0, end-start)
	for _, line := range m.lines[start:end] {
		out = append(out, line.Text())
	}
	return out, nil
}

// Line returns a deep copy of the retained line at index (0 is the oldest),
// or an empty Line when out of range. Structured access is specific to the
// plain strategy; the encrypted strategy only retains flattened text.
func (m *MemoryLineStore) Line(index int) Line {
	if m.destroyed || index < 0 || index >= len(m.lines) {
		return Line{}
	}
	return m.lines[index].Clone()
}

// Size returns the number of retained lines.
func (m *MemoryLineStore) Size() int {
	if m.destroyed {
		return 0
	}
	return len(m.lines)
}

// Clear removes all retained lines.
func (m *MemoryLineStore) Clear() error {
	if m.destroyed {
		return ErrDestroyed
	}
	m.firstSeq = m.nextSeq
	m.lines = nil
	return nil
}

// EnforceRetention trims the oldest lines beyond MaxLines.
func (m *MemoryLineStore) EnforceRetention() error {
	if m.destroyed {
		return ErrDestroyed
	}
	if m.policy.MaxLines > 0 && len(m.lines) > m.policy.MaxLines {
		excess := len(m.lines) - m.policy.MaxLines
		m.lines = m.lines[excess:]
		m.firstSeq += uint64(excess)
	}
	return nil
}

// Destroy drops all lines and marks the store unusable.
func (m *MemoryLineStore) Destroy() error {
	if m.destroyed {
		return ErrDestroyed
	}
	m.lines = nil
	m.destroyed = true
	return nil
}

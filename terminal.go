package secureterm

import (
	"fmt"
	"io"
	"sync"
)

const (
	// DEFAULT_ROWS is the default number of terminal rows.
	DEFAULT_ROWS = 24
	// DEFAULT_COLS is the default number of terminal columns.
	DEFAULT_COLS = 80
)

// Terminal emulates a character-grid terminal without a display. Raw bytes
// written to it are parsed for ANSI/VT escape sequences and applied to an
// internal screen buffer; lines scrolled off the top go to the configured
// LineStore. All operations are thread-safe via internal locking.
//
// After every mutating call the terminal publishes a fresh immutable
// Snapshot; readers holding an older snapshot keep a consistent view while
// the terminal moves on.
type Terminal struct {
	mu sync.RWMutex

	rows int
	cols int

	buffer *Buffer
	parser *Parser
	store  LineStore
	theme  *Theme

	snapshot *Snapshot

	destroyed bool
}

// Ensure Terminal implements io.Writer.
var _ io.Writer = (*Terminal)(nil)

// Option configures a Terminal during construction.
type Option func(*Terminal)

// WithSize sets the terminal dimensions.
// Values <= 0 are replaced with defaults (24x80).
func WithSize(rows, cols int) Option {
	if rows <= 0 {
		rows = DEFAULT_ROWS
	}

	if cols <= 0 {
		cols = DEFAULT_COLS
	}

	return func(t *Terminal) {
		t.rows = rows
		t.cols = cols
	}
}

// WithLineStore sets the storage for lines scrolled off the top of the grid.
// Defaults to a plain in-memory store with the default retention policy.
// Pass NoopLineStore to disable scrollback retention entirely.
func WithLineStore(store LineStore) Option {
	return func(t *Terminal) {
		t.store = store
	}
}

// WithTheme sets the color theme used when snapshots resolve palette and
// default colors to concrete RGB values.
func WithTheme(theme *Theme) Option {
	return func(t *Terminal) {
		t.theme = theme
	}
}

// New creates a terminal with the given options.
// Defaults to 24x80 with auto-wrap on, cursor visible, and plain in-memory
// scrollback.
func New(opts ...Option) *Terminal {
	t := &Terminal{
		rows: DEFAULT_ROWS,
		cols: DEFAULT_COLS,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.store == nil {
		t.store = NewMemoryLineStore(DefaultRetentionPolicy())
	}
	if t.theme == nil {
		t.theme = DefaultTheme()
	}

	t.buffer = NewBuffer(t.rows, t.cols, t.store)
	t.parser = NewParser(t.buffer)
	t.snapshot = t.takeSnapshot()

	return t
}

// Write processes raw bytes, parsing ANSI escape sequences and updating the
// terminal state. Malformed or unsupported sequences are consumed without
// error; Write only fails once the terminal has been destroyed.
// Implements io.Writer.
func (t *Terminal) Write(data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return 0, ErrDestroyed
	}

	t.parser.Parse(data)
	t.snapshot = t.takeSnapshot()
	return len(data), nil
}

// WriteString is a convenience method that converts the string to bytes and
// calls Write.
func (t *Terminal) WriteString(s string) (int, error) {
	return t.Write([]byte(s))
}

// Resize changes the terminal dimensions. When shrinking rows, lines pushed
// off the top move to the line store; growing adds blank rows at the bottom.
// The scroll region resets to the full screen and the cursor is clamped.
// Invalid dimensions (<= 0) are ignored.
func (t *Terminal) Resize(rows, cols int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return ErrDestroyed
	}
	if rows <= 0 || cols <= 0 {
		return nil
	}

	t.buffer.Resize(rows, cols)
	t.rows = rows
	t.cols = cols
	t.snapshot = t.takeSnapshot()
	return nil
}

// Reset restores the terminal to its initial state: grid blanked, cursor
// home, default style, modes and tab stops back to defaults, and the line
// store cleared.
func (t *Terminal) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return ErrDestroyed
	}

	t.buffer.Reset()
	t.snapshot = t.takeSnapshot()
	return nil
}

// Destroy irreversibly disposes of the terminal and its line store. On an
// encrypted store this wipes the retained ciphertext and deletes the session
// key. Every later call on the terminal, including a second Destroy, fails
// with ErrDestroyed.
func (t *Terminal) Destroy() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return ErrDestroyed
	}

	t.destroyed = true
	t.snapshot = nil
	if err := t.store.Destroy(); err != nil {
		return fmt.Errorf("destroy line store: %w", err)
	}
	return nil
}

// Snapshot returns the snapshot published by the most recent mutating call.
// The returned value is immutable and safe to read concurrently with later
// writes.
func (t *Terminal) Snapshot() (*Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.destroyed {
		return nil, ErrDestroyed
	}
	return t.snapshot, nil
}

// takeSnapshot builds an immutable copy of the current state.
// Callers must hold the write lock.
func (t *Terminal) takeSnapshot() *Snapshot {
	lines := make([]SnapshotLine, t.buffer.Rows())
	for row := range lines {
		line := t.buffer.Line(row)
		lines[row] = SnapshotLine{
			Text:     line.Text(),
			Wrapped:  line.Wrapped,
			Segments: lineSegments(line, t.theme),
		}
	}

	cursorRow, cursorCol := t.buffer.CursorPos()

	return &Snapshot{
		Size: SnapshotSize{
			Rows: t.buffer.Rows(),
			Cols: t.buffer.Cols(),
		},
		Cursor: SnapshotCursor{
			Row:     cursorRow,
			Col:     cursorCol,
			Visible: t.buffer.CursorVisible(),
		},
		Lines:          lines,
		ScrollbackSize: t.store.Size(),
	}
}

// Rows returns the terminal height in character rows.
func (t *Terminal) Rows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

// Cols returns the terminal width in character columns.
func (t *Terminal) Cols() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cols
}

// Cell returns the cell at (row, col) and whether the coordinates are in
// bounds.
func (t *Terminal) Cell(row, col int) (Cell, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.Cell(row, col)
}

// CursorPos returns the current cursor position (0-based).
func (t *Terminal) CursorPos() (row, col int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.CursorPos()
}

// CursorVisible returns true if the cursor is currently visible.
func (t *Terminal) CursorVisible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.CursorVisible()
}

// ScrollRegion returns the current scrolling boundaries (0-based, inclusive).
func (t *Terminal) ScrollRegion() (top, bottom int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.ScrollRegion()
}

// HasMode returns true if the given mode is enabled.
func (t *Terminal) HasMode(mode Mode) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.HasMode(mode)
}

// LineContent returns the text content of a line, trimming trailing spaces.
// Returns an empty string if the line is blank or out of bounds.
func (t *Terminal) LineContent(row int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buffer.LineContent(row)
}

// String returns the visible screen content as a newline-separated string.
// Trailing empty lines are omitted. Implements fmt.Stringer.
func (t *Terminal) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lastNonEmpty := -1
	lines := make([]string, t.rows)
	for row := range lines {
		lines[row] = t.buffer.LineContent(row)
		if lines[row] != "" {
			lastNonEmpty = row
		}
	}

	if lastNonEmpty < 0 {
		return ""
	}

	result := ""
	for i, line := range lines[:lastNonEmpty+1] {
		if i > 0 {
			result += "\n"
		}
		result += line
	}

	return result
}

// ScrollbackLen returns the number of lines retained in the line store.
func (t *Terminal) ScrollbackLen() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return 0
	}
	return t.store.Size()
}

// Scrollback returns the text of all retained scrollback lines, oldest
// first. On an encrypted store the lines are decrypted on demand; a
// tampered entry fails the whole read with ErrDecryptFailed.
func (t *Terminal) Scrollback() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil, ErrDestroyed
	}
	return t.store.ReadAll()
}

// ScrollbackRange returns the text of up to count retained lines starting
// at start (0 is the oldest). Out-of-range requests are clamped.
func (t *Terminal) ScrollbackRange(start, count int) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.destroyed {
		return nil, ErrDestroyed
	}
	return t.store.ReadRange(start, count)
}

// ClearScrollback removes all retained scrollback lines.
func (t *Terminal) ClearScrollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return ErrDestroyed
	}
	if err := t.store.Clear(); err != nil {
		return err
	}
	t.snapshot = t.takeSnapshot()
	return nil
}

// LineStore returns the line store backing scrollback retention.
func (t *Terminal) LineStore() LineStore {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store
}

package secureterm

import (
	"math/rand"
	"testing"
)

func feed(b *Buffer, input string) {
	NewParser(b).Parse([]byte(input))
}

func TestBufferHelloWorld(t *testing.T) {
	b := NewBuffer(24, 80, nil)
	feed(b, "Hello\r\nWorld")

	if got := b.LineContent(0); got != "Hello" {
		t.Errorf("line 0 = %q, want %q", got, "Hello")
	}
	if got := b.LineContent(1); got != "World" {
		t.Errorf("line 1 = %q, want %q", got, "World")
	}

	row, col := b.CursorPos()
	if row != 1 || col != 5 {
		t.Errorf("cursor = (%d,%d), want (1,5)", row, col)
	}

	// Unwritten cells stay blank.
	if cell, ok := b.Cell(0, 10); !ok || cell.Char != ' ' {
		t.Errorf("cell (0,10) = %+v, want blank", cell)
	}
}

func TestBufferAutoWrap(t *testing.T) {
	b := NewBuffer(5, 4, nil)
	feed(b, "abcdef")

	if got := b.LineContent(0); got != "abcd" {
		t.Errorf("line 0 = %q, want %q", got, "abcd")
	}
	if got := b.LineContent(1); got != "ef" {
		t.Errorf("line 1 = %q, want %q", got, "ef")
	}
	if !b.Line(0).Wrapped {
		t.Error("line 0 should be marked wrapped")
	}
	if b.Line(1).Wrapped {
		t.Error("line 1 should not be marked wrapped")
	}
}

func TestBufferPendingWrap(t *testing.T) {
	b := NewBuffer(5, 4, nil)
	feed(b, "abcd")

	// The wrap is deferred: the cursor parks on the last column until the
	// next write.
	row, col := b.CursorPos()
	if row != 0 || col != 3 {
		t.Errorf("cursor = (%d,%d), want (0,3)", row, col)
	}

	// A carriage return cancels the pending wrap.
	feed(b, "\rX")
	if got := b.LineContent(0); got != "Xbcd" {
		t.Errorf("line 0 = %q, want %q", got, "Xbcd")
	}
	if row, _ := b.CursorPos(); row != 0 {
		t.Errorf("cursor row = %d, want 0", row)
	}
}

func TestBufferAutoWrapDisabled(t *testing.T) {
	b := NewBuffer(5, 4, nil)
	b.SetMode(ModeAutoWrap, false)
	feed(b, "abcdef")

	// Without auto-wrap the last column is overwritten in place.
	if got := b.LineContent(0); got != "abcf" {
		t.Errorf("line 0 = %q, want %q", got, "abcf")
	}
	if got := b.LineContent(1); got != "" {
		t.Errorf("line 1 = %q, want empty", got)
	}
}

func TestBufferWideCharacters(t *testing.T) {
	b := NewBuffer(5, 10, nil)
	feed(b, "a中b")

	if cell, _ := b.Cell(0, 1); cell.Char != '中' || cell.Width != 2 {
		t.Errorf("cell (0,1) = %+v, want wide 中", cell)
	}
	if cell, _ := b.Cell(0, 2); !cell.IsSpacer() {
		t.Errorf("cell (0,2) = %+v, want spacer", cell)
	}
	if cell, _ := b.Cell(0, 3); cell.Char != 'b' {
		t.Errorf("cell (0,3) = %+v, want b", cell)
	}
	if got := b.LineContent(0); got != "a中b" {
		t.Errorf("line 0 = %q, want %q", got, "a中b")
	}
}

func TestBufferWideCharacterWrapsEarly(t *testing.T) {
	b := NewBuffer(5, 4, nil)
	feed(b, "abc中")

	// The wide character does not fit in the last column and wraps whole.
	if got := b.LineContent(0); got != "abc" {
		t.Errorf("line 0 = %q, want %q", got, "abc")
	}
	if got := b.LineContent(1); got != "中" {
		t.Errorf("line 1 = %q, want %q", got, "中")
	}
}

func TestBufferInsertMode(t *testing.T) {
	b := NewBuffer(5, 10, nil)
	feed(b, "abc\r\x1b[4hX")

	if got := b.LineContent(0); got != "Xabc" {
		t.Errorf("line 0 = %q, want %q", got, "Xabc")
	}

	feed(b, "\x1b[4l\rY")
	if got := b.LineContent(0); got != "Yabc" {
		t.Errorf("line 0 = %q, want %q", got, "Yabc")
	}
}

func TestBufferLineFeedScrollEvicts(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(3, 10, store)
	feed(b, "one\r\ntwo\r\nthree\r\nfour")

	if got := b.LineContent(0); got != "two" {
		t.Errorf("line 0 = %q, want %q", got, "two")
	}
	if got := b.LineContent(2); got != "four" {
		t.Errorf("line 2 = %q, want %q", got, "four")
	}

	lines, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(lines) != 1 || lines[0] != "one" {
		t.Errorf("store = %v, want [one]", lines)
	}
}

func TestBufferScrollRegionLineFeed(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(5, 10, store)
	feed(b, "top\x1b[2;4r")

	// Cursor is at the region's top-left after DECSTBM.
	if row, col := b.CursorPos(); row != 1 || col != 0 {
		t.Fatalf("cursor = (%d,%d), want (1,0)", row, col)
	}

	feed(b, "a\r\nb\r\nc\r\nd")

	// Row 0 is outside the region and untouched.
	if got := b.LineContent(0); got != "top" {
		t.Errorf("line 0 = %q, want %q", got, "top")
	}
	// The region scrolled once: "a" was evicted.
	if got := b.LineContent(1); got != "b" {
		t.Errorf("line 1 = %q, want %q", got, "b")
	}
	if got := b.LineContent(3); got != "d" {
		t.Errorf("line 3 = %q, want %q", got, "d")
	}

	lines, _ := store.ReadAll()
	if len(lines) != 1 || lines[0] != "a" {
		t.Errorf("store = %v, want [a]", lines)
	}
}

func TestBufferReverseIndexDoesNotEvict(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(3, 10, store)
	feed(b, "one\r\ntwo\x1b[H\x1bM")

	// Scrolling down discards the bottom line and retains nothing.
	if got := b.LineContent(0); got != "" {
		t.Errorf("line 0 = %q, want empty", got)
	}
	if got := b.LineContent(1); got != "one" {
		t.Errorf("line 1 = %q, want %q", got, "one")
	}
	if store.Size() != 0 {
		t.Errorf("store size = %d, want 0", store.Size())
	}
}

func TestBufferScrollUpDown(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(3, 10, store)
	feed(b, "one\r\ntwo\r\nthree\x1b[S")

	if got := b.LineContent(0); got != "two" {
		t.Errorf("after CSI S line 0 = %q, want %q", got, "two")
	}
	if store.Size() != 1 {
		t.Errorf("store size = %d, want 1", store.Size())
	}

	feed(b, "\x1b[T")
	if got := b.LineContent(0); got != "" {
		t.Errorf("after CSI T line 0 = %q, want empty", got)
	}
	if got := b.LineContent(1); got != "two" {
		t.Errorf("after CSI T line 1 = %q, want %q", got, "two")
	}
	// CSI T never populates the store.
	if store.Size() != 1 {
		t.Errorf("store size = %d, want 1", store.Size())
	}
}

func TestBufferEraseInDisplay(t *testing.T) {
	b := NewBuffer(3, 5, nil)
	feed(b, "aaaaa\r\nbbbbb\r\nccccc\x1b[2;3H")

	feed(b, "\x1b[J")
	if got := b.LineContent(0); got != "aaaaa" {
		t.Errorf("ED 0 line 0 = %q, want %q", got, "aaaaa")
	}
	if got := b.LineContent(1); got != "bb" {
		t.Errorf("ED 0 line 1 = %q, want %q", got, "bb")
	}
	if got := b.LineContent(2); got != "" {
		t.Errorf("ED 0 line 2 = %q, want empty", got)
	}

	feed(b, "\x1b[1J")
	if got := b.LineContent(0); got != "" {
		t.Errorf("ED 1 line 0 = %q, want empty", got)
	}
	// ED 1 includes the cursor cell.
	if cell, _ := b.Cell(1, 2); cell.Char != ' ' {
		t.Errorf("ED 1 cursor cell = %q, want space", cell.Char)
	}
}

func TestBufferEraseWholeScreenKeepsCursor(t *testing.T) {
	b := NewBuffer(3, 5, nil)
	feed(b, "aaaaa\r\nbbbbb\x1b[2;3H\x1b[2J")

	for row := 0; row < 3; row++ {
		if got := b.LineContent(row); got != "" {
			t.Errorf("line %d = %q, want empty", row, got)
		}
	}
	if row, col := b.CursorPos(); row != 1 || col != 2 {
		t.Errorf("cursor = (%d,%d), want (1,2)", row, col)
	}
}

func TestBufferEraseScrollbackMode3(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(2, 10, store)
	feed(b, "one\r\ntwo\r\nthree")

	if store.Size() == 0 {
		t.Fatal("expected evicted lines before ED 3")
	}
	feed(b, "\x1b[3J")
	if store.Size() != 0 {
		t.Errorf("store size after ED 3 = %d, want 0", store.Size())
	}
	if got := b.LineContent(0); got != "" {
		t.Errorf("line 0 = %q, want empty", got)
	}
}

func TestBufferEraseInLine(t *testing.T) {
	b := NewBuffer(2, 5, nil)

	feed(b, "abcde\x1b[1;3H\x1b[K")
	if got := b.LineContent(0); got != "ab" {
		t.Errorf("EL 0 = %q, want %q", got, "ab")
	}

	b = NewBuffer(2, 5, nil)
	feed(b, "abcde\x1b[1;3H\x1b[1K")
	if got := b.LineContent(0); got != "   de" {
		t.Errorf("EL 1 = %q, want %q", got, "   de")
	}

	b = NewBuffer(2, 5, nil)
	feed(b, "abcde\x1b[1;3H\x1b[2K")
	if got := b.LineContent(0); got != "" {
		t.Errorf("EL 2 = %q, want empty", got)
	}
}

func TestBufferEraseUsesCurrentStyle(t *testing.T) {
	b := NewBuffer(2, 5, nil)
	feed(b, "abc\x1b[41m\x1b[2J")

	cell, _ := b.Cell(0, 0)
	if cell.Char != ' ' {
		t.Errorf("cell char = %q, want space", cell.Char)
	}
	if cell.Style.Bg != (AnsiColor{Index: 1}) {
		t.Errorf("cell bg = %v, want red", cell.Style.Bg)
	}
}

func TestBufferInsertDeleteLines(t *testing.T) {
	b := NewBuffer(4, 10, nil)
	feed(b, "one\r\ntwo\r\nthree\r\nfour\x1b[2;1H\x1b[L")

	if got := b.LineContent(1); got != "" {
		t.Errorf("after IL line 1 = %q, want empty", got)
	}
	if got := b.LineContent(2); got != "two" {
		t.Errorf("after IL line 2 = %q, want %q", got, "two")
	}
	// "four" was pushed off the bottom and discarded.
	if got := b.LineContent(3); got != "three" {
		t.Errorf("after IL line 3 = %q, want %q", got, "three")
	}

	feed(b, "\x1b[M")
	if got := b.LineContent(1); got != "two" {
		t.Errorf("after DL line 1 = %q, want %q", got, "two")
	}
	if got := b.LineContent(3); got != "" {
		t.Errorf("after DL line 3 = %q, want empty", got)
	}
}

func TestBufferInsertDeleteLinesOutsideRegion(t *testing.T) {
	b := NewBuffer(4, 10, nil)
	feed(b, "one\r\ntwo\r\nthree\r\nfour\x1b[2;3r\x1b[4;1H")

	// Cursor is below the region: IL and DL are no-ops.
	b.Goto(3, 0)
	before := b.LineContent(3)
	b.InsertLines(1)
	b.DeleteLines(1)
	if got := b.LineContent(3); got != before {
		t.Errorf("line 3 = %q, want %q", got, before)
	}
}

func TestBufferInsertDeleteChars(t *testing.T) {
	b := NewBuffer(2, 6, nil)
	feed(b, "abcdef\x1b[1;2H\x1b[2@")

	if got := b.LineContent(0); got != "a  bcd" {
		t.Errorf("after ICH = %q, want %q", got, "a  bcd")
	}

	feed(b, "\x1b[2P")
	if got := b.LineContent(0); got != "abcd" {
		t.Errorf("after DCH = %q, want %q", got, "abcd")
	}
}

func TestBufferScrollRegionInvertedIgnored(t *testing.T) {
	b := NewBuffer(10, 10, nil)
	feed(b, "\x1b[5;8r")
	if top, bottom := b.ScrollRegion(); top != 4 || bottom != 7 {
		t.Fatalf("region = (%d,%d), want (4,7)", top, bottom)
	}

	// Inverted region is ignored, previous region stays.
	feed(b, "\x1b[8;5r")
	if top, bottom := b.ScrollRegion(); top != 4 || bottom != 7 {
		t.Errorf("region = (%d,%d), want (4,7)", top, bottom)
	}
}

func TestBufferOriginMode(t *testing.T) {
	b := NewBuffer(10, 10, nil)
	feed(b, "\x1b[3;8r\x1b[?6h")

	// Origin mode homes the cursor to the region top.
	if row, col := b.CursorPos(); row != 2 || col != 0 {
		t.Fatalf("cursor = (%d,%d), want (2,0)", row, col)
	}

	// Addressing is region-relative and confined to the region.
	feed(b, "\x1b[2;4H")
	if row, col := b.CursorPos(); row != 3 || col != 3 {
		t.Errorf("cursor = (%d,%d), want (3,3)", row, col)
	}
	feed(b, "\x1b[99;1H")
	if row, _ := b.CursorPos(); row != 7 {
		t.Errorf("cursor row = %d, want region bottom 7", row)
	}

	// Disabling origin mode homes to the grid origin.
	feed(b, "\x1b[?6l")
	if row, col := b.CursorPos(); row != 0 || col != 0 {
		t.Errorf("cursor = (%d,%d), want (0,0)", row, col)
	}
}

func TestBufferSaveRestoreCursor(t *testing.T) {
	b := NewBuffer(10, 10, nil)
	feed(b, "\x1b[3;4H\x1b[1m\x1b7\x1b[8;8H\x1b[0m\x1b8")

	if row, col := b.CursorPos(); row != 2 || col != 3 {
		t.Errorf("cursor = (%d,%d), want (2,3)", row, col)
	}
	if !b.Style().HasFlag(StyleFlagBold) {
		t.Error("restored style should be bold")
	}

	// Restore without a save homes the cursor with default style.
	b2 := NewBuffer(10, 10, nil)
	feed(b2, "\x1b[5;5H\x1b8")
	if row, col := b2.CursorPos(); row != 0 || col != 0 {
		t.Errorf("cursor = (%d,%d), want (0,0)", row, col)
	}
}

func TestBufferTabStops(t *testing.T) {
	b := NewBuffer(2, 40, nil)
	feed(b, "\t")
	if _, col := b.CursorPos(); col != 8 {
		t.Errorf("cursor col = %d, want 8", col)
	}

	// HTS sets a custom stop; TBC 0 clears it again.
	feed(b, "\x1b[1;13H\x1bH\r\t")
	if _, col := b.CursorPos(); col != 8 {
		t.Errorf("cursor col = %d, want 8", col)
	}
	feed(b, "\t")
	if _, col := b.CursorPos(); col != 12 {
		t.Errorf("cursor col = %d, want custom stop 12", col)
	}

	// TBC 3 clears everything; Tab then jumps to the last column.
	feed(b, "\x1b[3g\r\t")
	if _, col := b.CursorPos(); col != 39 {
		t.Errorf("cursor col = %d, want 39", col)
	}
}

func TestBufferAlign(t *testing.T) {
	b := NewBuffer(3, 4, nil)
	feed(b, "\x1b#8")
	for row := 0; row < 3; row++ {
		if got := b.LineContent(row); got != "EEEE" {
			t.Errorf("line %d = %q, want EEEE", row, got)
		}
	}
}

func TestBufferReset(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(3, 10, store)
	feed(b, "one\r\ntwo\r\nthree\r\nfour\x1b[1m\x1b[2;5r\x1b[?6h\x1bc")

	if got := b.LineContent(0); got != "" {
		t.Errorf("line 0 = %q, want empty", got)
	}
	if row, col := b.CursorPos(); row != 0 || col != 0 {
		t.Errorf("cursor = (%d,%d), want (0,0)", row, col)
	}
	if top, bottom := b.ScrollRegion(); top != 0 || bottom != 2 {
		t.Errorf("region = (%d,%d), want (0,2)", top, bottom)
	}
	if b.HasMode(ModeOrigin) {
		t.Error("origin mode should be reset")
	}
	if b.Style() != NewStyle() {
		t.Errorf("style = %+v, want default", b.Style())
	}
	if store.Size() != 0 {
		t.Errorf("store size = %d, want 0", store.Size())
	}
}

func TestBufferResizeShrinkEvictsOldestFirst(t *testing.T) {
	store := NewMemoryLineStore(DefaultRetentionPolicy())
	b := NewBuffer(5, 10, store)
	feed(b, "one\r\ntwo\r\nthree\r\nfour\r\nfive")

	b.Resize(3, 10)

	if b.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", b.Rows())
	}
	lines, _ := store.ReadAll()
	want := []string{"one", "two"}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("store = %v, want %v", lines, want)
	}
	if got := b.LineContent(0); got != "three" {
		t.Errorf("line 0 = %q, want %q", got, "three")
	}
	// Cursor followed its line upward.
	if row, _ := b.CursorPos(); row != 2 {
		t.Errorf("cursor row = %d, want 2", row)
	}
}

func TestBufferResizeGrowAndColumns(t *testing.T) {
	b := NewBuffer(2, 4, nil)
	feed(b, "abcd\r\nef")

	b.Resize(4, 6)
	if b.Rows() != 4 || b.Cols() != 6 {
		t.Fatalf("size = %dx%d, want 4x6", b.Rows(), b.Cols())
	}
	if got := b.LineContent(0); got != "abcd" {
		t.Errorf("line 0 = %q, want %q", got, "abcd")
	}
	for row := 0; row < 4; row++ {
		if got := len(b.Line(row).Cells); got != 6 {
			t.Errorf("line %d has %d cells, want 6", row, got)
		}
	}

	b.Resize(4, 3)
	if got := b.LineContent(0); got != "abc" {
		t.Errorf("truncated line 0 = %q, want %q", got, "abc")
	}

	// Resize resets the scroll region to the full grid.
	if top, bottom := b.ScrollRegion(); top != 0 || bottom != 3 {
		t.Errorf("region = (%d,%d), want (0,3)", top, bottom)
	}
}

// TestBufferInvariants drives random operation sequences and checks the
// structural invariants after every step: the grid stays rows x cols, the
// cursor stays in bounds, and the scroll region stays ordered.
func TestBufferInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := NewMemoryLineStore(RetentionPolicy{MaxLines: 100})
	b := NewBuffer(24, 80, store)

	check := func(step, op int) {
		t.Helper()
		rows, cols := b.Rows(), b.Cols()
		lines := 0
		for row := 0; row < rows; row++ {
			if got := len(b.Line(row).Cells); got != cols {
				t.Fatalf("step %d op %d: line %d has %d cells, want %d", step, op, row, got, cols)
			}
			lines++
		}
		if lines != rows {
			t.Fatalf("step %d op %d: %d lines, want %d", step, op, lines, rows)
		}
		row, col := b.CursorPos()
		if row < 0 || row >= rows || col < 0 || col >= cols {
			t.Fatalf("step %d op %d: cursor (%d,%d) out of %dx%d", step, op, row, col, rows, cols)
		}
		top, bottom := b.ScrollRegion()
		if top < 0 || top > bottom || bottom >= rows {
			t.Fatalf("step %d op %d: region (%d,%d) invalid for %d rows", step, op, top, bottom, rows)
		}
	}

	runes := []rune{'a', 'Z', '9', ' ', '中', '日', 'é'}

	for step := 0; step < 5000; step++ {
		op := rng.Intn(20)
		switch op {
		case 0:
			b.Input(runes[rng.Intn(len(runes))])
		case 1:
			b.LineFeed()
		case 2:
			b.CarriageReturn()
		case 3:
			b.MoveUp(rng.Intn(30))
		case 4:
			b.MoveDown(rng.Intn(30))
		case 5:
			b.MoveForward(rng.Intn(100))
		case 6:
			b.MoveBackward(rng.Intn(100))
		case 7:
			b.Goto(rng.Intn(40)-5, rng.Intn(100)-5)
		case 8:
			b.EraseInDisplay(rng.Intn(4))
		case 9:
			b.EraseInLine(rng.Intn(3))
		case 10:
			b.InsertLines(rng.Intn(5))
		case 11:
			b.DeleteLines(rng.Intn(5))
		case 12:
			b.InsertBlanks(rng.Intn(10))
		case 13:
			b.DeleteChars(rng.Intn(10))
		case 14:
			b.ScrollUp(rng.Intn(5))
		case 15:
			b.ScrollDown(rng.Intn(5))
		case 16:
			b.SetScrollRegion(rng.Intn(30)-2, rng.Intn(30)-2)
		case 17:
			b.SetMode(Mode(rng.Intn(5)), rng.Intn(2) == 0)
		case 18:
			b.ReverseIndex()
		case 19:
			b.Resize(1+rng.Intn(40), 1+rng.Intn(120))
		}
		check(step, op)
	}
}

package secureterm

// Position identifies a cell location in the grid (0-based).
type Position struct {
	Row int
	Col int
}

// savedCursor is the single DECSC slot: position and style only.
// A second save overwrites the first; there is no stack.
type savedCursor struct {
	row   int
	col   int
	style Style
}

// Buffer is the active character grid: rows x cols of styled cells, the
// cursor, the scroll region, and the terminal modes. It implements Handler,
// so the parser drives it directly. Lines evicted by upward scrolling or by
// shrinking resizes are appended to the injected LineStore.
//
// Buffer performs no locking; the Terminal facade serializes access.
type Buffer struct {
	rows  int
	cols  int
	lines []Line
	store LineStore

	cursor      Position
	pendingWrap bool
	saved       *savedCursor

	// Scroll region rows, both inclusive: 0 <= top <= bottom < rows.
	scrollTop    int
	scrollBottom int

	originMode    bool
	autoWrap      bool
	insertMode    bool
	cursorVisible bool
	keypadApp     bool

	style    Style
	tabStops []bool
}

var _ Handler = (*Buffer)(nil)

// NewBuffer creates a buffer with the given dimensions, evicting scrolled-off
// lines into store. Dimensions below 1 are raised to 1. Tab stops are
// initialized every 8 columns.
func NewBuffer(rows, cols int, store LineStore) *Buffer {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if store == nil {
		store = NoopLineStore{}
	}

	b := &Buffer{
		rows:  rows,
		cols:  cols,
		store: store,
	}
	b.initState()
	return b
}

// initState puts every piece of buffer state back to its power-on value.
func (b *Buffer) initState() {
	b.lines = make([]Line, b.rows)
	for i := range b.lines {
		b.lines[i] = newLine(b.cols)
	}
	b.cursor = Position{}
	b.pendingWrap = false
	b.saved = nil
	b.scrollTop = 0
	b.scrollBottom = b.rows - 1
	b.originMode = false
	b.autoWrap = true
	b.insertMode = false
	b.cursorVisible = true
	b.keypadApp = false
	b.style = NewStyle()
	b.tabStops = defaultTabStops(b.cols)
}

func defaultTabStops(cols int) []bool {
	stops := make([]bool, cols)
	for i := 0; i < cols; i += 8 {
		stops[i] = true
	}
	return stops
}

// Rows returns the grid height.
func (b *Buffer) Rows() int { return b.rows }

// Cols returns the grid width.
func (b *Buffer) Cols() int { return b.cols }

// CursorPos returns the cursor position.
func (b *Buffer) CursorPos() (row, col int) { return b.cursor.Row, b.cursor.Col }

// CursorVisible returns whether the cursor is visible (DECTCEM).
func (b *Buffer) CursorVisible() bool { return b.cursorVisible }

// ScrollRegion returns the scroll region rows, both inclusive.
func (b *Buffer) ScrollRegion() (top, bottom int) { return b.scrollTop, b.scrollBottom }

// Style returns the style applied to subsequently written characters.
func (b *Buffer) Style() Style { return b.style }

// Cell returns a copy of the cell at (row, col), and false when out of bounds.
func (b *Buffer) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return Cell{}, false
	}
	return b.lines[row].Cells[col], true
}

// Line returns a deep copy of the row, or an empty Line when out of bounds.
func (b *Buffer) Line(row int) Line {
	if row < 0 || row >= b.rows {
		return Line{}
	}
	return b.lines[row].Clone()
}

// LineContent returns the text of a row, trailing spaces trimmed.
func (b *Buffer) LineContent(row int) string {
	if row < 0 || row >= b.rows {
		return ""
	}
	return b.lines[row].Text()
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// --- Printable input ---

// Input writes one printable character at the cursor, honoring auto-wrap,
// insert mode, and wide-character widths. The wrap triggered by writing past
// the last column is deferred until the next write (pending-wrap semantics),
// so the cursor itself never leaves the grid.
func (b *Buffer) Input(r rune) {
	w := runeWidth(r)
	if w == 0 {
		// Zero-width characters (combining marks) are not modeled.
		return
	}

	if b.pendingWrap || (w == 2 && b.cursor.Col == b.cols-1) {
		if b.autoWrap {
			b.lines[b.cursor.Row].Wrapped = true
			b.cursor.Col = 0
			b.advanceRow()
		} else if w == 2 {
			// A wide character cannot straddle the last column; degrade to
			// a single cell.
			w = 1
		}
		b.pendingWrap = false
	}

	if b.insertMode {
		b.InsertBlanks(w)
	}

	row, col := b.cursor.Row, b.cursor.Col
	b.lines[row].Cells[col] = Cell{Char: r, Style: b.style, Width: w}
	if w == 2 && col+1 < b.cols {
		b.lines[row].Cells[col+1] = Cell{Char: 0, Style: b.style, Width: 0}
	}

	next := col + w
	if next > b.cols-1 {
		b.cursor.Col = b.cols - 1
		if b.autoWrap {
			b.pendingWrap = true
		}
	} else {
		b.cursor.Col = next
	}
}

// advanceRow moves the cursor down one row, scrolling the region when the
// cursor sits on its bottom boundary.
func (b *Buffer) advanceRow() {
	if b.cursor.Row == b.scrollBottom {
		b.scrollRegionUp(b.scrollTop, b.scrollBottom, 1, true)
	} else if b.cursor.Row < b.rows-1 {
		b.cursor.Row++
	}
}

// --- C0 controls ---

// LineFeed moves the cursor down one row, scrolling the region (and evicting
// its top line to the line store) when the cursor is at the region bottom.
func (b *Buffer) LineFeed() {
	b.pendingWrap = false
	b.advanceRow()
}

// CarriageReturn moves the cursor to column 0.
func (b *Buffer) CarriageReturn() {
	b.pendingWrap = false
	b.cursor.Col = 0
}

// Backspace moves the cursor one column left, stopping at column 0.
func (b *Buffer) Backspace() {
	b.pendingWrap = false
	if b.cursor.Col > 0 {
		b.cursor.Col--
	}
}

// Tab moves the cursor to the next tab stop, or the last column.
func (b *Buffer) Tab() {
	b.pendingWrap = false
	for c := b.cursor.Col + 1; c < b.cols; c++ {
		if b.tabStops[c] {
			b.cursor.Col = c
			return
		}
	}
	b.cursor.Col = b.cols - 1
}

// Bell is a no-op: audible/visual bells belong to the consumer.
func (b *Buffer) Bell() {}

// --- Escape functions ---

// Index (ESC D) moves the cursor down like a line feed without changing the
// column.
func (b *Buffer) Index() {
	b.LineFeed()
}

// NextLine (ESC E) is carriage return plus line feed.
func (b *Buffer) NextLine() {
	b.CarriageReturn()
	b.LineFeed()
}

// ReverseIndex (ESC M) moves the cursor up, scrolling the region down when
// the cursor is at the region top. Downward scrolling discards the bottom
// region line and never populates the line store.
func (b *Buffer) ReverseIndex() {
	b.pendingWrap = false
	if b.cursor.Row == b.scrollTop {
		b.scrollRegionDown(b.scrollTop, b.scrollBottom, 1)
	} else if b.cursor.Row > 0 {
		b.cursor.Row--
	}
}

// SaveCursor records the cursor position and current style in the single
// save slot, overwriting any previous save.
func (b *Buffer) SaveCursor() {
	b.saved = &savedCursor{
		row:   b.cursor.Row,
		col:   b.cursor.Col,
		style: b.style,
	}
}

// RestoreCursor restores the saved cursor and style, clamped to the current
// grid. Without a prior save the cursor homes with the default style.
func (b *Buffer) RestoreCursor() {
	b.pendingWrap = false
	if b.saved == nil {
		b.cursor = Position{}
		b.style = NewStyle()
		return
	}
	b.cursor.Row = clamp(b.saved.row, 0, b.rows-1)
	b.cursor.Col = clamp(b.saved.col, 0, b.cols-1)
	b.style = b.saved.style
}

// Reset reinitializes the grid, cursor, style, scroll region, modes, and tab
// stops, and clears the line store (RIS).
func (b *Buffer) Reset() {
	b.initState()
	_ = b.store.Clear()
}

// Align fills the whole grid with 'E' (DECALN alignment pattern).
func (b *Buffer) Align() {
	for row := range b.lines {
		for col := range b.lines[row].Cells {
			b.lines[row].Cells[col] = Cell{Char: 'E', Style: NewStyle(), Width: 1}
		}
		b.lines[row].Wrapped = false
	}
}

// HorizontalTabSet sets a tab stop at the cursor column (HTS).
func (b *Buffer) HorizontalTabSet() {
	b.tabStops[b.cursor.Col] = true
}

// ClearTabStops clears the tab stop at the cursor (mode 0) or all tab stops
// (mode 3). Other modes are ignored.
func (b *Buffer) ClearTabStops(mode int) {
	switch mode {
	case 0:
		b.tabStops[b.cursor.Col] = false
	case 3:
		for i := range b.tabStops {
			b.tabStops[i] = false
		}
	}
}

// --- Cursor motion ---

// upperLimit is the topmost row the cursor may reach by relative motion.
func (b *Buffer) upperLimit() int {
	if b.originMode {
		return b.scrollTop
	}
	return 0
}

// lowerLimit is the bottommost row the cursor may reach by relative motion.
func (b *Buffer) lowerLimit() int {
	if b.originMode {
		return b.scrollBottom
	}
	return b.rows - 1
}

// MoveUp moves the cursor up by n rows, clamped to the scroll region top in
// origin mode, otherwise to the grid top.
func (b *Buffer) MoveUp(n int) {
	b.pendingWrap = false
	b.cursor.Row = clamp(b.cursor.Row-n, b.upperLimit(), b.rows-1)
}

// MoveDown moves the cursor down by n rows, clamped symmetrically to MoveUp.
func (b *Buffer) MoveDown(n int) {
	b.pendingWrap = false
	b.cursor.Row = clamp(b.cursor.Row+n, 0, b.lowerLimit())
}

// MoveForward moves the cursor right by n columns, stopping at the last.
func (b *Buffer) MoveForward(n int) {
	b.pendingWrap = false
	b.cursor.Col = clamp(b.cursor.Col+n, 0, b.cols-1)
}

// MoveBackward moves the cursor left by n columns, stopping at column 0.
func (b *Buffer) MoveBackward(n int) {
	b.pendingWrap = false
	b.cursor.Col = clamp(b.cursor.Col-n, 0, b.cols-1)
}

// MoveDownCr moves down n rows and returns to column 0 (CNL).
func (b *Buffer) MoveDownCr(n int) {
	b.MoveDown(n)
	b.cursor.Col = 0
}

// MoveUpCr moves up n rows and returns to column 0 (CPL).
func (b *Buffer) MoveUpCr(n int) {
	b.MoveUp(n)
	b.cursor.Col = 0
}

// GotoCol moves the cursor to an absolute column, clamped to the grid.
func (b *Buffer) GotoCol(col int) {
	b.pendingWrap = false
	b.cursor.Col = clamp(col, 0, b.cols-1)
}

// GotoRow moves the cursor to an absolute row. In origin mode the row is
// relative to the scroll region top and clamped to the region.
func (b *Buffer) GotoRow(row int) {
	b.pendingWrap = false
	if b.originMode {
		b.cursor.Row = clamp(row+b.scrollTop, b.scrollTop, b.scrollBottom)
	} else {
		b.cursor.Row = clamp(row, 0, b.rows-1)
	}
}

// Goto moves the cursor to an absolute position (CUP). Origin mode makes the
// row relative to the scroll region top and confines it to the region.
func (b *Buffer) Goto(row, col int) {
	b.GotoRow(row)
	b.cursor.Col = clamp(col, 0, b.cols-1)
}

// --- Erasure ---

// EraseInDisplay erases screen regions relative to the cursor (ED).
// Mode 0 erases cursor to end, 1 start to cursor, 2 the whole screen, and 3
// the whole screen plus the line store. The cursor does not move; erased
// cells take the current style's blank.
func (b *Buffer) EraseInDisplay(mode int) {
	switch mode {
	case 0:
		b.eraseLineRange(b.cursor.Row, b.cursor.Col, b.cols)
		for row := b.cursor.Row + 1; row < b.rows; row++ {
			b.eraseLineRange(row, 0, b.cols)
		}
	case 1:
		for row := 0; row < b.cursor.Row; row++ {
			b.eraseLineRange(row, 0, b.cols)
		}
		b.eraseLineRange(b.cursor.Row, 0, b.cursor.Col+1)
	case 2:
		for row := 0; row < b.rows; row++ {
			b.eraseLineRange(row, 0, b.cols)
		}
	case 3:
		for row := 0; row < b.rows; row++ {
			b.eraseLineRange(row, 0, b.cols)
		}
		_ = b.store.Clear()
	}
}

// EraseInLine erases within the cursor row (EL) with the same 0/1/2
// convention as EraseInDisplay.
func (b *Buffer) EraseInLine(mode int) {
	switch mode {
	case 0:
		b.eraseLineRange(b.cursor.Row, b.cursor.Col, b.cols)
	case 1:
		b.eraseLineRange(b.cursor.Row, 0, b.cursor.Col+1)
	case 2:
		b.eraseLineRange(b.cursor.Row, 0, b.cols)
	}
}

// eraseLineRange blanks [startCol, endCol) of a row with the current style.
func (b *Buffer) eraseLineRange(row, startCol, endCol int) {
	if row < 0 || row >= b.rows {
		return
	}
	startCol = clamp(startCol, 0, b.cols)
	endCol = clamp(endCol, 0, b.cols)
	for col := startCol; col < endCol; col++ {
		b.lines[row].Cells[col] = blankCell(b.style)
	}
	if startCol == 0 && endCol == b.cols {
		b.lines[row].Wrapped = false
	}
}

// --- Line and character editing ---

// InsertLines inserts n blank lines at the cursor row, shifting rows down
// within the scroll region (IL). A no-op when the cursor is outside the
// region. Lines pushed past the region bottom are discarded.
func (b *Buffer) InsertLines(n int) {
	if b.cursor.Row < b.scrollTop || b.cursor.Row > b.scrollBottom {
		return
	}
	b.scrollRegionDown(b.cursor.Row, b.scrollBottom, n)
}

// DeleteLines removes n lines at the cursor row, shifting rows up within the
// scroll region (DL). Removed lines are discarded, not retained.
func (b *Buffer) DeleteLines(n int) {
	if b.cursor.Row < b.scrollTop || b.cursor.Row > b.scrollBottom {
		return
	}
	b.scrollRegionUp(b.cursor.Row, b.scrollBottom, n, false)
}

// InsertBlanks inserts n blank cells at the cursor, shifting the remainder of
// the line right (ICH). Cells shifted past the last column are lost.
func (b *Buffer) InsertBlanks(n int) {
	row, col := b.cursor.Row, b.cursor.Col
	n = clamp(n, 0, b.cols-col)
	if n == 0 {
		return
	}
	cells := b.lines[row].Cells
	for c := b.cols - 1; c >= col+n; c-- {
		cells[c] = cells[c-n]
	}
	for c := col; c < col+n; c++ {
		cells[c] = blankCell(b.style)
	}
}

// DeleteChars removes n cells at the cursor, shifting the remainder of the
// line left and blanking the tail (DCH).
func (b *Buffer) DeleteChars(n int) {
	row, col := b.cursor.Row, b.cursor.Col
	n = clamp(n, 0, b.cols-col)
	if n == 0 {
		return
	}
	cells := b.lines[row].Cells
	for c := col; c < b.cols-n; c++ {
		cells[c] = cells[c+n]
	}
	for c := b.cols - n; c < b.cols; c++ {
		cells[c] = blankCell(b.style)
	}
}

// --- Scrolling ---

// ScrollUp scrolls the whole screen up by n lines (CSI S), evicting the
// displaced top lines to the line store.
func (b *Buffer) ScrollUp(n int) {
	b.scrollRegionUp(0, b.rows-1, n, true)
}

// ScrollDown scrolls the whole screen down by n lines (CSI T). The displaced
// bottom lines are discarded.
func (b *Buffer) ScrollDown(n int) {
	b.scrollRegionDown(0, b.rows-1, n)
}

// scrollRegionUp shifts rows [top, bottom] up by n, synthesizing blank lines
// at the bottom. When evict is set, displaced top lines go to the line store
// oldest-first; this is the only path that populates the store besides
// shrinking resizes.
func (b *Buffer) scrollRegionUp(top, bottom, n int, evict bool) {
	if n <= 0 || top > bottom {
		return
	}
	span := bottom - top + 1
	if n > span {
		n = span
	}

	if evict {
		for i := 0; i < n; i++ {
			_ = b.store.Append(b.lines[top+i].Clone())
		}
	}

	for row := top; row <= bottom-n; row++ {
		b.lines[row] = b.lines[row+n]
	}
	for row := bottom - n + 1; row <= bottom; row++ {
		b.lines[row] = newLine(b.cols)
	}
}

// scrollRegionDown shifts rows [top, bottom] down by n, synthesizing blank
// lines at the top. Displaced bottom lines are discarded: content scrolled
// downward was never lost off-screen, so it does not enter the store.
func (b *Buffer) scrollRegionDown(top, bottom, n int) {
	if n <= 0 || top > bottom {
		return
	}
	span := bottom - top + 1
	if n > span {
		n = span
	}

	for row := bottom; row >= top+n; row-- {
		b.lines[row] = b.lines[row-n]
	}
	for row := top; row < top+n; row++ {
		b.lines[row] = newLine(b.cols)
	}
}

// SetScrollRegion sets the scroll region (DECSTBM). A negative or
// out-of-range bottom selects the last row. An inverted region is ignored.
// The cursor resets to the region's top-left.
func (b *Buffer) SetScrollRegion(top, bottom int) {
	if bottom < 0 || bottom >= b.rows {
		bottom = b.rows - 1
	}
	top = clamp(top, 0, b.rows-1)
	if top > bottom {
		return
	}
	b.scrollTop = top
	b.scrollBottom = bottom
	b.pendingWrap = false
	b.cursor = Position{Row: top, Col: 0}
}

// --- Style ---

// ResetStyle returns the current style to the default (SGR 0).
func (b *Buffer) ResetStyle() { b.style = NewStyle() }

// SetAttribute enables a text attribute on the current style.
func (b *Buffer) SetAttribute(flag StyleFlags) { b.style = b.style.WithFlag(flag) }

// ClearAttribute disables a text attribute on the current style.
func (b *Buffer) ClearAttribute(flag StyleFlags) { b.style = b.style.WithoutFlag(flag) }

// SetForeground sets the current foreground color.
func (b *Buffer) SetForeground(c Color) { b.style.Fg = c }

// SetBackground sets the current background color.
func (b *Buffer) SetBackground(c Color) { b.style.Bg = c }

// --- Modes ---

// SetMode toggles a terminal mode. Enabling or disabling origin mode homes
// the cursor to the addressing origin, per DECOM.
func (b *Buffer) SetMode(mode Mode, enabled bool) {
	switch mode {
	case ModeOrigin:
		b.originMode = enabled
		b.pendingWrap = false
		b.cursor = Position{Row: b.upperLimit(), Col: 0}
	case ModeAutoWrap:
		b.autoWrap = enabled
		if !enabled {
			b.pendingWrap = false
		}
	case ModeInsert:
		b.insertMode = enabled
	case ModeCursorVisible:
		b.cursorVisible = enabled
	case ModeKeypadApplication:
		b.keypadApp = enabled
	}
}

// HasMode reports whether the given mode is enabled.
func (b *Buffer) HasMode(mode Mode) bool {
	switch mode {
	case ModeOrigin:
		return b.originMode
	case ModeAutoWrap:
		return b.autoWrap
	case ModeInsert:
		return b.insertMode
	case ModeCursorVisible:
		return b.cursorVisible
	case ModeKeypadApplication:
		return b.keypadApp
	default:
		return false
	}
}

// --- Resize ---

// Resize changes the grid dimensions. Shrinking rows evicts exactly the
// excess lines from the top into the line store, oldest-first; growing
// appends blank lines at the bottom. Columns are truncated or padded with
// blank cells per line. The scroll region resets to the full grid and the
// cursor is re-clamped. Dimensions below 1 are raised to 1.
func (b *Buffer) Resize(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}

	// Rows first: evict from the top when shrinking.
	if rows < b.rows {
		excess := b.rows - rows
		for i := 0; i < excess; i++ {
			_ = b.store.Append(b.lines[i].Clone())
		}
		b.lines = b.lines[excess:]
		b.cursor.Row = clamp(b.cursor.Row-excess, 0, rows-1)
	} else if rows > b.rows {
		for i := b.rows; i < rows; i++ {
			b.lines = append(b.lines, newLine(cols))
		}
	}
	b.rows = rows

	// Columns: truncate or pad each remaining line.
	if cols != b.cols {
		for i := range b.lines {
			line := &b.lines[i]
			if len(line.Cells) > cols {
				line.Cells = line.Cells[:cols]
			} else {
				for len(line.Cells) < cols {
					line.Cells = append(line.Cells, NewCell())
				}
			}
		}

		newStops := defaultTabStops(cols)
		copy(newStops, b.tabStops[:min(len(b.tabStops), cols)])
		b.tabStops = newStops
		b.cols = cols
	}

	b.scrollTop = 0
	b.scrollBottom = b.rows - 1
	b.cursor.Row = clamp(b.cursor.Row, 0, b.rows-1)
	b.cursor.Col = clamp(b.cursor.Col, 0, b.cols-1)
	b.pendingWrap = false
}

package secureterm

// StyleFlags is a bitmask of text rendering attributes.
type StyleFlags uint16

const (
	StyleFlagBold StyleFlags = 1 << iota
	StyleFlagDim
	StyleFlagItalic
	StyleFlagUnderline
	StyleFlagBlink
	StyleFlagInverse
	StyleFlagHidden
	StyleFlagStrikethrough
)

// Style holds the colors and attributes applied to written characters.
// Value type, compared by equality.
type Style struct {
	Fg    Color
	Bg    Color
	Flags StyleFlags
}

// NewStyle returns the default style: default color pair, no attributes.
func NewStyle() Style {
	return Style{
		Fg: DefaultColor{},
		Bg: DefaultColor{},
	}
}

// HasFlag returns true if the specified attribute flag is set.
func (s Style) HasFlag(flag StyleFlags) bool {
	return s.Flags&flag != 0
}

// WithFlag returns a copy of the style with the flag enabled.
func (s Style) WithFlag(flag StyleFlags) Style {
	s.Flags |= flag
	return s
}

// WithoutFlag returns a copy of the style with the flag disabled.
func (s Style) WithoutFlag(flag StyleFlags) Style {
	s.Flags &^= flag
	return s
}

// Cell stores the character, style, and display width for one grid position.
// Wide characters (2 columns) use a zero-width spacer cell in the second
// position.
type Cell struct {
	Char  rune
	Style Style
	Width int // 1 for normal, 2 for wide, 0 for the spacer after a wide char
}

// NewCell creates a cell initialized with a space character and default style.
func NewCell() Cell {
	return Cell{
		Char:  ' ',
		Style: NewStyle(),
		Width: 1,
	}
}

// blankCell returns a cell erased to the given style, as produced by erase
// and scroll operations.
func blankCell(style Style) Cell {
	return Cell{
		Char:  ' ',
		Style: style,
		Width: 1,
	}
}

// IsSpacer returns true if this is the placeholder cell occupying the second
// column of a wide character.
func (c Cell) IsSpacer() bool {
	return c.Width == 0
}

// Line is one row of the grid: exactly the buffer's column count of cells,
// plus a flag recording whether the row continues onto the next because of
// auto-wrap rather than an explicit newline.
type Line struct {
	Cells   []Cell
	Wrapped bool
}

// newLine creates a blank line of the given width.
func newLine(cols int) Line {
	cells := make([]Cell, cols)
	for i := range cells {
		cells[i] = NewCell()
	}
	return Line{Cells: cells}
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	cells := make([]Cell, len(l.Cells))
	copy(cells, l.Cells)
	return Line{Cells: cells, Wrapped: l.Wrapped}
}

// Text flattens the line to a string, trimming trailing spaces.
// Spacer cells are skipped so wide characters appear once.
func (l Line) Text() string {
	lastNonSpace := -1
	for col := len(l.Cells) - 1; col >= 0; col-- {
		cell := l.Cells[col]
		if cell.Char != ' ' && cell.Char != 0 && !cell.IsSpacer() {
			lastNonSpace = col
			break
		}
	}

	if lastNonSpace < 0 {
		return ""
	}

	runes := make([]rune, 0, lastNonSpace+1)
	for _, cell := range l.Cells[:lastNonSpace+1] {
		if cell.IsSpacer() {
			continue
		}
		if cell.Char == 0 {
			runes = append(runes, ' ')
		} else {
			runes = append(runes, cell.Char)
		}
	}

	return string(runes)
}

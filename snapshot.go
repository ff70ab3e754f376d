package secureterm

import "fmt"

// Snapshot is an immutable, point-in-time copy of the rendering-relevant
// terminal state. It is recomputed after every mutating call and shares no
// memory with the live buffer, so it may be read concurrently with later
// mutations.
type Snapshot struct {
	Size           SnapshotSize   `json:"size"`
	Cursor         SnapshotCursor `json:"cursor"`
	Lines          []SnapshotLine `json:"lines"`
	ScrollbackSize int            `json:"scrollback_size"`
}

// SnapshotSize holds terminal dimensions.
type SnapshotSize struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// SnapshotCursor holds cursor state.
type SnapshotCursor struct {
	Row     int  `json:"row"`
	Col     int  `json:"col"`
	Visible bool `json:"visible"`
}

// SnapshotLine is a single grid row: its text (trailing spaces trimmed),
// whether it soft-wrapped onto the next row, and its styled segments.
type SnapshotLine struct {
	Text     string            `json:"text"`
	Wrapped  bool              `json:"wrapped,omitempty"`
	Segments []SnapshotSegment `json:"segments,omitempty"`
}

// SnapshotSegment is a run of consecutive cells sharing one style.
type SnapshotSegment struct {
	Text  string        `json:"text"`
	Fg    string        `json:"fg,omitempty"`
	Bg    string        `json:"bg,omitempty"`
	Attrs SnapshotAttrs `json:"attrs,omitempty"`
}

// SnapshotAttrs holds text formatting attributes.
type SnapshotAttrs struct {
	Bold          bool `json:"bold,omitempty"`
	Dim           bool `json:"dim,omitempty"`
	Italic        bool `json:"italic,omitempty"`
	Underline     bool `json:"underline,omitempty"`
	Blink         bool `json:"blink,omitempty"`
	Inverse       bool `json:"inverse,omitempty"`
	Hidden        bool `json:"hidden,omitempty"`
	Strikethrough bool `json:"strikethrough,omitempty"`
}

// colorToHex resolves a Color against the theme and formats it as #rrggbb.
func colorToHex(c Color, theme *Theme, fg bool) string {
	rgba := ResolveColor(c, theme, fg)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

func styleAttrs(s Style) SnapshotAttrs {
	return SnapshotAttrs{
		Bold:          s.HasFlag(StyleFlagBold),
		Dim:           s.HasFlag(StyleFlagDim),
		Italic:        s.HasFlag(StyleFlagItalic),
		Underline:     s.HasFlag(StyleFlagUnderline),
		Blink:         s.HasFlag(StyleFlagBlink),
		Inverse:       s.HasFlag(StyleFlagInverse),
		Hidden:        s.HasFlag(StyleFlagHidden),
		Strikethrough: s.HasFlag(StyleFlagStrikethrough),
	}
}

// lineSegments converts a row to styled segments (runs of the same style).
func lineSegments(line Line, theme *Theme) []SnapshotSegment {
	var segments []SnapshotSegment
	var current *SnapshotSegment
	var currentChars []rune

	for _, cell := range line.Cells {
		if cell.IsSpacer() {
			continue
		}

		fg := colorToHex(cell.Style.Fg, theme, true)
		bg := colorToHex(cell.Style.Bg, theme, false)
		attrs := styleAttrs(cell.Style)

		if current == nil || current.Fg != fg || current.Bg != bg || current.Attrs != attrs {
			if current != nil && len(currentChars) > 0 {
				current.Text = string(currentChars)
				segments = append(segments, *current)
			}
			current = &SnapshotSegment{Fg: fg, Bg: bg, Attrs: attrs}
			currentChars = nil
		}

		ch := cell.Char
		if ch == 0 {
			ch = ' '
		}
		currentChars = append(currentChars, ch)
	}

	if current != nil && len(currentChars) > 0 {
		current.Text = string(currentChars)
		segments = append(segments, *current)
	}

	return segments
}

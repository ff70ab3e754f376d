package secureterm

import (
	"encoding/json"
	"testing"
)

func TestLineSegmentsMergesRuns(t *testing.T) {
	term := New(WithSize(2, 20))
	term.WriteString("ab\x1b[31mcd\x1b[0me")

	snap, _ := term.Snapshot()
	segs := snap.Lines[0].Segments
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(segs), segs)
	}
	if segs[0].Text != "ab" {
		t.Errorf("segment 0 = %q, want %q", segs[0].Text, "ab")
	}
	if segs[1].Text != "cd" {
		t.Errorf("segment 1 = %q, want %q", segs[1].Text, "cd")
	}
	if segs[1].Fg == segs[0].Fg {
		t.Error("red segment should differ from default")
	}
	// The reset "e" and the trailing blanks share the default style and merge.
	if segs[2].Text != "e"+"               " {
		t.Errorf("segment 2 = %q, want e plus 15 blanks", segs[2].Text)
	}
	if segs[2].Fg != segs[0].Fg {
		t.Error("reset segment should match the default style")
	}
}

func TestLineSegmentsAttrs(t *testing.T) {
	term := New(WithSize(1, 10))
	term.WriteString("\x1b[1;4mx")

	snap, _ := term.Snapshot()
	attrs := snap.Lines[0].Segments[0].Attrs
	if !attrs.Bold || !attrs.Underline {
		t.Errorf("attrs = %+v, want bold+underline", attrs)
	}
	if attrs.Italic || attrs.Inverse {
		t.Errorf("attrs = %+v, unexpected flags set", attrs)
	}
}

func TestColorToHex(t *testing.T) {
	theme := DefaultTheme()
	tests := []struct {
		c    Color
		fg   bool
		want string
	}{
		{DefaultColor{}, false, "#000000"},
		{AnsiColor{Index: 1}, true, "#cd3131"},
		{RGBColor{R: 0x10, G: 0x20, B: 0x30}, true, "#102030"},
		{IndexedColor{Index: 231}, true, "#ffffff"},
	}
	for _, tt := range tests {
		if got := colorToHex(tt.c, theme, tt.fg); got != tt.want {
			t.Errorf("colorToHex(%v) = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestSnapshotThemeResolution(t *testing.T) {
	theme := DefaultTheme()
	theme.Palette[1] = DefaultPalette[4] // remap red to blue

	term := New(WithSize(1, 5), WithTheme(theme))
	term.WriteString("\x1b[31mx")

	snap, _ := term.Snapshot()
	if got := snap.Lines[0].Segments[0].Fg; got != "#2472c8" {
		t.Errorf("fg = %q, want remapped #2472c8", got)
	}
}

func TestSnapshotJSON(t *testing.T) {
	term := New(WithSize(2, 10))
	term.WriteString("hi\r\nthere")

	snap, _ := term.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Size != snap.Size || decoded.Cursor != snap.Cursor {
		t.Errorf("decoded = %+v, want %+v", decoded, snap)
	}
	if decoded.Lines[1].Text != "there" {
		t.Errorf("decoded line 1 = %q, want %q", decoded.Lines[1].Text, "there")
	}
}

func TestSnapshotWideCharacters(t *testing.T) {
	term := New(WithSize(1, 10))
	term.WriteString("a中b")

	snap, _ := term.Snapshot()
	if snap.Lines[0].Text != "a中b" {
		t.Errorf("text = %q, want %q", snap.Lines[0].Text, "a中b")
	}
	// The spacer cell does not duplicate the wide character in segments.
	total := ""
	for _, seg := range snap.Lines[0].Segments {
		total += seg.Text
	}
	if total != "a中b      " {
		t.Errorf("segment text = %q, want %q", total, "a中b      ")
	}
}

package secureterm

// Mode is a terminal behavior flag toggled by escape sequences.
type Mode int

const (
	// ModeOrigin makes cursor addressing relative to the scroll region top (DECOM).
	ModeOrigin Mode = iota
	// ModeAutoWrap enables automatic line wrapping at the last column (DECAWM).
	ModeAutoWrap
	// ModeInsert makes written characters shift existing ones right (IRM).
	ModeInsert
	// ModeCursorVisible controls cursor visibility (DECTCEM).
	ModeCursorVisible
	// ModeKeypadApplication selects application keypad mode (DECKPAM/DECKPNM).
	ModeKeypadApplication
)

// Handler receives the control functions decoded by the Parser.
// Buffer implements it; tests can substitute a recorder.
type Handler interface {
	// Printable input.
	Input(r rune)

	// C0 controls executed from the ground state.
	LineFeed()
	CarriageReturn()
	Backspace()
	Tab()
	Bell()

	// Single-character escape functions.
	Index()            // ESC D
	NextLine()         // ESC E
	ReverseIndex()     // ESC M
	SaveCursor()       // ESC 7, CSI s
	RestoreCursor()    // ESC 8, CSI u
	Reset()            // ESC c
	Align()            // ESC # 8
	HorizontalTabSet() // ESC H

	// Cursor motion.
	MoveUp(n int)
	MoveDown(n int)
	MoveForward(n int)
	MoveBackward(n int)
	MoveDownCr(n int) // CSI E
	MoveUpCr(n int)   // CSI F
	GotoCol(col int)  // CSI G
	GotoRow(row int)  // CSI d
	Goto(row, col int)

	// Erasure and line/character editing.
	EraseInDisplay(mode int)
	EraseInLine(mode int)
	InsertLines(n int)
	DeleteLines(n int)
	InsertBlanks(n int)
	DeleteChars(n int)
	ClearTabStops(mode int) // CSI g

	// Scrolling and region control.
	ScrollUp(n int)
	ScrollDown(n int)
	// SetScrollRegion sets the scroll region rows. A negative bottom means
	// the last row of the grid.
	SetScrollRegion(top, bottom int)

	// Style (SGR).
	ResetStyle()
	SetAttribute(flag StyleFlags)
	ClearAttribute(flag StyleFlags)
	SetForeground(c Color)
	SetBackground(c Color)

	// Mode toggles.
	SetMode(mode Mode, enabled bool)
}

// parserState identifies the current position in the escape-sequence grammar.
type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateOscString
	stateDcsEntry
	stateSosPmApcString
)

// maxParams bounds parameter accumulation so hostile input cannot grow the
// parser without limit. Extra parameters are dropped.
const maxParams = 32

// Parser is the escape-sequence state machine. It consumes one byte at a
// time, accumulates parameters and intermediates, and invokes Handler
// operations when a control function completes. Malformed input never
// produces an error: any byte that does not fit the current state returns
// the machine to the ground state.
//
// Parser state persists between calls, so a sequence split across multiple
// Parse calls decodes correctly.
type Parser struct {
	handler Handler
	state   parserState

	// CSI accumulators
	params        []int
	current       int
	intermediates []byte
	private       byte

	// String-state escape tracking (for ST = ESC \ terminators)
	stringEsc bool

	// UTF-8 assembly in the ground state
	utf8Buf  []byte
	utf8Need int
}

// NewParser creates a parser dispatching into the given handler.
func NewParser(h Handler) *Parser {
	return &Parser{
		handler: h,
		state:   stateGround,
		params:  make([]int, 0, maxParams),
	}
}

// Parse processes a slice of raw bytes.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.Advance(b)
	}
}

// Advance processes a single byte.
func (p *Parser) Advance(b byte) {
	// Bytes 0x80-0xFF only participate in UTF-8 assembly or printing, both
	// of which happen in the ground state. A pending multi-byte character is
	// abandoned as soon as any other state is entered.
	if p.state != stateGround && p.utf8Need > 0 {
		p.flushUtf8()
	}

	switch p.state {
	case stateGround:
		p.handleGround(b)
	case stateEscape:
		p.handleEscape(b)
	case stateEscapeIntermediate:
		p.handleEscapeIntermediate(b)
	case stateCsiEntry, stateCsiParam:
		p.handleCsi(b)
	case stateCsiIntermediate:
		p.handleCsiIntermediate(b)
	case stateOscString, stateDcsEntry, stateSosPmApcString:
		p.handleString(b)
	}
}

// flushUtf8 emits a partially assembled character as individual Latin-1
// runes. High bytes are printable on their own when they do not form a
// valid UTF-8 sequence.
func (p *Parser) flushUtf8() {
	for _, b := range p.utf8Buf {
		p.handler.Input(rune(b))
	}
	p.utf8Buf = p.utf8Buf[:0]
	p.utf8Need = 0
}

func decodeUtf8(buf []byte) rune {
	switch len(buf) {
	case 2:
		return rune(buf[0]&0x1F)<<6 | rune(buf[1]&0x3F)
	case 3:
		return rune(buf[0]&0x0F)<<12 | rune(buf[1]&0x3F)<<6 | rune(buf[2]&0x3F)
	case 4:
		return rune(buf[0]&0x07)<<18 | rune(buf[1]&0x3F)<<12 | rune(buf[2]&0x3F)<<6 | rune(buf[3]&0x3F)
	default:
		return 0xFFFD
	}
}

func (p *Parser) handleGround(b byte) {
	// Continue a pending multi-byte character.
	if p.utf8Need > 0 {
		if b&0xC0 == 0x80 {
			p.utf8Buf = append(p.utf8Buf, b)
			p.utf8Need--
			if p.utf8Need == 0 {
				p.handler.Input(decodeUtf8(p.utf8Buf))
				p.utf8Buf = p.utf8Buf[:0]
			}
			return
		}
		p.flushUtf8()
	}

	switch {
	case b == 0x1B:
		p.state = stateEscape
	case b == '\r':
		p.handler.CarriageReturn()
	case b == '\n', b == '\v', b == '\f':
		p.handler.LineFeed()
	case b == '\t':
		p.handler.Tab()
	case b == 0x08:
		p.handler.Backspace()
	case b == 0x07:
		p.handler.Bell()
	case b < 0x20:
		// Remaining C0 controls are ignored.
	case b&0xE0 == 0xC0:
		p.utf8Buf = append(p.utf8Buf[:0], b)
		p.utf8Need = 1
	case b&0xF0 == 0xE0:
		p.utf8Buf = append(p.utf8Buf[:0], b)
		p.utf8Need = 2
	case b&0xF8 == 0xF0:
		p.utf8Buf = append(p.utf8Buf[:0], b)
		p.utf8Need = 3
	default:
		// 0x20-0x7E, plus 0x80-0xFF bytes that cannot start a UTF-8
		// sequence, print as-is.
		p.handler.Input(rune(b))
	}
}

func (p *Parser) handleEscape(b byte) {
	switch {
	case b == '[':
		p.resetAccumulators()
		p.state = stateCsiEntry
	case b == ']':
		p.stringEsc = false
		p.state = stateOscString
	case b == 'P':
		p.stringEsc = false
		p.state = stateDcsEntry
	case b == '^', b == '_', b == 'X':
		p.stringEsc = false
		p.state = stateSosPmApcString
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates[:0], b)
		p.state = stateEscapeIntermediate
	default:
		p.state = stateGround
		switch b {
		case 'D':
			p.handler.Index()
		case 'E':
			p.handler.NextLine()
		case 'M':
			p.handler.ReverseIndex()
		case '7':
			p.handler.SaveCursor()
		case '8':
			p.handler.RestoreCursor()
		case 'c':
			p.handler.Reset()
		case 'H':
			p.handler.HorizontalTabSet()
		case '=':
			p.handler.SetMode(ModeKeypadApplication, true)
		case '>':
			p.handler.SetMode(ModeKeypadApplication, false)
		}
	}
}

func (p *Parser) handleEscapeIntermediate(b byte) {
	if b >= 0x20 && b <= 0x2F {
		p.intermediates = append(p.intermediates, b)
		return
	}
	p.state = stateGround
	if b < 0x30 || b > 0x7E {
		return
	}
	// The only intermediate escape acted on is DECALN (ESC # 8); charset
	// designations (ESC ( x, ESC ) x, ...) are consumed without effect.
	if len(p.intermediates) == 1 && p.intermediates[0] == '#' && b == '8' {
		p.handler.Align()
	}
}

func (p *Parser) resetAccumulators() {
	p.params = p.params[:0]
	p.current = 0
	p.intermediates = p.intermediates[:0]
	p.private = 0
}

func (p *Parser) pushParam() {
	if len(p.params) < maxParams {
		p.params = append(p.params, p.current)
	}
	p.current = 0
}

func (p *Parser) handleCsi(b byte) {
	switch {
	case b >= '0' && b <= '9':
		p.current = p.current*10 + int(b-'0')
		if p.current > 1<<24 {
			p.current = 1 << 24
		}
		p.state = stateCsiParam
	case b == ';' || b == ':':
		p.pushParam()
		p.state = stateCsiParam
	case b == '?' || b == '>' || b == '!':
		p.private = b
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
		p.state = stateCsiIntermediate
	case b >= 0x40 && b <= 0x7E:
		p.pushParam()
		p.dispatchCsi(b)
		p.state = stateGround
	default:
		// Anything else aborts the sequence.
		p.state = stateGround
	}
}

func (p *Parser) handleCsiIntermediate(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2F:
		p.intermediates = append(p.intermediates, b)
	case b >= 0x40 && b <= 0x7E:
		// No CSI function with intermediates is part of the supported
		// subset; the sequence is consumed without effect.
		p.state = stateGround
	default:
		p.state = stateGround
	}
}

// handleString consumes OSC, DCS, SOS, PM, and APC payloads. The payload is
// intentionally discarded: window titles and similar sequences are a UI
// concern outside this core. BEL, ST (ESC \), or a new escape sequence
// terminates the string.
func (p *Parser) handleString(b byte) {
	if p.stringEsc {
		p.stringEsc = false
		if b == '\\' {
			p.state = stateGround
			return
		}
		p.state = stateEscape
		p.handleEscape(b)
		return
	}

	switch b {
	case 0x07:
		p.state = stateGround
	case 0x1B:
		p.stringEsc = true
	}
}

// param returns the parameter at idx, or def when absent.
func (p *Parser) param(idx, def int) int {
	if idx >= len(p.params) {
		return def
	}
	return p.params[idx]
}

// paramAtLeastOne returns the parameter at idx treating 0 and absent as 1.
func (p *Parser) paramAtLeastOne(idx int) int {
	v := p.param(idx, 1)
	if v < 1 {
		v = 1
	}
	return v
}

func (p *Parser) dispatchCsi(final byte) {
	if p.private == '>' || p.private == '!' {
		// xterm device queries and soft-reset variants are not part of the
		// supported subset.
		return
	}

	switch final {
	case 'A':
		p.handler.MoveUp(p.paramAtLeastOne(0))
	case 'B':
		p.handler.MoveDown(p.paramAtLeastOne(0))
	case 'C':
		p.handler.MoveForward(p.paramAtLeastOne(0))
	case 'D':
		p.handler.MoveBackward(p.paramAtLeastOne(0))
	case 'E':
		p.handler.MoveDownCr(p.paramAtLeastOne(0))
	case 'F':
		p.handler.MoveUpCr(p.paramAtLeastOne(0))
	case 'G':
		p.handler.GotoCol(p.paramAtLeastOne(0) - 1)
	case 'H', 'f':
		p.handler.Goto(p.paramAtLeastOne(0)-1, p.paramAtLeastOne(1)-1)
	case 'd':
		p.handler.GotoRow(p.paramAtLeastOne(0) - 1)
	case 'J':
		p.handler.EraseInDisplay(p.param(0, 0))
	case 'K':
		p.handler.EraseInLine(p.param(0, 0))
	case 'L':
		p.handler.InsertLines(p.paramAtLeastOne(0))
	case 'M':
		p.handler.DeleteLines(p.paramAtLeastOne(0))
	case 'P':
		p.handler.DeleteChars(p.paramAtLeastOne(0))
	case '@':
		p.handler.InsertBlanks(p.paramAtLeastOne(0))
	case 'S':
		p.handler.ScrollUp(p.paramAtLeastOne(0))
	case 'T':
		p.handler.ScrollDown(p.paramAtLeastOne(0))
	case 'g':
		p.handler.ClearTabStops(p.param(0, 0))
	case 'r':
		top := p.paramAtLeastOne(0) - 1
		bottom := p.param(1, 0) - 1 // -1 selects the last row
		p.handler.SetScrollRegion(top, bottom)
	case 's':
		p.handler.SaveCursor()
	case 'u':
		p.handler.RestoreCursor()
	case 'm':
		p.dispatchSgr()
	case 'h':
		p.dispatchMode(true)
	case 'l':
		p.dispatchMode(false)
	}
	// Any other final byte is ignored.
}

func (p *Parser) dispatchMode(enabled bool) {
	for _, v := range p.params {
		if p.private == '?' {
			switch v {
			case 6:
				p.handler.SetMode(ModeOrigin, enabled)
			case 7:
				p.handler.SetMode(ModeAutoWrap, enabled)
			case 25:
				p.handler.SetMode(ModeCursorVisible, enabled)
			}
			continue
		}
		if v == 4 {
			p.handler.SetMode(ModeInsert, enabled)
		}
	}
}

// dispatchSgr applies SGR parameters left to right. The 38/48 extended-color
// forms consume the slots they declare (2 for `5;n`, 4 for `2;r;g;b`); a
// truncated extended form swallows the rest of the sequence.
func (p *Parser) dispatchSgr() {
	params := p.params
	for i := 0; i < len(params); i++ {
		switch v := params[i]; v {
		case 0:
			p.handler.ResetStyle()
		case 1:
			p.handler.SetAttribute(StyleFlagBold)
		case 2:
			p.handler.SetAttribute(StyleFlagDim)
		case 3:
			p.handler.SetAttribute(StyleFlagItalic)
		case 4:
			p.handler.SetAttribute(StyleFlagUnderline)
		case 5, 6:
			p.handler.SetAttribute(StyleFlagBlink)
		case 7:
			p.handler.SetAttribute(StyleFlagInverse)
		case 8:
			p.handler.SetAttribute(StyleFlagHidden)
		case 9:
			p.handler.SetAttribute(StyleFlagStrikethrough)
		case 22:
			p.handler.ClearAttribute(StyleFlagBold)
			p.handler.ClearAttribute(StyleFlagDim)
		case 23:
			p.handler.ClearAttribute(StyleFlagItalic)
		case 24:
			p.handler.ClearAttribute(StyleFlagUnderline)
		case 25, 26:
			p.handler.ClearAttribute(StyleFlagBlink)
		case 27:
			p.handler.ClearAttribute(StyleFlagInverse)
		case 28:
			p.handler.ClearAttribute(StyleFlagHidden)
		case 29:
			p.handler.ClearAttribute(StyleFlagStrikethrough)
		case 38:
			c, consumed := parseExtendedColor(params[i+1:])
			if c != nil {
				p.handler.SetForeground(c)
			}
			i += consumed
		case 39:
			p.handler.SetForeground(DefaultColor{})
		case 48:
			c, consumed := parseExtendedColor(params[i+1:])
			if c != nil {
				p.handler.SetBackground(c)
			}
			i += consumed
		case 49:
			p.handler.SetBackground(DefaultColor{})
		default:
			switch {
			case v >= 30 && v <= 37:
				p.handler.SetForeground(AnsiColor{Index: uint8(v - 30)})
			case v >= 90 && v <= 97:
				p.handler.SetForeground(AnsiColor{Index: uint8(v - 90 + 8)})
			case v >= 40 && v <= 47:
				p.handler.SetBackground(AnsiColor{Index: uint8(v - 40)})
			case v >= 100 && v <= 107:
				p.handler.SetBackground(AnsiColor{Index: uint8(v - 100 + 8)})
			}
			// Unrecognized codes are ignored.
		}
	}
}

// parseExtendedColor decodes the parameters following SGR 38/48. It returns
// the selected color (nil when the form is malformed) and the number of
// parameter slots consumed.
func parseExtendedColor(rest []int) (Color, int) {
	if len(rest) == 0 {
		return nil, 0
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return nil, len(rest)
		}
		return IndexedColor{Index: clampComponent(rest[1])}, 2
	case 2:
		if len(rest) < 4 {
			return nil, len(rest)
		}
		return RGBColor{
			R: clampComponent(rest[1]),
			G: clampComponent(rest[2]),
			B: clampComponent(rest[3]),
		}, 4
	default:
		return nil, 1
	}
}

func clampComponent(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

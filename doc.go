// Package secureterm provides a headless character-grid terminal emulator
// with encrypted scrollback retention.
//
// The package emulates a terminal without any display: raw bytes containing
// ANSI/VT escape sequences are parsed and applied to an in-memory screen
// buffer. Lines scrolled off the top of the grid are handed to a pluggable
// line store, which can keep them as plain structured lines or encrypted at
// rest with a session-scoped key.
//
// # Quick Start
//
// Create a terminal and write escape sequences to it:
//
//	term := secureterm.New()
//	term.WriteString("\x1b[31mHello \x1b[32mWorld\x1b[0m!")
//	fmt.Println(term.String()) // "Hello World!"
//
// # Architecture
//
// The package is organized around these core types:
//
//   - [Terminal]: The thread-safe engine that processes input and publishes
//     snapshots
//   - [Parser]: The escape-sequence state machine, dispatching to a [Handler]
//   - [Buffer]: The 2D grid of styled cells with scroll region, modes, and
//     resize
//   - [LineStore]: Retention for lines evicted off the top of the grid
//   - [Snapshot]: An immutable point-in-time copy of the rendering state
//
// # Terminal
//
// Terminal is the main entry point. It implements [io.Writer] so you can
// feed it raw program output:
//
//	term := secureterm.New(
//	    secureterm.WithSize(24, 80),
//	    secureterm.WithLineStore(store),
//	)
//
//	cmd := exec.Command("ls", "-la", "--color")
//	cmd.Stdout = term
//	cmd.Run()
//
//	snap, _ := term.Snapshot()
//	for _, line := range snap.Lines {
//	    fmt.Println(line.Text)
//	}
//
// Malformed or unsupported escape sequences never error: the parser consumes
// them and recovers, so untrusted input cannot wedge the state machine.
//
// # Scrollback Retention
//
// Lines that scroll off the top of the grid go to the configured [LineStore]:
//
//   - [MemoryLineStore] keeps structured lines in memory, bounded by
//     [RetentionPolicy].MaxLines.
//   - [EncryptedLineStore] flattens each line to text and seals it with
//     ChaCha20-Poly1305 under a session key from a [KeyManager]. Plaintext is
//     wiped after sealing; reads decrypt on demand and fail with
//     [ErrDecryptFailed] if an entry was tampered with.
//   - [NoopLineStore] discards everything.
//
// Destroying a terminal destroys its store. For the encrypted store this
// wipes the retained ciphertext and deletes the session key, rendering the
// history permanently unreadable. Every call after destruction fails with
// [ErrDestroyed].
//
//	keys := secureterm.NewMemoryKeyManager()
//	store, _ := secureterm.NewEncryptedLineStore("session-1", keys,
//	    secureterm.DefaultRetentionPolicy())
//	term := secureterm.New(secureterm.WithLineStore(store))
//	defer term.Destroy()
//
// # Snapshots
//
// After every mutating call the terminal publishes a fresh [Snapshot]. A
// snapshot shares no memory with the live grid, so a renderer can hold one
// while the terminal keeps processing:
//
//	snap, _ := term.Snapshot()
//	data, _ := json.Marshal(snap)
//
// # Thread Safety
//
// All Terminal methods are safe for concurrent use. The lower-level Buffer,
// Parser, and MemoryLineStore types perform no locking of their own and rely
// on the caller to serialize access.
//
// # Supported Sequences
//
// The parser covers the VT100/ECMA-48 core: cursor movement (CUU, CUD, CUF,
// CUB, CUP, HVP, CNL, CPL, CHA, VPA), save/restore (DECSC/DECRC and CSI s/u),
// erase (ED, EL), insert/delete (ICH, DCH, IL, DL), scrolling (SU, SD,
// DECSTBM, IND, RI, NEL), tab stops (HTS, TBC), SGR attributes with 256-color
// and 24-bit color, and the DECOM, DECAWM, DECTCEM, and IRM modes. OSC, DCS,
// SOS, PM, and APC strings are consumed and discarded.
package secureterm

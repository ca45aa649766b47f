// Package editor is component K: the line-buffer document model, cursor and
// selection state, clipboard, C/H syntax highlighting, and the editing-
// operation dispatcher of spec.md §3.6-§3.8 and §4.7. No repo in the example
// pack implements a terminal-style text editor, so the document and dispatch
// logic here are grounded directly on spec.md's own textual algorithm
// description, the same way the jpeg and png decoders are grounded on §4.5
// and §4.6 rather than on a pack repo. Error handling, the Volume-backed
// save path, and doc-comment density follow the rest of this module.
package editor

import (
	"bytes"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/volume"
)

// MaxLines is the document's line cap (spec.md §3.6). Enter past this limit
// is a no-op rather than an error: there is no operation in §4.7 that reports
// failure back through the keyboard dispatch loop for a plain edit.
const MaxLines = 4096

// initialLineCapacity is the byte capacity spec.md §3.6 starts each line's
// buffer at before the first capacity doubling. Go's append already doubles
// a slice's capacity on growth, so a []byte line gets spec.md's
// grow-by-doubling behaviour for free; initialLineCapacity just sets the
// starting point so short lines don't churn through several small
// reallocations during typing.
const initialLineCapacity = 80

// Document is the ordered, bounded sequence of lines spec.md §3.6 describes,
// plus the cursor, scroll, selection, and modified-flag state that travels
// with it. The document always has at least one line.
type Document struct {
	lines [][]byte

	CursorY, CursorX int
	ScrollY, ScrollX int

	selection Selection
	Modified  bool

	Path string
	stat volume.DirEntry

	clipboard Clipboard
}

// Selection is either absent, or an anchor plus the current cursor position
// (spec.md §3.6). The live cursor position is read from the owning
// Document, not duplicated here.
type Selection struct {
	Active bool
	AnchorY, AnchorX int
}

// NewDocument returns an empty, single-line document.
func NewDocument() *Document {
	return &Document{lines: [][]byte{newLine(nil)}}
}

// LoadDocument splits data on '\n' into lines, the inverse of Save's
// serialisation, and records the filesystem metadata the status bar shows
// per SPEC_FULL.md's §4.7 supplement.
func LoadDocument(data []byte, path string, stat volume.DirEntry) *Document {
	doc := &Document{Path: path, stat: stat}
	raw := bytes.Split(data, []byte{'\n'})
	// A trailing '\n' produces one extra empty element from bytes.Split;
	// Save never writes one, so drop it to avoid growing the document by a
	// phantom blank last line on every load-save round trip.
	if len(raw) > 1 && len(raw[len(raw)-1]) == 0 {
		raw = raw[:len(raw)-1]
	}
	if len(raw) == 0 {
		raw = [][]byte{nil}
	}
	doc.lines = make([][]byte, len(raw))
	for i, r := range raw {
		doc.lines[i] = newLine(r)
	}
	return doc
}

func newLine(initial []byte) []byte {
	buf := make([]byte, 0, initialLineCapacity)
	return append(buf, initial...)
}

// Stat returns the filesystem metadata recorded at load time (zero value for
// a document that was never loaded from disk, e.g. a brand-new file).
func (d *Document) Stat() volume.DirEntry { return d.stat }

// ClipboardContents returns the clipboard's current contents, or nil if
// nothing has been copied or cut yet.
func (d *Document) ClipboardContents() []byte { return d.clipboard.Bytes() }

// LineCount returns the number of lines, always ≥ 1.
func (d *Document) LineCount() int { return len(d.lines) }

// Line returns line y's current bytes. The returned slice aliases the
// document's internal buffer and is invalidated by the next mutation.
func (d *Document) Line(y int) []byte { return d.lines[y] }

// clampCursor enforces spec.md §3.6's cursor invariant: 0 ≤ cy < line_count,
// 0 ≤ cx ≤ line[cy].len.
func (d *Document) clampCursor() {
	if d.CursorY < 0 {
		d.CursorY = 0
	}
	if d.CursorY >= len(d.lines) {
		d.CursorY = len(d.lines) - 1
	}
	lineLen := len(d.lines[d.CursorY])
	if d.CursorX < 0 {
		d.CursorX = 0
	}
	if d.CursorX > lineLen {
		d.CursorX = lineLen
	}
}

// insertByteAt inserts b into line y at column x.
func insertByteAt(line []byte, x int, b byte) []byte {
	line = append(line, 0)
	copy(line[x+1:], line[x:len(line)-1])
	line[x] = b
	return line
}

// deleteByteAt removes the byte at column x from line.
func deleteByteAt(line []byte, x int) []byte {
	copy(line[x:], line[x+1:])
	return line[:len(line)-1]
}

// InsertByte inserts b at the cursor and advances the cursor by one column,
// the printable-ASCII editing operation of spec.md §4.7. Callers are
// responsible for checking b is in 0x20..0x7E (Dispatch does); Tab reuses
// this path four times per spec.md's "Tab: insert four spaces" rule.
func (d *Document) InsertByte(b byte) {
	d.lines[d.CursorY] = insertByteAt(d.lines[d.CursorY], d.CursorX, b)
	d.CursorX++
	d.Modified = true
}

// SplitLine implements Enter: splits the current line at the cursor into two
// lines, moving the cursor to column 0 of the new line. A no-op once the
// document is at MaxLines.
func (d *Document) SplitLine() {
	if len(d.lines) >= MaxLines {
		return
	}
	cur := d.lines[d.CursorY]
	tail := newLine(cur[d.CursorX:])
	d.lines[d.CursorY] = cur[:d.CursorX:d.CursorX]

	d.lines = append(d.lines, nil)
	copy(d.lines[d.CursorY+2:], d.lines[d.CursorY+1:])
	d.lines[d.CursorY+1] = tail

	d.CursorY++
	d.CursorX = 0
	d.Modified = true
}

// Backspace implements spec.md §4.7's Backspace rule when no selection is
// active: delete the byte before the cursor, or join the current line onto
// the previous one at column 0.
func (d *Document) Backspace() {
	if d.CursorX > 0 {
		d.lines[d.CursorY] = deleteByteAt(d.lines[d.CursorY], d.CursorX-1)
		d.CursorX--
		d.Modified = true
		return
	}
	if d.CursorY > 0 {
		d.joinWithPrevious()
	}
}

// DeleteForward implements spec.md §4.7's Delete rule when no selection is
// active: delete the byte at the cursor, or join the next line onto the
// current one.
func (d *Document) DeleteForward() {
	line := d.lines[d.CursorY]
	if d.CursorX < len(line) {
		d.lines[d.CursorY] = deleteByteAt(line, d.CursorX)
		d.Modified = true
		return
	}
	if d.CursorY < len(d.lines)-1 {
		d.CursorY++
		d.CursorX = 0
		d.joinWithPrevious()
	}
}

// joinWithPrevious merges d.lines[CursorY] onto d.lines[CursorY-1], leaving
// the cursor at the junction column.
func (d *Document) joinWithPrevious() {
	prevLen := len(d.lines[d.CursorY-1])
	merged := newLine(d.lines[d.CursorY-1])
	merged = append(merged, d.lines[d.CursorY]...)
	d.lines[d.CursorY-1] = merged
	d.lines = append(d.lines[:d.CursorY], d.lines[d.CursorY+1:]...)
	d.CursorY--
	d.CursorX = prevLen
	d.Modified = true
}

// MoveLeft implements spec.md §4.7's movement rule: at column 0, wrap to the
// end of the previous line.
func (d *Document) MoveLeft() {
	if d.CursorX > 0 {
		d.CursorX--
		return
	}
	if d.CursorY > 0 {
		d.CursorY--
		d.CursorX = len(d.lines[d.CursorY])
	}
}

// MoveRight implements spec.md §4.7's movement rule: past the last column,
// wrap to column 0 of the next line.
func (d *Document) MoveRight() {
	if d.CursorX < len(d.lines[d.CursorY]) {
		d.CursorX++
		return
	}
	if d.CursorY < len(d.lines)-1 {
		d.CursorY++
		d.CursorX = 0
	}
}

// MoveUp moves the cursor up one line, clamping cx to the new line's length.
func (d *Document) MoveUp() {
	if d.CursorY > 0 {
		d.CursorY--
	}
	d.clampCursorX()
}

// MoveDown moves the cursor down one line, clamping cx to the new line's
// length.
func (d *Document) MoveDown() {
	if d.CursorY < len(d.lines)-1 {
		d.CursorY++
	}
	d.clampCursorX()
}

// MoveHome moves the cursor to column 0 of the current line.
func (d *Document) MoveHome() { d.CursorX = 0 }

// MoveEnd moves the cursor to the end of the current line.
func (d *Document) MoveEnd() { d.CursorX = len(d.lines[d.CursorY]) }

// MovePageUp moves the cursor up rows lines, clamping at the top and
// clamping cx to the destination line's length.
func (d *Document) MovePageUp(rows int) {
	d.CursorY -= rows
	if d.CursorY < 0 {
		d.CursorY = 0
	}
	d.clampCursorX()
}

// MovePageDown moves the cursor down rows lines, clamping at the bottom and
// clamping cx to the destination line's length.
func (d *Document) MovePageDown(rows int) {
	d.CursorY += rows
	if d.CursorY >= len(d.lines) {
		d.CursorY = len(d.lines) - 1
	}
	d.clampCursorX()
}

func (d *Document) clampCursorX() {
	lineLen := len(d.lines[d.CursorY])
	if d.CursorX > lineLen {
		d.CursorX = lineLen
	}
}

// EnsureVisible adjusts ScrollY/ScrollX so the cursor lies inside a
// rows×cols visible rectangle, the invariant spec.md §3.6 requires after
// every cursor motion.
func (d *Document) EnsureVisible(rows, cols int) {
	if d.CursorY < d.ScrollY {
		d.ScrollY = d.CursorY
	}
	if d.CursorY >= d.ScrollY+rows {
		d.ScrollY = d.CursorY - rows + 1
	}
	if d.CursorX < d.ScrollX {
		d.ScrollX = d.CursorX
	}
	if d.CursorX >= d.ScrollX+cols {
		d.ScrollX = d.CursorX - cols + 1
	}
}

// ErrInsufficientSpace surfaces through Save per spec.md §4.7 when the
// serialized document would exceed the volume's reclaimed free space.
var ErrInsufficientSpace = survivalerrors.ErrInsufficientSpace

// Serialize flattens the document into one allocation: every line's bytes
// followed by '\n', with no trailing newline after the last line, per
// spec.md §4.7's save algorithm.
func (d *Document) Serialize() []byte {
	total := 0
	for i, line := range d.lines {
		total += len(line)
		if i < len(d.lines)-1 {
			total++
		}
	}
	out := make([]byte, 0, total)
	for i, line := range d.lines {
		out = append(out, line...)
		if i < len(d.lines)-1 {
			out = append(out, '\n')
		}
	}
	return out
}

// Save serializes the document and writes it through vol at path, honoring
// spec.md §4.7's space check: the new size must not exceed the volume's free
// space plus the size of the file it's replacing. On success it clears the
// modified flag.
func (d *Document) Save(vol volume.Volume, path string) error {
	flat := d.Serialize()
	free, _ := vol.FreeSpace()
	oldSize := d.stat.Size
	if uint64(len(flat)) > free+oldSize {
		return ErrInsufficientSpace.WithMessage(
			"document is %d bytes, only %d available", len(flat), free+oldSize)
	}
	if err := vol.WriteFile(path, flat, nil); err != nil {
		return err
	}
	d.Path = path
	d.stat.Size = uint64(len(flat))
	d.Modified = false
	return nil
}

package editor

import (
	"fmt"
	"strings"

	"github.com/lowlevel-dev/survival/keyboard"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/text"
	"github.com/lowlevel-dev/survival/volume"
)

var backgroundColor = platform.RGB(0, 0, 0)

// RedrawPlan is the outcome of one Dispatch call: spec.md §4.7's
// incremental-redraw decision. Rows lists the document line indices that
// need repainting; it is only consulted when Full is false.
type RedrawPlan struct {
	Full    bool
	Rows    []int
	InfoBar bool
}

// Editor ties a Document to a fixed-size text viewport and drives spec.md
// §4.7's key dispatch, incremental redraw, and save/exit flow. Rows and Cols
// are the visible text area's size in character cells (the info bar occupies
// one additional row below them).
type Editor struct {
	Doc        *Document
	Rows, Cols int

	syntaxState []byte

	exitDialogActive bool
}

// NewEditor returns an Editor over doc with a rows×cols visible text area.
func NewEditor(doc *Document, rows, cols int) *Editor {
	return &Editor{Doc: doc, Rows: rows, Cols: cols}
}

// Dispatch routes one key event through the editing operations of spec.md
// §4.7 and returns the incremental-redraw decision: if the operation was a
// pure cursor move, no selection is active, and the scroll position didn't
// change, only the previous and new cursor rows need repainting; otherwise
// the whole text area does.
func (e *Editor) Dispatch(ev keyboard.KeyEvent) RedrawPlan {
	beforeY := e.Doc.CursorY
	beforeScrollX, beforeScrollY := e.Doc.ScrollX, e.Doc.ScrollY

	pureMove := e.dispatchKey(ev)
	e.Doc.EnsureVisible(e.Rows, e.Cols)

	scrollChanged := e.Doc.ScrollX != beforeScrollX || e.Doc.ScrollY != beforeScrollY
	if pureMove && !e.Doc.HasSelection() && !scrollChanged {
		return RedrawPlan{Rows: dedupRows(beforeY, e.Doc.CursorY), InfoBar: true}
	}
	return RedrawPlan{Full: true, InfoBar: true}
}

func dedupRows(a, b int) []int {
	if a == b {
		return []int{a}
	}
	return []int{a, b}
}

// dispatchKey performs ev's editing operation and reports whether it was a
// pure cursor move (no content or selection mutation).
func (e *Editor) dispatchKey(ev keyboard.KeyEvent) bool {
	mods := ev.Modifiers

	// CUA remapping lives here, one level above the keyboard package, per
	// spec.md §4.10's note.
	switch {
	case ev.Code == keyboard.KeyInsert && mods&keyboard.ModShift != 0:
		e.Doc.Paste()
		return false
	case ev.Code == keyboard.KeyInsert && mods&keyboard.ModCtrl != 0:
		e.Doc.Copy()
		return false
	case ev.Code == keyboard.KeyDelete && mods&keyboard.ModShift != 0:
		e.Doc.Cut()
		return false
	// keyboard.FromRaw normalizes Ctrl+C/V/X to these control characters
	// regardless of firmware scancode variance (spec.md §4.10), so the CUA
	// combinations above aren't the only way these operations arrive here.
	case ev.Code == 3:
		e.Doc.Copy()
		return false
	case ev.Code == 22:
		e.Doc.Paste()
		return false
	case ev.Code == 24:
		e.Doc.Cut()
		return false
	}

	switch ev.Code {
	case keyboard.KeyUp:
		e.Doc.MoveUp()
		return true
	case keyboard.KeyDown:
		e.Doc.MoveDown()
		return true
	case keyboard.KeyLeft:
		e.Doc.MoveLeft()
		return true
	case keyboard.KeyRight:
		e.Doc.MoveRight()
		return true
	case keyboard.KeyHome:
		e.Doc.MoveHome()
		return true
	case keyboard.KeyEnd:
		e.Doc.MoveEnd()
		return true
	case keyboard.KeyPageUp:
		e.Doc.MovePageUp(e.Rows)
		return true
	case keyboard.KeyPageDown:
		e.Doc.MovePageDown(e.Rows)
		return true
	case keyboard.KeyF3:
		e.Doc.ToggleSelection()
		return false
	case keyboard.KeyDelete:
		if !e.Doc.DeleteSelection() {
			e.Doc.DeleteForward()
		}
		return false
	}

	r := rune(ev.Code)
	switch {
	case r == '\t':
		e.insertPrintable(' ')
		e.insertPrintable(' ')
		e.insertPrintable(' ')
		e.insertPrintable(' ')
		return false
	case r == '\r' || r == '\n':
		e.Doc.DeleteSelection()
		e.Doc.SplitLine()
		return false
	case r == 0x08 || r == 0x7F:
		if !e.Doc.DeleteSelection() {
			e.Doc.Backspace()
		}
		return false
	case r >= 0x20 && r <= 0x7E:
		e.insertPrintable(byte(r))
		return false
	}
	return false
}

// insertPrintable implements spec.md §4.7's shared rule for printable
// ASCII/Tab: delete the active selection (if any), then insert the byte at
// the cursor.
func (e *Editor) insertPrintable(b byte) {
	e.Doc.DeleteSelection()
	e.Doc.InsertByte(b)
}

// ExitOutcome is the result of routing a key through an active exit dialog.
type ExitOutcome int

const (
	// ExitPending means the dialog is still waiting for F2/F10/ESC.
	ExitPending ExitOutcome = iota
	ExitSaved
	ExitSaveFailed
	ExitDiscarded
	ExitCancelled
)

// RequestExit begins spec.md §4.7's exit flow. If the document has
// unsaved changes it arms the save-or-discard-or-cancel dialog and returns
// true (the caller must route subsequent keys through ResolveExit); a clean
// document can be closed immediately and this returns false.
func (e *Editor) RequestExit() bool {
	if !e.Doc.Modified {
		return false
	}
	e.exitDialogActive = true
	return true
}

// DialogActive reports whether the exit dialog is currently armed.
func (e *Editor) DialogActive() bool { return e.exitDialogActive }

// ResolveExit routes one key event through the armed exit dialog: F2 saves
// (exiting on success, staying armed on failure so the user can retry or
// discard), F10 discards and exits, ESC cancels the exit attempt entirely.
// Any other key leaves the dialog pending.
func (e *Editor) ResolveExit(ev keyboard.KeyEvent, vol volume.Volume) ExitOutcome {
	if !e.exitDialogActive {
		return ExitCancelled
	}
	switch ev.Code {
	case keyboard.KeyF2:
		if err := e.Doc.Save(vol, e.Doc.Path); err != nil {
			return ExitSaveFailed
		}
		e.exitDialogActive = false
		return ExitSaved
	case keyboard.KeyF10:
		e.exitDialogActive = false
		return ExitDiscarded
	case keyboard.KeyEscape:
		e.exitDialogActive = false
		return ExitCancelled
	}
	return ExitPending
}

// Render repaints plan's rows (or the full text area, recomputing the
// syntax state vector first, per spec.md §4.7's "precedes every full
// redraw" rule) plus the info bar, at pixel origin (originX, originY).
func (e *Editor) Render(fb platform.Framebuffer, originX, originY int, palette Palette, plan RedrawPlan) {
	isSource := IsCHSourceFile(e.Doc.Path)

	if plan.Full {
		if isSource {
			e.syntaxState = e.Doc.RecomputeSyntaxState()
		}
		for row := 0; row < e.Rows; row++ {
			e.renderRow(fb, originX, originY, palette, row, isSource)
		}
	} else {
		for _, y := range plan.Rows {
			row := y - e.Doc.ScrollY
			if row < 0 || row >= e.Rows {
				continue
			}
			e.renderRow(fb, originX, originY, palette, row, isSource)
		}
	}

	if plan.InfoBar {
		e.renderInfoBar(fb, originX, originY, palette)
	}
}

func (e *Editor) renderRow(fb platform.Framebuffer, originX, originY int, palette Palette, row int, isSource bool) {
	y := e.Doc.ScrollY + row
	py := originY + row*text.GlyphHeight

	if y >= e.Doc.LineCount() {
		text.DrawString(fb, originX, py, strings.Repeat(" ", e.Cols), palette[ColorDefault], backgroundColor)
		return
	}

	line := e.Doc.Line(y)
	var colors []TokenColor
	if isSource && y < len(e.syntaxState) {
		colors = TokenizeLine(line, e.syntaxState[y] == 1)
	}

	px := originX
	for col := 0; col < e.Cols; col++ {
		docCol := e.Doc.ScrollX + col
		b := byte(' ')
		color := ColorDefault
		if docCol < len(line) {
			b = line[docCol]
			if colors != nil {
				color = colors[docCol]
			}
		}
		text.DrawGlyph(fb, px, py, b, palette[color], backgroundColor)
		px += text.GlyphWidth
	}
}

func (e *Editor) renderInfoBar(fb platform.Framebuffer, originX, originY int, palette Palette) {
	barY := originY + e.Rows*text.GlyphHeight
	mod := " "
	if e.Doc.Modified {
		mod = "*"
	}
	info := fmt.Sprintf("%s%s  Ln %d, Col %d", e.Doc.Path, mod, e.Doc.CursorY+1, e.Doc.CursorX+1)
	if len(info) > e.Cols {
		info = info[:e.Cols]
	} else {
		info += strings.Repeat(" ", e.Cols-len(info))
	}
	text.DrawString(fb, originX, barY, info, palette[ColorDefault], backgroundColor)
}

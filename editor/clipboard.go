package editor

// ClipboardLimit is the flat clipboard buffer's maximum size (spec.md §3.7).
const ClipboardLimit = 65536

// Clipboard is the single flat byte buffer of spec.md §3.7: no multiple
// registers, allocated lazily, overwritten wholesale by each copy/cut.
// Newlines inside the buffer mark line breaks on paste.
type Clipboard struct {
	buf []byte
}

// Bytes returns the clipboard's current contents, or nil if nothing has
// been copied yet.
func (c *Clipboard) Bytes() []byte { return c.buf }

func (c *Clipboard) set(b []byte) {
	if len(b) > ClipboardLimit {
		b = b[:ClipboardLimit]
	}
	c.buf = append(c.buf[:0:0], b...)
}

// Range is a normalised, inclusive-start/exclusive-end selection span: the
// result of sel_get_range (spec.md §4.7).
type Range struct {
	StartY, StartX int
	EndY, EndX     int
}

// selGetRange normalises the active selection's anchor/cursor pair into
// lexicographic (start, end) order, spec.md §4.7's sel_get_range.
func (d *Document) selGetRange() (Range, bool) {
	if !d.selection.Active {
		return Range{}, false
	}
	ay, ax := d.selection.AnchorY, d.selection.AnchorX
	cy, cx := d.CursorY, d.CursorX
	if ay < cy || (ay == cy && ax <= cx) {
		return Range{StartY: ay, StartX: ax, EndY: cy, EndX: cx}, true
	}
	return Range{StartY: cy, StartX: cx, EndY: ay, EndX: ax}, true
}

// ToggleSelection implements F3: starts a selection anchored at the current
// cursor, or clears an active one.
func (d *Document) ToggleSelection() {
	if d.selection.Active {
		d.selection = Selection{}
		return
	}
	d.selection = Selection{Active: true, AnchorY: d.CursorY, AnchorX: d.CursorX}
}

// HasSelection reports whether a selection is currently active.
func (d *Document) HasSelection() bool { return d.selection.Active }

// selectedBytes walks r appending every byte in range, inserting '\n'
// between lines — the shared walk spec.md §4.7's copy and the clipboard's
// paste-newline-handling both describe.
func (d *Document) selectedBytes(r Range) []byte {
	var out []byte
	for y := r.StartY; y <= r.EndY; y++ {
		line := d.lines[y]
		start, end := 0, len(line)
		if y == r.StartY {
			start = r.StartX
		}
		if y == r.EndY {
			end = r.EndX
		}
		out = append(out, line[start:end]...)
		if y != r.EndY {
			out = append(out, '\n')
		}
	}
	return out
}

// deleteRange removes r from the document: same-line loop-delete, or
// multi-line truncate-splice-delete-intermediate-in-reverse, per spec.md
// §4.7. The cursor ends at (r.StartY, r.StartX).
func (d *Document) deleteRange(r Range) {
	if r.StartY == r.EndY {
		line := d.lines[r.StartY]
		for x := r.EndX - 1; x >= r.StartX; x-- {
			line = deleteByteAt(line, x)
		}
		d.lines[r.StartY] = line
	} else {
		first := d.lines[r.StartY][:r.StartX:r.StartX]
		tail := d.lines[r.EndY][r.EndX:]
		d.lines[r.StartY] = append(first, tail...)
		for y := r.EndY; y > r.StartY; y-- {
			d.lines = append(d.lines[:y], d.lines[y+1:]...)
		}
	}
	d.CursorY, d.CursorX = r.StartY, r.StartX
	d.Modified = true
}

// DeleteSelection deletes the active selection, if any, and clears it.
// Reports whether a selection was present and deleted.
func (d *Document) DeleteSelection() bool {
	r, ok := d.selGetRange()
	if !ok {
		return false
	}
	d.selection = Selection{}
	d.deleteRange(r)
	return true
}

// Copy copies the active selection's text into the clipboard (spec.md
// §4.7). A no-op if no selection is active.
func (d *Document) Copy() {
	r, ok := d.selGetRange()
	if !ok {
		return
	}
	d.clipboard.set(d.selectedBytes(r))
}

// Cut copies the active selection then deletes it: spec.md §4.7's
// "cut = copy + delete".
func (d *Document) Cut() {
	r, ok := d.selGetRange()
	if !ok {
		return
	}
	d.clipboard.set(d.selectedBytes(r))
	d.selection = Selection{}
	d.deleteRange(r)
}

// Paste deletes the active selection (if any), then replays the clipboard's
// bytes at the cursor, turning embedded newlines into line splits (spec.md
// §4.7).
func (d *Document) Paste() {
	d.DeleteSelection()
	for _, b := range d.clipboard.buf {
		if b == '\n' {
			d.SplitLine()
			continue
		}
		d.InsertByte(b)
	}
}

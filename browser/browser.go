// Package browser is component L: the file browser of spec.md §4.8. No repo
// in the example pack implements a terminal-style file manager, so its
// state machine is grounded directly on spec.md §4.8's own description, the
// same way editor's document model is grounded on §3.6/§4.7. It programs
// entirely against volume.Volume (never a concrete fat32/exfat type), the
// filesystem-agnostic surface SPEC_FULL.md's §4.2/§4.3 addition defines, so
// it works unmodified over either driver.
package browser

import (
	"strings"

	"github.com/lowlevel-dev/survival/keyboard"
	"github.com/lowlevel-dev/survival/volume"
)

// Action is what the caller (the component that owns both Browser and the
// editor/clone engine) must do after a Dispatch call.
type Action int

const (
	// ActionNone means Dispatch fully handled the key; nothing further to do.
	ActionNone Action = iota
	// ActionOpenEditor means the caller should load Path (an existing file)
	// and launch the editor on it.
	ActionOpenEditor
	// ActionNewFileEditor means the caller should launch the editor on a
	// brand-new, empty document that will be saved to Path.
	ActionNewFileEditor
	// ActionInvokeClone means the caller should start the clone engine;
	// only reachable when OnRemovableVolume is true.
	ActionInvokeClone
)

// Result is Dispatch's outcome.
type Result struct {
	Action Action
	Path   string
	Err    error
}

// Browser is the file browser state of spec.md §4.8: current path, sorted
// entries, cursor, scroll, and whether the mounted volume is removable
// (gating F12/clone).
type Browser struct {
	Vol               volume.Volume
	Path              string
	Entries           []volume.DirEntry
	Cursor            int
	Scroll            int
	OnRemovableVolume bool

	// pasteRegister holds the absolute path F3 last copied, or "" if none.
	pasteRegister string

	// promptActive/promptBuf back F4's "prompt for a new filename" and F9's
	// rename prompt; the caller feeds keystrokes through TypePrompt while
	// one of these is active.
	promptActive promptKind
	promptBuf    []byte
}

type promptKind int

const (
	promptNone promptKind = iota
	promptNewFile
	promptRename
)

// NewBrowser constructs a Browser rooted at startPath and performs the
// initial directory listing.
func NewBrowser(vol volume.Volume, startPath string, removable bool) (*Browser, error) {
	b := &Browser{Vol: vol, Path: startPath, OnRemovableVolume: removable}
	if err := b.Refresh(); err != nil {
		return nil, err
	}
	return b, nil
}

// Refresh re-lists the current directory in spec.md §4.8's display order:
// directories first, then case-insensitive ASCII order.
func (b *Browser) Refresh() error {
	entries, err := b.Vol.OpenDir(b.Path)
	if err != nil {
		return err
	}
	volume.SortEntries(entries)
	b.Entries = entries
	if b.Cursor >= len(b.Entries) {
		b.Cursor = len(b.Entries) - 1
	}
	if b.Cursor < 0 {
		b.Cursor = 0
	}
	return nil
}

// Selected returns the entry under the cursor, or ok=false if the
// directory is empty.
func (b *Browser) Selected() (volume.DirEntry, bool) {
	if b.Cursor < 0 || b.Cursor >= len(b.Entries) {
		return volume.DirEntry{}, false
	}
	return b.Entries[b.Cursor], true
}

func joinPath(dir, name string) string {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return "/" + name
	}
	return dir + "/" + name
}

func parentPath(path string) string {
	path = strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "/"
	}
	return path[:idx]
}

// EnsureVisible adjusts Scroll so the cursor lies within a window of rows
// entries, mirroring editor.Document.EnsureVisible's rectangle invariant.
func (b *Browser) EnsureVisible(rows int) {
	if b.Cursor < b.Scroll {
		b.Scroll = b.Cursor
	}
	if b.Cursor >= b.Scroll+rows {
		b.Scroll = b.Cursor - rows + 1
	}
}

// Dispatch routes one key event through spec.md §4.8's operations.
func (b *Browser) Dispatch(ev keyboard.KeyEvent) Result {
	if b.promptActive != promptNone {
		return b.dispatchPrompt(ev)
	}

	switch ev.Code {
	case keyboard.KeyUp:
		if b.Cursor > 0 {
			b.Cursor--
		}
		return Result{}
	case keyboard.KeyDown:
		if b.Cursor < len(b.Entries)-1 {
			b.Cursor++
		}
		return Result{}
	case keyboard.KeyHome:
		b.Cursor = 0
		return Result{}
	case keyboard.KeyEnd:
		b.Cursor = len(b.Entries) - 1
		return Result{}
	}

	r := rune(ev.Code)
	switch {
	case r == '\r' || r == '\n':
		return b.enter()
	case r == 0x08 || r == 0x7F:
		return b.navigateUp()
	}

	switch ev.Code {
	case keyboard.KeyF3:
		b.copyPathToRegister()
		return Result{}
	case keyboard.KeyF8:
		return b.paste()
	case keyboard.KeyF4:
		b.promptActive = promptNewFile
		b.promptBuf = nil
		return Result{}
	case keyboard.KeyF9:
		if sel, ok := b.Selected(); ok {
			b.promptActive = promptRename
			b.promptBuf = []byte(sel.Name)
		}
		return Result{}
	case keyboard.KeyF12:
		if b.OnRemovableVolume {
			return Result{Action: ActionInvokeClone, Path: b.Path}
		}
		return Result{}
	}
	return Result{}
}

// enter implements "Enter on a directory navigates into it; Enter on a file
// launches the editor (always, even for binaries)".
func (b *Browser) enter() Result {
	sel, ok := b.Selected()
	if !ok {
		return Result{}
	}
	if sel.IsDir {
		b.Path = joinPath(b.Path, sel.Name)
		b.Cursor, b.Scroll = 0, 0
		if err := b.Refresh(); err != nil {
			return Result{Err: err}
		}
		return Result{}
	}
	return Result{Action: ActionOpenEditor, Path: joinPath(b.Path, sel.Name)}
}

// navigateUp implements Backspace.
func (b *Browser) navigateUp() Result {
	if b.Path == "/" || b.Path == "" {
		return Result{}
	}
	b.Path = parentPath(b.Path)
	b.Cursor, b.Scroll = 0, 0
	if err := b.Refresh(); err != nil {
		return Result{Err: err}
	}
	return Result{}
}

// copyPathToRegister implements F3.
func (b *Browser) copyPathToRegister() {
	sel, ok := b.Selected()
	if !ok || sel.IsDir {
		return
	}
	b.pasteRegister = joinPath(b.Path, sel.Name)
}

// paste implements F8: copies the register file's contents into the
// current directory under its original name.
func (b *Browser) paste() Result {
	if b.pasteRegister == "" {
		return Result{}
	}
	data, err := b.Vol.ReadFile(b.pasteRegister)
	if err != nil {
		return Result{Err: err}
	}
	name := b.pasteRegister
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	dst := joinPath(b.Path, name)
	if err := b.Vol.WriteFile(dst, data, nil); err != nil {
		return Result{Err: err}
	}
	if err := b.Refresh(); err != nil {
		return Result{Err: err}
	}
	return Result{}
}

// dispatchPrompt feeds keystrokes into the active F4/F9 filename prompt:
// printable ASCII appends, Backspace removes the last byte, Enter commits,
// Escape cancels.
func (b *Browser) dispatchPrompt(ev keyboard.KeyEvent) Result {
	r := rune(ev.Code)
	switch {
	case ev.Code == keyboard.KeyEscape:
		b.promptActive = promptNone
		b.promptBuf = nil
		return Result{}
	case r == '\r' || r == '\n':
		return b.commitPrompt()
	case r == 0x08 || r == 0x7F:
		if len(b.promptBuf) > 0 {
			b.promptBuf = b.promptBuf[:len(b.promptBuf)-1]
		}
		return Result{}
	case r >= 0x20 && r <= 0x7E:
		b.promptBuf = append(b.promptBuf, byte(r))
		return Result{}
	}
	return Result{}
}

func (b *Browser) commitPrompt() Result {
	kind := b.promptActive
	name := string(b.promptBuf)
	b.promptActive = promptNone
	b.promptBuf = nil

	if name == "" {
		return Result{}
	}

	switch kind {
	case promptNewFile:
		return Result{Action: ActionNewFileEditor, Path: joinPath(b.Path, name)}
	case promptRename:
		sel, ok := b.Selected()
		if !ok {
			return Result{}
		}
		oldPath := joinPath(b.Path, sel.Name)
		newPath := joinPath(b.Path, name)
		if err := b.Vol.Rename(oldPath, newPath); err != nil {
			return Result{Err: err}
		}
		if err := b.Refresh(); err != nil {
			return Result{Err: err}
		}
		return Result{}
	}
	return Result{}
}

// PromptActive reports whether F4/F9's filename prompt is currently armed,
// and which one.
func (b *Browser) PromptActive() bool { return b.promptActive != promptNone }

// PromptText returns the prompt's current buffer contents, for rendering.
func (b *Browser) PromptText() string { return string(b.promptBuf) }

// StatusText builds the context-sensitive status bar line spec.md §4.8
// requires: the meaningful keys vary with whether a prompt is active and
// what's under the cursor.
func (b *Browser) StatusText() string {
	if b.promptActive == promptNewFile {
		return "New file name: " + b.PromptText() + "_  [Enter=create  Esc=cancel]"
	}
	if b.promptActive == promptRename {
		return "Rename to: " + b.PromptText() + "_  [Enter=rename  Esc=cancel]"
	}

	var keys []string
	keys = append(keys, "Enter=open")
	if b.Path != "/" && b.Path != "" {
		keys = append(keys, "Bksp=up")
	}
	keys = append(keys, "F3=copy", "F8=paste", "F4=new", "F9=rename")
	if b.OnRemovableVolume {
		keys = append(keys, "F12=clone")
	}
	return strings.Join(keys, "  ")
}

package editor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/editor"
	"github.com/lowlevel-dev/survival/keyboard"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/volume"
)

// fakeVolume is a minimal in-memory volume.Volume used to exercise
// Document.Save without pulling in a real filesystem driver.
type fakeVolume struct {
	files map[string][]byte
	free  uint64
	total uint64
}

func newFakeVolume(free uint64) *fakeVolume {
	return &fakeVolume{files: map[string][]byte{}, free: free, total: free}
}

func (v *fakeVolume) Mount(dev platform.BlockDevice) error { return nil }
func (v *fakeVolume) OpenDir(path string) ([]volume.DirEntry, error) { return nil, nil }
func (v *fakeVolume) Mkdir(path string) error                        { return nil }
func (v *fakeVolume) ReadFile(path string) ([]byte, error)           { return v.files[path], nil }
func (v *fakeVolume) WriteFile(path string, data []byte, progress func(done, total int)) error {
	v.files[path] = append([]byte(nil), data...)
	return nil
}
func (v *fakeVolume) Rename(oldPath, newPath string) error { return nil }
func (v *fakeVolume) Remove(path string) error             { return nil }
func (v *fakeVolume) FreeSpace() (uint64, uint64)          { return v.free, v.total }
func (v *fakeVolume) Label() string                        { return "" }

func TestInsertByteAdvancesCursor(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('h')
	doc.InsertByte('i')
	assert.Equal(t, "hi", string(doc.Line(0)))
	assert.Equal(t, 2, doc.CursorX)
	assert.True(t, doc.Modified)
}

func TestSplitLineCreatesNewLineAtCursor(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('a')
	doc.InsertByte('b')
	doc.CursorX = 1
	doc.SplitLine()
	require.Equal(t, 2, doc.LineCount())
	assert.Equal(t, "a", string(doc.Line(0)))
	assert.Equal(t, "b", string(doc.Line(1)))
	assert.Equal(t, 1, doc.CursorY)
	assert.Equal(t, 0, doc.CursorX)
}

func TestBackspaceJoinsLines(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('a')
	doc.SplitLine()
	doc.InsertByte('b')
	doc.CursorY, doc.CursorX = 1, 0
	doc.Backspace()
	require.Equal(t, 1, doc.LineCount())
	assert.Equal(t, "ab", string(doc.Line(0)))
	assert.Equal(t, 1, doc.CursorX)
}

func TestDeleteForwardJoinsNextLine(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('a')
	doc.SplitLine()
	doc.InsertByte('b')
	doc.CursorY, doc.CursorX = 0, 1
	doc.DeleteForward()
	require.Equal(t, 1, doc.LineCount())
	assert.Equal(t, "ab", string(doc.Line(0)))
}

func TestMoveLeftWrapsToPreviousLine(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('a')
	doc.SplitLine()
	doc.CursorX = 0
	doc.MoveLeft()
	assert.Equal(t, 0, doc.CursorY)
	assert.Equal(t, 1, doc.CursorX)
}

func TestMoveRightWrapsToNextLine(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('a')
	doc.SplitLine()
	doc.CursorY, doc.CursorX = 0, 1
	doc.MoveRight()
	assert.Equal(t, 1, doc.CursorY)
	assert.Equal(t, 0, doc.CursorX)
}

func TestSelectionDeleteSameLine(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("hello") {
		doc.InsertByte(b)
	}
	doc.CursorX = 1
	doc.ToggleSelection()
	doc.CursorX = 4
	doc.DeleteSelection()
	assert.Equal(t, "ho", string(doc.Line(0)))
	assert.False(t, doc.HasSelection())
}

func TestSelectionDeleteMultiLine(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("one") {
		doc.InsertByte(b)
	}
	doc.SplitLine()
	for _, b := range []byte("two") {
		doc.InsertByte(b)
	}
	doc.SplitLine()
	for _, b := range []byte("three") {
		doc.InsertByte(b)
	}
	// select from (0,1) to (2,2): "ne" + "two" + "th"
	doc.CursorY, doc.CursorX = 0, 1
	doc.ToggleSelection()
	doc.CursorY, doc.CursorX = 2, 2
	doc.DeleteSelection()
	require.Equal(t, 1, doc.LineCount())
	assert.Equal(t, "oree", string(doc.Line(0)))
}

func TestCopyCutPasteRoundTrip(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("hello") {
		doc.InsertByte(b)
	}
	doc.CursorX = 0
	doc.ToggleSelection()
	doc.CursorX = 5
	doc.Copy()
	assert.Equal(t, "hello", string(doc.ClipboardContents()))

	// Copy leaves the selection active (only F3 or a fresh anchor clears
	// it); a realistic copy-then-paste-elsewhere flow toggles it off first,
	// since Paste's "delete-selection-if-any" rule would otherwise eat the
	// just-copied text right back up.
	doc.ToggleSelection()
	doc.CursorX = 5
	doc.Paste()
	assert.Equal(t, "hellohello", string(doc.Line(0)))
}

func TestCutRemovesSelectionAndKeepsClipboard(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("hello") {
		doc.InsertByte(b)
	}
	doc.CursorX = 1
	doc.ToggleSelection()
	doc.CursorX = 4
	doc.Cut()
	assert.Equal(t, "ho", string(doc.Line(0)))
	assert.Equal(t, "ell", string(doc.ClipboardContents()))
}

func TestPasteWithEmbeddedNewlineSplitsLines(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("a") {
		doc.InsertByte(b)
	}
	doc.SplitLine()
	for _, b := range []byte("d") {
		doc.InsertByte(b)
	}
	doc.CursorY, doc.CursorX = 0, 0
	doc.ToggleSelection()
	doc.CursorY, doc.CursorX = 1, 1
	doc.Cut() // clipboard now holds "a\nd"

	fresh := editor.NewDocument()
	fresh.Paste()
	require.Equal(t, 2, fresh.LineCount())
	assert.Equal(t, "a", string(fresh.Line(0)))
	assert.Equal(t, "d", string(fresh.Line(1)))
}

func TestRecomputeSyntaxStateTracksBlockComments(t *testing.T) {
	doc := editor.LoadDocument([]byte("int x; /* start\nstill inside */ int y;\nint z;"), "f.c", volume.DirEntry{})
	state := doc.RecomputeSyntaxState()
	require.Len(t, state, 3)
	assert.EqualValues(t, 0, state[0])
	assert.EqualValues(t, 1, state[1])
	assert.EqualValues(t, 0, state[2])
}

func TestTokenizeLineClassifiesTokens(t *testing.T) {
	line := []byte(`int x = "hi"; // note`)
	colors := editor.TokenizeLine(line, false)
	require.Len(t, colors, len(line))
	assert.Equal(t, editor.ColorTypeName, colors[0]) // 'i' of int
	quoteIdx := 8
	assert.Equal(t, editor.ColorString, colors[quoteIdx])
	commentIdx := len(line) - 1
	assert.Equal(t, editor.ColorComment, colors[commentIdx])
}

func TestTokenizePreprocessorLine(t *testing.T) {
	line := []byte(`#include <stdio.h>`)
	colors := editor.TokenizeLine(line, false)
	for _, c := range colors {
		assert.Equal(t, editor.ColorPreprocessor, c)
	}
}

func TestSaveWritesThroughVolumeAndClearsModified(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("hello") {
		doc.InsertByte(b)
	}
	vol := newFakeVolume(1 << 20)
	require.NoError(t, doc.Save(vol, "/note.txt"))
	assert.False(t, doc.Modified)
	assert.Equal(t, "hello", string(vol.files["/note.txt"]))
}

func TestSaveRejectsInsufficientSpace(t *testing.T) {
	doc := editor.NewDocument()
	for _, b := range []byte("hello world") {
		doc.InsertByte(b)
	}
	vol := newFakeVolume(2)
	err := doc.Save(vol, "/note.txt")
	assert.ErrorIs(t, err, editor.ErrInsufficientSpace)
}

func TestDispatchPureCursorMoveRedrawsTwoRows(t *testing.T) {
	doc := editor.LoadDocument([]byte("one\ntwo\nthree"), "f.txt", volume.DirEntry{})
	ed := editor.NewEditor(doc, 10, 20)
	plan := ed.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyDown})
	assert.False(t, plan.Full)
	assert.ElementsMatch(t, []int{0, 1}, plan.Rows)
}

func TestDispatchTypingForcesFullRedraw(t *testing.T) {
	doc := editor.NewDocument()
	ed := editor.NewEditor(doc, 10, 20)
	plan := ed.Dispatch(keyboard.KeyEvent{Code: keyboard.Code('x')})
	assert.True(t, plan.Full)
}

func TestDispatchRoutesNormalizedCtrlCAndCtrlVToCopyAndPaste(t *testing.T) {
	doc := editor.LoadDocument([]byte("hello"), "f.txt", volume.DirEntry{})
	ed := editor.NewEditor(doc, 10, 20)

	doc.CursorX = 0
	doc.ToggleSelection()
	doc.CursorX = 5
	// keyboard.FromRaw normalizes a real Ctrl+C keypress to code 3
	// regardless of which scancode the firmware reports; Dispatch must
	// treat it the same as the Ctrl+Insert CUA combination.
	ed.Dispatch(keyboard.KeyEvent{Code: 3, Modifiers: keyboard.ModCtrl})
	assert.Equal(t, "hello", string(doc.ClipboardContents()))

	doc.ToggleSelection()
	doc.CursorX = 5
	ed.Dispatch(keyboard.KeyEvent{Code: 22, Modifiers: keyboard.ModCtrl})
	assert.Equal(t, "hellohello", string(doc.Line(0)))
}

func TestExitFlowSaveThenDiscardThenCancel(t *testing.T) {
	doc := editor.NewDocument()
	doc.InsertByte('x')
	ed := editor.NewEditor(doc, 10, 20)
	vol := newFakeVolume(1 << 20)

	require.True(t, ed.RequestExit())
	outcome := ed.ResolveExit(keyboard.KeyEvent{Code: keyboard.KeyF2}, vol)
	assert.Equal(t, editor.ExitSaved, outcome)
	assert.False(t, ed.DialogActive())

	doc.InsertByte('y')
	require.True(t, ed.RequestExit())
	outcome = ed.ResolveExit(keyboard.KeyEvent{Code: keyboard.KeyF10}, vol)
	assert.Equal(t, editor.ExitDiscarded, outcome)

	doc.InsertByte('z')
	require.True(t, ed.RequestExit())
	outcome = ed.ResolveExit(keyboard.KeyEvent{Code: keyboard.KeyEscape}, vol)
	assert.Equal(t, editor.ExitCancelled, outcome)
	assert.False(t, ed.DialogActive())
}

func TestExitNotNeededWhenUnmodified(t *testing.T) {
	doc := editor.NewDocument()
	ed := editor.NewEditor(doc, 10, 20)
	assert.False(t, ed.RequestExit())
}

func TestLoadDocumentRoundTripsSerialize(t *testing.T) {
	original := []byte("line one\nline two\nline three")
	doc := editor.LoadDocument(original, "/f.txt", volume.DirEntry{Size: uint64(len(original))})
	assert.Equal(t, original, doc.Serialize())
}

package browser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/browser"
	"github.com/lowlevel-dev/survival/keyboard"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/volume"
)

// fakeVolume is a minimal in-memory volume.Volume: directories are implicit
// in file path prefixes, listed by scanning every known path.
type fakeVolume struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newFakeVolume() *fakeVolume {
	return &fakeVolume{files: map[string][]byte{}, dirs: map[string]bool{"/": true}}
}

func (v *fakeVolume) Mount(dev platform.BlockDevice) error { return nil }

func (v *fakeVolume) OpenDir(path string) ([]volume.DirEntry, error) {
	if path != "/" && !v.dirs[path] {
		return nil, nil
	}
	prefix := path
	if prefix != "/" {
		prefix += "/"
	} else {
		prefix = "/"
	}
	seen := map[string]bool{}
	var out []volume.DirEntry
	for p := range v.dirs {
		if p == path || p == "/" {
			continue
		}
		rest, ok := trimPrefix(p, prefix)
		if !ok || rest == "" || containsSlash(rest) {
			continue
		}
		if !seen[rest] {
			seen[rest] = true
			out = append(out, volume.DirEntry{Name: rest, IsDir: true})
		}
	}
	for p, data := range v.files {
		rest, ok := trimPrefix(p, prefix)
		if !ok || rest == "" || containsSlash(rest) {
			continue
		}
		if !seen[rest] {
			seen[rest] = true
			out = append(out, volume.DirEntry{Name: rest, Size: uint64(len(data))})
		}
	}
	return out, nil
}

func trimPrefix(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return "", false
	}
	return s[len(prefix):], true
}

func containsSlash(s string) bool {
	for _, c := range s {
		if c == '/' {
			return true
		}
	}
	return false
}

func (v *fakeVolume) Mkdir(path string) error {
	v.dirs[path] = true
	return nil
}
func (v *fakeVolume) ReadFile(path string) ([]byte, error) { return v.files[path], nil }
func (v *fakeVolume) WriteFile(path string, data []byte, progress func(done, total int)) error {
	v.files[path] = append([]byte(nil), data...)
	return nil
}
func (v *fakeVolume) Rename(oldPath, newPath string) error {
	if data, ok := v.files[oldPath]; ok {
		delete(v.files, oldPath)
		v.files[newPath] = data
		return nil
	}
	if v.dirs[oldPath] {
		delete(v.dirs, oldPath)
		v.dirs[newPath] = true
		return nil
	}
	return nil
}
func (v *fakeVolume) Remove(path string) error {
	delete(v.files, path)
	delete(v.dirs, path)
	return nil
}
func (v *fakeVolume) FreeSpace() (uint64, uint64) { return 1 << 20, 1 << 20 }
func (v *fakeVolume) Label() string               { return "" }

func sendEnter(b *browser.Browser) browser.Result {
	return b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code('\r')})
}

func TestEnterOnDirectoryNavigatesIn(t *testing.T) {
	vol := newFakeVolume()
	vol.Mkdir("/docs")
	vol.files["/readme.txt"] = []byte("hi")
	b, err := browser.NewBrowser(vol, "/", false)
	require.NoError(t, err)
	require.Len(t, b.Entries, 2)

	// Directories sort first: "docs" should be entry 0.
	require.True(t, b.Entries[0].IsDir)
	b.Cursor = 0
	res := sendEnter(b)
	assert.Equal(t, browser.ActionNone, res.Action)
	assert.Equal(t, "/docs", b.Path)
}

func TestEnterOnFileReturnsOpenEditorAction(t *testing.T) {
	vol := newFakeVolume()
	vol.files["/readme.txt"] = []byte("hi")
	b, err := browser.NewBrowser(vol, "/", false)
	require.NoError(t, err)
	b.Cursor = 0
	res := sendEnter(b)
	assert.Equal(t, browser.ActionOpenEditor, res.Action)
	assert.Equal(t, "/readme.txt", res.Path)
}

func TestBackspaceNavigatesUp(t *testing.T) {
	vol := newFakeVolume()
	vol.Mkdir("/docs")
	vol.files["/docs/a.txt"] = []byte("x")
	b, err := browser.NewBrowser(vol, "/docs", false)
	require.NoError(t, err)
	b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code(0x08)})
	assert.Equal(t, "/", b.Path)
}

func TestF3CopyThenF8PasteDuplicatesFile(t *testing.T) {
	vol := newFakeVolume()
	vol.Mkdir("/dst")
	vol.files["/a.txt"] = []byte("payload")
	b, err := browser.NewBrowser(vol, "/", false)
	require.NoError(t, err)

	// Select "a.txt" (after "dst" in sorted order) and copy it.
	for i, e := range b.Entries {
		if e.Name == "a.txt" {
			b.Cursor = i
		}
	}
	b.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyF3})

	b.Path = "/dst"
	require.NoError(t, b.Refresh())
	res := b.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyF8})
	require.NoError(t, res.Err)
	assert.Equal(t, []byte("payload"), vol.files["/dst/a.txt"])
}

func TestF4PromptsNewFilenameAndLaunchesEditor(t *testing.T) {
	vol := newFakeVolume()
	b, err := browser.NewBrowser(vol, "/", false)
	require.NoError(t, err)

	b.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyF4})
	require.True(t, b.PromptActive())
	for _, c := range "new.txt" {
		b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code(c)})
	}
	res := b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code('\r')})
	assert.Equal(t, browser.ActionNewFileEditor, res.Action)
	assert.Equal(t, "/new.txt", res.Path)
	assert.False(t, b.PromptActive())
}

func TestF9RenamesSelectedEntry(t *testing.T) {
	vol := newFakeVolume()
	vol.files["/old.txt"] = []byte("data")
	b, err := browser.NewBrowser(vol, "/", false)
	require.NoError(t, err)
	b.Cursor = 0

	b.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyF9})
	require.True(t, b.PromptActive())
	// Clear the pre-filled name and type a new one.
	for range b.PromptText() {
		b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code(0x08)})
	}
	for _, c := range "new.txt" {
		b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code(c)})
	}
	b.Dispatch(keyboard.KeyEvent{Code: keyboard.Code('\r')})

	_, hasOld := vol.files["/old.txt"]
	assert.False(t, hasOld)
	assert.Equal(t, []byte("data"), vol.files["/new.txt"])
}

func TestF12OnlyInvokesCloneOnRemovableVolume(t *testing.T) {
	vol := newFakeVolume()
	b, err := browser.NewBrowser(vol, "/", false)
	require.NoError(t, err)
	res := b.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyF12})
	assert.Equal(t, browser.ActionNone, res.Action)

	removable, err := browser.NewBrowser(vol, "/", true)
	require.NoError(t, err)
	res = removable.Dispatch(keyboard.KeyEvent{Code: keyboard.KeyF12})
	assert.Equal(t, browser.ActionInvokeClone, res.Action)
}

func TestStatusTextListsCloneOnlyWhenRemovable(t *testing.T) {
	vol := newFakeVolume()
	b, _ := browser.NewBrowser(vol, "/", false)
	assert.NotContains(t, b.StatusText(), "F12")

	removable, _ := browser.NewBrowser(vol, "/", true)
	assert.Contains(t, removable.StatusText(), "F12")
}

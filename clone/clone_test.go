package clone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/clone"
	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/platform"
	"github.com/lowlevel-dev/survival/volume"
)

// fakeVolume is a minimal in-memory volume.Volume, directories tracked
// explicitly since the clone engine relies on Mkdir's idempotency.
type fakeVolume struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newFakeVolume() *fakeVolume {
	return &fakeVolume{files: map[string][]byte{}, dirs: map[string]bool{"/": true}}
}

func (v *fakeVolume) Mount(dev platform.BlockDevice) error { return nil }

func (v *fakeVolume) OpenDir(path string) ([]volume.DirEntry, error) {
	prefix := path
	if prefix != "/" {
		prefix += "/"
	}
	seen := map[string]bool{}
	var out []volume.DirEntry
	for p := range v.dirs {
		rest, ok := trimPrefix(p, prefix)
		if !ok || rest == "" || containsSlash(rest) || seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, volume.DirEntry{Name: rest, IsDir: true})
	}
	for p, data := range v.files {
		rest, ok := trimPrefix(p, prefix)
		if !ok || rest == "" || containsSlash(rest) || seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, volume.DirEntry{Name: rest, Size: uint64(len(data))})
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
	if v.dirs[path] {
		return survivalerrors.ErrExists
	}
	v.dirs[path] = true
	return nil
}
func (v *fakeVolume) ReadFile(path string) ([]byte, error) { return v.files[path], nil }
func (v *fakeVolume) WriteFile(path string, data []byte, progress func(done, total int)) error {
	v.files[path] = append([]byte(nil), data...)
	return nil
}
func (v *fakeVolume) Rename(oldPath, newPath string) error { return nil }
func (v *fakeVolume) Remove(path string) error             { return nil }
func (v *fakeVolume) FreeSpace() (uint64, uint64)          { return 1 << 20, 1 << 20 }
func (v *fakeVolume) Label() string                        { return "" }

func TestRunRefusesWithoutConfirmation(t *testing.T) {
	boot, target := newFakeVolume(), newFakeVolume()
	e := clone.NewEngine(boot, target)
	err := e.Run("/", "/", nil)
	assert.Error(t, err)
}

func TestConfirmRequiresYKey(t *testing.T) {
	e := clone.NewEngine(newFakeVolume(), newFakeVolume())
	assert.False(t, e.Confirm('n'))
	assert.False(t, e.Confirmed())
	assert.True(t, e.Confirm('y'))
	assert.True(t, e.Confirmed())
}

func TestRunClonesNestedDirectoriesAndFiles(t *testing.T) {
	boot := newFakeVolume()
	boot.dirs["/docs"] = true
	boot.files["/docs/a.txt"] = []byte("hello")
	boot.files["/root.txt"] = []byte("top level")

	target := newFakeVolume()
	e := clone.NewEngine(boot, target)
	require.True(t, e.Confirm('Y'))

	var statuses []string
	err := e.Run("/", "/", func(s string) { statuses = append(statuses, s) })
	require.NoError(t, err)

	assert.Equal(t, []byte("hello"), target.files["/docs/a.txt"])
	assert.Equal(t, []byte("top level"), target.files["/root.txt"])
	assert.True(t, target.dirs["/docs"])
	assert.NotEmpty(t, statuses)
}

func TestRunIsIdempotentOnPreexistingDirectories(t *testing.T) {
	boot := newFakeVolume()
	boot.dirs["/docs"] = true
	boot.files["/docs/a.txt"] = []byte("hello")

	target := newFakeVolume()
	target.dirs["/docs"] = true // already present on the target

	e := clone.NewEngine(boot, target)
	e.Confirm('Y')
	require.NoError(t, e.Run("/", "/", nil))
	assert.Equal(t, []byte("hello"), target.files["/docs/a.txt"])
}

func TestRunStopsOnFirstError(t *testing.T) {
	boot := &erroringVolume{fakeVolume: newFakeVolume()}
	boot.dirs["/docs"] = true
	boot.files["/docs/a.txt"] = []byte("hello")

	target := newFakeVolume()
	e := clone.NewEngine(boot, target)
	e.Confirm('Y')
	err := e.Run("/", "/", nil)
	assert.Error(t, err)
}

// erroringVolume fails every ReadFile, simulating a mid-clone I/O error.
type erroringVolume struct {
	*fakeVolume
}

func (v *erroringVolume) ReadFile(path string) ([]byte, error) {
	return nil, survivalerrors.ErrIOFailed.WithMessage("simulated read failure")
}

// Package clone is component M: the recursive, volume-switching mirror
// engine of spec.md §4.9. No repo in the example pack implements a
// boot-volume-to-target-volume filesystem cloner, so the algorithm here is
// grounded directly on spec.md §4.9's own pseudocode. Every read/write is an
// explicit method call on one of two volume.Volume values (boot, target)
// rather than a mutation of shared "current volume" state, the Go rendering
// of §9's "there is no ambient current volume" principle that SPEC_FULL.md's
// §4.2/§4.3 addition already establishes for browser.
package clone

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
	"github.com/lowlevel-dev/survival/volume"
)

// WarningText is shown on the confirmation screen spec.md §4.9 requires
// before a clone may begin.
const WarningText = "This will overwrite files of the same name on the target volume. Press Y to continue, any other key to cancel."

// ProgressFunc receives a human-readable status line, the equivalent of
// spec.md §4.9's "show 'Copying <dst>' in status bar".
type ProgressFunc func(status string)

// Engine drives one clone operation between two already-mounted volumes:
// Boot (the source, read-only for this operation) and Target (the
// destination). It requires explicit confirmation before Run will do
// anything, per spec.md §4.9's pre-condition.
type Engine struct {
	Boot   volume.Volume
	Target volume.Volume

	confirmed bool
}

// NewEngine returns an Engine ready to clone from boot onto target.
func NewEngine(boot, target volume.Volume) *Engine {
	return &Engine{Boot: boot, Target: target}
}

// Confirm records the user's response to the warning screen: 'Y' (either
// case) arms the engine and reports true; anything else leaves it unarmed.
func (e *Engine) Confirm(r rune) bool {
	if r == 'y' || r == 'Y' {
		e.confirmed = true
		return true
	}
	return false
}

// Confirmed reports whether Confirm has armed the engine.
func (e *Engine) Confirmed() bool { return e.confirmed }

// Run clones every entry under srcPath (on Boot) onto dstPath (on Target),
// recursively, per spec.md §4.9's algorithm. On any filesystem error it
// stops and returns immediately — partial state is left on the target, and
// the caller is expected to have already reported the failing path via
// progress before the error propagated.
func (e *Engine) Run(srcPath, dstPath string, progress ProgressFunc) error {
	if !e.confirmed {
		return survivalerrors.ErrInvalidState.WithMessage("clone attempted without confirmation")
	}
	return cloneDir(e.Boot, e.Target, srcPath, dstPath, progress)
}

func cloneDir(boot, target volume.Volume, srcPath, dstPath string, progress ProgressFunc) error {
	entries, err := boot.OpenDir(srcPath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		src := joinPath(srcPath, entry.Name)
		dst := joinPath(dstPath, entry.Name)

		if entry.IsDir {
			if err := target.Mkdir(dst); err != nil && !errors.Is(err, survivalerrors.ErrExists) {
				return err
			}
			if err := cloneDir(boot, target, src, dst, progress); err != nil {
				return err
			}
			continue
		}

		if progress != nil {
			progress(fmt.Sprintf("Copying %s (%s)", dst, humanize.Bytes(entry.Size)))
		}
		data, err := boot.ReadFile(src)
		if err != nil {
			return err
		}
		if err := target.WriteFile(dst, data, nil); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	if dir[len(dir)-1] == '/' {
		return dir + name
	}
	return dir + "/" + name
}

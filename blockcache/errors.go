package blockcache

import (
	"fmt"

	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

func errNotCached(lba uint64) error {
	return survivalerrors.ErrInvalidState.WithMessage("lba %d is not in cache; Read it first", lba)
}

func errInvariant(msg string) error {
	return survivalerrors.ErrInvalidState.WithMessage("%s", fmt.Sprint(msg))
}

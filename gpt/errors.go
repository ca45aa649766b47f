package gpt

import (
	survivalerrors "github.com/lowlevel-dev/survival/errors"
)

func errTooShort(what string, want, got int) error {
	return survivalerrors.ErrInvalidFormat.WithMessage("%s: need %d bytes, got %d", what, want, got)
}

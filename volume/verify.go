package volume

import (
	"github.com/hashicorp/go-multierror"
)

// Checker is implemented by drivers that can self-audit the structural
// invariants of spec.md §8 (bitmap/FAT agreement, cache invariants, and so
// on). Verify aggregates every violation a Checker reports instead of
// stopping at the first, the same way the teacher's own diagnostic paths
// use hashicorp/go-multierror to collect every validation failure from a
// multi-part structure in one pass.
type Checker interface {
	CheckInvariants() []error
}

// Verify runs c's self-check and folds every reported violation into a
// single error, or returns nil if there were none.
func Verify(c Checker) error {
	var result *multierror.Error
	for _, err := range c.CheckInvariants() {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

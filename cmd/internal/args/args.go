package args

import (
	"fmt"
	"strconv"

	"go.uber.org/multierr"
)

// Uints parses each argument as a non-negative decimal integer.  Every
// malformed argument is reported.
func Uints(args []string) ([]uint64, error) {
	ns := make([]uint64, 0, len(args))
	var errs []error
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid n %q", arg))
			continue
		}

		ns = append(ns, n)
	}

	return ns, multierr.Combine(errs...)
}

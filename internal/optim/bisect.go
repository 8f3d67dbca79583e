package optim

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotBracketed = errors.New("optim: predicate does not change over the interval")

// Bisect finds, within tol, the smallest x in [lo, hi] for which holds
// reports true. holds must be monotone: false below the threshold and true
// from it on.
func Bisect(ctx context.Context, lo, hi, tol float64, holds func(ctx context.Context, x float64) (bool, error)) (float64, error) {
	if !(lo < hi) || !(tol > 0) {
		return 0, fmt.Errorf("optim: bad interval [%v, %v] or tolerance %v", lo, hi, tol)
	}

	ok, err := holds(ctx, hi)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: false at %v", ErrNotBracketed, hi)
	}
	if ok, err = holds(ctx, lo); err != nil {
		return 0, err
	} else if ok {
		return lo, nil
	}

	for hi-lo > tol {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		mid := lo + (hi-lo)/2
		ok, err := holds(ctx, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

package retryflow

import (
	"math"
	"time"
)

// computeWait returns the backoff inserted before retry number n. The count
// is 1-based: n=1 is the wait preceding the second attempt.
//
//	wait = min(factor^(n-1) * minInterval, maxInterval)
//
// With factor=1 the wait is minInterval for every retry. Factor=0 deserves
// a note because the exponent convention trips people up: math.Pow(0, 0)
// is 1, so the first retry still waits minInterval while every retry after
// it waits 0.
//
// The product is computed in float64, so a large factor saturates to +Inf
// and clamps at maxInterval instead of overflowing time.Duration.
func computeWait(n int, factor float64, minInterval, maxInterval time.Duration) time.Duration {
	wait := math.Pow(factor, float64(n-1)) * float64(minInterval)
	if wait > float64(maxInterval) {
		return maxInterval
	}
	return time.Duration(wait)
}

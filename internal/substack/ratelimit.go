package substack

import "golang.org/x/time/rate"

// newLimiter creates the client-side request limiter. Zero values fall back
// to conservative defaults; the batch caps elsewhere in the pipeline are the
// primary burst protection.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 10
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

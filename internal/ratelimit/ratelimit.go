// Package ratelimit throttles clients by IP address using a token
// bucket per address, so one noisy connection cannot starve the
// command loop for everyone else sharing the listener.
package ratelimit

import (
	"golang.org/x/time/rate"

	"github.com/nilbyte/respd/pkg/cmap"
)

// Registry hands out a rate.Limiter per IP, creating one on first
// sight and reusing it for the life of the process.
type Registry struct {
	limiters *cmap.Map[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

// New creates a registry issuing limiters that allow rps commands per
// second per IP, with burst headroom above that. rps <= 0 disables
// limiting: Allow always returns true.
func New(rps float64, burst int) *Registry {
	return &Registry{
		limiters: cmap.New[string, *rate.Limiter](),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a command from ip may proceed right now,
// consuming one token if so.
func (r *Registry) Allow(ip string) bool {
	if r.rps <= 0 {
		return true
	}
	limiter, _ := r.limiters.GetOrSet(ip, rate.NewLimiter(r.rps, r.burst))
	return limiter.Allow()
}

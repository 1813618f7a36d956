package intake

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"shortcast/internal/config"
	"shortcast/internal/jobs"
	"shortcast/internal/services"
)

// Gate enforces the submission boundary: owner authentication, per-owner
// request rate, and the per-owner cap on concurrently active jobs. Requests
// rejected here never reach the pipeline.
type Gate struct {
	cfg   *config.Config
	store *jobs.Store

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGate builds the submission gate.
func NewGate(cfg *config.Config, store *jobs.Store) *Gate {
	return &Gate{
		cfg:      cfg,
		store:    store,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Authorize checks the owner key against the configured owners and returns
// the owner's display name.
func (g *Gate) Authorize(ownerKey string) (string, error) {
	name, ok := g.cfg.OwnerName(ownerKey)
	if !ok {
		return "", services.Wrap(services.ErrUnauthorized, "intake", "authorize", "unrecognized owner key", nil)
	}
	return name, nil
}

// Admit runs the full gate for a submission: authentication, rate limit, and
// the active-job cap, in that order.
func (g *Gate) Admit(ctx context.Context, ownerKey string) error {
	if _, err := g.Authorize(ownerKey); err != nil {
		return err
	}
	if !g.limiter(ownerKey).Allow() {
		return services.Wrap(services.ErrRateLimited, "intake", "admit",
			fmt.Sprintf("rate limit exceeded (%d requests per minute)", g.cfg.Limits.MaxRequestsPerMinute), nil)
	}
	active, err := g.store.CountActive(ctx, ownerKey)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "intake", "admit", "count active jobs", err)
	}
	if active >= g.cfg.Limits.MaxConcurrentJobs {
		return services.Wrap(services.ErrRateLimited, "intake", "admit",
			fmt.Sprintf("too many active jobs (%d of %d)", active, g.cfg.Limits.MaxConcurrentJobs), nil)
	}
	return nil
}

// limiter returns the per-owner request limiter, creating it on first use.
// Burst matches the per-minute budget so a quiet owner can submit a batch.
func (g *Gate) limiter(ownerKey string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	limiter, ok := g.limiters[ownerKey]
	if !ok {
		perMinute := g.cfg.Limits.MaxRequestsPerMinute
		if perMinute < 1 {
			perMinute = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		g.limiters[ownerKey] = limiter
	}
	return limiter
}

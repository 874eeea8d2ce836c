package jwkskit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher periodically refetches the key set so rotated provider keys are
// picked up without waiting for an unknown-kid miss. It is optional; the
// cache works without it.
type Refresher struct {
	cron *cron.Cron
}

// StartRefresher schedules cache refreshes on the given cron spec
// (e.g. "@every 12h"). Refresh failures are logged and the previous key set
// stays in place.
func StartRefresher(cache *Cache, spec string, log *logrus.Logger) (*Refresher, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ks, err := cache.Refresh(ctx)
		if err != nil {
			log.WithError(err).Warn("scheduled jwks refresh failed")
			return
		}
		log.WithField("keys", ks.Len()).Debug("scheduled jwks refresh complete")
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: invalid refresh schedule %q: %w", spec, err)
	}
	c.Start()
	return &Refresher{cron: c}, nil
}

// Stop halts the schedule. Pending runs finish.
func (r *Refresher) Stop() {
	if r != nil && r.cron != nil {
		r.cron.Stop()
	}
}

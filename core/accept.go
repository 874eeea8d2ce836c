package core

import (
	"errors"
	"time"
)

// AcceptConfig describes how tokens from one issuer are accepted.
type AcceptConfig struct {
	Issuer   string
	Audience string // Expected audience for this service (single value)
	JWKSURL  string // optional; discovered from Issuer metadata when empty

	RequiredRole string // application role that gates the protected endpoint

	Skew       time.Duration // clock-skew allowance for expiry checks
	Algorithms []string      // optional narrowing of the RSA allow-list

	// RefreshOnMiss enables one throttled key refetch when a token's kid is
	// not in the cached set (rotation resilience).
	RefreshOnMiss     bool
	RefreshMissLimit  int           // miss-refreshes allowed per window (default 1)
	RefreshMissWindow time.Duration // throttle window (default 5m)

	RefreshCron string        // optional cron spec for scheduled refreshes
	CacheTTL    time.Duration // TTL for the shared document store, if any
}

func (c *AcceptConfig) validate() error {
	if c.Issuer == "" {
		return errors.New("core: issuer is required")
	}
	if c.Audience == "" {
		return errors.New("core: audience is required")
	}
	if c.RequiredRole == "" {
		return errors.New("core: required role is required")
	}
	return nil
}

func (c *AcceptConfig) defaulted() AcceptConfig {
	out := *c
	if out.RefreshMissLimit <= 0 {
		out.RefreshMissLimit = 1
	}
	if out.RefreshMissWindow <= 0 {
		out.RefreshMissWindow = 5 * time.Minute
	}
	return out
}

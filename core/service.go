// Package core wires the key cache, verifier, and authorizer into a single
// service owned by the composition root. The cache's lifetime is the
// service's lifetime; nothing in this package is a global.
package core

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	authzkit "github.com/open-rails/tokengate/authz"
	jwkskit "github.com/open-rails/tokengate/jwks"
	memorylimiter "github.com/open-rails/tokengate/ratelimit/memory"
	tokenkit "github.com/open-rails/tokengate/token"
)

// Service verifies and authorizes bearer tokens for one issuer/audience pair.
type Service struct {
	cfg       AcceptConfig
	cache     *jwkskit.Cache
	verifier  *tokenkit.Verifier
	refresher *jwkskit.Refresher
	store     jwkskit.DocumentStore
	log       *logrus.Logger
	audit     AuthEventLogger
}

// ServiceOpt configures optional collaborators.
type ServiceOpt func(*Service)

// WithLogger sets the structured logger. Defaults to logrus.StandardLogger.
func WithLogger(log *logrus.Logger) ServiceOpt {
	return func(s *Service) { s.log = log }
}

// WithAuditLogger routes verification outcomes to an audit sink.
func WithAuditLogger(a AuthEventLogger) ServiceOpt {
	return func(s *Service) { s.audit = a }
}

// WithDocumentStore shares the fetched JWKS document through the given store
// (memory or Redis) before the network is consulted.
func WithDocumentStore(store jwkskit.DocumentStore) ServiceOpt {
	return func(s *Service) { s.store = store }
}

// NewService resolves the JWKS URL (from config or issuer metadata), builds
// the fetch, cache, and verify pipeline, and starts the optional scheduled
// refresher.
func NewService(ctx context.Context, cfg AcceptConfig, opts ...ServiceOpt) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.defaulted()

	s := &Service{cfg: cfg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		resolved, err := jwkskit.ResolveJWKSURL(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("core: resolve jwks url: %w", err)
		}
		jwksURL = resolved
	}

	var fetchOpts []jwkskit.FetcherOpt
	if s.store != nil {
		fetchOpts = append(fetchOpts, jwkskit.WithDocumentStore(s.store))
	}
	fetcher := jwkskit.NewFetcher(jwksURL, fetchOpts...)

	var cacheOpts []jwkskit.CacheOpt
	if cfg.RefreshOnMiss {
		throttle := memorylimiter.New(map[string]memorylimiter.Limit{
			jwkskit.ThrottleBucket: {Limit: cfg.RefreshMissLimit, Window: cfg.RefreshMissWindow},
		})
		cacheOpts = append(cacheOpts, jwkskit.WithMissThrottle(throttle))
	}
	s.cache = jwkskit.NewCache(fetcher, cacheOpts...)

	var verifyOpts []tokenkit.VerifierOpt
	if cfg.Skew > 0 {
		verifyOpts = append(verifyOpts, tokenkit.WithSkew(cfg.Skew))
	}
	if len(cfg.Algorithms) > 0 {
		verifyOpts = append(verifyOpts, tokenkit.WithAlgorithms(cfg.Algorithms))
	}
	s.verifier = tokenkit.NewVerifier(s.cache, cfg.Issuer, cfg.Audience, verifyOpts...)

	if cfg.RefreshCron != "" {
		r, err := jwkskit.StartRefresher(s.cache, cfg.RefreshCron, s.log)
		if err != nil {
			return nil, err
		}
		s.refresher = r
	}
	return s, nil
}

// VerifyToken authenticates a raw bearer token.
func (s *Service) VerifyToken(ctx context.Context, raw string) (*tokenkit.Claims, error) {
	claims, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		s.log.WithError(err).Debug("token rejected")
		if s.audit != nil {
			s.audit.LogVerification(ctx, "", OutcomeRejected, tokenkit.PublicMessage(err))
		}
		return nil, err
	}
	return claims, nil
}

// Authorize applies the configured role requirement to verified claims.
func (s *Service) Authorize(ctx context.Context, claims *tokenkit.Claims) authzkit.Decision {
	d := authzkit.Authorize(claims, s.cfg.RequiredRole)
	if s.audit != nil {
		if d.Allowed {
			s.audit.LogVerification(ctx, d.Subject, OutcomeAccepted, d.Scope)
		} else {
			subject := ""
			if claims != nil {
				subject = claims.Subject
			}
			s.audit.LogVerification(ctx, subject, OutcomeDenied, d.Reason)
		}
	}
	return d
}

// Cache exposes the key cache for warmup and diagnostics.
func (s *Service) Cache() *jwkskit.Cache { return s.cache }

// RequiredRole reports the role gating the protected endpoint.
func (s *Service) RequiredRole() string { return s.cfg.RequiredRole }

// Close stops background refreshes.
func (s *Service) Close() {
	if s.refresher != nil {
		s.refresher.Stop()
	}
}

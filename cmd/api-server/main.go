// Command api-server exposes a single role-protected endpoint. Inbound
// bearer tokens are verified against the configured issuer's published
// signing keys; callers holding the required application role get a
// greeting, everyone else gets 401 or 403.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	authgin "github.com/open-rails/tokengate/adapters/gin"
	"github.com/open-rails/tokengate/config"
	core "github.com/open-rails/tokengate/core"
	jwkskit "github.com/open-rails/tokengate/jwks"
	memorystore "github.com/open-rails/tokengate/storage/memory"
	redisstore "github.com/open-rails/tokengate/storage/redis"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store jwkskit.DocumentStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store = redisstore.NewJWKSCache(rdb, "", cfg.Auth.CacheTTL)
		log.WithField("addr", cfg.Redis.Addr).Info("using redis jwks cache")
	} else {
		store = memorystore.NewJWKSCache(cfg.Auth.CacheTTL)
	}

	svc, err := core.NewService(ctx, core.AcceptConfig{
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
		JWKSURL:       cfg.Auth.JWKSURL,
		RequiredRole:  cfg.Auth.RequiredRole,
		Skew:          cfg.Auth.Skew,
		RefreshOnMiss: cfg.Auth.RefreshOnMiss,
		RefreshCron:   cfg.Auth.RefreshCron,
		CacheTTL:      cfg.Auth.CacheTTL,
	},
		core.WithLogger(log),
		core.WithDocumentStore(store),
		core.WithAuditLogger(core.LogrusAuditLogger{Log: log}),
	)
	if err != nil {
		log.WithError(err).Fatal("build auth service")
	}
	defer svc.Close()
	log.WithFields(logrus.Fields{
		"issuer": cfg.Auth.Issuer,
		"role":   svc.RequiredRole(),
	}).Info("auth service ready")

	// Warm the key cache so the first request does not pay for discovery.
	// Failure is non-fatal: the next verification retries.
	if ks, err := svc.Cache().Get(ctx); err != nil {
		log.WithError(err).Warn("jwks warmup failed")
	} else {
		log.WithField("keys", ks.Len()).Info("jwks cache warmed")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(authgin.RequestID(), authgin.RequestLogger(log), gin.Recovery())
	r.GET("/healthz", authgin.HandleHealthzGET())

	protected := r.Group("/", authgin.BearerAuth(svc), authgin.RequireRole(svc))
	protected.GET("/hello", authgin.HandleHelloGET())

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

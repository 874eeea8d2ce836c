package config

import (
	"testing"
	"time"
)

func TestLoadRequiresIssuerAndAudience(t *testing.T) {
	t.Setenv("TENANT_ID", "")
	t.Setenv("ISSUER", "")
	t.Setenv("AUDIENCE", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without issuer")
	}

	t.Setenv("ISSUER", "https://issuer.example")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without audience")
	}
}

func TestLoadDerivesTenantEndpoints(t *testing.T) {
	t.Setenv("TENANT_ID", "contoso-tenant")
	t.Setenv("ISSUER", "")
	t.Setenv("JWKS_URL", "")
	t.Setenv("AUDIENCE", "api://my-api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantIss := "https://login.microsoftonline.com/contoso-tenant/v2.0"
	if cfg.Auth.Issuer != wantIss {
		t.Errorf("issuer = %q, want %q", cfg.Auth.Issuer, wantIss)
	}
	wantJWKS := "https://login.microsoftonline.com/contoso-tenant/discovery/v2.0/keys"
	if cfg.Auth.JWKSURL != wantJWKS {
		t.Errorf("jwks url = %q, want %q", cfg.Auth.JWKSURL, wantJWKS)
	}
}

func TestLoadExplicitValuesWin(t *testing.T) {
	t.Setenv("TENANT_ID", "contoso-tenant")
	t.Setenv("ISSUER", "https://custom.example/v2.0")
	t.Setenv("JWKS_URL", "https://custom.example/keys")
	t.Setenv("AUDIENCE", "api://my-api")
	t.Setenv("REQUIRED_ROLE", "Task.Other")
	t.Setenv("CLOCK_SKEW", "2m")
	t.Setenv("PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Issuer != "https://custom.example/v2.0" {
		t.Errorf("issuer = %q", cfg.Auth.Issuer)
	}
	if cfg.Auth.JWKSURL != "https://custom.example/keys" {
		t.Errorf("jwks url = %q", cfg.Auth.JWKSURL)
	}
	if cfg.Auth.RequiredRole != "Task.Other" {
		t.Errorf("required role = %q", cfg.Auth.RequiredRole)
	}
	if cfg.Auth.Skew != 2*time.Minute {
		t.Errorf("skew = %v", cfg.Auth.Skew)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "0.0.0.0:9999" {
		t.Errorf("addr = %q", cfg.Server.Addr())
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TENANT_ID", "")
	t.Setenv("JWKS_REFRESH_ON_MISS", "")
	t.Setenv("ISSUER", "https://issuer.example")
	t.Setenv("AUDIENCE", "api://my-api")
	t.Setenv("REQUIRED_ROLE", "")
	t.Setenv("CLOCK_SKEW", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.RequiredRole != "Task.HelloWorld" {
		t.Errorf("required role default = %q", cfg.Auth.RequiredRole)
	}
	if cfg.Auth.Skew != 30*time.Second {
		t.Errorf("skew default = %v", cfg.Auth.Skew)
	}
	if !cfg.Auth.RefreshOnMiss {
		t.Error("refresh on miss should default to true")
	}
}

package memorylimiter

import (
	"testing"
	"time"
)

func TestAllowNamedWithinLimit(t *testing.T) {
	l := New(map[string]Limit{"jwks_refresh": {Limit: 2, Window: time.Minute}})

	for i := 0; i < 2; i++ {
		ok, err := l.AllowNamed("jwks_refresh", "kid-1")
		if err != nil || !ok {
			t.Fatalf("call %d: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, _ := l.AllowNamed("jwks_refresh", "kid-1"); ok {
		t.Error("expected third call to be denied")
	}
	// A different key has its own bucket.
	if ok, _ := l.AllowNamed("jwks_refresh", "kid-2"); !ok {
		t.Error("expected separate key to be allowed")
	}
}

func TestAllowNamedWindowSlides(t *testing.T) {
	l := New(map[string]Limit{"b": {Limit: 1, Window: 20 * time.Millisecond}})

	if ok, _ := l.AllowNamed("b", "k"); !ok {
		t.Fatal("first call should pass")
	}
	if ok, _ := l.AllowNamed("b", "k"); ok {
		t.Fatal("second call should be denied")
	}
	time.Sleep(30 * time.Millisecond)
	if ok, _ := l.AllowNamed("b", "k"); !ok {
		t.Error("expected allowance after the window slid")
	}
}

func TestAllowNamedDefaults(t *testing.T) {
	l := New(map[string]Limit{"default": {Limit: 1, Window: time.Minute}})

	if ok, _ := l.AllowNamed("unconfigured", "k"); !ok {
		t.Fatal("default limit should apply")
	}
	if ok, _ := l.AllowNamed("unconfigured", "k"); ok {
		t.Fatal("default limit should deny the second call")
	}
}

func TestAllowNamedValidation(t *testing.T) {
	l := New(nil)
	if _, err := l.AllowNamed("", "k"); err == nil {
		t.Error("expected error for empty bucket")
	}
	if _, err := l.AllowNamed("b", ""); err == nil {
		t.Error("expected error for empty key")
	}
}

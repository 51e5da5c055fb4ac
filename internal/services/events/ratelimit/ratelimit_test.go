package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowAll(t *testing.T) {
	decision, err := AllowAll{}.Allow(context.Background(), "user-1", ActionSubmitRSVP)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected allowed")
	}
}

func TestLimiterFunc(t *testing.T) {
	var limiter Limiter = LimiterFunc(func(_ context.Context, userID string, action Action) (Decision, error) {
		if userID == "noisy" && action == ActionCreateSeries {
			return Decision{RetryAfter: 30 * time.Second}, nil
		}
		return Decision{Allowed: true}, nil
	})

	decision, err := limiter.Allow(context.Background(), "noisy", ActionCreateSeries)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if decision.Allowed || decision.RetryAfter != 30*time.Second {
		t.Fatalf("decision = %+v, want denied with 30s retry", decision)
	}
	if decision, _ := limiter.Allow(context.Background(), "noisy", ActionSubmitRSVP); !decision.Allowed {
		t.Fatal("expected submit to be allowed")
	}
}

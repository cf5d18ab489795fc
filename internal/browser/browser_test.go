package browser

import (
	"context"
	"testing"
	"time"
)

func TestNewContextCancelReleasesDeadline(t *testing.T) {
	ctx, cancel := NewContext(context.Background(), "", 0)
	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if d := time.Until(deadline); d <= 0 || d > DefaultTimeout {
		t.Errorf("deadline in %s, want within %s", d, DefaultTimeout)
	}
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}

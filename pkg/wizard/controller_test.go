package wizard_test

import (
	"testing"

	"github.com/goliatone/go-quoteforms/pkg/wizard"
)

func TestControllerBounds(t *testing.T) {
	c := wizard.NewController(3)

	if c.Retreat() {
		t.Fatalf("retreat on first step should be a no-op")
	}
	if !c.Advance() || !c.Advance() {
		t.Fatalf("expected two advances")
	}
	if !c.IsLast() || c.Current() != 2 {
		t.Fatalf("expected last step, got %d", c.Current())
	}
	if c.Advance() {
		t.Fatalf("advance on last step should be a no-op")
	}
	if c.Current() != 2 {
		t.Fatalf("cursor moved past the end: %d", c.Current())
	}
	c.Reset()
	if !c.IsFirst() {
		t.Fatalf("expected reset to step 0")
	}
}

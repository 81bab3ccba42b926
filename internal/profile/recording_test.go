package profile

import (
	"testing"

	"github.com/getsentry/stackvis/internal/frame"
	"github.com/getsentry/stackvis/internal/testutil"
)

func TestRecording(t *testing.T) {
	r := NewRecording()
	samples := []struct {
		timestamp string
		label     string
		symbol    string
	}{
		{"5", "app", "a"},
		{"6", "app", "b"},
		{"5", "app", "a"},
		{"7", "app", "c"},
	}
	for _, s := range samples {
		p := r.Profile(s.timestamp)
		p.OpenStack(s.label)
		p.AddFrame(frame.Frame{Symbol: s.symbol})
		p.CloseStack()
	}

	if diff := testutil.Diff(r.Keys(), []string{"5", "6", "7"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if r.Profile("5") != r.Profile("5") {
		t.Fatal("expected one profile per timestamp")
	}

	out := r.Serialize()
	if len(out) != 3 {
		t.Fatalf("expected 3 trees, got %d", len(out))
	}
	if got := out["5"].Value; got != 2 {
		t.Fatalf("expected 2 samples at 5, got %d", got)
	}
	for k, tree := range out {
		if tree.Tottime != nil {
			t.Fatalf("%s: live trees carry no tottime", k)
		}
		if tree.Name != "root" {
			t.Fatalf("%s: expected root, got %s", k, tree.Name)
		}
	}
}

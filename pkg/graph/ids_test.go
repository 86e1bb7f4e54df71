package graph

import (
	"regexp"
	"testing"
)

func TestIDShape(t *testing.T) {
	g := NewIDGenerator()
	pattern := regexp.MustCompile(`^(playbook|play|role|block|task|handler)_[0-9a-f]{8}$`)

	for _, kind := range []Kind{KindPlaybook, KindPlay, KindRole, KindBlock, KindTask, KindHandler} {
		id := g.Next(kind, "sample")
		if !pattern.MatchString(id) {
			t.Errorf("id %q does not match <kind>_<8 hex>", id)
		}
	}
}

func TestIDsAreDeterministicAcrossGenerators(t *testing.T) {
	first := NewIDGenerator()
	second := NewIDGenerator()

	for i := 0; i < 50; i++ {
		a := first.Next(KindTask, "install packages")
		b := second.Next(KindTask, "install packages")
		if a != b {
			t.Fatalf("creation %d diverged: %q vs %q", i, a, b)
		}
	}
}

func TestIDsAreUniqueWithinAGenerator(t *testing.T) {
	g := NewIDGenerator()
	seen := make(map[string]bool)

	for i := 0; i < 500; i++ {
		id := g.Next(KindTask, "same name every time")
		if seen[id] {
			t.Fatalf("duplicate id %q after %d creations", id, i)
		}
		seen[id] = true
	}
}

func TestIDDependsOnKindAndName(t *testing.T) {
	a := NewIDGenerator().Next(KindTask, "x")
	b := NewIDGenerator().Next(KindHandler, "x")
	c := NewIDGenerator().Next(KindTask, "y")

	if a == b {
		t.Error("same id for different kinds at the same counter")
	}
	if a == c {
		t.Error("same id for different names at the same counter")
	}
}

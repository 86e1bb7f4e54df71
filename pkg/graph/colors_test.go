package graph

import (
	"regexp"
	"testing"
)

func TestPlayColors(t *testing.T) {
	g := NewIDGenerator()
	play := NewPlayNode(g, "Play: all", nil)

	first := play.Colors()
	second := play.Colors()
	if first != second {
		t.Fatalf("colors must be stable for one play: %+v vs %+v", first, second)
	}
	if first.Font != "#ffffff" {
		t.Errorf("font color must stay white, got %s", first.Font)
	}
	if !regexp.MustCompile(`^#[0-9a-f]{6}$`).MatchString(first.Main) {
		t.Errorf("main color %q is not a lowercase hex color", first.Main)
	}

	other := NewPlayNode(g, "Play: all", nil)
	if other.Colors().Main == first.Main {
		t.Error("different ids should land on different hues")
	}
}

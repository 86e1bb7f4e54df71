package ansible

import "slices"

// Special tags with engine-defined meaning.
const (
	tagAll    = "all"
	tagAlways = "always"
	tagNever  = "never"
)

// MatchTags reports whether an item carrying tags runs under the
// requested run and skip sets: an empty run set means "all"; "all"
// matches everything not tagged "never"; "always" runs regardless of the
// run set; "never" runs only when requested by name; an untagged item
// survives any run set, so narrowing by tag never drops unannotated
// structure; the skip set wins over the run set, including over "always".
func MatchTags(tags, runTags, skipTags []string) bool {
	run := false
	switch {
	case slices.Contains(tags, tagAlways):
		run = true
	case len(runTags) == 0 || slices.Contains(runTags, tagAll):
		run = !slices.Contains(tags, tagNever)
	default:
		run = len(tags) == 0 || intersects(tags, runTags)
	}
	if !run {
		return false
	}

	if intersects(tags, skipTags) {
		return false
	}
	if slices.Contains(skipTags, tagAll) && !slices.Contains(tags, tagAlways) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}

// mergeTags unions parent and own tags, keeping first-seen order.
func mergeTags(parent, own []string) []string {
	if len(parent) == 0 {
		return slices.Clone(own)
	}
	merged := slices.Clone(parent)
	for _, t := range own {
		if !slices.Contains(merged, t) {
			merged = append(merged, t)
		}
	}
	return merged
}

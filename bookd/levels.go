package main

// SearchSettings is what a book level resolves to for a given empty count:
// how deep the searcher looks and whether the result is an exact solve, a
// selective (probabilistically cut) endgame solve, or a midgame estimate.
type SearchSettings struct {
	Depth       int
	Endgame     bool
	Exact       bool
	Selectivity int
}

// Endgame solving starts a few empties before the exact-solve horizon; in
// that window the solve is selective rather than exact.
const endcutMargin = 6

// LevelSettings maps (level, empties) to search settings. Level n solves
// exactly once n or fewer empties remain, solves selectively up to
// endcutMargin empties earlier, and otherwise searches n plies of midgame.
func LevelSettings(level, empties int) SearchSettings {
	if level < 1 {
		level = 1
	}
	if empties <= level {
		return SearchSettings{Depth: empties, Endgame: true, Exact: true, Selectivity: 5}
	}
	if empties <= level+endcutMargin {
		return SearchSettings{Depth: empties, Endgame: true, Exact: false, Selectivity: 1 + level%4}
	}
	depth := level
	if depth > empties {
		depth = empties
	}
	return SearchSettings{Depth: depth, Selectivity: 5}
}

// errorBounds returns the confidence interval below/above a leaf score of
// value, per the settings the score was produced with.
func errorBounds(value int, settings SearchSettings, empties, midgameError, endcutError int) (lower, upper int) {
	if settings.Endgame && settings.Exact {
		return value, value
	}
	if settings.Endgame {
		return value - endcutError, value + endcutError
	}
	// Parity bias corrects for odd/even truncation of the midgame horizon.
	bias := settings.Depth%2 - empties%2
	e := midgameError + bias
	if e < 0 {
		e = 0
	}
	return value - e, value + e
}

func clampScore(v int) int {
	if v > ScoreInf {
		return ScoreInf
	}
	if v < -ScoreInf {
		return -ScoreInf
	}
	return v
}

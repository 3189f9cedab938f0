package main

import "testing"

func TestLevelSettingsRegimes(t *testing.T) {
	exact := LevelSettings(20, 18)
	if !exact.Endgame || !exact.Exact || exact.Depth != 18 {
		t.Fatalf("18 empties at level 20 must be an exact solve, got %+v", exact)
	}
	endcut := LevelSettings(20, 24)
	if !endcut.Endgame || endcut.Exact || endcut.Depth != 24 {
		t.Fatalf("24 empties at level 20 must be a selective solve, got %+v", endcut)
	}
	mid := LevelSettings(20, 40)
	if mid.Endgame || mid.Depth != 20 {
		t.Fatalf("40 empties at level 20 must be a midgame search, got %+v", mid)
	}
	if s := LevelSettings(0, 40); s.Depth != 1 {
		t.Fatalf("level floor: got depth %d want 1", s.Depth)
	}
}

func TestErrorBounds(t *testing.T) {
	exact := SearchSettings{Depth: 10, Endgame: true, Exact: true}
	if lo, hi := errorBounds(4, exact, 10, 2, 1); lo != 4 || hi != 4 {
		t.Fatalf("exact solve bounds: got [%d, %d] want [4, 4]", lo, hi)
	}
	endcut := SearchSettings{Depth: 24, Endgame: true}
	if lo, hi := errorBounds(4, endcut, 24, 2, 1); lo != 3 || hi != 5 {
		t.Fatalf("selective solve bounds: got [%d, %d] want [3, 5]", lo, hi)
	}
	mid := SearchSettings{Depth: 20}
	lo, hi := errorBounds(0, mid, 40, 2, 1)
	if lo > 0 || hi < 0 || hi-lo != 2*(2+20%2-40%2) {
		t.Fatalf("midgame bounds: got [%d, %d]", lo, hi)
	}
	// The parity bias never drives the error negative.
	if lo, hi := errorBounds(0, SearchSettings{Depth: 2}, 33, 0, 0); lo != 0 || hi != 0 {
		t.Fatalf("negative error must clamp to zero: got [%d, %d]", lo, hi)
	}
}

func TestClampScore(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{0, 0}, {64, 64}, {ScoreInf, ScoreInf}, {ScoreInf + 1, ScoreInf},
		{-ScoreInf - 5, -ScoreInf},
	} {
		if got := clampScore(tc.in); got != tc.want {
			t.Fatalf("clampScore(%d): got %d want %d", tc.in, got, tc.want)
		}
	}
}

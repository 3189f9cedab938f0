package main

import "testing"

func TestInitialBoardMoves(t *testing.T) {
	b := InitialBoard()
	want := uint64(1)<<19 | uint64(1)<<26 | uint64(1)<<37 | uint64(1)<<44
	if got := b.Moves(); got != want {
		t.Fatalf("initial moves: got %016x want %016x", got, want)
	}
	if b.Empties() != 60 {
		t.Fatalf("initial empties: got %d want 60", b.Empties())
	}
	if b.IsGameOver() {
		t.Fatalf("initial position must not be game over")
	}
}

func TestApplyFlipsAndSwapsSides(t *testing.T) {
	b := InitialBoard()
	next, ok := b.Apply(19) // d3
	if !ok {
		t.Fatalf("d3 must be legal from the initial position")
	}
	// The flipped disc on d4 now belongs to the previous mover, who is
	// Opponent after the swap.
	wantOpponent := uint64(1)<<19 | uint64(1)<<27 | uint64(1)<<28 | uint64(1)<<35
	wantPlayer := uint64(1) << 36
	if next.Player != wantPlayer || next.Opponent != wantOpponent {
		t.Fatalf("after d3: got %016x/%016x want %016x/%016x",
			next.Player, next.Opponent, wantPlayer, wantOpponent)
	}
	if _, ok := b.Apply(0); ok {
		t.Fatalf("a1 must be illegal from the initial position")
	}
	if unchanged, _ := b.Apply(0); unchanged != b {
		t.Fatalf("illegal move must leave the board unchanged")
	}
}

func TestApplyPass(t *testing.T) {
	// Mover on b1, opponent on a1: the mover has no move, the opponent does.
	b := Board{Player: 1 << 1, Opponent: 1 << 0}
	if b.CanMove() {
		t.Fatalf("mover must have no legal move")
	}
	if !b.OpponentCanMove() {
		t.Fatalf("opponent must have a legal move")
	}
	passed, ok := b.Apply(Pass)
	if !ok {
		t.Fatalf("pass must be legal when the mover is blocked")
	}
	if passed != b.Pass() {
		t.Fatalf("pass must only swap sides")
	}
	if _, ok := InitialBoard().Apply(Pass); ok {
		t.Fatalf("pass must be illegal when moves exist")
	}
}

func TestDiscDiffAwardsEmptiesToWinner(t *testing.T) {
	b := Board{Player: 1 << 0}
	if !b.IsGameOver() {
		t.Fatalf("neither side can move, game must be over")
	}
	if got := b.DiscDiff(); got != 64 {
		t.Fatalf("winner takes the empties: got %d want 64", got)
	}
	if got := b.Pass().DiscDiff(); got != -64 {
		t.Fatalf("loser concedes the empties: got %d want -64", got)
	}
	if got := (Board{}).DiscDiff(); got != 0 {
		t.Fatalf("empty board is a draw: got %d want 0", got)
	}
}

func TestBoardStringRoundTrip(t *testing.T) {
	b := InitialBoard()
	s := b.String()
	if len(s) != 65 {
		t.Fatalf("board string length: got %d want 65", len(s))
	}
	parsed, err := ParseBoard(s)
	if err != nil {
		t.Fatalf("parse rendered board: %v", err)
	}
	if parsed != b {
		t.Fatalf("round trip changed the board: %s vs %s", parsed, b)
	}
}

func TestParseBoardFlipsForOpponentToMove(t *testing.T) {
	b := InitialBoard()
	s := b.String()
	flipped, err := ParseBoard(s[:64] + "O")
	if err != nil {
		t.Fatalf("parse with O to move: %v", err)
	}
	if flipped != b.Pass() {
		t.Fatalf("O to move must swap the point of view")
	}
	if _, err := ParseBoard("too short"); err == nil {
		t.Fatalf("expected error for short input")
	}
	if _, err := ParseBoard(s[:64] + "?"); err == nil {
		t.Fatalf("expected error for bad side char")
	}
}

func TestMoveStringRoundTrip(t *testing.T) {
	cases := map[int]string{0: "a1", 7: "h1", 56: "a8", 63: "h8", 19: "d3", Pass: "ps", NoMove: "--"}
	for sq, want := range cases {
		if got := MoveString(sq); got != want {
			t.Fatalf("MoveString(%d): got %q want %q", sq, got, want)
		}
		back, err := ParseMove(want)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", want, err)
		}
		if back != sq {
			t.Fatalf("ParseMove(%q): got %d want %d", want, back, sq)
		}
	}
	if _, err := ParseMove("z9"); err == nil {
		t.Fatalf("expected error for off-board move")
	}
}

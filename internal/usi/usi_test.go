package usi

import (
	"testing"

	"github.com/ymatsux/goshogi/internal/search"
	"github.com/ymatsux/goshogi/internal/shogi"
)

func newTestUSI(t *testing.T) *USI {
	t.Helper()
	return New(search.NewEngine(1))
}

func TestParseMoveBoardMove(t *testing.T) {
	u := newTestUSI(t)
	m := u.parseMove("7g7f")
	if m == shogi.NoMove {
		t.Fatal("expected 7g7f to parse as a legal move from the starting position")
	}
	if !u.position.IsLegal(m) {
		t.Fatalf("parsed move is not legal: %v", m)
	}
	if m.IsDrop() {
		t.Fatal("7g7f should not parse as a drop")
	}
}

func TestParseMovePromotion(t *testing.T) {
	u := newTestUSI(t)
	// No promotion is legal from the starting position, so a bogus
	// promotion suffix on an otherwise-legal move must fail to match.
	m := u.parseMove("7g7f+")
	if m != shogi.NoMove {
		t.Fatalf("expected 7g7f+ to be illegal from the starting position, got %v", m)
	}
}

func TestParseMoveDrop(t *testing.T) {
	u := newTestUSI(t)
	// No piece is in hand at the start, so every drop token must fail.
	m := u.parseMove("P*5e")
	if m != shogi.NoMove {
		t.Fatalf("expected P*5e to be illegal with an empty hand, got %v", m)
	}
}

func TestParseMoveRejectsGarbage(t *testing.T) {
	u := newTestUSI(t)
	for _, tok := range []string{"", "x", "99x9", "7g"} {
		if m := u.parseMove(tok); m != shogi.NoMove {
			t.Errorf("parseMove(%q) = %v, want NoMove", tok, m)
		}
	}
}

func TestHandlePositionStartpos(t *testing.T) {
	u := newTestUSI(t)
	u.handlePosition([]string{"startpos"})

	want := shogi.NewPosition()
	if u.position.Key() != want.Key() {
		t.Fatal("expected the startpos position key to match a fresh position")
	}
}

func TestHandlePositionStartposWithMoves(t *testing.T) {
	u := newTestUSI(t)
	u.handlePosition([]string{"startpos", "moves", "7g7f"})

	fresh := shogi.NewPosition()
	legal := fresh.GenerateLegal()
	var applied shogi.Move
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i).String() == "7g7f" {
			applied = legal.Get(i)
		}
	}
	if applied == shogi.NoMove {
		t.Fatal("test setup: 7g7f should be a legal opening move")
	}
	fresh.DoMove(applied)

	if u.position.Key() != fresh.Key() {
		t.Fatal("position after startpos+moves does not match manually replayed position")
	}
	if len(u.positionKeys) != 1 {
		t.Fatalf("expected 1 recorded history key, got %d", len(u.positionKeys))
	}
}

func TestHandlePositionSFEN(t *testing.T) {
	u := newTestUSI(t)
	u.handlePosition([]string{"sfen", "9/9/9/9/4k4/9/9/9/4K4", "b", "-", "1"})

	if u.position.SFEN() == shogi.NewPosition().SFEN() {
		t.Fatal("expected a custom sfen position to differ from the default start position")
	}
}

func TestHandleNewGameResetsPosition(t *testing.T) {
	u := newTestUSI(t)
	u.handlePosition([]string{"startpos", "moves", "7g7f"})
	u.handleNewGame()

	if u.position.Key() != shogi.NewPosition().Key() {
		t.Fatal("expected usinewgame to reset the position to the starting position")
	}
	if u.positionKeys != nil {
		t.Fatal("expected usinewgame to clear recorded history keys")
	}
}

func TestParseGoArgs(t *testing.T) {
	l := parseGoArgs([]string{"btime", "60000", "wtime", "55000", "byoyomi", "5000", "depth", "10"})
	if l.Time[shogi.Black] != 60000 {
		t.Errorf("expected btime 60000, got %d", l.Time[shogi.Black])
	}
	if l.Time[shogi.White] != 55000 {
		t.Errorf("expected wtime 55000, got %d", l.Time[shogi.White])
	}
	if l.Byoyomi != 5000 {
		t.Errorf("expected byoyomi 5000, got %d", l.Byoyomi)
	}
	if l.Depth != 10 {
		t.Errorf("expected depth 10, got %d", l.Depth)
	}
}

func TestParseGoArgsInfiniteAndPonder(t *testing.T) {
	l := parseGoArgs([]string{"infinite"})
	if !l.Infinite {
		t.Error("expected Infinite to be set")
	}

	l = parseGoArgs([]string{"ponder", "btime", "1000", "wtime", "1000"})
	if !l.Ponder {
		t.Error("expected Ponder to be set")
	}
}

func TestHandleSetOptionThreads(t *testing.T) {
	u := newTestUSI(t)
	u.handleSetOption([]string{"name", "Threads", "value", "4"})
	// Engine has no exported getter for the thread count, so this just
	// checks the handler doesn't panic on a valid numeric value.
}

func TestHandleSetOptionUseNNUE(t *testing.T) {
	u := newTestUSI(t)
	u.handleSetOption([]string{"name", "UseNNUE", "value", "false"})
	if u.engine.UseNNUE() {
		t.Fatal("expected UseNNUE=false to disable NNUE evaluation")
	}
	u.handleSetOption([]string{"name", "UseNNUE", "value", "true"})
	if !u.engine.UseNNUE() {
		t.Fatal("expected UseNNUE=true to re-enable NNUE evaluation")
	}
}

func TestHandleSetOptionTimeParam(t *testing.T) {
	u := newTestUSI(t)
	u.handleSetOption([]string{"name", "MinThinkMs", "value", "123"})
	if got := u.engine.TimeParameters().MinThinkMs; got != 123 {
		t.Fatalf("expected MinThinkMs=123 after setoption, got %d", got)
	}
}

package shogi

import "testing"

func TestSFENRoundTrip(t *testing.T) {
	cases := []string{
		StartSFEN,
		"lnsgkgsnl/1r5b1/pppppppp1/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL w P 1",
		"9/9/9/9/9/9/9/9/9 b 2P2L2N2S2G2B2Rp 1",
	}
	for _, sfen := range cases {
		pos := &Position{}
		if err := pos.SetSFEN(sfen); err != nil {
			t.Fatalf("SetSFEN(%q): %v", sfen, err)
		}
		got := pos.SFEN()

		again := &Position{}
		if err := again.SetSFEN(got); err != nil {
			t.Fatalf("SetSFEN(round-tripped %q): %v", got, err)
		}
		if again.SFEN() != got {
			t.Fatalf("round trip unstable: %q != %q", again.SFEN(), got)
		}
	}
}

func TestSetSFENRejectsGarbageWithoutMutating(t *testing.T) {
	pos := NewPosition()
	before := pos.SFEN()

	if err := pos.SetSFEN("not a valid sfen"); err == nil {
		t.Fatal("expected an error for malformed SFEN")
	}
	if pos.SFEN() != before {
		t.Fatal("position must be left unmodified after a rejected SetSFEN, per spec.md §7")
	}
}

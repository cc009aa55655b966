package shogi

import (
	"fmt"
	"strconv"
	"strings"
)

// StartSFEN is the standard shogi starting position, per spec.md §6.2 and
// confirmed against original_source's SFEN_HIRATE constant.
const StartSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

var letterToType = map[byte]PieceType{
	'P': Pawn, 'L': Lance, 'N': Knight, 'S': Silver, 'G': Gold, 'B': Bishop, 'R': Rook, 'K': King,
}

// SetSFEN replaces the position's contents by parsing sfen, per
// spec.md §6.2. On error the position is left unmodified (spec.md §7,
// "SFEN error").
func (p *Position) SetSFEN(sfen string) error {
	fields := strings.Fields(sfen)
	if len(fields) < 3 {
		return fmt.Errorf("sfen: expected at least 3 fields, got %d", len(fields))
	}

	var next Position
	next.Clear()

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != NumRanks {
		return fmt.Errorf("sfen: expected %d ranks, got %d", NumRanks, len(ranks))
	}
	for rankIdx, rankStr := range ranks {
		file := 0
		i := 0
		for i < len(rankStr) {
			ch := rankStr[i]
			if ch >= '1' && ch <= '9' {
				n := int(ch - '0')
				file += n
				i++
				continue
			}
			promoted := false
			if ch == '+' {
				promoted = true
				i++
				if i >= len(rankStr) {
					return fmt.Errorf("sfen: dangling '+' in rank %q", rankStr)
				}
				ch = rankStr[i]
			}
			base, ok := letterToType[byteUpper(ch)]
			if !ok {
				return fmt.Errorf("sfen: unknown piece letter %q", string(ch))
			}
			pt := base
			if promoted {
				if !base.Promotes() {
					return fmt.Errorf("sfen: piece %q cannot be promoted", string(ch))
				}
				pt = base.Promote()
			}
			color := White
			if ch >= 'A' && ch <= 'Z' {
				color = Black
			}
			if file >= NumFiles {
				return fmt.Errorf("sfen: rank %q overflows board width", rankStr)
			}
			next.setPiece(NewSquare(file, rankIdx), NewPiece(pt, color))
			file++
			i++
		}
		if file != NumFiles {
			return fmt.Errorf("sfen: rank %q does not sum to %d files", rankStr, NumFiles)
		}
	}

	switch fields[1] {
	case "b":
		next.SideToMove = Black
	case "w":
		next.SideToMove = White
	default:
		return fmt.Errorf("sfen: invalid side to move %q", fields[1])
	}

	if fields[2] != "-" {
		hand := fields[2]
		i := 0
		for i < len(hand) {
			j := i
			for j < len(hand) && hand[j] >= '0' && hand[j] <= '9' {
				j++
			}
			count := 1
			if j > i {
				n, err := strconv.Atoi(hand[i:j])
				if err != nil {
					return fmt.Errorf("sfen: bad hand count in %q: %w", hand, err)
				}
				count = n
			}
			if j >= len(hand) {
				return fmt.Errorf("sfen: dangling hand count in %q", hand)
			}
			ch := hand[j]
			base, ok := letterToType[byteUpper(ch)]
			if !ok || DropValue(base) < 0 {
				return fmt.Errorf("sfen: invalid hand piece %q", string(ch))
			}
			color := White
			if ch >= 'A' && ch <= 'Z' {
				color = Black
			}
			for k := 0; k < count; k++ {
				next.addToHand(base, color)
			}
			i = j + 1
		}
	}

	if next.SideToMove == Black {
		// Board hash folds in side-to-move as an XOR toggle; apply it
		// once here so White-to-move and Black-to-move positions with
		// identical boards hash differently.
		next.BoardHash ^= ZobristSide()
	}

	next.updateCheckersAndPins()
	*p = next
	return nil
}

func byteUpper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// SFEN renders the position back into SFEN text (move-number field fixed
// at 1, since the engine does not track it independently of the USI
// `position ... moves ...` history).
func (p *Position) SFEN() string {
	var sb strings.Builder
	for rank := 0; rank < NumRanks; rank++ {
		empty := 0
		for file := 0; file < NumFiles; file++ {
			sq := NewSquare(file, rank)
			pc := p.PieceAt(sq)
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			pt := pc.Type()
			if pt.IsPromoted() {
				sb.WriteByte('+')
			}
			letter := pt.USILetter()
			if pc.Color() == White {
				letter = byteLower(letter)
			}
			sb.WriteByte(letter)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank != NumRanks-1 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	sb.WriteString(p.SideToMove.String())
	sb.WriteByte(' ')

	handStr := ""
	for c := Black; c <= White; c++ {
		for _, pt := range DropPieceTypes {
			n := p.Hands[c].Count(pt)
			if n == 0 {
				continue
			}
			letter := pt.USILetter()
			if c == White {
				letter = byteLower(letter)
			}
			if n > 1 {
				handStr += strconv.Itoa(n)
			}
			handStr += string(letter)
		}
	}
	if handStr == "" {
		handStr = "-"
	}
	sb.WriteString(handStr)
	sb.WriteString(" 1")
	return sb.String()
}

func byteLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

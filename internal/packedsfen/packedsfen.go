// Package packedsfen decodes YaneuraOu-style packed training-data
// records (PackedSfenValue): a 256-bit Huffman-coded board bitstream plus
// a fixed-width score/move/ply/result trailer, per spec.md §6.4. This is
// a read-only consumer -- the package never encodes records, only reads
// them for later analysis or as NNUE training-data inspection tooling.
// Grounded on original_source's tools::packed_sfen module, reimplemented
// against shogi.Position/shogi.Move rather than translated line-by-line.
package packedsfen

import (
	"fmt"

	"github.com/ymatsux/goshogi/internal/shogi"
)

// RecordSize is the byte length of one packed training-data record.
const RecordSize = 40

// Record is one decoded training-data sample.
type Record struct {
	SFEN   string
	Score  int16
	Move   shogi.Move
	Ply    uint16
	Result int8 // +1 win, 0 draw, -1 loss, from the side to move's perspective
}

// bitStream reads a packed bitstream LSB-first within each byte, matching
// original_source's BitStream::read_one_bit/read_n_bit.
type bitStream struct {
	data   []byte
	cursor int
}

func (b *bitStream) readBit() int {
	byteIdx := b.cursor / 8
	if byteIdx >= len(b.data) {
		return 0
	}
	bitIdx := uint(b.cursor % 8)
	b.cursor++
	return int((b.data[byteIdx] >> bitIdx) & 1)
}

func (b *bitStream) readBits(n int) uint32 {
	var result uint32
	for i := 0; i < n; i++ {
		result |= uint32(b.readBit()) << uint(i)
	}
	return result
}

func (b *bitStream) remaining() int {
	total := len(b.data) * 8
	if b.cursor >= total {
		return 0
	}
	return total - b.cursor
}

// huffmanCode is one entry of the board-piece Huffman table.
type huffmanCode struct {
	code uint8
	bits uint8
}

// huffmanTable indexes by pieceIndex: 0=empty, 1=pawn, 2=lance, 3=knight,
// 4=silver, 5=bishop, 6=rook, 7=gold.
var huffmanTable = [8]huffmanCode{
	{0x00, 1}, // empty
	{0x01, 2}, // pawn
	{0x03, 4}, // lance
	{0x0b, 4}, // knight
	{0x07, 4}, // silver
	{0x1f, 6}, // bishop
	{0x3f, 6}, // rook
	{0x0f, 5}, // gold
}

var pieceIndexToType = map[int]shogi.PieceType{
	1: shogi.Pawn, 2: shogi.Lance, 3: shogi.Knight, 4: shogi.Silver,
	5: shogi.Bishop, 6: shogi.Rook, 7: shogi.Gold,
}

// decodeBoardPiece reads a board-square Huffman code, returning -1 for an
// empty square.
func decodeBoardPiece(s *bitStream) (int, error) {
	var code uint8
	var bits uint8
	for {
		code |= uint8(s.readBit()) << bits
		bits++
		if bits > 6 {
			return 0, fmt.Errorf("packedsfen: invalid board huffman code")
		}
		for i, h := range huffmanTable {
			if h.code == code && h.bits == bits {
				if i == 0 {
					return -1, nil
				}
				return i, nil
			}
		}
	}
}

// decodeHandPiece reads a hand-piece code (the board code with its
// leading "occupied" bit removed), returning the piece index and whether
// the piece-box (promoted-in-hand, i.e. demoted-and-discarded) flag was
// set. Per spec.md §11's resolved Open Question, the piece-box bit is
// read for every index except gold (7), immediately after the base code
// and before the colour bit.
func decodeHandPiece(s *bitStream) (idx int, pieceBox bool, err error) {
	var code uint8
	var bits uint8
	for {
		code |= uint8(s.readBit()) << bits
		bits++
		if bits > 5 {
			return 0, false, fmt.Errorf("packedsfen: invalid hand huffman code")
		}
		for i := 1; i < len(huffmanTable); i++ {
			h := huffmanTable[i]
			if (h.code >> 1) == code && (h.bits-1) == bits {
				if i != 7 {
					pieceBox = s.readBit() != 0
				}
				return i, pieceBox, nil
			}
		}
	}
}

// DecodeSFEN decodes a 32-byte PackedSfen bitstream into an SFEN string.
func DecodeSFEN(packed [32]byte) (string, error) {
	s := &bitStream{data: packed[:]}

	stm := shogi.Black
	if s.readBit() != 0 {
		stm = shogi.White
	}

	var board [shogi.NumSquares]shogi.Piece
	for i := range board {
		board[i] = shogi.NoPiece
	}

	blackKing := int(s.readBits(7))
	if blackKing < shogi.NumSquares {
		board[blackKing] = shogi.NewPiece(shogi.King, shogi.Black)
	}
	whiteKing := int(s.readBits(7))
	if whiteKing < shogi.NumSquares {
		board[whiteKing] = shogi.NewPiece(shogi.King, shogi.White)
	}

	for sq := 0; sq < shogi.NumSquares; sq++ {
		if board[sq] != shogi.NoPiece {
			continue // king square, already placed
		}
		idx, err := decodeBoardPiece(s)
		if err != nil {
			return "", err
		}
		if idx < 0 {
			continue
		}
		pt := pieceIndexToType[idx]
		promoted := false
		if pt != shogi.Gold {
			promoted = s.readBit() != 0
		}
		color := shogi.Black
		if s.readBit() != 0 {
			color = shogi.White
		}
		if promoted {
			pt = pt.Promote()
		}
		board[sq] = shogi.NewPiece(pt, color)
		if s.cursor > 256 {
			return "", fmt.Errorf("packedsfen: bitstream overflow at square %d", sq)
		}
	}

	var hands [shogi.ColorNB]shogi.Hand
	for s.remaining() > 0 {
		idx, pieceBox, err := decodeHandPiece(s)
		if err != nil {
			return "", err
		}
		if pieceBox {
			// Non-gold piece-box entries carry a colour bit too; gold
			// never writes a piece-box colour bit since it has no
			// promoted form to demote into the box.
			if idx != 7 && s.remaining() > 0 {
				s.readBit()
			}
			continue // discarded: a piece in the wooden box, not on board or in hand
		}
		if s.remaining() == 0 {
			break
		}
		color := shogi.Black
		if s.readBit() != 0 {
			color = shogi.White
		}
		hands[color] = hands[color].Add(pieceIndexToType[idx])
	}

	return encodeSFEN(board, hands, stm), nil
}

func encodeSFEN(board [shogi.NumSquares]shogi.Piece, hands [shogi.ColorNB]shogi.Hand, stm shogi.Color) string {
	sfen := make([]byte, 0, 128)
	for rank := 0; rank < shogi.NumRanks; rank++ {
		if rank > 0 {
			sfen = append(sfen, '/')
		}
		empty := 0
		for file := shogi.NumFiles - 1; file >= 0; file-- {
			sq := shogi.NewSquare(file, rank)
			pc := board[sq]
			if pc == shogi.NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sfen = append(sfen, []byte(fmt.Sprintf("%d", empty))...)
				empty = 0
			}
			sfen = append(sfen, pieceSFENChar(pc)...)
		}
		if empty > 0 {
			sfen = append(sfen, []byte(fmt.Sprintf("%d", empty))...)
		}
	}

	sfen = append(sfen, ' ')
	if stm == shogi.Black {
		sfen = append(sfen, 'b')
	} else {
		sfen = append(sfen, 'w')
	}
	sfen = append(sfen, ' ')

	handStr := handSFEN(hands)
	if handStr == "" {
		sfen = append(sfen, '-')
	} else {
		sfen = append(sfen, handStr...)
	}
	sfen = append(sfen, " 1"...)
	return string(sfen)
}

func pieceSFENChar(pc shogi.Piece) string {
	pt := pc.Type()
	promoted := pt.IsPromoted()
	base := pt.Demote()
	c := base.USILetter()
	if pc.Color() == shogi.White {
		c = c - 'A' + 'a'
	}
	if promoted {
		return "+" + string(c)
	}
	return string(c)
}

var handOrder = [...]shogi.PieceType{
	shogi.Rook, shogi.Bishop, shogi.Gold, shogi.Silver, shogi.Knight, shogi.Lance, shogi.Pawn,
}

func handSFEN(hands [shogi.ColorNB]shogi.Hand) string {
	var out []byte
	for _, color := range [...]shogi.Color{shogi.Black, shogi.White} {
		for _, pt := range handOrder {
			n := hands[color].Count(pt)
			if n == 0 {
				continue
			}
			if n > 1 {
				out = append(out, []byte(fmt.Sprintf("%d", n))...)
			}
			c := pt.USILetter()
			if color == shogi.White {
				c = c - 'A' + 'a'
			}
			out = append(out, c)
		}
	}
	return string(out)
}

// DecodeRecord decodes one 40-byte PackedSfenValue record: a 32-byte
// PackedSfen bitstream, i16 score, u16 move (the §3 16-bit encoding), u16
// ply, i8 result, and one padding byte.
func DecodeRecord(raw [RecordSize]byte) (Record, error) {
	var packed [32]byte
	copy(packed[:], raw[:32])

	sfen, err := DecodeSFEN(packed)
	if err != nil {
		return Record{}, err
	}

	score := int16(uint16(raw[32]) | uint16(raw[33])<<8)
	move16 := uint16(raw[34]) | uint16(raw[35])<<8
	ply := uint16(raw[36]) | uint16(raw[37])<<8
	result := int8(raw[38])

	return Record{
		SFEN:   sfen,
		Score:  score,
		Move:   shogi.Move(move16),
		Ply:    ply,
		Result: result,
	}, nil
}

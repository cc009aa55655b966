package nnue

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Weight file layout, grounded on sfnnue/network.go's readHeader/
// readParameters: a little-endian version word, an architecture-hash
// word that also selects the feature set, a length-prefixed
// architecture description string, then the feature-transformer
// bias/weights followed by each hidden layer's bias/weights in order.
// The int16 and int32 sections (L1 weights, L1 bias, L2 bias) may be
// either raw fixed-width little-endian integers or LEB128-compressed
// (spec.md §4.F: "both raw and compressed variants must be recognised")
// -- recognised by peeking for the leb128Magic marker the way
// Stockfish's compressed reader does, falling back to the raw path when
// it isn't present. The int8 L2 weights, the output weights and the
// output bias are always raw.
const (
	Version = 1

	// ArchHashHalfKP is this engine's own architecture hash for the
	// HalfKP feature set (no teacher analogue -- chess NNUE in the
	// example pack ships only HalfKAv2_hm).
	ArchHashHalfKP uint32 = 0x00534B50

	// ArchHashHalfKAhm is sfnnue/features/half_ka_v2_hm.go's own
	// HashValue constant, reused here so a HalfKA_hm-tagged file is
	// recognised the same way the teacher recognises its own.
	ArchHashHalfKAhm uint32 = 0x7f234cb8

	leb128Magic = "COMPRESSED_LEB128"
)

// FileHeader precedes the weight sections.
type FileHeader struct {
	Version     uint32
	ArchHash    uint32
	Description string
}

// featureSetForArchHash maps a header's architecture hash to the
// FeatureSet it selects.
func featureSetForArchHash(hash uint32) (FeatureSet, error) {
	switch hash {
	case ArchHashHalfKP:
		return HalfKP, nil
	case ArchHashHalfKAhm:
		return HalfKAhm, nil
	default:
		return 0, fmt.Errorf("nnue: unrecognised architecture hash %08x", hash)
	}
}

func archHashForFeatureSet(fs FeatureSet) uint32 {
	if fs == HalfKAhm {
		return ArchHashHalfKAhm
	}
	return ArchHashHalfKP
}

// LoadWeights loads network weights from filename.
func (n *Network) LoadWeights(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("nnue: open weights: %w", err)
	}
	defer f.Close()
	return n.LoadWeightsFromReader(f)
}

func readHeader(r io.Reader) (FileHeader, error) {
	var h FileHeader
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return h, fmt.Errorf("nnue: read version: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("nnue: unsupported version %d", h.Version)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.ArchHash); err != nil {
		return h, fmt.Errorf("nnue: read architecture hash: %w", err)
	}
	var descLen uint32
	if err := binary.Read(r, binary.LittleEndian, &descLen); err != nil {
		return h, fmt.Errorf("nnue: read description length: %w", err)
	}
	desc := make([]byte, descLen)
	if _, err := io.ReadFull(r, desc); err != nil {
		return h, fmt.Errorf("nnue: read description: %w", err)
	}
	h.Description = string(desc)
	return h, nil
}

func writeHeader(w io.Writer, h FileHeader) error {
	if err := binary.Write(w, binary.LittleEndian, h.Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.ArchHash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(h.Description))); err != nil {
		return err
	}
	_, err := io.WriteString(w, h.Description)
	return err
}

// LoadWeightsFromReader loads network weights from r. The header's
// architecture hash selects the feature set and resizes L1Weights
// accordingly before the feature-transformer section is read.
func (n *Network) LoadWeightsFromReader(r io.Reader) error {
	header, err := readHeader(r)
	if err != nil {
		return fmt.Errorf("nnue: read header: %w", err)
	}
	fs, err := featureSetForArchHash(header.ArchHash)
	if err != nil {
		return err
	}
	n.FeatureSet = fs
	n.L1Weights = make([][L1Size]int16, featureSetSize(fs))

	br := bufio.NewReader(r)

	for i := range n.L1Weights {
		if err := readSection16(br, n.L1Weights[i][:]); err != nil {
			return fmt.Errorf("nnue: L1 weights row %d: %w", i, err)
		}
	}
	if err := readSection16(br, n.L1Bias[:]); err != nil {
		return fmt.Errorf("nnue: L1 bias: %w", err)
	}
	for i := 0; i < L1Size*2; i++ {
		if err := binary.Read(br, binary.LittleEndian, &n.L2Weights[i]); err != nil {
			return fmt.Errorf("nnue: L2 weights row %d: %w", i, err)
		}
	}
	if err := readSection32(br, n.L2Bias[:]); err != nil {
		return fmt.Errorf("nnue: L2 bias: %w", err)
	}
	if err := binary.Read(br, binary.LittleEndian, &n.OutputWeights); err != nil {
		return fmt.Errorf("nnue: output weights: %w", err)
	}
	var bias int32
	if err := binary.Read(br, binary.LittleEndian, &bias); err != nil {
		return fmt.Errorf("nnue: output bias: %w", err)
	}
	n.OutputBias = bias
	return nil
}

// SaveWeights writes network weights to filename, in the same format
// LoadWeights reads. Always writes the int16 and int32 sections in the
// compressed LEB128 variant (their raw path exists only to read files
// produced elsewhere); the int8 and output sections are written raw.
func (n *Network) SaveWeights(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("nnue: create weights file: %w", err)
	}
	defer f.Close()

	header := FileHeader{
		Version:     Version,
		ArchHash:    archHashForFeatureSet(n.FeatureSet),
		Description: featureSetDescription(n.FeatureSet),
	}
	if err := writeHeader(f, header); err != nil {
		return fmt.Errorf("nnue: write header: %w", err)
	}
	for i := range n.L1Weights {
		if err := writeLEB128(f, n.L1Weights[i][:]); err != nil {
			return fmt.Errorf("nnue: L1 weights row %d: %w", i, err)
		}
	}
	if err := writeLEB128(f, n.L1Bias[:]); err != nil {
		return fmt.Errorf("nnue: L1 bias: %w", err)
	}
	for i := 0; i < L1Size*2; i++ {
		if err := binary.Write(f, binary.LittleEndian, &n.L2Weights[i]); err != nil {
			return fmt.Errorf("nnue: L2 weights row %d: %w", i, err)
		}
	}
	if err := writeLEB128Int32(f, n.L2Bias[:]); err != nil {
		return fmt.Errorf("nnue: L2 bias: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.OutputWeights); err != nil {
		return fmt.Errorf("nnue: output weights: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, &n.OutputBias); err != nil {
		return fmt.Errorf("nnue: output bias: %w", err)
	}
	return nil
}

func featureSetDescription(fs FeatureSet) string {
	if fs == HalfKAhm {
		return "HalfKAv2_hm(Friend)"
	}
	return "HalfKP"
}

// readSection16 reads len(out) int16 values, auto-detecting whether the
// section is LEB128-compressed (prefixed with leb128Magic) or raw
// fixed-width little-endian integers.
func readSection16(r *bufio.Reader, out []int16) error {
	compressed, err := peekMagic(r)
	if err != nil {
		return err
	}
	if compressed {
		return readLEB128(r, out)
	}
	for i := range out {
		var v int16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func readSection32(r *bufio.Reader, out []int32) error {
	compressed, err := peekMagic(r)
	if err != nil {
		return err
	}
	if compressed {
		return readLEB128Int32(r, out)
	}
	for i := range out {
		var v int32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// peekMagic reports whether the next bytes in r are leb128Magic,
// without consuming them if they aren't.
func peekMagic(r *bufio.Reader) (bool, error) {
	peeked, err := r.Peek(len(leb128Magic))
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	return string(peeked) == leb128Magic, nil
}

// readLEB128 reads len(out) signed int16 values compressed with signed
// LEB128, preceded by a magic marker and byte count.
func readLEB128(r *bufio.Reader, out []int16) error {
	magic := make([]byte, len(leb128Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("leb128 magic: %w", err)
	}
	if string(magic) != leb128Magic {
		return fmt.Errorf("leb128 magic mismatch: got %q", magic)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("leb128 byte count: %w", err)
	}
	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("leb128 payload: %w", err)
	}
	pos := 0
	for i := range out {
		var result int16
		var shift uint
		for {
			if pos >= len(buf) {
				return fmt.Errorf("leb128 payload exhausted at value %d", i)
			}
			b := buf[pos]
			pos++
			result |= int16(b&0x7f) << shift
			shift += 7
			if b&0x80 == 0 {
				if shift < 16 && b&0x40 != 0 {
					result |= ^int16(0) << shift
				}
				break
			}
			if shift >= 16 {
				break
			}
		}
		out[i] = result
	}
	return nil
}

func readLEB128Int32(r *bufio.Reader, out []int32) error {
	magic := make([]byte, len(leb128Magic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("leb128 magic: %w", err)
	}
	if string(magic) != leb128Magic {
		return fmt.Errorf("leb128 magic mismatch: got %q", magic)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("leb128 byte count: %w", err)
	}
	buf := make([]byte, count)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("leb128 payload: %w", err)
	}
	pos := 0
	for i := range out {
		var result int32
		var shift uint
		for {
			if pos >= len(buf) {
				return fmt.Errorf("leb128 payload exhausted at value %d", i)
			}
			b := buf[pos]
			pos++
			result |= int32(b&0x7f) << shift
			shift += 7
			if b&0x80 == 0 {
				if shift < 32 && b&0x40 != 0 {
					result |= ^int32(0) << shift
				}
				break
			}
			if shift >= 32 {
				break
			}
		}
		out[i] = result
	}
	return nil
}

func writeLEB128(w io.Writer, values []int16) error {
	buf := make([]byte, 0, len(values)*2)
	for _, v := range values {
		buf = appendLEB128(buf, int32(v))
	}
	if _, err := w.Write([]byte(leb128Magic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(buf))); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

func writeLEB128Int32(w io.Writer, values []int32) error {
	buf := make([]byte, 0, len(values)*4)
	for _, v := range values {
		buf = appendLEB128(buf, v)
	}
	if _, err := w.Write([]byte(leb128Magic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(buf))); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

func appendLEB128(buf []byte, v int32) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// Package jpegstego implements the JPEG DCT-AC-coefficient carrier (C6).
// It operates entirely in the coefficient domain: a minimal baseline-
// sequential JPEG entropy decoder exposes each component's quantized DCT
// coefficients, AC-coefficient LSBs carry the payload, and a matching
// encoder writes the modified coefficients back out against the *same*
// quantization tables, forcing baseline output regardless of what a richer
// decoder might have supported on input.
//
// Grounded on original_source/internal/PhotoHnS/PhotoHnS.hh's
// dct_lsb_embed/dct_lsb_extract method shapes (AC-only, DC skipped, a
// JPEG compress/decompress context pair with an outlives-ordering
// constraint) and on google-wuffs/lib/lowleveljpeg's zigzag table and
// block/quantization-table data structures (quant.go, array.go) for the
// coefficient vocabulary; no library in the retrieved pack exposes
// arbitrary-JPEG decode-with-coefficient-access plus same-quantization
// re-encode; the entropy codec itself is hand-built (see DESIGN.md).
//
// Scope: baseline sequential (SOF0) input only, 8-bit precision. A
// progressive (SOF2) input is rejected with ErrDecodeImage — the spec's
// embed/extract algorithms are defined over "baseline Huffman, sequential
// scan" coefficients, so a progressive source is out of scope for decode,
// while the design note pins *output* to always be baseline regardless of
// what a hypothetical richer decoder supported.
package jpegstego

import (
	"bytes"

	"github.com/photohns/backend/header"
	"github.com/photohns/backend/models"
)

// zigzag maps zigzag scan position -> natural row-major position within
// an 8x8 block, the standard JPEG coefficient ordering.
var zigzag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// Block holds one 8x8 block's 64 quantized coefficients, stored in
// zigzag-scan order (index 0 = DC, 1..63 = AC in the order the entropy
// coder visits them). The embed/extract traversal (forEachAC) reads the AC
// coefficients through the zigzag table in natural row-major order instead.
type Block [64]int32

// Component is one colour component's full grid of coefficient blocks.
type Component struct {
	ID         byte
	H, V       int // sampling factors
	Tq         byte
	BlocksWide int
	BlocksHigh int
	Blocks     []Block
}

// Image is a fully decoded baseline JPEG at the coefficient level.
type Image struct {
	Width, Height int
	Components    []Component
	QuantTables   [4]*[64]uint16
	HuffDC        [4]*huffTable
	HuffAC        [4]*huffTable
	RestartInt    int
	// DCTableSel/ACTableSel record, per component (parallel to
	// Components), which Huffman table index the original scan used —
	// Encode re-uses the same tables rather than rebuilding optimized
	// ones, so the entropy coding stays a transcode, not a recompression.
	DCTableSel []int
	ACTableSel []int
}

// ACBitBudget is the usable bit budget per §4.5: 63 AC coefficients per
// block, summed across all components and blocks. The DC coefficient is
// reserved to avoid visible block flicker.
func (img *Image) ACBitBudget() int64 {
	var total int64
	for _, c := range img.Components {
		total += 63 * int64(c.BlocksWide) * int64(c.BlocksHigh)
	}
	return total
}

// forEachAC visits every AC coefficient in canonical order: components in
// source order; within a component, block rows top-to-bottom, blocks
// left-to-right; AC positions 1..63 in natural (row-major) order within the
// 8x8 block. fn returns the (possibly modified) coefficient and whether to
// keep iterating.
func (img *Image) forEachAC(fn func(v int32) (int32, bool)) {
	// natural[n] is the zigzag index that holds row-major position n.
	var natural [64]int
	for z, n := range zigzag {
		natural[n] = z
	}
	for ci := range img.Components {
		c := &img.Components[ci]
		for bi := range c.Blocks {
			blk := &c.Blocks[bi]
			for n := 1; n < 64; n++ {
				k := natural[n]
				nv, cont := fn(blk[k])
				blk[k] = nv
				if !cont {
					return
				}
			}
		}
	}
}

// embedBits packs payload bits (MSB-first per byte, the same convention
// bitpack uses) into AC coefficient LSBs in canonical order, clearing and
// re-setting the low bit, then re-clamping to the legal baseline
// coefficient range.
func (img *Image) embedBits(payload []byte) error {
	nbits := 8 * len(payload)
	if int64(nbits) > img.ACBitBudget() {
		return models.ErrCapacityError
	}
	i := 0
	img.forEachAC(func(v int32) (int32, bool) {
		if i >= nbits {
			return v, false
		}
		bit := (payload[i/8] >> uint(7-i%8)) & 1
		nv := (v &^ 1) | int32(bit)
		nv = clampCoefficient(v, nv)
		i++
		return nv, true
	})
	if i < nbits {
		return models.ErrInternalBug
	}
	return nil
}

// clampCoefficient enforces the legal baseline coefficient range
// [-1024, 1023] after an LSB edit: if the edit pushed out of range, force
// it back in by clearing the two low bits and re-ORing the payload bit
// (the bit survives in bit 0; bit 1 is sacrificed to make room).
func clampCoefficient(orig, edited int32) int32 {
	if edited >= -1024 && edited <= 1023 {
		return edited
	}
	bit := edited & 1
	base := orig &^ 3
	v := base | bit
	if v > 1023 {
		v -= 4
	} else if v < -1024 {
		v += 4
	}
	return v
}

// extractBits reads nbits AC-coefficient LSBs in canonical order into a
// byte slice, MSB-first.
func (img *Image) extractBits(nbits int) ([]byte, error) {
	if int64(nbits) > img.ACBitBudget() {
		return nil, models.ErrInvalidHeader
	}
	out := make([]byte, (nbits+7)/8)
	i := 0
	img.forEachAC(func(v int32) (int32, bool) {
		if i >= nbits {
			return v, false
		}
		bit := byte(v & 1)
		out[i/8] |= bit << uint(7-i%8)
		i++
		return v, true
	})
	if i < nbits {
		return nil, models.ErrInvalidHeader
	}
	return out, nil
}

// Embed builds header||ciphertext (always OneBit — JPEG mode only ever
// uses 1 bit per AC coefficient), embeds it across the image's AC
// coefficients in canonical order, and returns the header actually
// written. The caller re-encodes img with Encode.
func Embed(img *Image, ciphertext []byte, filename string) (header.Header, error) {
	writeSize := uint64(header.Size + len(ciphertext))
	requiredBits := int64(writeSize) * 8
	if requiredBits > img.ACBitBudget() {
		return header.Header{}, models.ErrCapacityError
	}

	h := header.New(models.ExtensionJPEG, models.LSBOneBit, filename, writeSize)
	serialized := header.Serialize(h)

	payload := make([]byte, 0, header.Size+len(ciphertext))
	payload = append(payload, serialized[:]...)
	payload = append(payload, ciphertext...)

	if err := img.embedBits(payload); err != nil {
		return header.Header{}, err
	}
	return h, nil
}

// Probe reads and parses only the header-sized AC-coefficient prefix.
func Probe(img *Image) (header.Header, error) {
	raw, err := img.extractBits(header.Size * 8)
	if err != nil {
		return header.Header{}, models.ErrInvalidHeader
	}
	return header.Parse(raw)
}

// Extract parses the header then reads the ciphertext body. It does not
// decrypt; the facade owns the cipher step.
func Extract(img *Image) (header.Header, []byte, error) {
	h, err := Probe(img)
	if err != nil {
		return header.Header{}, nil, err
	}
	bodyBytes := int(h.WriteSize) - header.Size
	if bodyBytes < 0 {
		return header.Header{}, nil, models.ErrInvalidHeader
	}
	totalBits := int(h.WriteSize) * 8
	all, err := img.extractBits(totalBits)
	if err != nil {
		return header.Header{}, nil, models.ErrInvalidHeader
	}
	body := all[header.Size:]
	return h, body, nil
}

// DecodeBytes is a convenience wrapper around Decode for in-memory input.
func DecodeBytes(b []byte) (*Image, error) {
	return Decode(bytes.NewReader(b))
}

// EncodeBytes is a convenience wrapper around Encode.
func EncodeBytes(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

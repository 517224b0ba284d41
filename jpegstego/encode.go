package jpegstego

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/photohns/backend/models"
)

// Encode writes img back out as a syntactically baseline sequential JPEG
// (SOF0, Huffman, no progressive/arithmetic/optimize-coding), against the
// *same* quantization tables it was decoded with — coefficients are
// written directly, never re-quantized.
func Encode(w io.Writer, img *Image) error {
	var buf bytes.Buffer

	writeMarker(&buf, 0xD8) // SOI

	if err := writeDQT(&buf, img); err != nil {
		return models.ErrEncodeImage
	}
	if err := writeSOF0(&buf, img); err != nil {
		return models.ErrEncodeImage
	}
	if err := writeDHT(&buf, img); err != nil {
		return models.ErrEncodeImage
	}
	if img.RestartInt > 0 {
		writeDRI(&buf, img.RestartInt)
	}
	if err := writeSOSAndScan(&buf, img); err != nil {
		return models.ErrEncodeImage
	}

	writeMarker(&buf, 0xD9) // EOI

	if _, err := w.Write(buf.Bytes()); err != nil {
		return models.ErrEncodeImage
	}
	return nil
}

func writeMarker(buf *bytes.Buffer, marker byte) {
	buf.WriteByte(0xFF)
	buf.WriteByte(marker)
}

func writeSegment(buf *bytes.Buffer, marker byte, payload []byte) {
	writeMarker(buf, marker)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)+2))
	buf.Write(lenBuf[:])
	buf.Write(payload)
}

func writeDQT(buf *bytes.Buffer, img *Image) error {
	for id, tbl := range img.QuantTables {
		if tbl == nil {
			continue
		}
		payload := make([]byte, 0, 1+64)
		payload = append(payload, byte(id)) // precision=0 (8-bit), id
		for _, v := range tbl {
			if v > 255 {
				return errQuantRangeTooLarge
			}
			payload = append(payload, byte(v))
		}
		writeSegment(buf, 0xDB, payload)
	}
	return nil
}

func writeSOF0(buf *bytes.Buffer, img *Image) error {
	payload := make([]byte, 0, 6+3*len(img.Components))
	payload = append(payload, 8) // precision
	var hw [4]byte
	binary.BigEndian.PutUint16(hw[0:2], uint16(img.Height))
	binary.BigEndian.PutUint16(hw[2:4], uint16(img.Width))
	payload = append(payload, hw[:]...)
	payload = append(payload, byte(len(img.Components)))
	for _, c := range img.Components {
		payload = append(payload, c.ID, byte(c.H<<4|c.V), c.Tq)
	}
	writeSegment(buf, 0xC0, payload)
	return nil
}

func writeDHT(buf *bytes.Buffer, img *Image) error {
	for id, t := range img.HuffDC {
		if t == nil {
			continue
		}
		writeSegment(buf, 0xC4, huffTablePayload(0, byte(id), t))
	}
	for id, t := range img.HuffAC {
		if t == nil {
			continue
		}
		writeSegment(buf, 0xC4, huffTablePayload(1, byte(id), t))
	}
	return nil
}

func huffTablePayload(class, id byte, t *huffTable) []byte {
	payload := make([]byte, 0, 1+16+len(t.symbols))
	payload = append(payload, class<<4|id)
	for l := 1; l <= 16; l++ {
		payload = append(payload, byte(t.counts[l]))
	}
	payload = append(payload, t.symbols...)
	return payload
}

func writeDRI(buf *bytes.Buffer, interval int) {
	var payload [2]byte
	binary.BigEndian.PutUint16(payload[:], uint16(interval))
	writeSegment(buf, 0xDD, payload[:])
}

func writeSOSAndScan(buf *bytes.Buffer, img *Image) error {
	payload := make([]byte, 0, 1+2*len(img.Components)+3)
	payload = append(payload, byte(len(img.Components)))
	for i, c := range img.Components {
		dc := 0
		ac := 0
		if i < len(img.DCTableSel) {
			dc = img.DCTableSel[i]
		}
		if i < len(img.ACTableSel) {
			ac = img.ACTableSel[i]
		}
		payload = append(payload, c.ID, byte(dc<<4|ac))
	}
	payload = append(payload, 0, 63, 0) // Ss, Se, AhAl: full spectral, baseline
	writeSegment(buf, 0xDA, payload)

	return encodeScan(buf, img)
}

func encodeScan(buf *bytes.Buffer, img *Image) error {
	bw := newBitWriter(buf)

	hmax, vmax := 1, 1
	for _, c := range img.Components {
		if c.H > hmax {
			hmax = c.H
		}
		if c.V > vmax {
			vmax = c.V
		}
	}
	mcusPerLine := (img.Width + 8*hmax - 1) / (8 * hmax)
	mcusPerCol := (img.Height + 8*vmax - 1) / (8 * vmax)

	predictors := make([]int32, len(img.Components))
	restartCounter := 0
	restartIdx := 0
	totalMCUs := mcusPerLine * mcusPerCol
	mcu := 0

	for mcuY := 0; mcuY < mcusPerCol; mcuY++ {
		for mcuX := 0; mcuX < mcusPerLine; mcuX++ {
			for ci := range img.Components {
				c := &img.Components[ci]
				dcT := img.HuffDC[img.DCTableSel[ci]]
				acT := img.HuffAC[img.ACTableSel[ci]]
				if dcT == nil || acT == nil {
					return errMissingHuffTable
				}
				for v := 0; v < c.V; v++ {
					for h := 0; h < c.H; h++ {
						blockRow := mcuY*c.V + v
						blockCol := mcuX*c.H + h
						idx := blockRow*c.BlocksWide + blockCol
						if err := encodeBlock(bw, dcT, acT, c.Blocks[idx], &predictors[ci]); err != nil {
							return err
						}
					}
				}
			}
			mcu++
			restartCounter++
			if img.RestartInt > 0 && restartCounter == img.RestartInt && mcu < totalMCUs {
				bw.flush()
				bw.writeRestartMarker(restartIdx)
				restartIdx++
				restartCounter = 0
				for i := range predictors {
					predictors[i] = 0
				}
			}
		}
	}
	bw.flush()
	return nil
}

func encodeBlock(bw *bitWriter, dcT, acT *huffTable, blk Block, predictor *int32) error {
	diff := blk[0] - *predictor
	*predictor = blk[0]

	size, bits := encodeValue(diff)
	if err := dcT.encode(bw, byte(size)); err != nil {
		return err
	}
	bw.writeBits(bits, size)

	run := 0
	for k := 1; k < 64; k++ {
		v := blk[k]
		if v == 0 {
			run++
			continue
		}
		for run >= 16 {
			if err := acT.encode(bw, 0xF0); err != nil { // ZRL
				return err
			}
			run -= 16
		}
		size, bits := encodeValue(v)
		symbol := byte(run<<4 | size)
		if err := acT.encode(bw, symbol); err != nil {
			return err
		}
		bw.writeBits(bits, size)
		run = 0
	}
	if run > 0 {
		if err := acT.encode(bw, 0x00); err != nil { // EOB
			return err
		}
	}
	return nil
}

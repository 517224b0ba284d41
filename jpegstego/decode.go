package jpegstego

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/photohns/backend/models"
)

type scanComponent struct {
	compIndex int
	dcTable   int
	acTable   int
}

// Decode parses a baseline-sequential JPEG (SOF0 only) into its quantized
// DCT coefficients. Progressive (SOF2) or arithmetic-coded input is
// rejected with ErrDecodeImage — out of scope for this carrier.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	if err := expectMarker(br, 0xD8); err != nil { // SOI
		return nil, models.ErrDecodeImage
	}

	img := &Image{}
	var quantRaw [4]*[64]uint16
	var dc [4]*huffTable
	var ac [4]*huffTable
	var scanComps []scanComponent
	var entropy []byte

	for {
		marker, err := readMarker(br)
		if err != nil {
			return nil, models.ErrDecodeImage
		}

		switch {
		case marker == 0xD9: // EOI
			goto done
		case marker == 0xDB: // DQT
			if err := parseDQT(br, &quantRaw); err != nil {
				return nil, models.ErrDecodeImage
			}
		case marker == 0xC4: // DHT
			if err := parseDHT(br, &dc, &ac); err != nil {
				return nil, models.ErrDecodeImage
			}
		case marker == 0xC0: // SOF0 baseline
			if err := parseSOF0(br, img); err != nil {
				return nil, models.ErrDecodeImage
			}
		case marker == 0xC2: // SOF2 progressive: out of scope
			return nil, models.ErrDecodeImage
		case marker == 0xDD: // DRI
			seg, err := readSegment(br)
			if err != nil || len(seg) != 2 {
				return nil, models.ErrDecodeImage
			}
			img.RestartInt = int(binary.BigEndian.Uint16(seg))
		case marker == 0xDA: // SOS
			sc, err := parseSOS(br, img)
			if err != nil {
				return nil, models.ErrDecodeImage
			}
			scanComps = sc
			entropy, err = readEntropyData(br)
			if err != nil {
				return nil, models.ErrDecodeImage
			}
		case marker >= 0xE0 && marker <= 0xEF, marker == 0xFE, marker == 0xC8,
			marker == 0xDC, marker == 0xDE, marker == 0xDF:
			if _, err := readSegment(br); err != nil {
				return nil, models.ErrDecodeImage
			}
		default:
			if _, err := readSegment(br); err != nil {
				return nil, models.ErrDecodeImage
			}
		}
	}

done:
	if img.Width == 0 || entropy == nil {
		return nil, models.ErrDecodeImage
	}
	img.QuantTables = quantRaw
	img.HuffDC = dc
	img.HuffAC = ac

	if err := decodeScan(img, scanComps, entropy); err != nil {
		return nil, models.ErrDecodeImage
	}

	img.DCTableSel = make([]int, len(img.Components))
	img.ACTableSel = make([]int, len(img.Components))
	for _, sc := range scanComps {
		img.DCTableSel[sc.compIndex] = sc.dcTable
		img.ACTableSel[sc.compIndex] = sc.acTable
	}

	return img, nil
}

func expectMarker(r *bufio.Reader, want byte) error {
	m, err := readMarker(r)
	if err != nil || m != want {
		return models.ErrDecodeImage
	}
	return nil
}

// readMarker scans forward to the next 0xFF marker byte (skipping fill
// bytes 0xFF 0xFF) and returns the marker code following it.
func readMarker(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b != 0xFF {
			continue
		}
		m, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if m == 0xFF {
			if err := r.UnreadByte(); err != nil {
				return 0, err
			}
			continue
		}
		if m == 0x00 {
			continue
		}
		return m, nil
	}
}

// readSegment reads a standard length-prefixed marker segment's payload
// (the 2-byte length field includes itself).
func readSegment(r *bufio.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
	if n < 0 {
		return nil, models.ErrDecodeImage
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func parseDQT(r *bufio.Reader, tables *[4]*[64]uint16) error {
	seg, err := readSegment(r)
	if err != nil {
		return err
	}
	for len(seg) > 0 {
		pq := seg[0] >> 4
		tq := seg[0] & 0xF
		seg = seg[1:]
		if tq > 3 {
			return models.ErrDecodeImage
		}
		var tbl [64]uint16
		if pq == 0 {
			if len(seg) < 64 {
				return models.ErrDecodeImage
			}
			for i := 0; i < 64; i++ {
				tbl[i] = uint16(seg[i])
			}
			seg = seg[64:]
		} else {
			if len(seg) < 128 {
				return models.ErrDecodeImage
			}
			for i := 0; i < 64; i++ {
				tbl[i] = binary.BigEndian.Uint16(seg[i*2:])
			}
			seg = seg[128:]
		}
		tables[tq] = &tbl
	}
	return nil
}

func parseDHT(r *bufio.Reader, dc, ac *[4]*huffTable) error {
	seg, err := readSegment(r)
	if err != nil {
		return err
	}
	for len(seg) > 0 {
		class := seg[0] >> 4
		id := seg[0] & 0xF
		seg = seg[1:]
		if id > 3 || len(seg) < 16 {
			return models.ErrDecodeImage
		}
		var counts [16]byte
		copy(counts[:], seg[:16])
		seg = seg[16:]
		total := 0
		for _, c := range counts {
			total += int(c)
		}
		if len(seg) < total {
			return models.ErrDecodeImage
		}
		symbols := make([]byte, total)
		copy(symbols, seg[:total])
		seg = seg[total:]

		t := newHuffTable(counts, symbols)
		if class == 0 {
			dc[id] = t
		} else {
			ac[id] = t
		}
	}
	return nil
}

func parseSOF0(r *bufio.Reader, img *Image) error {
	seg, err := readSegment(r)
	if err != nil {
		return err
	}
	if len(seg) < 6 {
		return models.ErrDecodeImage
	}
	precision := seg[0]
	if precision != 8 {
		return models.ErrDecodeImage
	}
	height := int(binary.BigEndian.Uint16(seg[1:3]))
	width := int(binary.BigEndian.Uint16(seg[3:5]))
	numComp := int(seg[5])
	seg = seg[6:]
	if len(seg) < numComp*3 {
		return models.ErrDecodeImage
	}

	img.Width, img.Height = width, height
	hmax, vmax := 1, 1
	comps := make([]Component, numComp)
	for i := 0; i < numComp; i++ {
		id := seg[i*3]
		hv := seg[i*3+1]
		tq := seg[i*3+2]
		h := int(hv >> 4)
		v := int(hv & 0xF)
		if h > hmax {
			hmax = h
		}
		if v > vmax {
			vmax = v
		}
		comps[i] = Component{ID: id, H: h, V: v, Tq: tq}
	}

	mcusPerLine := (width + 8*hmax - 1) / (8 * hmax)
	mcusPerCol := (height + 8*vmax - 1) / (8 * vmax)
	for i := range comps {
		comps[i].BlocksWide = mcusPerLine * comps[i].H
		comps[i].BlocksHigh = mcusPerCol * comps[i].V
		comps[i].Blocks = make([]Block, comps[i].BlocksWide*comps[i].BlocksHigh)
	}
	img.Components = comps
	return nil
}

func parseSOS(r *bufio.Reader, img *Image) ([]scanComponent, error) {
	seg, err := readSegment(r)
	if err != nil {
		return nil, err
	}
	if len(seg) < 1 {
		return nil, models.ErrDecodeImage
	}
	ns := int(seg[0])
	seg = seg[1:]
	if len(seg) < ns*2+3 {
		return nil, models.ErrDecodeImage
	}
	scanComps := make([]scanComponent, ns)
	for i := 0; i < ns; i++ {
		cs := seg[i*2]
		tdta := seg[i*2+1]
		ci := -1
		for idx, c := range img.Components {
			if c.ID == cs {
				ci = idx
				break
			}
		}
		if ci < 0 {
			return nil, models.ErrDecodeImage
		}
		scanComps[i] = scanComponent{
			compIndex: ci,
			dcTable:   int(tdta >> 4),
			acTable:   int(tdta & 0xF),
		}
	}
	return scanComps, nil
}

// readEntropyData reads raw entropy-coded bytes up to (but not including)
// the next unstuffed marker, which is left for the outer loop to read.
func readEntropyData(r *bufio.Reader) ([]byte, error) {
	var out []byte
	for {
		peek, err := r.Peek(2)
		if err != nil {
			return nil, err
		}
		if peek[0] != 0xFF {
			out = append(out, peek[0])
			r.Discard(1)
			continue
		}
		switch {
		case peek[1] == 0x00, peek[1] >= 0xD0 && peek[1] <= 0xD7:
			out = append(out, 0xFF, peek[1])
			r.Discard(2)
		default:
			// unstuffed marker: leave the 0xFF unread for the outer loop.
			return out, nil
		}
	}
}

func decodeScan(img *Image, scanComps []scanComponent, entropy []byte) error {
	br := newBitReader(entropy)

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

	predictors := make([]int32, len(scanComps))
	restartCounter := 0
	totalMCUs := mcusPerLine * mcusPerCol

	mcu := 0
	for mcuY := 0; mcuY < mcusPerCol; mcuY++ {
		for mcuX := 0; mcuX < mcusPerLine; mcuX++ {
			for si, sc := range scanComps {
				c := &img.Components[sc.compIndex]
				dcT := img.HuffDC[sc.dcTable]
				acT := img.HuffAC[sc.acTable]
				if dcT == nil || acT == nil {
					return models.ErrDecodeImage
				}
				for v := 0; v < c.V; v++ {
					for h := 0; h < c.H; h++ {
						blockRow := mcuY*c.V + v
						blockCol := mcuX*c.H + h
						idx := blockRow*c.BlocksWide + blockCol
						blk, err := decodeBlock(br, dcT, acT, &predictors[si])
						if err != nil {
							return err
						}
						c.Blocks[idx] = blk
					}
				}
			}
			mcu++
			restartCounter++
			if img.RestartInt > 0 && restartCounter == img.RestartInt && mcu < totalMCUs {
				br.consumeRestartMarker()
				restartCounter = 0
				for i := range predictors {
					predictors[i] = 0
				}
			}
		}
	}
	return nil
}

func decodeBlock(br *bitReader, dcT, acT *huffTable, predictor *int32) (Block, error) {
	var blk Block

	s, err := dcT.decode(br)
	if err != nil {
		return blk, err
	}
	diffRaw, err := receive(br, int(s))
	if err != nil {
		return blk, err
	}
	diff := extend(diffRaw, int(s))
	*predictor += diff
	blk[0] = *predictor

	k := 1
	for k < 64 {
		rs, err := acT.decode(br)
		if err != nil {
			return blk, err
		}
		run := int(rs >> 4)
		size := int(rs & 0xF)
		if size == 0 {
			if run == 15 {
				k += 16
				continue
			}
			break // EOB
		}
		k += run
		if k >= 64 {
			break
		}
		raw, err := receive(br, size)
		if err != nil {
			return blk, err
		}
		blk[k] = extend(raw, size)
		k++
	}
	return blk, nil
}

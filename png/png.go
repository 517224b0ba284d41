// Package png implements the PNG pixel-LSB carrier (C5): loads the pixel
// array into a linear planar byte buffer, computes capacity, selects the
// packing mode, writes/reads the wire format via bitpack, and re-encodes
// losslessly. Grounded on zanicar-stegano/png/png.go's Conceal/Reveal shape
// (pixel-channel iteration, re-encoding via the standard PNG codec) and
// praetorian-inc-augustus's image.NRGBA-based channel indexing, re-targeted
// to spec's header-then-body adaptive-mode wire format.
package png

import (
	"bytes"
	"image"
	"image/draw"
	stdpng "image/png"
	"io"

	"github.com/photohns/backend/bitpack"
	"github.com/photohns/backend/header"
	"github.com/photohns/backend/models"
)

// Planar is a decoded PNG normalized to 8-bit NRGBA: every pixel
// contributes exactly 4 host bytes (R, G, B, A in that order), matching
// the "treat the entire buffer as one linear host byte sequence" model.
// For an originally-opaque image the alpha channel is still a usable host
// byte (documented: all-255 alpha is fine to perturb by 1 LSB).
type Planar struct {
	Pix    []byte
	Width  int
	Height int
}

const channels = 4

// Decode reads a PNG and normalizes it to a Planar NRGBA buffer.
func Decode(r io.Reader) (Planar, error) {
	img, err := stdpng.Decode(r)
	if err != nil {
		return Planar{}, models.ErrDecodeImage
	}
	b := img.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return Planar{Pix: dst.Pix, Width: b.Dx(), Height: b.Dy()}, nil
}

// Encode re-encodes a Planar buffer losslessly. Any PNG filter strategy is
// acceptable; the standard library's default is used.
func Encode(w io.Writer, p Planar) error {
	img := &image.NRGBA{
		Pix:    p.Pix,
		Stride: p.Width * channels,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
	if err := stdpng.Encode(w, img); err != nil {
		return models.ErrEncodeImage
	}
	return nil
}

// N returns the total host byte count (capacity universe) of a Planar
// buffer: width * height * channels.
func (p Planar) N() int64 {
	return int64(len(p.Pix))
}

// Capacities returns the 1-bit and 2-bit bit budgets for a host buffer of
// length n, per §4.4 steps 2-3.
func Capacities(n int64) (oneBit, twoBit int64) {
	headerBits := int64(header.Size) * 8
	oneBit = n
	if n < headerBits {
		return oneBit, 0
	}
	twoBit = headerBits + 2*(n-headerBits)
	return oneBit, twoBit
}

// SelectMode picks OneBit if it fits, else TwoBits if that fits, else
// reports ErrCapacityError. requiredBits is 8 * len(payloadBytes) where
// payloadBytes = serialized header || ciphertext.
func SelectMode(hostLen int64, requiredBits int64) (models.LSBMode, error) {
	oneBit, twoBit := Capacities(hostLen)
	if requiredBits <= oneBit {
		return models.LSBOneBit, nil
	}
	if twoBit > 0 && requiredBits <= twoBit {
		return models.LSBTwoBit, nil
	}
	return models.LSBNoUsed, models.ErrCapacityError
}

// Embed writes header||ciphertext into a copy of p's pixel buffer,
// choosing the packing mode adaptively, and returns the modified Planar
// alongside the header actually written (with its true write_size and
// lsb_mode).
func Embed(p Planar, ciphertext []byte, ext models.Extension, filename string) (Planar, header.Header, error) {
	writeSize := uint64(header.Size + len(ciphertext))
	requiredBits := int64(writeSize) * 8

	mode, err := SelectMode(p.N(), requiredBits)
	if err != nil {
		return Planar{}, header.Header{}, err
	}

	h := header.New(ext, mode, filename, writeSize)
	serialized := header.Serialize(h)

	out := make([]byte, len(p.Pix))
	copy(out, p.Pix)

	if err := bitpack.Pack1bpb(out, serialized[:], 0); err != nil {
		return Planar{}, header.Header{}, models.ErrInternalBug
	}

	bodyOffset := header.Size * 8
	switch mode {
	case models.LSBOneBit:
		err = bitpack.Pack1bpb(out, ciphertext, bodyOffset)
	case models.LSBTwoBit:
		err = bitpack.Pack2bpb(out, ciphertext, bodyOffset)
	}
	if err != nil {
		return Planar{}, header.Header{}, models.ErrInternalBug
	}

	return Planar{Pix: out, Width: p.Width, Height: p.Height}, h, nil
}

// Probe unpacks and parses only the header-sized prefix, at 1 bpb, without
// reading any body bytes.
func Probe(p Planar) (header.Header, error) {
	if p.N() < int64(header.Size)*8 {
		return header.Header{}, models.ErrInvalidHeader
	}
	raw, err := bitpack.Unpack1bpb(p.Pix, 0, header.Size)
	if err != nil {
		return header.Header{}, models.ErrInvalidHeader
	}
	return header.Parse(raw)
}

// Extract parses the header, then unpacks the ciphertext body at the
// header's recorded lsb_mode. It does not decrypt; the facade owns the
// cipher step.
func Extract(p Planar) (header.Header, []byte, error) {
	h, err := Probe(p)
	if err != nil {
		return header.Header{}, nil, err
	}

	bodyBytes := int(h.WriteSize) - header.Size
	if bodyBytes < 0 {
		return header.Header{}, nil, models.ErrInvalidHeader
	}

	bodyOffset := header.Size * 8
	var body []byte
	switch h.LSBMode {
	case models.LSBOneBit:
		body, err = bitpack.Unpack1bpb(p.Pix, bodyOffset, bodyBytes)
	case models.LSBTwoBit:
		body, err = bitpack.Unpack2bpb(p.Pix, bodyOffset, bodyBytes)
	default:
		return header.Header{}, nil, models.ErrInvalidHeader
	}
	if err != nil {
		return header.Header{}, nil, models.ErrInvalidHeader
	}

	return h, body, nil
}

// EncodeBytes is a convenience wrapper returning the encoded PNG as bytes.
func EncodeBytes(p Planar) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

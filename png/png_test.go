package png

import (
	"bytes"
	"image"
	stdpng "image/png"
	"math/rand"
	"testing"

	"github.com/photohns/backend/header"
	"github.com/photohns/backend/models"
)

func encodeTestPNG(t *testing.T, width, height int, seed int64) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	r := rand.New(rand.NewSource(seed))
	r.Read(img.Pix)
	// make any alpha bytes fully opaque, matching the documented
	// "all-255 alpha is usable" case.
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := stdpng.Encode(&buf, img); err != nil {
		t.Fatalf("encodeTestPNG: %v", err)
	}
	return buf.Bytes()
}

func TestEmbedExtractRoundTrip(t *testing.T) {
	raw := encodeTestPNG(t, 64, 64, 1)
	p, err := Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	ciphertext := []byte("this-is-a-fake-ciphertext-blob!") // 31-byte ciphertext stand-in
	out, h, err := Embed(p, ciphertext, models.ExtensionPNG, "secret.txt")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if h.LSBMode != models.LSBOneBit {
		t.Fatalf("expected OneBit mode for small payload, got %v", h.LSBMode)
	}

	gotHeader, gotBody, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if gotHeader.Filename != "secret.txt" {
		t.Fatalf("filename = %q, want secret.txt", gotHeader.Filename)
	}
	if !bytes.Equal(gotBody, ciphertext) {
		t.Fatalf("body mismatch: got %x want %x", gotBody, ciphertext)
	}
}

func TestModeSelectionPrefersOneBitWhenBothFit(t *testing.T) {
	raw := encodeTestPNG(t, 64, 64, 2)
	p, _ := Decode(bytes.NewReader(raw))

	_, h, err := Embed(p, []byte("hi-cipher-stand-in-bytes-here!!"), models.ExtensionPNG, "f.txt")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if h.LSBMode != models.LSBOneBit {
		t.Fatalf("expected tie-break to OneBit, got %v", h.LSBMode)
	}
}

func TestCapacityErrorWhenTooSmall(t *testing.T) {
	// 4x4 image: N = 4*4*4 = 64 host bytes, far short of the 1048-byte
	// header alone (needs 8384 bits).
	raw := encodeTestPNG(t, 4, 4, 3)
	p, _ := Decode(bytes.NewReader(raw))

	_, _, err := Embed(p, []byte("hi"), models.ExtensionPNG, "f.txt")
	if err != models.ErrCapacityError {
		t.Fatalf("expected ErrCapacityError, got %v", err)
	}
}

func TestTwoBitModeSelectedForLargePayload(t *testing.T) {
	// 320x320 RGBA: N = 409600 host bytes. header+body needs
	// (1048+100016)*8 = 808512 bits: over the 1-bit budget (409600), within
	// the 2-bit budget (8384 + 2*(409600-8384) = 810816).
	raw := encodeTestPNG(t, 320, 320, 4)
	p, _ := Decode(bytes.NewReader(raw))

	ciphertext := make([]byte, 100016) // ~100000 random bytes + IV/padding stand-in
	r := rand.New(rand.NewSource(5))
	r.Read(ciphertext)

	out, h, err := Embed(p, ciphertext, models.ExtensionPNG, "big.bin")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if h.LSBMode != models.LSBTwoBit {
		t.Fatalf("expected TwoBit mode for large payload, got %v", h.LSBMode)
	}

	_, gotBody, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(gotBody, ciphertext) {
		t.Fatal("body mismatch after two-bit round trip")
	}
}

func TestVisualFidelityOneBitMode(t *testing.T) {
	raw := encodeTestPNG(t, 64, 64, 6)
	p, _ := Decode(bytes.NewReader(raw))

	ciphertext := []byte("small-cipher-stand-in-31-bytes!")
	out, h, err := Embed(p, ciphertext, models.ExtensionPNG, "f.txt")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if h.LSBMode != models.LSBOneBit {
		t.Fatalf("expected OneBit for fidelity test, got %v", h.LSBMode)
	}

	for i := range p.Pix {
		diff := int(p.Pix[i]) - int(out.Pix[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			t.Fatalf("byte %d differs by %d (> 1) under 1-bit embedding", i, diff)
		}
	}
}

func TestProbeOnCleanImageFindsNothingValid(t *testing.T) {
	raw := encodeTestPNG(t, 64, 64, 7)
	p, _ := Decode(bytes.NewReader(raw))

	if _, err := Probe(p); err != models.ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader probing a clean image, got %v", err)
	}
}

func TestProbeNonDestructive(t *testing.T) {
	raw := encodeTestPNG(t, 64, 64, 8)
	p, _ := Decode(bytes.NewReader(raw))

	ciphertext := []byte("probe-nondestructive-stand-in!!")
	out, _, err := Embed(p, ciphertext, models.ExtensionPNG, "f.txt")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if _, err := Probe(out); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	_, body, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract after probe: %v", err)
	}
	if !bytes.Equal(body, ciphertext) {
		t.Fatal("extract after probe returned different bytes")
	}
}

func TestHeaderSizeConstant(t *testing.T) {
	if header.Size != 1048 {
		t.Fatalf("header.Size = %d, want 1048", header.Size)
	}
}

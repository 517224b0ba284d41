package facade

import (
	"bytes"
	"image"
	stdpng "image/png"
	"math/rand"
	"testing"

	"github.com/photohns/backend/keysource"
	"github.com/photohns/backend/models"
)

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rnd := rand.New(rand.NewSource(3))
	for i := range img.Pix {
		if (i+1)%4 == 0 {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = byte(rnd.Intn(256))
		}
	}
	var buf bytes.Buffer
	if err := stdpng.Encode(&buf, img); err != nil {
		t.Fatalf("stdlib png encode: %v", err)
	}
	return buf.Bytes()
}

func TestEmbedExtractRoundTripPNG(t *testing.T) {
	cover := encodeTestPNG(t, 64, 64)
	ks := keysource.New()

	payload := []byte("the cave is dark, bring a light")
	resp, err := Embed(cover, "cover.png", payload, "note.txt", ks)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if resp.Mode != models.LSBOneBit {
		t.Fatalf("expected LSBOneBit for a small payload in a 64x64 cover, got %v", resp.Mode)
	}

	extracted, err := Extract(resp.Image, "stego.png", ks)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !bytes.Equal(extracted.Payload, payload) {
		t.Fatalf("payload mismatch: got %q, want %q", extracted.Payload, payload)
	}
	if extracted.Filename != "note.txt" {
		t.Fatalf("filename mismatch: got %q", extracted.Filename)
	}
}

func TestProbeReportsHeaderWithoutKey(t *testing.T) {
	cover := encodeTestPNG(t, 64, 64)
	ks := keysource.New()

	resp, err := Embed(cover, "cover.png", []byte("hidden"), "n.bin", ks)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	probe, err := Probe(resp.Image, "stego.png")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if probe.Filename != "n.bin" {
		t.Fatalf("filename mismatch: got %q", probe.Filename)
	}
	if probe.Container != "photo" {
		t.Fatalf("container mismatch: got %q", probe.Container)
	}
}

func TestCapacityReportsBudgetForPNG(t *testing.T) {
	// 64x64 RGBA: 16384 host bytes, enough to hold the 8384-bit header, so
	// the 2-bit budget (8384 + 2*(16384-8384) = 24384) exceeds the 1-bit one.
	cover := encodeTestPNG(t, 64, 64)
	budget, err := Capacity(cover, "cover.png")
	if err != nil {
		t.Fatalf("Capacity: %v", err)
	}
	if budget.OneBitBits <= 0 || budget.TwoBitBits <= budget.OneBitBits {
		t.Fatalf("unexpected capacity breakdown: %+v", budget)
	}
	if budget.Extension != "png" {
		t.Fatalf("extension mismatch: got %q", budget.Extension)
	}
}

func TestEmbedRejectsUnsupportedExtension(t *testing.T) {
	ks := keysource.New()
	_, err := Embed([]byte("not an image"), "cover.gif", []byte("x"), "n", ks)
	if err != models.ErrUnsupportedContainer {
		t.Fatalf("expected ErrUnsupportedContainer, got %v", err)
	}
}

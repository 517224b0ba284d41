package header

import (
	"strings"
	"testing"

	"github.com/photohns/backend/models"
)

func TestSizeIsExactly1048(t *testing.T) {
	if Size != 1048 {
		t.Fatalf("header.Size = %d, want 1048", Size)
	}
}

func TestSerializeParseIdempotence(t *testing.T) {
	h := New(models.ExtensionPNG, models.LSBTwoBit, "secret.txt", 5000)
	out := Serialize(h)
	if len(out) != Size {
		t.Fatalf("serialized length = %d, want %d", len(out), Size)
	}

	parsed, err := Parse(out[:])
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if parsed != h {
		t.Fatalf("parse(serialize(h)) = %+v, want %+v", parsed, h)
	}
}

func TestFilenameTruncationAndNulPadding(t *testing.T) {
	long := strings.Repeat("a", 2000)
	h := New(models.ExtensionJPEG, models.LSBOneBit, long, uint64(Size))
	out := Serialize(h)

	// Bytes after the NUL terminator within the filename field must be zero.
	nameField := out[24:Size]
	nulIdx := -1
	for i, b := range nameField {
		if b == 0 {
			nulIdx = i
			break
		}
	}
	if nulIdx < 0 {
		t.Fatal("expected a NUL terminator within the filename field")
	}
	for i := nulIdx; i < len(nameField); i++ {
		if nameField[i] != 0 {
			t.Fatalf("byte %d after NUL terminator is non-zero: %d", i, nameField[i])
		}
	}
}

func TestParseRejectsWrongLength(t *testing.T) {
	if _, err := Parse(make([]byte, Size-1)); err != models.ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader for short buffer, got %v", err)
	}
}

func TestParseRejectsBadMetaSize(t *testing.T) {
	h := New(models.ExtensionPNG, models.LSBOneBit, "x.png", uint64(Size))
	out := Serialize(h)
	out[20] = 0xFF // corrupt meta_size
	if _, err := Parse(out[:]); err != models.ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader for bad meta_size, got %v", err)
	}
}

func TestParseRejectsWriteSizeBelowHeaderSize(t *testing.T) {
	h := New(models.ExtensionPNG, models.LSBOneBit, "x.png", 10)
	out := Serialize(h)
	if _, err := Parse(out[:]); err != models.ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader for undersized write_size, got %v", err)
	}
}

func TestParseRejectsNonPhotoContainer(t *testing.T) {
	h := New(models.ExtensionPNG, models.LSBOneBit, "x.png", uint64(Size))
	out := Serialize(h)
	out[0] = byte(models.ContainerAudio)
	if _, err := Parse(out[:]); err != models.ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader for non-photo container, got %v", err)
	}
}

func TestParseRejectsRandomBytes(t *testing.T) {
	buf := make([]byte, Size)
	for i := range buf {
		buf[i] = byte(i * 37 % 251)
	}
	if _, err := Parse(buf); err != models.ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader on pseudo-random bytes, got %v", err)
	}
}

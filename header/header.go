// Package header implements the fixed-layout, self-describing metadata
// record (C3) that prefixes every embedded payload. The layout is byte-
// identical on every platform: a raw struct copy is not portable across Go
// compilers/architectures the way it was in the C++ source, so this package
// replaces that raw copy with an explicit little-endian serializer/parser.
package header

import (
	"encoding/binary"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/photohns/backend/models"
)

const (
	filenameFieldSize = 1024
	// Size is the fixed on-wire size of a serialized Header, in bytes.
	Size = 1 + 1 + 6 + 8 + 1 + 3 + 4 + filenameFieldSize
)

// Header is the in-memory representation of the 1048-byte wire record.
type Header struct {
	Container models.ContainerKind
	Extension models.Extension
	WriteSize uint64
	LSBMode   models.LSBMode
	MetaSize  uint32
	Filename  string
}

// New builds a header for an about-to-be-embedded payload. writeSize must
// be filled in by the caller once the ciphertext length is known; MetaSize
// is always Size.
func New(ext models.Extension, mode models.LSBMode, filename string, writeSize uint64) Header {
	return Header{
		Container: models.ContainerPhoto,
		Extension: ext,
		WriteSize: writeSize,
		LSBMode:   mode,
		MetaSize:  uint32(Size),
		Filename:  truncateFilename(filename),
	}
}

// truncateFilename takes the base name, normalizes it to NFC, then truncates
// at a UTF-8 character boundary so that it fits in 1023 bytes, leaving room
// for the NUL terminator within the fixed 1024-byte field: a multi-byte
// character is never split across the NUL boundary.
func truncateFilename(name string) string {
	name = filepath.Base(name)
	name = norm.NFC.String(name)
	b := []byte(name)
	if len(b) > filenameFieldSize-1 {
		cut := filenameFieldSize - 1
		for cut > 0 && !utf8.RuneStart(b[cut]) {
			cut--
		}
		b = b[:cut]
	}
	return string(b)
}

// Serialize writes the header to its fixed 1048-byte on-wire layout.
// Fields, in order: container_kind(1) extension(1) pad0(6) write_size(8 LE)
// lsb_mode(1) pad1(3) meta_size(4 LE) filename(1024, NUL-terminated, zero
// after the terminator).
func Serialize(h Header) [Size]byte {
	var out [Size]byte

	out[0] = byte(h.Container)
	out[1] = byte(h.Extension)
	// out[2:8] left zero (pad0)

	binary.LittleEndian.PutUint64(out[8:16], h.WriteSize)

	out[16] = byte(h.LSBMode)
	// out[17:20] left zero (pad1)

	binary.LittleEndian.PutUint32(out[20:24], h.MetaSize)

	name := []byte(h.Filename)
	if len(name) > filenameFieldSize-1 {
		name = name[:filenameFieldSize-1]
	}
	copy(out[24:24+len(name)], name)
	// remaining filename bytes, including the NUL terminator, are already
	// zero from the array's zero value.

	return out
}

// Parse validates and decodes a header from its on-wire bytes. Validations
// run in the exact order spec'd: length, meta_size, container_kind,
// extension, lsb_mode, write_size. Any failure yields ErrInvalidHeader.
func Parse(b []byte) (Header, error) {
	var h Header

	if len(b) != Size {
		return h, models.ErrInvalidHeader
	}

	metaSize := binary.LittleEndian.Uint32(b[20:24])
	if metaSize != uint32(Size) {
		return h, models.ErrInvalidHeader
	}

	container := models.ContainerKind(b[0])
	if container != models.ContainerPhoto {
		return h, models.ErrInvalidHeader
	}

	ext := models.Extension(b[1])
	if ext != models.ExtensionPNG && ext != models.ExtensionJPEG {
		return h, models.ErrInvalidHeader
	}

	mode := models.LSBMode(b[16])
	if mode != models.LSBOneBit && mode != models.LSBTwoBit && mode != models.LSBNoUsed {
		return h, models.ErrInvalidHeader
	}

	writeSize := binary.LittleEndian.Uint64(b[8:16])
	if writeSize < uint64(Size) {
		return h, models.ErrInvalidHeader
	}

	nameBytes := b[24:Size]
	nul := strings.IndexByte(string(nameBytes), 0)
	var name string
	if nul < 0 {
		name = string(nameBytes)
	} else {
		name = string(nameBytes[:nul])
	}

	h = Header{
		Container: container,
		Extension: ext,
		WriteSize: writeSize,
		LSBMode:   mode,
		MetaSize:  metaSize,
		Filename:  name,
	}
	return h, nil
}

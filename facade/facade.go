// Package facade implements the codec facade (C7): the three operations
// exposed over HTTP — Embed, Extract, Probe — each dispatching on the
// cover/stego image's file extension to the png or jpegstego carrier,
// orchestrating the cipher and keysource collaborators around it.
//
// Grounded on controller/controller.go's bare-function, no-DI shape
// (CalculateCapacity, CreateMetadata, EmbedMessage as free functions taking
// plain byte slices) and internal/HnS/HnS.cc's extension-based dispatch,
// re-architected per the "no inheritance hierarchy" design note: a single
// switch on extension replaces the original's HnS -> PhotoHnS/AudioHnS
// class hierarchy, since Go has no subclassing to lean on.
package facade

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/photohns/backend/cipher"
	"github.com/photohns/backend/header"
	"github.com/photohns/backend/imaging"
	"github.com/photohns/backend/jpegstego"
	"github.com/photohns/backend/keysource"
	"github.com/photohns/backend/models"
	pngstego "github.com/photohns/backend/png"
)

// detectExtension maps a filename's suffix to the header's Extension enum,
// the only two container types this build accepts, then cross-checks the
// claim against the actual bytes via content sniffing: a .png file whose
// magic bytes say otherwise is rejected before any carrier ever touches it,
// rather than failing deep inside a codec with a confusing decode error.
func detectExtension(filename string, data []byte) (models.Extension, error) {
	var claimed models.Extension
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		claimed = models.ExtensionPNG
	case ".jpg", ".jpeg":
		claimed = models.ExtensionJPEG
	default:
		return 0, models.ErrUnsupportedContainer
	}

	mt := mimetype.Detect(data)
	switch claimed {
	case models.ExtensionPNG:
		if !mt.Is("image/png") {
			return 0, models.ErrUnsupportedContainer
		}
	case models.ExtensionJPEG:
		if !mt.Is("image/jpeg") {
			return 0, models.ErrUnsupportedContainer
		}
	}
	return claimed, nil
}

// Embed encrypts payload under the keysource-derived key, embeds
// header||ciphertext into coverImage per its detected extension, and
// returns the re-encoded stego image plus fidelity metrics. coverFilename
// is used only to detect the container kind; payloadFilename is recorded in
// the embedded header so Extract can recover it.
func Embed(coverImage []byte, coverFilename string, payload []byte, payloadFilename string, keysrc *keysource.Source) (models.EmbedResponse, error) {
	ext, err := detectExtension(coverFilename, coverImage)
	if err != nil {
		return models.EmbedResponse{}, err
	}

	key, err := keysrc.Key()
	if err != nil {
		return models.EmbedResponse{}, err
	}

	ciphertext, err := cipher.Encrypt(payload, key[:])
	if err != nil {
		return models.EmbedResponse{}, err
	}

	switch ext {
	case models.ExtensionPNG:
		return embedPNG(coverImage, ciphertext, ext, payloadFilename)
	case models.ExtensionJPEG:
		return embedJPEG(coverImage, ciphertext, payloadFilename)
	default:
		return models.EmbedResponse{}, models.ErrUnsupportedContainer
	}
}

func embedPNG(coverImage, ciphertext []byte, ext models.Extension, payloadFilename string) (models.EmbedResponse, error) {
	cover, err := pngstego.Decode(bytes.NewReader(coverImage))
	if err != nil {
		return models.EmbedResponse{}, err
	}

	stego, h, err := pngstego.Embed(cover, ciphertext, ext, payloadFilename)
	if err != nil {
		return models.EmbedResponse{}, err
	}

	out, err := pngstego.EncodeBytes(stego)
	if err != nil {
		return models.EmbedResponse{}, err
	}

	psnr := imaging.CalculatePSNR(cover.Pix, stego.Pix)
	maxDiff := imaging.MaxChannelDiff(cover.Pix, stego.Pix)

	return models.EmbedResponse{
		Image:          out,
		Mode:           h.LSBMode,
		PSNR:           psnr,
		MaxChannelDiff: maxDiff,
		BytesWritten:   int64(h.WriteSize),
	}, nil
}

func embedJPEG(coverImage, ciphertext []byte, payloadFilename string) (models.EmbedResponse, error) {
	img, err := jpegstego.DecodeBytes(coverImage)
	if err != nil {
		return models.EmbedResponse{}, err
	}

	h, err := jpegstego.Embed(img, ciphertext, payloadFilename)
	if err != nil {
		return models.EmbedResponse{}, err
	}

	out, err := jpegstego.EncodeBytes(img)
	if err != nil {
		return models.EmbedResponse{}, err
	}

	// PSNR/max-channel-diff are defined over pixel buffers; the JPEG
	// carrier operates on quantized DCT coefficients and never decodes to
	// pixels, so no pixel-level fidelity is computed and both fields are 0.
	return models.EmbedResponse{
		Image:          out,
		Mode:           h.LSBMode,
		PSNR:           0,
		MaxChannelDiff: 0,
		BytesWritten:   int64(h.WriteSize),
	}, nil
}

// Extract recovers header.Filename and the decrypted payload from a stego
// image, dispatching by stegoFilename's extension.
func Extract(stegoImage []byte, stegoFilename string, keysrc *keysource.Source) (models.ExtractResponse, error) {
	ext, err := detectExtension(stegoFilename, stegoImage)
	if err != nil {
		return models.ExtractResponse{}, err
	}

	var h header.Header
	var ciphertext []byte

	switch ext {
	case models.ExtensionPNG:
		cover, derr := pngstego.Decode(bytes.NewReader(stegoImage))
		if derr != nil {
			return models.ExtractResponse{}, derr
		}
		h, ciphertext, err = pngstego.Extract(cover)
	case models.ExtensionJPEG:
		img, derr := jpegstego.DecodeBytes(stegoImage)
		if derr != nil {
			return models.ExtractResponse{}, derr
		}
		h, ciphertext, err = jpegstego.Extract(img)
	default:
		return models.ExtractResponse{}, models.ErrUnsupportedContainer
	}
	if err != nil {
		return models.ExtractResponse{}, err
	}

	key, err := keysrc.Key()
	if err != nil {
		return models.ExtractResponse{}, err
	}

	payload, err := cipher.Decrypt(ciphertext, key[:])
	if err != nil {
		return models.ExtractResponse{}, err
	}

	return models.ExtractResponse{
		Payload:   payload,
		Filename:  h.Filename,
		Extension: h.Extension.String(),
	}, nil
}

// Probe reports the embedded header without decrypting or returning the
// payload — a read-only inspection operation.
func Probe(stegoImage []byte, stegoFilename string) (*models.ProbeResponse, error) {
	ext, err := detectExtension(stegoFilename, stegoImage)
	if err != nil {
		return nil, err
	}

	var h header.Header
	switch ext {
	case models.ExtensionPNG:
		cover, derr := pngstego.Decode(bytes.NewReader(stegoImage))
		if derr != nil {
			return nil, derr
		}
		h, err = pngstego.Probe(cover)
	case models.ExtensionJPEG:
		img, derr := jpegstego.DecodeBytes(stegoImage)
		if derr != nil {
			return nil, derr
		}
		h, err = jpegstego.Probe(img)
	default:
		return nil, models.ErrUnsupportedContainer
	}
	if err != nil {
		return nil, err
	}

	return &models.ProbeResponse{
		Container: h.Container.String(),
		Extension: h.Extension.String(),
		WriteSize: h.WriteSize,
		LSBMode:   h.LSBMode.String(),
		MetaSize:  h.MetaSize,
		Filename:  h.Filename,
	}, nil
}

// Capacity reports the 1-bit/2-bit bit budgets for a cover image, used by
// the /capacity endpoint to let a client size its payload before calling
// Embed.
func Capacity(coverImage []byte, coverFilename string) (models.CapacityResponse, error) {
	ext, err := detectExtension(coverFilename, coverImage)
	if err != nil {
		return models.CapacityResponse{}, err
	}

	headerBits := int64(header.Size) * 8

	switch ext {
	case models.ExtensionPNG:
		cover, derr := pngstego.Decode(bytes.NewReader(coverImage))
		if derr != nil {
			return models.CapacityResponse{}, derr
		}
		oneBit, twoBit := pngstego.Capacities(cover.N())
		return models.CapacityResponse{
			OneBitBits: oneBit,
			TwoBitBits: twoBit,
			HeaderBits: headerBits,
			Extension:  ext.String(),
			MaxPayload: (twoBit - headerBits) / 8,
		}, nil
	case models.ExtensionJPEG:
		img, derr := jpegstego.DecodeBytes(coverImage)
		if derr != nil {
			return models.CapacityResponse{}, derr
		}
		oneBit := img.ACBitBudget()
		return models.CapacityResponse{
			OneBitBits: oneBit,
			TwoBitBits: 0,
			HeaderBits: headerBits,
			Extension:  ext.String(),
			MaxPayload: (oneBit - headerBits) / 8,
		}, nil
	default:
		return models.CapacityResponse{}, models.ErrUnsupportedContainer
	}
}

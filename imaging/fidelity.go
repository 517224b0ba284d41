// Package imaging computes visual fidelity metrics between a cover image
// and its stego counterpart, adapted from the teacher's 16-bit-PCM
// CalculatePSNR into an 8-bit pixel-byte equivalent plus a max-channel-diff
// metric the PNG carrier uses to report embedding quality.
package imaging

import (
	"log"
	"math"
)

// CalculatePSNR computes Peak Signal-to-Noise Ratio in dB between two equal-
// length 8-bit pixel byte buffers (one byte per sample, unlike the teacher's
// 16-bit PCM samples). Returns 0 on length mismatch, +Inf on a perfect
// match.
func CalculatePSNR(original, modified []byte) float64 {
	if len(original) != len(modified) {
		log.Printf("[WARN] CalculatePSNR: length mismatch - original: %d, modified: %d", len(original), len(modified))
		return 0.0
	}
	if len(original) == 0 {
		return 0.0
	}

	var mse float64
	for i := range original {
		diff := float64(int(original[i]) - int(modified[i]))
		mse += diff * diff
	}
	mse /= float64(len(original))

	if mse == 0 {
		return math.Inf(1)
	}

	const maxValue = 255.0
	psnr := 20 * math.Log10(maxValue/math.Sqrt(mse))

	log.Printf("[DEBUG] CalculatePSNR: MSE=%.6f, PSNR=%.2f dB (bytes: %d)", mse, psnr, len(original))
	return psnr
}

// MaxChannelDiff returns the largest single-byte absolute difference between
// two equal-length pixel buffers, reported alongside PSNR as a worst-case
// per-channel bound (PSNR alone hides whether a single channel swung wide).
func MaxChannelDiff(original, modified []byte) int {
	if len(original) != len(modified) {
		log.Printf("[WARN] MaxChannelDiff: length mismatch - original: %d, modified: %d", len(original), len(modified))
		return 0
	}

	max := 0
	for i := range original {
		diff := int(original[i]) - int(modified[i])
		if diff < 0 {
			diff = -diff
		}
		if diff > max {
			max = diff
		}
	}
	return max
}

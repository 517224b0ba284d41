// Package bitpack implements bit-level I/o over a byte stream (C4): MSB-
// first packing of 1-bit or 2-bit groups into the low bits of a host byte
// sequence. It performs no encryption and no header handling — pure bit
// arithmetic, testable in isolation.
//
// Bit order is MSB-first within each source byte: bit 7 is visited before
// bit 0. A 2-bit group packs the pair (bit 7-6, then 5-4, then 3-2, then
// 1-0) of each source byte, high bit of the pair first.
package bitpack

import "github.com/photohns/backend/models"

// bitAt reads bit index i (0 = MSB of byte 0) from a byte slice treated as
// one big MSB-first bitstream.
func bitAt(data []byte, i int) byte {
	byteIdx := i / 8
	shift := uint(7 - i%8)
	return (data[byteIdx] >> shift) & 1
}

// setBitAt writes bit index i into data's MSB-first bitstream.
func setBitAt(data []byte, i int, bit byte) {
	byteIdx := i / 8
	shift := uint(7 - i%8)
	if bit != 0 {
		data[byteIdx] |= 1 << shift
	} else {
		data[byteIdx] &^= 1 << shift
	}
}

// Pack1bpb overwrites the low bit of dst[offsetBytes+i] with source bit i
// for i in [0, 8*len(src)), MSB-first per source byte.
func Pack1bpb(dst, src []byte, offsetBytes int) error {
	nbits := 8 * len(src)
	if offsetBytes < 0 || offsetBytes+nbits > len(dst) {
		return models.ErrInternalBug
	}
	for i := 0; i < nbits; i++ {
		bit := bitAt(src, i)
		dst[offsetBytes+i] = (dst[offsetBytes+i] &^ 1) | bit
	}
	return nil
}

// Pack2bpb overwrites the low two bits of dst[offsetBytes+k] with source
// bit pair (2k, 2k+1), high bit of the pair first, for k in
// [0, ceil(8*len(src)/2)).
func Pack2bpb(dst, src []byte, offsetBytes int) error {
	nbits := 8 * len(src)
	ngroups := (nbits + 1) / 2
	if offsetBytes < 0 || offsetBytes+ngroups > len(dst) {
		return models.ErrInternalBug
	}
	for k := 0; k < ngroups; k++ {
		hi := bitAt(src, 2*k)
		var lo byte
		if 2*k+1 < nbits {
			lo = bitAt(src, 2*k+1)
		}
		group := (hi << 1) | lo
		dst[offsetBytes+k] = (dst[offsetBytes+k] &^ 3) | group
	}
	return nil
}

// Unpack1bpb reads 8*nbytes low-order bits starting at src[offsetBytes],
// MSB-first, into the returned buffer.
func Unpack1bpb(src []byte, offsetBytes, nbytes int) ([]byte, error) {
	nbits := 8 * nbytes
	if offsetBytes < 0 || offsetBytes+nbits > len(src) {
		return nil, models.ErrInternalBug
	}
	out := make([]byte, nbytes)
	for i := 0; i < nbits; i++ {
		bit := src[offsetBytes+i] & 1
		setBitAt(out, i, bit)
	}
	return out, nil
}

// Unpack2bpb reads 4*nbytes groups of two low-order bits starting at
// src[offsetBytes], reconstructing nbytes output bytes MSB-first.
func Unpack2bpb(src []byte, offsetBytes, nbytes int) ([]byte, error) {
	ngroups := 4 * nbytes
	if offsetBytes < 0 || offsetBytes+ngroups > len(src) {
		return nil, models.ErrInternalBug
	}
	out := make([]byte, nbytes)
	for k := 0; k < ngroups; k++ {
		group := src[offsetBytes+k] & 3
		hi := (group >> 1) & 1
		lo := group & 1
		setBitAt(out, 2*k, hi)
		if 2*k+1 < 8*nbytes {
			setBitAt(out, 2*k+1, lo)
		}
	}
	return out, nil
}

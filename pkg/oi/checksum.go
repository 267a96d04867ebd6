// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

// Checksum returns the byte that makes the 8-bit sum of data plus the
// checksum equal to zero, as used by stream frames.
func Checksum(data []byte) byte {
	return -sum8(data)
}

// VerifyChecksum reports whether the 8-bit sum of a complete stream frame,
// checksum byte included, is zero.
func VerifyChecksum(frame []byte) bool {
	return sum8(frame) == 0
}

func sum8(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Package simhash fingerprints scraped tables so consecutive pages can be
// compared cheaply.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strconv"
)

// Tokens computes a 64-bit SimHash over the given tokens using FNV-64a
// and bit vector accumulation. No tokens fingerprint to 0.
func Tokens(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Table fingerprints table rows. Every cell becomes a position-qualified
// token ("row:col=value"), so equal values in different places do not
// collide.
func Table(rows [][]string) uint64 {
	return Tokens(cellTokens(rows))
}

func cellTokens(rows [][]string) []string {
	var tokens []string
	for r, row := range rows {
		for c, cell := range row {
			tokens = append(tokens, strconv.Itoa(r)+":"+strconv.Itoa(c)+"="+cell)
		}
	}
	return tokens
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

package morsr

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

const (
	// WeightDecimals is the rounding precision applied to weights before hashing.
	WeightDecimals = 8
	// PhaseDecimals is the rounding precision applied to phases before hashing.
	PhaseDecimals = 9
	// HashLength is the number of hex characters kept from the digest.
	HashLength = 16
)

// roundTo rounds x to the given number of decimal digits. Negative zero is
// folded into +0 so that it hashes the same.
func roundTo(x float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	if math.IsInf(x*scale, 0) {
		// Already coarser than the requested precision.
		return x
	}
	r := math.Round(x*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

// ComputeHash returns a SHA-256 digest over the activation mask, the weights
// rounded to WeightDecimals and the phases rounded to PhaseDecimals, truncated
// to HashLength hex characters. Pose and provenance are not part of the hash.
func (o *Overlay) ComputeHash() string {
	h := sha256.New()

	var mask [NumSlots]byte
	for i, p := range o.present {
		if p {
			mask[i] = 1
		}
	}
	h.Write(mask[:])

	buf := make([]byte, 8*NumSlots)
	for i, w := range o.w {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(roundTo(w, WeightDecimals)))
	}
	h.Write(buf)
	for i, p := range o.phi {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(roundTo(p, PhaseDecimals)))
	}
	h.Write(buf)

	return hex.EncodeToString(h.Sum(nil))[:HashLength]
}

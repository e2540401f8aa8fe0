package model

import "math/big"

// CompactToBig converts a compact target representation (a base-256
// mantissa+exponent encoding, the "bits" field family from Bitcoin/btcd) to
// its big.Int form. Grounded on the standard algorithm the teacher's
// util.CompactToBig implements: the low 23 bits are the mantissa, the high
// byte is the byte-length of the encoded number, and bit 24 is the sign.
func CompactToBig(target CompactTarget) *big.Int {
	mantissa := uint32(target) & 0x007fffff
	isNegative := uint32(target)&0x00800000 != 0
	exponent := uint32(target) >> 24

	var result *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		result = big.NewInt(int64(mantissa))
	} else {
		result = big.NewInt(int64(mantissa))
		result.Lsh(result, uint(8*(exponent-3)))
	}

	if isNegative {
		result.Neg(result)
	}
	return result
}

// BigToCompact is the inverse of CompactToBig.
func BigToCompact(n *big.Int) CompactTarget {
	if n.Sign() == 0 {
		return 0
	}

	isNegative := n.Sign() < 0
	work := new(big.Int).Abs(n)

	exponent := uint((work.BitLen() + 7) / 8)
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(work.Int64())
		mantissa <<= 8 * (3 - exponent)
	} else {
		shifted := new(big.Int).Rsh(work, 8*(exponent-3))
		mantissa = uint32(shifted.Int64())
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent)<<24 | mantissa
	if isNegative {
		compact |= 0x00800000
	}
	return CompactTarget(compact)
}

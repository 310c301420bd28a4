package fact

import "math"

// IEEE 754 binary16 conversion for the confidence field. Confidence lives
// in [0, 1], so the subnormal and infinity branches exist for completeness
// rather than for real traffic.

// f16FromFloat rounds a float32 to the nearest representable half float.
func f16FromFloat(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xFF) - 127
	mant := bits & 0x7FFFFF

	switch {
	case exp == 128: // inf or nan
		if mant != 0 {
			return sign | 0x7E00
		}
		return sign | 0x7C00
	case exp > 15: // overflow to inf
		return sign | 0x7C00
	case exp >= -14: // normal
		// Round to nearest even on the 13 dropped mantissa bits.
		half := sign | uint16(exp+15)<<10 | uint16(mant>>13)
		if mant&0x1FFF > 0x1000 || (mant&0x1FFF == 0x1000 && half&1 == 1) {
			half++
		}
		return half
	case exp >= -24: // subnormal
		mant |= 0x800000
		shift := uint32(-exp - 1)
		return sign | uint16(mant>>(shift+10))
	default: // underflow to zero
		return sign
	}
}

// f16ToFloat widens a half float to float32 exactly.
func f16ToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h >> 10 & 0x1F)
	mant := uint32(h & 0x3FF)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Normalize the subnormal.
		e := uint32(127 - 15 + 1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		return math.Float32frombits(sign | e<<23 | (mant&0x3FF)<<13)
	case 0x1F:
		if mant == 0 {
			return math.Float32frombits(sign | 0x7F800000)
		}
		return float32(math.NaN())
	default:
		return math.Float32frombits(sign | (exp+127-15)<<23 | mant<<13)
	}
}

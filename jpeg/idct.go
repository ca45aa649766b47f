package jpeg

// aanScale holds the AAN/Winograd prescaling factors spec.md §4.6 describes
// as "pre-multiplied Winograd scale factors", one per frequency index 0..7.
// quant tables are prescaled as aanScale[row]*aanScale[col]*rawQuant[row][col]
// at DQT-parse time so the IDCT itself only does the plain scaled butterfly.
var aanScale = [8]float64{
	1.0, 1.387039845, 1.306562965, 1.175875602,
	1.0, 0.785694958, 0.541196100, 0.275899379,
}

const (
	idctSqrt2     = 1.414213562
	idct1_847759  = 1.847759065
	idct1_082392  = 1.082392200
	idct2_613125  = 2.613125930
)

// idct8x8 performs the two-pass (row then column) AAN/Winograd scaled IDCT
// spec.md §4.6 calls for ("five multiplications per pass"). coeff holds
// dequantized (already AAN-prescaled) coefficients in natural row-major
// order; out receives levels shifted by +128 and clamped to [0,255].
func idct8x8(coeff *[64]float64, out *[64]byte) {
	var tmp [64]float64

	// Pass 1: columns.
	for col := 0; col < 8; col++ {
		idct1D(
			coeff[0*8+col], coeff[1*8+col], coeff[2*8+col], coeff[3*8+col],
			coeff[4*8+col], coeff[5*8+col], coeff[6*8+col], coeff[7*8+col],
			func(row int, v float64) { tmp[row*8+col] = v },
		)
	}

	// Pass 2: rows, with final descale (/8) and level shift.
	for row := 0; row < 8; row++ {
		base := row * 8
		idct1D(
			tmp[base+0], tmp[base+1], tmp[base+2], tmp[base+3],
			tmp[base+4], tmp[base+5], tmp[base+6], tmp[base+7],
			func(col int, v float64) {
				sample := v/8.0 + 128.0
				out[base+col] = clampSample(sample)
			},
		)
	}
}

// idct1D is the 8-point scaled IDCT butterfly shared by both passes,
// structured like the classic AAN/Winograd float IDCT: an even part (DC,
// s2, s4, s6) and an odd part (s1, s3, s5, s7) combined with four distinct
// constants, each coefficient contributing to exactly one multiply.
func idct1D(s0, s1, s2, s3, s4, s5, s6, s7 float64, emit func(i int, v float64)) {
	// Even part.
	tmp0 := s0
	tmp1 := s4
	tmp2 := s2
	tmp3 := s6

	tmp10 := tmp0 + tmp1
	tmp11 := tmp0 - tmp1
	tmp13 := tmp2 + tmp3
	tmp12 := (tmp2-tmp3)*idctSqrt2 - tmp13

	e0 := tmp10 + tmp13
	e3 := tmp10 - tmp13
	e1 := tmp11 + tmp12
	e2 := tmp11 - tmp12

	// Odd part.
	z13 := s5 + s3
	z10 := s5 - s3
	z11 := s1 + s7
	z12 := s1 - s7

	tmp7 := z11 + z13
	tmp11o := (z11 - z13) * idctSqrt2
	z5 := (z10 + z12) * idct1_847759
	tmp10o := idct1_082392*z12 - z5
	tmp12o := -idct2_613125*z10 + z5

	tmp6 := tmp12o - tmp7
	tmp5 := tmp11o - tmp6
	tmp4 := tmp10o + tmp5

	emit(0, e0+tmp7)
	emit(7, e0-tmp7)
	emit(1, e1+tmp6)
	emit(6, e1-tmp6)
	emit(2, e2+tmp5)
	emit(5, e2-tmp5)
	emit(3, e3+tmp4)
	emit(4, e3-tmp4)
}

func clampSample(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

package imagediff

// Perceptual colour distance in YIQ space, after "Measuring perceived color
// difference using YIQ NTSC transmission color space in mobile applications"
// (Kotsarenko, Ramos). The same metric and constants are used by pixelmatch.

// maxYIQDelta is the largest possible delta, between black and white
const maxYIQDelta = 35215.0

func rgb2y(r, g, b float64) float64 { return r*0.29889531 + g*0.58662247 + b*0.11448223 }
func rgb2i(r, g, b float64) float64 { return r*0.59597799 - g*0.27417610 - b*0.32180189 }
func rgb2q(r, g, b float64) float64 { return r*0.21147017 - g*0.52261711 + b*0.31114694 }

// blend composites a channel with alpha a in [0,1] onto white
func blend(c, a float64) float64 {
	return 255 + (c-255)*a
}

// colorDelta returns the squared YIQ distance between pixel offset k of p1 and
// offset m of p2. The sign tells whether the first pixel is lighter. With
// yOnly set only the brightness difference is returned.
func colorDelta(p1, p2 []uint8, k, m int, yOnly bool) float64 {
	r1, g1, b1, a1 := float64(p1[k]), float64(p1[k+1]), float64(p1[k+2]), float64(p1[k+3])
	r2, g2, b2, a2 := float64(p2[m]), float64(p2[m+1]), float64(p2[m+2]), float64(p2[m+3])

	if a1 == a2 && r1 == r2 && g1 == g2 && b1 == b2 {
		return 0
	}

	if a1 < 255 {
		a1 /= 255
		r1, g1, b1 = blend(r1, a1), blend(g1, a1), blend(b1, a1)
	}
	if a2 < 255 {
		a2 /= 255
		r2, g2, b2 = blend(r2, a2), blend(g2, a2), blend(b2, a2)
	}

	y1 := rgb2y(r1, g1, b1)
	y2 := rgb2y(r2, g2, b2)
	y := y1 - y2

	if yOnly {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q
	if y1 > y2 {
		return -delta
	}
	return delta
}

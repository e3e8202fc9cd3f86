package detect

import "image"

// samplePoints are the relative coordinates mixed into the fingerprint.
var samplePoints = [3][2]float64{{0.25, 0.25}, {0.50, 0.50}, {0.75, 0.75}}

// Fingerprint computes a cheap whole-frame content fingerprint: width,
// height, and three sampled pixels combined via a polynomial hash. It is not
// collision-free; it only needs to distinguish consecutive screen frames well
// enough for a short-TTL cache.
func Fingerprint(frame *image.RGBA) uint64 {
	const prime = 1099511628211 // FNV-ish multiplier

	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	hash := uint64(1469598103934665603)
	hash = hash*prime + uint64(w)
	hash = hash*prime + uint64(h)

	for _, p := range samplePoints {
		x := b.Min.X + int(float64(w)*p[0])
		y := b.Min.Y + int(float64(h)*p[1])
		if x >= b.Max.X {
			x = b.Max.X - 1
		}
		if y >= b.Max.Y {
			y = b.Max.Y - 1
		}
		c := frame.RGBAAt(x, y)
		px := uint64(c.R)<<24 | uint64(c.G)<<16 | uint64(c.B)<<8 | uint64(c.A)
		hash = hash*prime + px
	}
	return hash
}

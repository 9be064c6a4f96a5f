package num

import (
	"math"
	"math/rand/v2"
)

// DegToRad converts degrees to radians.
func DegToRad(d float64) float64 { return d * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(r float64) float64 { return r * 180 / math.Pi }

// NormalizeDeg folds d into [0, 360).
func NormalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// DegToByte converts degrees to the 0..255 byte angle used by Hexen
// polyobject and line specials.
func DegToByte(d float64) int64 {
	return int64(math.Round(NormalizeDeg(d)*256/360)) & 0xFF
}

// ByteToDeg is the inverse of DegToByte.
func ByteToDeg(b int64) float64 {
	return float64(b&0xFF) * 360 / 256
}

// DegToBAM converts degrees to a 32-bit binary angle measurement.
func DegToBAM(d float64) int64 {
	return int64(uint32(math.Round(NormalizeDeg(d) * 4294967296.0 / 360)))
}

// Random is the deterministic source behind the [random] constant. Two
// compilers seeded alike produce identical levels.
type Random struct {
	r *rand.Rand
}

// NewRandom returns a random source seeded with seed.
func NewRandom(seed uint64) *Random {
	return &Random{r: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

// Int returns a non-negative pseudo-random integer below 1<<31.
func (r *Random) Int() int64 { return r.r.Int64N(1 << 31) }

// Real returns a pseudo-random real in [0, 1).
func (r *Random) Real() float64 { return r.r.Float64() }

// Byte returns a pseudo-random value in [0, 256), matching the range of
// the classic engine random table.
func (r *Random) Byte() int64 { return r.r.Int64N(256) }

package fake

import (
	"math/rand"
	"time"
)

// generator holds state for drawing values in skewed distributions. A few
// popular songs and a few heavy listeners account for most plays, which
// zipfian picks approximate well enough for test data.
type generator struct {
	r     *rand.Rand
	zs    map[int]*rand.Zipf
	clock time.Time
}

func newGenerator(seed int64, start time.Time) *generator {
	return &generator{
		r:     rand.New(rand.NewSource(seed)),
		zs:    make(map[int]*rand.Zipf),
		clock: start.UTC(),
	}
}

// pick gets a zipfian random index in [0, cardinality).
func (g *generator) pick(cardinality int) int {
	z, ok := g.zs[cardinality]
	if !ok {
		// rand.Zipf generates values in [0, imax], so imax is cardinality-1.
		imax := uint64(cardinality) - 1
		v := 0.05 * float64(imax)
		if v < 1.0 {
			v = 1.0
		}
		z = rand.NewZipf(g.r, 1.1, v, imax)
		g.zs[cardinality] = z
	}
	return int(z.Uint64())
}

// next advances the clock by a random delta up to max and returns it.
func (g *generator) next(max time.Duration) time.Time {
	g.clock = g.clock.Add(time.Duration(g.r.Int63n(int64(max))) + time.Second)
	return g.clock
}

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// id builds an identifier in the style of the source datasets, e.g.
// "SOUPIRU12A6D4FA1E1".
func (g *generator) id(prefix string) string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = idAlphabet[g.r.Intn(len(idAlphabet))]
	}
	return prefix + string(b)
}

package sim

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"
)

// Source produces frames of a requested size
type Source interface {
	// Next returns a new row-major frame of w*h samples
	Next(w, h int) ([]uint16, error)
}

// StepHigh is the level of the bright half of the step pattern
const StepHigh = 60000

// Patterns lists the patterns understood by NewSynthetic
var Patterns = []string{"zero", "step", "moving", "gradient", "noise"}

// Synthetic generates test patterns
type Synthetic struct {
	pattern string
	rng     *rand.Rand
	count   int
}

// NewSynthetic returns a synthetic source for one of Patterns.
// seed is only used by the noise pattern.
func NewSynthetic(pattern string, seed int64) (*Synthetic, error) {
	pattern = strings.ToLower(pattern)
	for _, p := range Patterns {
		if p == pattern {
			return &Synthetic{pattern: pattern, rng: rand.New(rand.NewSource(seed))}, nil
		}
	}
	return nil, errors.Errorf("unknown pattern %q, must be one of %s", pattern, strings.Join(Patterns, ", "))
}

// Next implements Source
//
//	zero:     all samples 0
//	step:     left half 0, right half StepHigh
//	moving:   like step, the edge advances one column per frame
//	gradient: x*y ramp, wrapping at 65536
//	noise:    uniform random samples
func (s *Synthetic) Next(w, h int) ([]uint16, error) {
	if w < 0 || h < 0 {
		return nil, errors.Errorf("negative frame size %dx%d", w, h)
	}
	buf := make([]uint16, w*h)
	defer func() { s.count++ }()
	switch s.pattern {
	case "step", "moving":
		col := w / 2
		if s.pattern == "moving" && w > 0 {
			col = s.count % w
		}
		for y := 0; y < h; y++ {
			row := buf[y*w : (y+1)*w]
			for x := col; x < w; x++ {
				row[x] = StepHigh
			}
		}
	case "gradient":
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buf[y*w+x] = uint16(x * y)
			}
		}
	case "noise":
		for i := range buf {
			buf[i] = uint16(s.rng.Intn(65536))
		}
	}
	return buf, nil
}

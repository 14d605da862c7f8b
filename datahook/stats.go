package datahook

import (
	"sync"
	"time"

	"github.com/brandondube/ringo"

	"github.com/nasa-jpl/datahook/mathx"
)

// Summary is a snapshot of the hook's timing statistics
type Summary struct {
	// Sets is the number of image data sets received
	Sets uint64 `json:"sets"`

	// Processed is the number of region-frames filtered
	Processed uint64 `json:"processed"`

	// Failed is the number of region-frames skipped due to an error
	Failed uint64 `json:"failed"`

	// Rebuilds is the number of times the filter was rebuilt
	Rebuilds uint64 `json:"rebuilds"`

	// Last is the duration of the most recent transform, in seconds
	Last float64 `json:"last"`

	// Mean is the mean of the recent transform durations, in seconds
	Mean float64 `json:"mean"`

	// Recent holds the recent transform durations from oldest to newest, in seconds
	Recent []float64 `json:"recent"`

	// Times holds when each of the Recent transforms started
	Times []time.Time `json:"times"`
}

// Stats accumulates transform timing.  It is concurrent safe.
type Stats struct {
	mu       sync.Mutex
	sets     uint64
	nproc    uint64
	fails    uint64
	rebuilds uint64

	// recent transform durations in seconds, and when each transform started
	durs  ringo.CircleF64
	times ringo.CircleTime
}

func newStats(depth int) *Stats {
	s := &Stats{}
	s.durs.Init(depth)
	s.times.Init(depth)
	return s
}

func (s *Stats) set() {
	s.mu.Lock()
	s.sets++
	s.mu.Unlock()
}

func (s *Stats) failed() {
	s.mu.Lock()
	s.fails++
	s.mu.Unlock()
}

func (s *Stats) rebuilt() {
	s.mu.Lock()
	s.rebuilds++
	s.mu.Unlock()
}

func (s *Stats) processed(start time.Time, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nproc++
	s.durs.Append(d.Seconds())
	s.times.Append(start)
}

// Summary returns the current statistics
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{
		Sets:      s.sets,
		Processed: s.nproc,
		Failed:    s.fails,
		Rebuilds:  s.rebuilds,
		Recent:    []float64{},
		Times:     []time.Time{},
	}
	if s.nproc == 0 {
		// the rings report a single zero when empty
		return sum
	}
	// Contiguous may alias the ring, copy before releasing the lock
	recent := s.durs.Contiguous()
	sum.Recent = make([]float64, len(recent))
	var total float64
	for i, d := range recent {
		sum.Recent[i] = mathx.Round(d, 1e-6)
		total += d
	}
	n := len(recent)
	sum.Last = mathx.Round(recent[n-1], 1e-6)
	sum.Mean = mathx.Round(total/float64(n), 1e-6)
	sum.Times = append(sum.Times, s.times.Contiguous()...)
	return sum
}

/*Package sobel implements a Sobel gradient-magnitude filter for 16-bit camera
frames which precomputes the neighbor indices of every pixel once per region of
interest so that the per-frame loop is only loads, multiplies and adds.

A band two pixels wide on every edge of a region is never filtered.  The output
for those pixels is whatever the filter's scratch buffer held, which is zero
until the band is written, and it is never written.

*/
package sobel

import (
	"math"

	"github.com/pkg/errors"
)

// border is the width of the band on each edge that is excluded from filtering
const border = 2

// ErrDimensionMismatch is returned by Transform when the buffer does not match
// the geometry the region's table was built for
var ErrDimensionMismatch = errors.New("dimension mismatch")

var (
	// tap offsets, row major 3x3, k=0 top left, k=4 center, k=8 bottom right
	dx = [9]int{-1, 0, 1, -1, 0, 1, -1, 0, 1}
	dy = [9]int{-1, -1, -1, 0, 0, 0, 1, 1, 1}

	// kernel weights, same tap ordering
	gy = [9]float64{-1, -2, -1, 0, 0, 0, 1, 2, 1}
	gx = [9]float64{-1, 0, 1, -2, 0, 2, -1, 0, 1}
)

// Region describes the geometry of one region of interest
type Region struct {
	// Width is the width of the region in sensor pixels
	Width int `json:"width" yaml:"Width"`

	// Height is the height of the region in sensor pixels
	Height int `json:"height" yaml:"Height"`

	// XBinning is the horizontal binning factor
	XBinning int `json:"xBinning" yaml:"XBinning"`

	// YBinning is the vertical binning factor
	YBinning int `json:"yBinning" yaml:"YBinning"`
}

// Dims returns the (w, h) of the frames produced by the region, which is
// the size divided by the binning with truncation.  A non-positive binning
// factor or a negative size gives zero for that axis.
func (r Region) Dims() (int, int) {
	return binned(r.Width, r.XBinning), binned(r.Height, r.YBinning)
}

func binned(n, bin int) int {
	if bin <= 0 || n <= 0 {
		return 0
	}
	return n / bin
}

// IndexTable holds the flat buffer offset of each of the 9 neighbors of every
// interior pixel of a region.  It is read only after construction.
type IndexTable struct {
	w, h int

	// idx is laid out as ((y*w)+x)*9 + k
	idx []int32
}

// NewIndexTable computes the neighbor table for a region
func NewIndexTable(r Region) *IndexTable {
	w, h := r.Dims()
	t := &IndexTable{w: w, h: h, idx: make([]int32, w*h*9)}
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			base := (y*w + x) * 9
			for k := 0; k < 9; k++ {
				t.idx[base+k] = int32((x + dx[k]) + (y+dy[k])*w)
			}
		}
	}
	return t
}

// Width is the width of frames the table applies to
func (t *IndexTable) Width() int { return t.w }

// Height is the height of frames the table applies to
func (t *IndexTable) Height() int { return t.h }

// Len is the number of elements in the table, w*h*9
func (t *IndexTable) Len() int { return len(t.idx) }

// Interior returns the half-open ranges [x0, x1) and [y0, y1) of filtered pixels.
// Either range may be empty.
func (t *IndexTable) Interior() (x0, x1, y0, y1 int) {
	return border, t.w - border, border, t.h - border
}

// At returns the flat index of the k-th neighbor of (x, y).
// Entries outside the interior are zero and carry no meaning.
func (t *IndexTable) At(x, y, k int) int {
	return int(t.idx[(y*t.w+x)*9+k])
}

// Filter applies the Sobel operator to frames from a fixed set of regions.
// It owns one index table and one output buffer per region.
//
// Calls to Transform for the same region must not overlap.  Different regions
// share no state and may be transformed concurrently.
type Filter struct {
	tables  []*IndexTable
	scratch [][]uint16
}

// Build returns a Filter for the regions, with freshly computed tables
func Build(regions []Region) *Filter {
	return (*Filter)(nil).Rebuild(regions)
}

// Rebuild returns a new Filter for regions.  The receiver is not modified.
//
// The table the receiver holds for a region index is reused when its length
// equals w*h*9 of the new region; it is only recomputed when the size differs.
// A region whose width and height are swapped therefore keeps the old table.
// Output buffers are always reallocated.  A nil receiver is valid.
func (f *Filter) Rebuild(regions []Region) *Filter {
	out := &Filter{
		tables:  make([]*IndexTable, len(regions)),
		scratch: make([][]uint16, len(regions)),
	}
	for i, r := range regions {
		w, h := r.Dims()
		var t *IndexTable
		if f != nil && i < len(f.tables) {
			t = f.tables[i]
		}
		if t == nil || t.Len() != w*h*9 {
			t = NewIndexTable(r)
		}
		out.tables[i] = t
		out.scratch[i] = make([]uint16, w*h)
	}
	return out
}

// Regions is the number of regions the filter was built for
func (f *Filter) Regions() int {
	return len(f.tables)
}

// Table returns the index table for region i
func (f *Filter) Table(i int) *IndexTable {
	return f.tables[i]
}

// Transform replaces buf with the gradient magnitude of its contents.
//
// buf must hold exactly w*h samples for region's table; if it does not,
// or region is out of range, ErrDimensionMismatch is returned and buf is
// left as it was.  Magnitudes above 65535 wrap modulo 65536.
func (f *Filter) Transform(buf []uint16, region int) error {
	if region < 0 || region >= len(f.tables) {
		return errors.Wrapf(ErrDimensionMismatch, "region %d not in filter with %d regions", region, len(f.tables))
	}
	t := f.tables[region]
	if len(buf) != t.w*t.h {
		return errors.Wrapf(ErrDimensionMismatch, "region %d: buffer holds %d samples, table is %dx%d", region, len(buf), t.w, t.h)
	}
	out := f.scratch[region]
	w := t.w
	for y := border; y < t.h-border; y++ {
		for x := border; x < w-border; x++ {
			p := y*w + x
			nbrs := t.idx[p*9 : p*9+9]
			var sx, sy float64
			for k, n := range nbrs {
				v := float64(buf[n])
				sy += v * gy[k]
				sx += v * gx[k]
			}
			out[p] = narrow(math.Sqrt(sx*sx + sy*sy))
		}
	}
	copy(buf, out)
	return nil
}

// narrow converts a non-negative magnitude to uint16 the way a narrowing cast
// does: truncate toward zero, then keep the low 16 bits.  A direct
// float64->uint16 conversion is implementation-defined when out of range.
func narrow(g float64) uint16 {
	return uint16(int64(g))
}

package sim

import (
	"io"
	"os"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
)

// FITSPlayback replays the frames of a FITS image or cube in a loop
type FITSPlayback struct {
	w, h   int
	frames [][]uint16
	cursor int
}

// OpenFITS loads a FITS file for playback
func OpenFITS(path string) (*FITSPlayback, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := LoadFITS(f)
	return p, errors.Wrapf(err, "loading %s", path)
}

// LoadFITS reads the primary HDU of a FITS stream.  It must be a 2D image or
// a 3D cube with NAXIS1 the frame width, NAXIS2 the height and NAXIS3 the
// frame count.  BITPIX 16 and 32 are supported; BZERO and BSCALE are applied
// and the result is clipped to the range of uint16.
func LoadFITS(r io.Reader) (*FITSPlayback, error) {
	fits, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer fits.Close()
	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return nil, errors.New("primary HDU is not an image")
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 2 || len(axes) > 3 {
		return nil, errors.Errorf("expected a 2D image or 3D cube, got %d axes", len(axes))
	}
	w, h, n := axes[0], axes[1], 1
	if len(axes) == 3 {
		n = axes[2]
	}
	if w*h*n == 0 {
		return nil, errors.New("image is empty")
	}
	zero, scale := cardFloat(hdr, "BZERO", 0), cardFloat(hdr, "BSCALE", 1)

	phys := make([]float64, w*h*n)
	switch hdr.Bitpix() {
	case 16:
		raw := make([]int16, w*h*n)
		if err = img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			phys[i] = float64(v)
		}
	case 32:
		raw := make([]int32, w*h*n)
		if err = img.Read(&raw); err != nil {
			return nil, err
		}
		for i, v := range raw {
			phys[i] = float64(v)
		}
	default:
		return nil, errors.Errorf("unsupported BITPIX %d", hdr.Bitpix())
	}

	p := &FITSPlayback{w: w, h: h, frames: make([][]uint16, n)}
	for i := range p.frames {
		frame := make([]uint16, w*h)
		for j, v := range phys[i*w*h : (i+1)*w*h] {
			frame[j] = clipU16(v*scale + zero)
		}
		p.frames[i] = frame
	}
	return p, nil
}

// Size returns the width, height and number of frames
func (p *FITSPlayback) Size() (int, int, int) {
	return p.w, p.h, len(p.frames)
}

// Next implements Source.  The stored frame is cropped or zero padded from the
// top left corner to w x h.
func (p *FITSPlayback) Next(w, h int) ([]uint16, error) {
	if w < 0 || h < 0 {
		return nil, errors.Errorf("negative frame size %dx%d", w, h)
	}
	src := p.frames[p.cursor]
	p.cursor = (p.cursor + 1) % len(p.frames)
	out := make([]uint16, w*h)
	cw, ch := w, h
	if cw > p.w {
		cw = p.w
	}
	if ch > p.h {
		ch = p.h
	}
	for y := 0; y < ch; y++ {
		copy(out[y*w:y*w+cw], src[y*p.w:y*p.w+cw])
	}
	return out, nil
}

func cardFloat(hdr *fitsio.Header, name string, dflt float64) float64 {
	card := hdr.Get(name)
	if card == nil {
		return dflt
	}
	switch v := card.Value.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return dflt
}

func clipU16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 65535 {
		return 65535
	}
	return uint16(v + 0.5)
}

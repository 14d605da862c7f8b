package sim

import (
	"github.com/pkg/errors"

	"github.com/nasa-jpl/datahook/camera"
)

// Frame is one frame of one region.  It implements camera.ImageData.
type Frame struct {
	w, h int
	data []uint16
}

// NewFrame wraps a row-major buffer of w*h samples
func NewFrame(w, h int, data []uint16) *Frame {
	return &Frame{w: w, h: h, data: data}
}

// Width is the width of the frame
func (f *Frame) Width() int { return f.w }

// Height is the height of the frame
func (f *Frame) Height() int { return f.h }

// GetData returns a copy of the samples
func (f *Frame) GetData() []uint16 {
	return append([]uint16(nil), f.data...)
}

// SetData replaces the samples with a copy of buf
func (f *Frame) SetData(buf []uint16) error {
	if len(buf) != len(f.data) {
		return errors.Errorf("frame holds %d samples, got %d", len(f.data), len(buf))
	}
	copy(f.data, buf)
	return nil
}

// Data returns the frame's samples without copying
func (f *Frame) Data() []uint16 { return f.data }

// DataSet is the content of one acquisition notification.
// It implements camera.ImageDataSet.
type DataSet struct {
	rois []camera.RegionOfInterest

	// frames is indexed [frame][region]
	frames [][]*Frame
}

// NewDataSet returns a data set.  frames is indexed [frame][region] and each
// inner slice must hold one Frame per region.
func NewDataSet(rois []camera.RegionOfInterest, frames [][]*Frame) *DataSet {
	return &DataSet{rois: rois, frames: frames}
}

// Frames is the number of frames in the set
func (d *DataSet) Frames() int { return len(d.frames) }

// Regions returns the regions the frames were read out with
func (d *DataSet) Regions() []camera.RegionOfInterest { return d.rois }

// GetFrame returns the data of one region of one frame
func (d *DataSet) GetFrame(region, frame int) camera.ImageData {
	return d.frames[frame][region]
}

// Frame is GetFrame with the concrete type
func (d *DataSet) Frame(region, frame int) *Frame {
	return d.frames[frame][region]
}

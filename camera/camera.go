/*Package camera describes the object model of the camera host a data hook
attaches to.

Experiment is the host's view of the attached devices and the selected regions
of interest.  It notifies a Listener of changes and of arriving image data.
ImageDataSet and ImageData give access to the frames of one notification.

*/
package camera

import "github.com/nasa-jpl/datahook/sobel"

// DeviceType is the kind of a device attached to an experiment
type DeviceType int

const (
	// Camera is an imaging detector
	Camera DeviceType = iota

	// Spectrometer is a spectrograph
	Spectrometer

	// Other is anything else, e.g. a shutter or light source
	Other
)

// String returns the name of the device type
func (d DeviceType) String() string {
	switch d {
	case Camera:
		return "Camera"
	case Spectrometer:
		return "Spectrometer"
	default:
		return "Other"
	}
}

// Device is a piece of hardware attached to an experiment
type Device struct {
	Type         DeviceType `json:"type"`
	Model        string     `json:"model"`
	SerialNumber string     `json:"serialNumber"`
}

// RegionOfInterest describes a readout region on the sensor
type RegionOfInterest struct {
	// X is the left pixel index, 0-based
	X int `json:"x" yaml:"X"`

	// Y is the top pixel index, 0-based
	Y int `json:"y" yaml:"Y"`

	// Width is the width in sensor pixels
	Width int `json:"width" yaml:"Width"`

	// Height is the height in sensor pixels
	Height int `json:"height" yaml:"Height"`

	// XBinning is the horizontal binning factor
	XBinning int `json:"xBinning" yaml:"XBinning"`

	// YBinning is the vertical binning factor
	YBinning int `json:"yBinning" yaml:"YBinning"`
}

// Region returns the filter geometry of the region of interest
func (r RegionOfInterest) Region() sobel.Region {
	return sobel.Region{Width: r.Width, Height: r.Height, XBinning: r.XBinning, YBinning: r.YBinning}
}

// Regions converts a slice of regions of interest to filter geometry
func Regions(rois []RegionOfInterest) []sobel.Region {
	out := make([]sobel.Region, len(rois))
	for i, r := range rois {
		out[i] = r.Region()
	}
	return out
}

// ImageData is one frame of one region
type ImageData interface {
	// Width is the width of the frame in (binned) pixels
	Width() int

	// Height is the height of the frame in (binned) pixels
	Height() int

	// GetData returns the row-major samples of the frame.
	// The slice belongs to the caller.
	GetData() []uint16

	// SetData replaces the samples of the frame with a copy of buf
	SetData(buf []uint16) error
}

// ImageDataSet is the data delivered by a single acquisition notification
type ImageDataSet interface {
	// Frames is the number of frames in the set
	Frames() int

	// Regions are the regions of interest each frame was read out with
	Regions() []RegionOfInterest

	// GetFrame returns the data of one region of one frame
	GetFrame(region, frame int) ImageData
}

// Listener receives notifications from an Experiment.  Notifications are
// delivered serially from a single goroutine.
type Listener interface {
	// ExperimentUpdated is called when devices are added or removed
	ExperimentUpdated()

	// SettingChanged is called when the region of interest setting changes
	SettingChanged()

	// ImageDataSetReceived is called when image data arrives.
	// Changes made to the frames are visible downstream.
	ImageDataSetReceived(ImageDataSet)
}

// Experiment is the host's experiment
type Experiment interface {
	// Devices returns the devices currently in the experiment
	Devices() []Device

	// SelectedRegions returns the regions of interest currently read out
	SelectedRegions() []RegionOfInterest

	// Subscribe registers a listener
	Subscribe(Listener)

	// Unsubscribe removes a listener
	Unsubscribe(Listener)
}

// HasCamera returns true if any device in the experiment is a camera
func HasCamera(exp Experiment) bool {
	for _, d := range exp.Devices() {
		if d.Type == Camera {
			return true
		}
	}
	return false
}

/*Package datahook attaches to a camera experiment, intercepts every incoming
frame and replaces it with its Sobel edge magnitude.

The Hook is rebuilt for the current regions of interest whenever the experiment
reports a device change or a region setting change, and it keeps the most
recent frame of each region along with timing statistics for display.

*/
package datahook

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nasa-jpl/datahook/camera"
	"github.com/nasa-jpl/datahook/sobel"
)

var (
	// ErrNotActive is returned when an operation needs an experiment and the hook has none
	ErrNotActive = errors.New("hook is not attached to an experiment")

	// ErrNotReady is returned when the experiment has no camera
	ErrNotReady = errors.New("no camera in experiment")
)

// Config holds the options of a Hook
type Config struct {
	// Enabled turns processing on at activation
	Enabled bool `yaml:"Enabled"`

	// Parallel processes the regions of a frame on separate goroutines
	Parallel bool `yaml:"Parallel"`

	// FirstRegionOnly filters region 0 and passes the others through
	FirstRegionOnly bool `yaml:"FirstRegionOnly"`

	// StatsDepth is the number of recent transform durations kept
	StatsDepth int `yaml:"StatsDepth"`
}

// Snapshot is a copy of the most recent frame of a region
type Snapshot struct {
	// Region is the index of the region
	Region int

	// ROI is the region of interest the frame was read with
	ROI camera.RegionOfInterest

	// Frame is the running frame number since activation
	Frame uint64

	// Width and Height are the frame dimensions
	Width, Height int

	// Data is the row-major frame
	Data []uint16

	// Acquired is when the frame arrived
	Acquired time.Time

	// Elapsed is how long the transform took
	Elapsed time.Duration

	// Filtered is true if the data is the output of the filter
	Filtered bool
}

// Hook is a data hook which runs a Sobel filter on each frame an experiment
// delivers.  The zero value is not usable, use New.
type Hook struct {
	cfg Config
	log logrus.FieldLogger

	// mu serializes rebuilds against frame processing
	mu      sync.Mutex
	exp     camera.Experiment
	filter  *sobel.Filter
	rois    []camera.RegionOfInterest
	ready   bool
	enabled bool
	frame   uint64

	// latest is written per region, so parallel regions do not race on it
	latest []*Snapshot

	stats *Stats

	// now is time.Now, swappable in tests
	now func() time.Time
}

// New returns a new Hook.  It does nothing until activated.
func New(cfg Config, log logrus.FieldLogger) *Hook {
	if cfg.StatsDepth <= 0 {
		cfg.StatsDepth = 100
	}
	return &Hook{
		cfg:   cfg,
		log:   log,
		stats: newStats(cfg.StatsDepth),
		now:   time.Now,
	}
}

// Activate attaches the hook to an experiment.  If the experiment has a camera
// the filter is built for its current regions.
//
// The hook subscribes before it reads the experiment, so a change made while
// activating is either seen by the build or notified afterwards.
func (h *Hook) Activate(exp camera.Experiment) {
	exp.Subscribe(h)
	h.mu.Lock()
	h.exp = exp
	h.ready = camera.HasCamera(exp)
	h.enabled = h.cfg.Enabled
	h.frame = 0
	if h.ready {
		h.rebuild()
	}
	fields := logrus.Fields{"ready": h.ready, "enabled": h.enabled}
	h.mu.Unlock()
	h.log.WithFields(fields).Info("data hook activated")
}

// Deactivate detaches the hook from its experiment
func (h *Hook) Deactivate() {
	h.mu.Lock()
	exp := h.exp
	h.exp = nil
	h.filter = nil
	h.rois = nil
	h.latest = nil
	h.ready = false
	h.mu.Unlock()
	if exp != nil {
		exp.Unsubscribe(h)
		h.log.Info("data hook deactivated")
	}
}

// ExperimentUpdated handles device changes.  Adding a camera can change the
// sensor geometry, so the filter is rebuilt whenever a camera is present.
func (h *Hook) ExperimentUpdated() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exp == nil {
		return
	}
	ready := camera.HasCamera(h.exp)
	if ready != h.ready {
		h.ready = ready
		h.log.WithField("ready", ready).Info("camera presence changed")
	}
	if ready {
		h.rebuild()
	}
}

// SettingChanged handles changes of the region of interest setting
func (h *Hook) SettingChanged() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exp == nil || !camera.HasCamera(h.exp) {
		return
	}
	h.rebuild()
}

// Rebuild forces the filter to be rebuilt for the experiment's current regions
func (h *Hook) Rebuild() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exp == nil {
		return ErrNotActive
	}
	if !camera.HasCamera(h.exp) {
		return ErrNotReady
	}
	h.rebuild()
	return nil
}

// rebuild replaces the filter and snapshots; h.mu must be held
func (h *Hook) rebuild() {
	rois := h.exp.SelectedRegions()
	h.filter = h.filter.Rebuild(camera.Regions(rois))
	h.rois = append([]camera.RegionOfInterest(nil), rois...)
	h.latest = make([]*Snapshot, len(rois))
	h.stats.rebuilt()
	h.log.WithField("regions", len(rois)).Debug("filter rebuilt")
}

// Ready returns true if the experiment has a camera
func (h *Hook) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Enabled returns true if frames are being filtered
func (h *Hook) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// SetEnabled turns filtering on or off.  It can not be turned on without a camera.
func (h *Hook) SetEnabled(b bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if b && !h.ready {
		return ErrNotReady
	}
	h.enabled = b
	h.log.WithField("enabled", b).Info("processing toggled")
	return nil
}

// Regions returns the regions of interest the filter was built for
func (h *Hook) Regions() []camera.RegionOfInterest {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]camera.RegionOfInterest(nil), h.rois...)
}

// Latest returns a copy of the most recent frame of a region
func (h *Hook) Latest(region int) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if region < 0 || region >= len(h.latest) || h.latest[region] == nil {
		return Snapshot{}, false
	}
	s := *h.latest[region]
	s.Data = append([]uint16(nil), s.Data...)
	return s, true
}

// Stats returns a summary of the transform timing
func (h *Hook) Stats() Summary {
	return h.stats.Summary()
}

// ImageDataSetReceived filters every region of every frame in the set.  A frame
// whose size does not match its region is logged and passed through untouched.
func (h *Hook) ImageDataSetReceived(ds camera.ImageDataSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exp == nil {
		return
	}
	arrived := h.now()
	nregions := len(ds.Regions())
	process := h.enabled && h.filter != nil
	for f := 0; f < ds.Frames(); f++ {
		h.frame++
		last := f == ds.Frames()-1
		if !process {
			// raw view only needs the newest frame of the set
			if last {
				for roi := 0; roi < nregions && roi < len(h.latest); roi++ {
					h.keep(ds, roi, f, arrived)
				}
			}
			continue
		}
		if h.cfg.Parallel && nregions > 1 {
			var wg sync.WaitGroup
			for roi := 0; roi < nregions; roi++ {
				wg.Add(1)
				go func(roi int) {
					defer wg.Done()
					h.transform(ds, roi, f, arrived, last)
				}(roi)
			}
			wg.Wait()
			continue
		}
		for roi := 0; roi < nregions; roi++ {
			h.transform(ds, roi, f, arrived, last)
		}
	}
	h.stats.set()
}

// transform filters one region of one frame.  It touches only per-region
// state and the stats, which lock themselves.
func (h *Hook) transform(ds camera.ImageDataSet, roi, f int, arrived time.Time, keep bool) {
	if h.cfg.FirstRegionOnly && roi > 0 {
		if keep {
			h.keep(ds, roi, f, arrived)
		}
		return
	}
	data := ds.GetFrame(roi, f)
	buf := data.GetData()
	start := time.Now()
	err := h.filter.Transform(buf, roi)
	elapsed := time.Since(start)
	if err != nil {
		h.stats.failed()
		h.log.WithFields(logrus.Fields{
			"region": roi,
			"frame":  f,
			"width":  data.Width(),
			"height": data.Height(),
		}).WithError(err).Warn("skipping frame")
		return
	}
	if err = data.SetData(buf); err != nil {
		h.stats.failed()
		h.log.WithFields(logrus.Fields{"region": roi, "frame": f}).WithError(err).Error("writing filtered frame")
		return
	}
	h.stats.processed(start, elapsed)
	if keep && roi < len(h.latest) {
		h.latest[roi] = &Snapshot{
			Region:   roi,
			ROI:      h.rois[roi],
			Frame:    h.frame,
			Width:    data.Width(),
			Height:   data.Height(),
			Data:     buf,
			Acquired: arrived,
			Elapsed:  elapsed,
			Filtered: true,
		}
	}
}

// keep stores an unfiltered copy of a frame
func (h *Hook) keep(ds camera.ImageDataSet, roi, f int, arrived time.Time) {
	if roi >= len(h.latest) {
		return
	}
	data := ds.GetFrame(roi, f)
	h.latest[roi] = &Snapshot{
		Region:   roi,
		ROI:      h.rois[roi],
		Frame:    h.frame,
		Width:    data.Width(),
		Height:   data.Height(),
		Data:     data.GetData(),
		Acquired: arrived,
	}
}

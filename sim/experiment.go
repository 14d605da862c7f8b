/*Package sim contains a simulated camera experiment which delivers frames
from a Source to its listeners at a fixed rate.

All notifications are delivered from the goroutine running Run, one at a time,
in the way a camera host fires its events from a single thread.

*/
package sim

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/datahook/camera"
)

const (
	pendingSetting = 1 << iota
	pendingDevices
)

// Options configures an Experiment
type Options struct {
	// FPS is the rate at which data sets are delivered
	FPS float64

	// FramesPerSet is the number of frames in each data set
	FramesPerSet int

	// Camera is true if a camera is attached at start
	Camera bool

	// Regions are the initial regions of interest
	Regions []camera.RegionOfInterest
}

// Experiment is a simulated camera experiment.  It implements camera.Experiment.
type Experiment struct {
	log    logrus.FieldLogger
	src    Source
	nframe int
	lim    *rate.Limiter

	mu        sync.Mutex
	devices   []camera.Device
	// rois is what listeners and data sets see, staged replaces it at the
	// next dispatch so a data set never outruns its setting change
	rois      []camera.RegionOfInterest
	staged    []camera.RegionOfInterest
	listeners []camera.Listener
	pending   int
	wake      chan struct{}
}

// NewExperiment returns a new simulated experiment drawing frames from src
func NewExperiment(src Source, opts Options, log logrus.FieldLogger) *Experiment {
	if opts.FPS <= 0 {
		opts.FPS = 10
	}
	if opts.FramesPerSet <= 0 {
		opts.FramesPerSet = 1
	}
	e := &Experiment{
		log:    log,
		src:    src,
		nframe: opts.FramesPerSet,
		lim:    rate.NewLimiter(rate.Limit(opts.FPS), 1),
		rois:   append([]camera.RegionOfInterest(nil), opts.Regions...),
		wake:   make(chan struct{}, 1),
	}
	if opts.Camera {
		e.devices = []camera.Device{simCamera}
	}
	return e
}

var simCamera = camera.Device{Type: camera.Camera, Model: "Simulated", SerialNumber: "SIM0001"}

// Devices implements camera.Experiment
func (e *Experiment) Devices() []camera.Device {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]camera.Device(nil), e.devices...)
}

// SelectedRegions implements camera.Experiment
func (e *Experiment) SelectedRegions() []camera.RegionOfInterest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]camera.RegionOfInterest(nil), e.rois...)
}

// Subscribe implements camera.Experiment
func (e *Experiment) Subscribe(l camera.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Unsubscribe implements camera.Experiment
func (e *Experiment) Unsubscribe(l camera.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, other := range e.listeners {
		if other == l {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// SetRegions changes the regions of interest.  The change is applied, and
// listeners are told of it, on the goroutine delivering data sets before the
// next one is acquired; until then SelectedRegions reports the old regions.
func (e *Experiment) SetRegions(rois []camera.RegionOfInterest) {
	e.mu.Lock()
	e.staged = append([]camera.RegionOfInterest{}, rois...)
	e.mu.Unlock()
	e.notify(pendingSetting)
}

// SetCameraPresent attaches or removes the simulated camera
func (e *Experiment) SetCameraPresent(b bool) {
	e.mu.Lock()
	if b {
		e.devices = []camera.Device{simCamera}
	} else {
		e.devices = nil
	}
	e.mu.Unlock()
	e.notify(pendingDevices)
}

func (e *Experiment) notify(what int) {
	e.mu.Lock()
	e.pending |= what
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// commit applies staged regions and takes the pending notifications.  The
// returned regions are the ones listeners will read until the next commit.
func (e *Experiment) commit() (int, []camera.RegionOfInterest, []camera.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.staged != nil {
		e.rois, e.staged = e.staged, nil
	}
	pending := e.pending
	e.pending = 0
	rois := append([]camera.RegionOfInterest(nil), e.rois...)
	ls := append([]camera.Listener(nil), e.listeners...)
	return pending, rois, ls
}

// dispatch delivers pending change notifications.  Repeated changes between two
// dispatches are coalesced, listeners read the latest state.
func (e *Experiment) dispatch() []camera.RegionOfInterest {
	pending, rois, ls := e.commit()
	for _, l := range ls {
		if pending&pendingDevices != 0 {
			l.ExperimentUpdated()
		}
		if pending&pendingSetting != 0 {
			l.SettingChanged()
		}
	}
	return rois
}

// Acquire reads one data set from the source for the current regions
func (e *Experiment) Acquire() (*DataSet, error) {
	return e.acquire(e.SelectedRegions())
}

func (e *Experiment) acquire(rois []camera.RegionOfInterest) (*DataSet, error) {
	frames := make([][]*Frame, e.nframe)
	for i := range frames {
		frames[i] = make([]*Frame, len(rois))
		for j, roi := range rois {
			w, h := roi.Region().Dims()
			buf, err := e.src.Next(w, h)
			if err != nil {
				return nil, errors.Wrapf(err, "reading region %d of frame %d", j, i)
			}
			frames[i][j] = NewFrame(w, h, buf)
		}
	}
	return NewDataSet(rois, frames), nil
}

// Step delivers pending notifications, then acquires one data set and delivers
// it if a camera is attached.  The delivered set is returned; it is nil if no
// camera is attached.
func (e *Experiment) Step() (*DataSet, error) {
	rois := e.dispatch()
	if !camera.HasCamera(e) {
		return nil, nil
	}
	ds, err := e.acquire(rois)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	ls := append([]camera.Listener(nil), e.listeners...)
	e.mu.Unlock()
	for _, l := range ls {
		l.ImageDataSetReceived(ds)
	}
	return ds, nil
}

// Run acquires and delivers data sets at the configured rate until ctx is done.
// Without a camera it idles until a change notification arrives.
func (e *Experiment) Run(ctx context.Context) error {
	for {
		if !camera.HasCamera(e) {
			e.dispatch()
			select {
			case <-ctx.Done():
				return nil
			case <-e.wake:
				continue
			}
		}
		if err := e.lim.Wait(ctx); err != nil {
			// the limiter fails early when the next slot is past the deadline
			<-ctx.Done()
			return nil
		}
		if _, err := e.Step(); err != nil {
			e.log.WithError(err).Error("acquisition failed")
		}
	}
}

package sim

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/nasa-jpl/datahook/camera"
)

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func TestSyntheticPatterns(t *testing.T) {
	s, err := NewSynthetic("STEP", 0)
	if err != nil {
		t.Fatal(err)
	}
	buf, _ := s.Next(6, 2)
	expected := []uint16{0, 0, 0, StepHigh, StepHigh, StepHigh, 0, 0, 0, StepHigh, StepHigh, StepHigh}
	if diff := cmp.Diff(expected, buf); diff != "" {
		t.Errorf("step pattern (-want +got):\n%s", diff)
	}

	z, _ := NewSynthetic("zero", 0)
	buf, _ = z.Next(3, 3)
	if diff := cmp.Diff(make([]uint16, 9), buf); diff != "" {
		t.Errorf("zero pattern (-want +got):\n%s", diff)
	}

	m, _ := NewSynthetic("moving", 0)
	first, _ := m.Next(4, 1)
	second, _ := m.Next(4, 1)
	if first[0] != StepHigh || second[0] != 0 || second[1] != StepHigh {
		t.Errorf("expected moving edge to advance one column, got %v then %v", first, second)
	}

	if _, err := NewSynthetic("plaid", 0); err == nil {
		t.Errorf("expected error for unknown pattern")
	}
}

func TestSyntheticNoiseSeeded(t *testing.T) {
	a, _ := NewSynthetic("noise", 42)
	b, _ := NewSynthetic("noise", 42)
	x, _ := a.Next(16, 16)
	y, _ := b.Next(16, 16)
	if diff := cmp.Diff(x, y); diff != "" {
		t.Errorf("same seed gave different noise:\n%s", diff)
	}
}

func writeCube(t *testing.T, w, h, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		t.Fatal(err)
	}
	im := fitsio.NewImage(16, []int{w, h, n})
	err = im.Header().Append(fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	if err != nil {
		t.Fatal(err)
	}
	ints := make([]int16, w*h*n)
	for i := range ints {
		ints[i] = int16(uint16(i*100) - 32768)
	}
	if err = im.Write(ints); err != nil {
		t.Fatal(err)
	}
	if err = f.Write(im); err != nil {
		t.Fatal(err)
	}
	im.Close()
	f.Close()
	return buf.Bytes()
}

func TestFITSPlaybackCyclesAndCrops(t *testing.T) {
	const w, h, n = 4, 3, 2
	p, err := LoadFITS(bytes.NewReader(writeCube(t, w, h, n)))
	if err != nil {
		t.Fatal(err)
	}
	if pw, ph, pn := p.Size(); pw != w || ph != h || pn != n {
		t.Fatalf("expected %dx%dx%d, got %dx%dx%d", w, h, n, pw, ph, pn)
	}
	// same size, first frame
	f0, _ := p.Next(w, h)
	for i, v := range f0 {
		if v != uint16(i*100) {
			t.Errorf("frame 0 sample %d expected %d, got %d", i, i*100, v)
		}
	}
	// cropped, second frame
	f1, _ := p.Next(2, 2)
	expected := []uint16{1200, 1300, 1600, 1700}
	if diff := cmp.Diff(expected, f1); diff != "" {
		t.Errorf("cropped frame (-want +got):\n%s", diff)
	}
	// padded, wraps to the first frame
	f2, _ := p.Next(5, 4)
	if f2[3] != 300 || f2[4] != 0 || f2[5] != 400 || f2[15] != 0 {
		t.Errorf("padded frame wrong: %v", f2)
	}
}

func TestLoadFITSRejectsGarbage(t *testing.T) {
	if _, err := LoadFITS(bytes.NewReader([]byte("not a fits file"))); err == nil {
		t.Errorf("expected error")
	}
}

func TestFrameSetDataChecksLength(t *testing.T) {
	f := NewFrame(2, 2, make([]uint16, 4))
	if err := f.SetData(make([]uint16, 3)); err == nil {
		t.Errorf("expected error for short buffer")
	}
	if err := f.SetData([]uint16{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	got := f.GetData()
	got[0] = 99
	if f.Data()[0] != 1 {
		t.Errorf("GetData must return a copy")
	}
}

type recorder struct {
	events []string
	sets   []camera.ImageDataSet
}

func (r *recorder) ExperimentUpdated() { r.events = append(r.events, "updated") }
func (r *recorder) SettingChanged()    { r.events = append(r.events, "setting") }
func (r *recorder) ImageDataSetReceived(ds camera.ImageDataSet) {
	r.events = append(r.events, "data")
	r.sets = append(r.sets, ds)
}

func TestExperimentStepOrdering(t *testing.T) {
	src, _ := NewSynthetic("zero", 0)
	rois := []camera.RegionOfInterest{{Width: 8, Height: 8, XBinning: 2, YBinning: 1}}
	e := NewExperiment(src, Options{FramesPerSet: 3, Regions: rois}, quietLogger())
	r := &recorder{}
	e.Subscribe(r)

	// no camera, no data
	ds, err := e.Step()
	if err != nil || ds != nil {
		t.Fatalf("expected no data without camera, got %v, %v", ds, err)
	}
	e.SetCameraPresent(true)
	e.SetRegions(rois)
	e.SetRegions(rois) // coalesced
	if _, err = e.Step(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"updated", "setting", "data"}, r.events); diff != "" {
		t.Errorf("event order (-want +got):\n%s", diff)
	}
	set := r.sets[0]
	if set.Frames() != 3 {
		t.Errorf("expected 3 frames, got %d", set.Frames())
	}
	fr := set.GetFrame(0, 2)
	if fr.Width() != 4 || fr.Height() != 8 {
		t.Errorf("expected binned frame 4x8, got %dx%d", fr.Width(), fr.Height())
	}

	e.Unsubscribe(r)
	e.Step()
	if len(r.sets) != 1 {
		t.Errorf("unsubscribed listener still notified")
	}
}

func TestExperimentRunStopsOnCancel(t *testing.T) {
	src, _ := NewSynthetic("noise", 1)
	rois := []camera.RegionOfInterest{{Width: 8, Height: 8, XBinning: 1, YBinning: 1}}
	e := NewExperiment(src, Options{FPS: 1000, Camera: true, Regions: rois}, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error)
	go func() { done <- e.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// meddler changes the experiment's regions the first time it is read from,
// between the notifications and the delivery of a data set
type meddler struct {
	Source
	e    *Experiment
	to   []camera.RegionOfInterest
	done bool
}

func (m *meddler) Next(w, h int) ([]uint16, error) {
	if !m.done {
		m.done = true
		m.e.SetRegions(m.to)
	}
	return m.Source.Next(w, h)
}

func TestRegionChangeDuringAcquisitionWaitsForNextSet(t *testing.T) {
	src, _ := NewSynthetic("zero", 0)
	before := []camera.RegionOfInterest{{Width: 8, Height: 8, XBinning: 1, YBinning: 1}}
	after := []camera.RegionOfInterest{{Width: 16, Height: 4, XBinning: 1, YBinning: 1}}
	m := &meddler{Source: src, to: after}
	e := NewExperiment(m, Options{Camera: true, Regions: before}, quietLogger())
	m.e = e
	r := &recorder{}
	e.Subscribe(r)

	ds, err := e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, ds.Regions()); diff != "" {
		t.Errorf("first set regions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, e.SelectedRegions()); diff != "" {
		t.Errorf("regions changed before being announced (-want +got):\n%s", diff)
	}

	ds, err = e.Step()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"data", "setting", "data"}, r.events); diff != "" {
		t.Errorf("event order (-want +got):\n%s", diff)
	}
	if fr := ds.GetFrame(0, 0); fr.Width() != 16 || fr.Height() != 4 {
		t.Errorf("expected 16x4 frame after the change, got %dx%d", fr.Width(), fr.Height())
	}
}

// Package camera provides a generic HTTP interface to a camera data hook
package camera

import (
	"go/types"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strconv"

	host "github.com/nasa-jpl/datahook/camera"
	"github.com/nasa-jpl/datahook/datahook"
	"github.com/nasa-jpl/datahook/generichttp"
)

// FrameViewer describes a data hook which can be toggled and which keeps the
// most recent frame of each region
type FrameViewer interface {
	// Enabled returns true if frames are being processed
	Enabled() bool

	// SetEnabled turns processing on or off
	SetEnabled(bool) error

	// Ready returns true if the hook's experiment has a camera
	Ready() bool

	// Regions returns the regions of interest being processed
	Regions() []host.RegionOfInterest

	// Stats returns the timing statistics
	Stats() datahook.Summary

	// Latest returns the most recent frame of a region
	Latest(int) (datahook.Snapshot, bool)

	// Rebuild rebuilds the processing for the current regions
	Rebuild() error
}

// HTTPHook wraps a FrameViewer in an HTTP interface
type HTTPHook struct {
	Viewer FrameViewer

	RouteTable generichttp.RouteTable
}

// NewHTTPHook returns a new HTTP wrapper with the route table populated
func NewHTTPHook(v FrameViewer) HTTPHook {
	w := HTTPHook{Viewer: v}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/enabled"}:  generichttp.GetBool(v.Enabled),
		{Method: http.MethodPost, Path: "/enabled"}: generichttp.SetBool(v.SetEnabled),
		{Method: http.MethodGet, Path: "/ready"}:    generichttp.GetBool(v.Ready),
		{Method: http.MethodGet, Path: "/regions"}:  w.GetRegions,
		{Method: http.MethodGet, Path: "/stats"}:    w.GetStats,
		{Method: http.MethodGet, Path: "/frame"}:    w.GetFrame,
		{Method: http.MethodPost, Path: "/rebuild"}: w.PostRebuild,
	}
	w.RouteTable = rt
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/endpoints"}] = generichttp.ListEndpoints(w)
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPHook) RT() generichttp.RouteTable {
	return h.RouteTable
}

// GetRegions returns the regions of interest as a JSON array
func (h HTTPHook) GetRegions(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.Viewer.Regions())
}

// GetStats returns the timing statistics as JSON
func (h HTTPHook) GetStats(w http.ResponseWriter, r *http.Request) {
	generichttp.RespondJSON(w, h.Viewer.Stats())
}

// PostRebuild forces the filter to be rebuilt
func (h HTTPHook) PostRebuild(w http.ResponseWriter, r *http.Request) {
	err := h.Viewer.Rebuild()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	hp := generichttp.HumanPayload{T: types.Int, Int: len(h.Viewer.Regions())}
	hp.EncodeAndRespond(w, r)
}

// GetFrame returns the most recent frame of a region on a GET request.
//
// query parameters:
//	roi     region index, default 0
//	fmt     fits, png or jpg; default jpg
//	scale   downscale factor in (0, 1] for png and jpg
//	stretch if true, png and jpg map the frame's min..max to black..white
//
// the fits output carries the frame's timing metadata in its header.
func (h HTTPHook) GetFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("fmt")
	if format == "" {
		format = "jpg"
	}
	if format != "jpg" && format != "png" && format != "fits" {
		http.Error(w, "format must be one of fits, png, jpg", http.StatusBadRequest)
		return
	}
	roi := 0
	if s := q.Get("roi"); s != "" {
		var err error
		roi, err = strconv.Atoi(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	factor := 1.
	if s := q.Get("scale"); s != "" {
		var err error
		factor, err = strconv.ParseFloat(s, 64)
		if err != nil || factor <= 0 || factor > 1 {
			http.Error(w, "scale must be a number in (0, 1]", http.StatusBadRequest)
			return
		}
	}
	stretch := q.Get("stretch") == "true"

	snap, ok := h.Viewer.Latest(roi)
	if !ok {
		http.Error(w, "no frame for region "+strconv.Itoa(roi), http.StatusNotFound)
		return
	}

	var img image.Image
	if format != "fits" {
		img = downscale(toGray8(snap.Data, snap.Width, snap.Height, stretch), factor)
	}
	switch format {
	case "jpg":
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		jpeg.Encode(w, img, nil)
	case "png":
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		png.Encode(w, img)
	case "fits":
		hdr := w.Header()
		hdr.Set("Content-Type", "image/fits")
		hdr.Set("Content-Disposition", "attachment; filename=view.fits")
		err := writeFits(w, snapshotCards(snap), snap.Data, snap.Width, snap.Height)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

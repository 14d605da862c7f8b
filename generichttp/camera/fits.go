package camera

import (
	"io"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/datahook/datahook"
)

// HeaderVersion is the first card of every FITS file served, bump it when the
// set of cards changes
const HeaderVersion = "datahook-1"

// snapshotCards produces the FITS header cards describing a snapshot
func snapshotCards(s datahook.Snapshot) []fitsio.Card {
	return []fitsio.Card{
		{Name: "HDRVER", Value: HeaderVersion, Comment: "header version"},
		{Name: "DATE-OBS", Value: s.Acquired.UTC().Format("2006-01-02T15:04:05.000000"), Comment: "frame arrival, UTC"},
		{Name: "FRAMENUM", Value: int(s.Frame), Comment: "frame number since activation"},
		{Name: "ROI", Value: s.Region, Comment: "region index"},
		{Name: "ROIX", Value: s.ROI.X, Comment: "region left, sensor pixels"},
		{Name: "ROIY", Value: s.ROI.Y, Comment: "region top, sensor pixels"},
		{Name: "XBIN", Value: s.ROI.XBinning, Comment: "horizontal binning"},
		{Name: "YBIN", Value: s.ROI.YBinning, Comment: "vertical binning"},
		{Name: "FILTERED", Value: s.Filtered, Comment: "data is Sobel edge magnitude"},
		{Name: "ELAPSED", Value: s.Elapsed.Seconds(), Comment: "transform time, s"},
	}
}

// writeFits streams a single frame fits file to w
func writeFits(w io.Writer, metadata []fitsio.Card, buffer []uint16, width, height int) error {
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{width, height})
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	// FITS has no unsigned 16-bit type, shift into int16 and let BZERO undo it
	bufOut := make([]int16, len(buffer))
	for idx, v := range buffer {
		bufOut[idx] = int16(v - 32768)
	}
	err = im.Write(bufOut)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

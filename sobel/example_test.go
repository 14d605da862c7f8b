package sobel_test

import (
	"fmt"

	"github.com/nasa-jpl/datahook/sobel"
)

func ExampleRegion_Dims() {
	r := sobel.Region{Width: 1025, Height: 512, XBinning: 2, YBinning: 4}
	fmt.Println(r.Dims())
	// Output: 512 128
}

func ExampleFilter_Transform() {
	// a 6x6 frame, dark on the left and bright from column 3
	const w, h = 6, 6
	buf := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 3; x < w; x++ {
			buf[y*w+x] = 1000
		}
	}
	f := sobel.Build([]sobel.Region{{Width: w, Height: h, XBinning: 1, YBinning: 1}})
	if err := f.Transform(buf, 0); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(buf[2*w : 3*w])
	// Output: [0 0 4000 4000 0 0]
}

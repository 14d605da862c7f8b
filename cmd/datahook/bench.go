package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/datahook/camera"
	"github.com/nasa-jpl/datahook/sobel"
)

const benchIters = 200

func bench() {
	cfg, err := readconfig(k)
	if err != nil {
		log.Fatal(err)
	}
	initLogger(cfg.Debug)

	src, err := newSource(cfg.Source)
	if err != nil {
		log.Fatal(err)
	}
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[11],
		Suffix:          " ",
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	})
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	f := sobel.Build(camera.Regions(cfg.Regions))
	build := time.Since(start)

	if err = spinner.Start(); err != nil {
		log.Fatal(err)
	}
	results := make([]time.Duration, len(cfg.Regions))
	for i, roi := range cfg.Regions {
		w, h := roi.Region().Dims()
		spinner.Message(fmt.Sprintf("region %d (%dx%d)", i, w, h))
		frames := make([][]uint16, 8)
		for j := range frames {
			if frames[j], err = src.Next(w, h); err != nil {
				spinner.StopFail()
				log.Fatal(err)
			}
		}
		buf := make([]uint16, w*h)
		var total time.Duration
		for n := 0; n < benchIters; n++ {
			copy(buf, frames[n%len(frames)])
			t0 := time.Now()
			if err = f.Transform(buf, i); err != nil {
				spinner.StopFail()
				log.Fatal(err)
			}
			total += time.Since(t0)
		}
		results[i] = total / benchIters
	}
	spinner.Suffix(" done")
	spinner.Stop()

	hdr := color.New(color.FgCyan, color.Bold).PrintfFunc()
	val := color.New(color.FgGreen).SprintFunc()
	hdr("built %d tables in %v\n", f.Regions(), build)
	for i, roi := range cfg.Regions {
		w, h := roi.Region().Dims()
		px := float64(w * h)
		rate := 0.
		if results[i] > 0 {
			rate = px / results[i].Seconds() / 1e6
		}
		fmt.Printf("region %d %dx%d: %s per frame, %s Mpx/s\n", i, w, h,
			val(results[i]), val(fmt.Sprintf("%.1f", rate)))
	}
}

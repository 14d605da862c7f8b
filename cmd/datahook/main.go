package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/datahook/camera"
	"github.com/nasa-jpl/datahook/datahook"
	"github.com/nasa-jpl/datahook/generichttp"
	hookhttp "github.com/nasa-jpl/datahook/generichttp/camera"
	"github.com/nasa-jpl/datahook/server/middleware/locker"
	"github.com/nasa-jpl/datahook/sim"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "datahook.yml"
	k              = koanf.New(".")
	log            = logrus.New()
)

type source struct {
	// Pattern is one of the synthetic patterns, or "fits"
	Pattern string `yaml:"Pattern"`

	// FITSPath is the file played back when Pattern is fits
	FITSPath string `yaml:"FITSPath"`

	// Seed seeds the noise pattern
	Seed int64 `yaml:"Seed"`
}

type config struct {
	Addr         string                    `yaml:"Addr"`
	Root         string                    `yaml:"Root"`
	Debug        bool                      `yaml:"Debug"`
	Camera       bool                      `yaml:"Camera"`
	FPS          float64                   `yaml:"FPS"`
	FramesPerSet int                       `yaml:"FramesPerSet"`
	Source       source                    `yaml:"Source"`
	Regions      []camera.RegionOfInterest `yaml:"Regions"`
	Hook         datahook.Config           `yaml:"Hook"`
	WaitReady    time.Duration             `yaml:"WaitReady"`
}

func defaults() config {
	return config{
		Addr:         ":8000",
		Root:         "/datahook",
		Camera:       true,
		FPS:          10,
		FramesPerSet: 1,
		Source:       source{Pattern: "moving", Seed: 1},
		Regions: []camera.RegionOfInterest{
			{X: 0, Y: 0, Width: 512, Height: 512, XBinning: 1, YBinning: 1},
		},
		Hook:      datahook.Config{Enabled: true, StatsDepth: 100},
		WaitReady: 10 * time.Second,
	}
}

// loadconfig loads the defaults and overlays the config file, if there is one
func loadconfig(k *koanf.Koanf) error {
	k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		if !os.IsNotExist(errors.Cause(err)) && !strings.Contains(err.Error(), "no such") { // file missing, who cares
			return errors.Wrap(err, "loading config")
		}
	}
	return nil
}

// readconfig unmarshals the loaded configuration
func readconfig(k *koanf.Koanf) (config, error) {
	c := config{}
	if err := k.Unmarshal("", &c); err != nil {
		return c, errors.Wrap(err, "reading config")
	}
	return c, nil
}

func setupconfig() {
	if err := loadconfig(k); err != nil {
		log.Fatal(err)
	}
}

func initLogger(debug bool) {
	if debug {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return
	}
	log.SetFormatter(&logrus.JSONFormatter{})
}

func root() {
	str := `datahook runs a Sobel edge filter over every frame a camera experiment
delivers, and exposes the filtered frames and the hook's controls over HTTP.
The experiment is simulated, fed by a synthetic pattern or a FITS cube.

Usage:
	datahook <command>

Commands:
	run
	bench
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `datahook is amenable to configuration via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  Keys are not case-sensitive.
The command mkconf generates the configuration file with the default values.

Source.Pattern is one of zero, step, moving, gradient, noise or fits.  With fits,
Source.FITSPath names a 2D or 3D FITS file whose frames are played in a loop,
cropped or zero padded to each region.

Regions are in sensor pixels; each is filtered at its binned size.  While run is
going the config file is watched, and changes to Regions or Camera are pushed into
the experiment just as a camera host would report them.

Camera false starts the experiment without a camera.  run waits up to WaitReady
for one to appear (0 waits forever) before serving.

bench times the filter over the configured regions and prints a summary.`
	fmt.Println(str)
}

func mkconf() {
	c, err := readconfig(k)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c, err := readconfig(k)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("datahook version %v\n", Version)
}

// newSource builds the frame source described by the config
func newSource(s source) (sim.Source, error) {
	if strings.ToLower(s.Pattern) == "fits" {
		return sim.OpenFITS(s.FITSPath)
	}
	return sim.NewSynthetic(s.Pattern, s.Seed)
}

// watch reloads the config file when it changes and pushes the region and
// camera settings into the experiment
func watch(exp *sim.Experiment) {
	f := file.Provider(ConfigFileName)
	err := f.Watch(func(event interface{}, err error) {
		if err != nil {
			log.WithError(err).Warn("config watch")
			return
		}
		kk := koanf.New(".")
		if err := loadconfig(kk); err != nil {
			log.WithError(err).Warn("reloading config")
			return
		}
		cfg, err := readconfig(kk)
		if err != nil {
			log.WithError(err).Warn("reloading config")
			return
		}
		log.WithFields(logrus.Fields{"regions": len(cfg.Regions), "camera": cfg.Camera}).Info("config changed")
		exp.SetCameraPresent(cfg.Camera)
		exp.SetRegions(cfg.Regions)
	})
	if err != nil {
		log.WithError(err).Info("not watching config file")
	}
}

func run() {
	cfg, err := readconfig(k)
	if err != nil {
		log.Fatal(err)
	}
	initLogger(cfg.Debug)

	src, err := newSource(cfg.Source)
	if err != nil {
		log.Fatal(err)
	}
	exp := sim.NewExperiment(src, sim.Options{
		FPS:          cfg.FPS,
		FramesPerSet: cfg.FramesPerSet,
		Camera:       cfg.Camera,
		Regions:      cfg.Regions,
	}, log.WithField("component", "sim"))
	hook := datahook.New(cfg.Hook, log.WithField("component", "hook"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := exp.Run(ctx); err != nil {
			log.WithError(err).Error("experiment stopped")
			stop()
		}
	}()
	watch(exp)

	log.WithField("maxWait", cfg.WaitReady).Info("waiting for a camera")
	if err = datahook.WaitReady(ctx, exp, cfg.WaitReady); err != nil {
		log.Fatal(err)
	}
	hook.Activate(exp)
	defer hook.Deactivate()

	w := hookhttp.NewHTTPHook(hook)
	lock := locker.New()
	locker.Inject(w, lock)

	hndlrS := generichttp.SubMuxSanitize(cfg.Root)
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	mux := chi.NewRouter()
	mux.Use(lock.Check)
	root.Mount(hndlrS, mux)
	w.RT().Bind(mux)

	srv := &http.Server{Addr: cfg.Addr, Handler: root}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	log.WithField("addr", cfg.Addr+hndlrS).Info("now listening for requests")
	if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "bench":
		bench()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}

// Command lifedemo runs Conway's Game of Life on the GPU.
//
// It renders into an offscreen texture, optionally writes PNG snapshots
// and serves Prometheus metrics. Without a usable GPU it falls back to the
// CPU stepper and rasterizes snapshots with gg.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gogpu/life"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath    string
	backend       string
	gridSize      int
	interval      time.Duration
	workgroup     int
	seed          uint64
	boundary      string
	pattern       string
	ticks         uint64
	snapshotDir   string
	snapshotEvery uint64
	cellPixels    int
	scale         int
	metricsAddr   string
	skipFailed    bool
	drainTimeout  time.Duration
	verbose       bool
}

// backend is a driven stepper plus the means to look at its current frame.
type backend struct {
	name     string
	driver   *life.Driver
	snapshot func() (image.Image, error)
	state    func() (*life.Grid, error)
	close    func()
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	flag.StringVar(&opts.backend, "backend", "auto", "stepper: auto, gpu or cpu")
	flag.IntVar(&opts.gridSize, "grid", life.DefaultGridSize, "grid side length")
	flag.DurationVar(&opts.interval, "interval", life.DefaultTickInterval, "tick interval")
	flag.IntVar(&opts.workgroup, "workgroup", life.DefaultWorkgroupSize, "compute workgroup extent")
	flag.Uint64Var(&opts.seed, "seed", 0, "random seed (0 = time based)")
	flag.StringVar(&opts.boundary, "boundary", "toroidal", "edge policy: toroidal or bounded")
	flag.StringVar(&opts.pattern, "pattern", "", "seed with a pattern instead of noise: glider, block, blinker")
	flag.Uint64Var(&opts.ticks, "ticks", 0, "stop after this many ticks (0 = run until interrupted)")
	flag.StringVar(&opts.snapshotDir, "snapshots", "", "directory for PNG snapshots")
	flag.Uint64Var(&opts.snapshotEvery, "snapshot-every", 10, "ticks between snapshots")
	flag.IntVar(&opts.cellPixels, "cell-pixels", 8, "frame pixels per cell")
	flag.IntVar(&opts.scale, "scale", 1, "integer upscale factor of snapshots")
	flag.StringVar(&opts.metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	flag.BoolVar(&opts.skipFailed, "skip-failed", false, "log and skip failed ticks instead of exiting")
	flag.DurationVar(&opts.drainTimeout, "drain-timeout", 0, "wait for outstanding GPU work on shutdown (0 = submit timeout)")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	life.SetLogger(logger)

	cfg, pattern, err := buildConfig(opts)
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opts, cfg, pattern); err != nil {
		logger.Error("lifedemo failed", "err", err)
		os.Exit(1)
	}
}

// buildConfig layers defaults, the config file and explicitly set flags.
func buildConfig(opts options) (life.Config, string, error) {
	cfg := life.DefaultConfig()
	pattern := ""
	if opts.configPath != "" {
		var err error
		cfg, pattern, err = loadConfig(opts.configPath, cfg)
		if err != nil {
			return cfg, "", err
		}
	}

	var err error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "grid":
			cfg = cfg.WithGridSize(opts.gridSize)
		case "interval":
			cfg = cfg.WithTickInterval(opts.interval)
		case "workgroup":
			cfg = cfg.WithWorkgroupSize(opts.workgroup)
		case "seed":
			cfg = cfg.WithSeed(opts.seed)
		case "pattern":
			pattern = opts.pattern
		case "boundary":
			var b life.Boundary
			if uerr := b.UnmarshalText([]byte(opts.boundary)); uerr != nil {
				err = uerr
				return
			}
			cfg = cfg.WithBoundary(b)
		}
	})
	if err != nil {
		return cfg, "", err
	}
	if pattern != "" {
		if _, ok := life.Patterns[pattern]; !ok {
			return cfg, "", fmt.Errorf("unknown pattern %q", pattern)
		}
	}
	return cfg, pattern, cfg.Validate()
}

// seedFor returns the initial grid: the named pattern centred on the grid,
// or random noise.
func seedFor(cfg life.Config, pattern string) (*life.Grid, error) {
	if pattern == "" {
		return life.NewRandomGrid(cfg.Width(), cfg.Height(), cfg.LiveProbability, cfg.Rand())
	}
	g, err := life.NewGrid(cfg.Width(), cfg.Height())
	if err != nil {
		return nil, err
	}
	g.Place(life.Patterns[pattern], cfg.Width()/2-1, cfg.Height()/2-1)
	return g, nil
}

func newBackend(logger *slog.Logger, opts options, cfg life.Config, seed *life.Grid, driverOpts []life.DriverOption) (*backend, error) {
	switch opts.backend {
	case "cpu":
		return newCPUBackend(opts, cfg, seed, driverOpts)
	case "gpu":
		return newGPUBackend(opts, cfg, seed, driverOpts)
	case "auto":
		b, err := newGPUBackend(opts, cfg, seed, driverOpts)
		if err == nil {
			return b, nil
		}
		logger.Warn("GPU unavailable, using CPU stepper", "err", err)
		return newCPUBackend(opts, cfg, seed, driverOpts)
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}

func newCPUBackend(opts options, cfg life.Config, seed *life.Grid, driverOpts []life.DriverOption) (*backend, error) {
	s, err := life.NewCPUStepper(cfg, seed)
	if err != nil {
		return nil, err
	}
	d, err := life.NewDriver(s, cfg, driverOpts...)
	if err != nil {
		return nil, err
	}
	w, h := cfg.Width()*opts.cellPixels, cfg.Height()*opts.cellPixels
	return &backend{
		name:     "cpu",
		driver:   d,
		snapshot: func() (image.Image, error) { return life.Rasterize(s.Frame(), w, h) },
		state:    func() (*life.Grid, error) { return s.Frame().Clone(), nil },
		close:    func() {},
	}, nil
}

func run(ctx context.Context, logger *slog.Logger, opts options, cfg life.Config, pattern string) error {
	seed, err := seedFor(cfg, pattern)
	if err != nil {
		return err
	}
	if opts.snapshotDir != "" {
		if err := os.MkdirAll(opts.snapshotDir, 0o755); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := life.NewMetrics(reg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The hook runs after the tick's submission, so b is set by then.
	var b *backend
	hook := func(step uint64) error {
		if opts.snapshotDir != "" && opts.snapshotEvery > 0 && step%opts.snapshotEvery == 0 {
			if err := writeSnapshot(b, opts, step); err != nil {
				return err
			}
			if g, err := b.state(); err == nil {
				logger.Info("snapshot", "step", step, "population", g.Population())
			}
		}
		if opts.ticks > 0 && step >= opts.ticks {
			cancel()
		}
		return nil
	}

	driverOpts := driverOptions(opts, metrics, hook)
	b, err = newBackend(logger, opts, cfg, seed, driverOpts)
	if err != nil {
		return err
	}
	defer b.close()
	driver := b.driver

	logger.Info("starting",
		"backend", b.name,
		"grid", fmt.Sprintf("%dx%d", cfg.Width(), cfg.Height()),
		"interval", cfg.TickInterval,
		"boundary", cfg.Boundary)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return driver.Run(gctx)
	})
	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped", "step", driver.Step())
	return nil
}

func driverOptions(opts options, metrics *life.Metrics, hook func(uint64) error) []life.DriverOption {
	driverOpts := []life.DriverOption{life.WithMetrics(metrics), life.WithTickHook(hook)}
	if opts.skipFailed {
		driverOpts = append(driverOpts, life.WithSkipFailedFrames())
	}
	if opts.drainTimeout > 0 {
		driverOpts = append(driverOpts, life.WithDrainTimeout(opts.drainTimeout))
	}
	return driverOpts
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

func writeSnapshot(b *backend, opts options, step uint64) error {
	img, err := b.snapshot()
	if err != nil {
		return fmt.Errorf("snapshot at step %d: %w", step, err)
	}
	if opts.scale > 1 {
		img = life.Upscale(img, opts.scale)
	}
	path := filepath.Join(opts.snapshotDir, fmt.Sprintf("life_%06d.png", step))
	return life.WritePNG(path, img)
}

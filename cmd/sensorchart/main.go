package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"codeberg.org/mutker/sensorchart/internal/alert"
	"codeberg.org/mutker/sensorchart/internal/chart"
	"codeberg.org/mutker/sensorchart/internal/config"
	"codeberg.org/mutker/sensorchart/internal/delivery"
	"codeberg.org/mutker/sensorchart/internal/errors"
	"codeberg.org/mutker/sensorchart/internal/history"
	"codeberg.org/mutker/sensorchart/internal/logger"
	"codeberg.org/mutker/sensorchart/internal/measurement"
	"codeberg.org/mutker/sensorchart/internal/pid"
	"codeberg.org/mutker/sensorchart/internal/storage"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const retentionInterval = 6 * time.Hour

type app struct {
	cfg   *config.Config
	log   logger.Logger
	store *storage.Store
	view  *chart.View

	settings  atomic.Pointer[chart.Settings]
	showStats atomic.Bool
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.GetLogLevel(), logger.IsService())
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(pid.DefaultPath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(pid.DefaultPath()); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, cfg); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()

	settings, err := cfg.ChartSettings()
	if err != nil {
		return err
	}

	a := &app{cfg: cfg, log: logger.New().With("main")}
	a.settings.Store(&settings)
	a.showStats.Store(cfg.IsShowStats())

	a.store, err = storage.Open(cfg.Storage(), logger.New())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer func() {
		if err := a.store.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close store")
		}
	}()

	loader, err := history.NewLoader(a.store, cfg.History())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	a.view, err = chart.New(chart.Options{
		Loader:      loader,
		Alerts:      alert.NewResolver(a.store),
		Calibration: a.store,
		Logger:      logger.New(),
		OnError: func(err error) {
			a.log.Warn().Err(err).Msg("Chart update failed")
		},
	})
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	defer a.view.Close()

	if err := a.view.Reload(settings); err != nil {
		return errFactory.Wrap(errors.ErrLoadChart, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, src := range a.sources() {
		if err := src.Subscribe(gctx, a.receive(gctx)); err != nil {
			// Polling still picks up records written by other processes.
			a.log.Warn().Err(err).Msg("Live source unavailable")
			continue
		}
		defer src.Close()
	}

	if err := cfg.Watch(gctx, a.reload); err != nil {
		a.log.Debug().Err(err).Msg("Configuration watch disabled")
	}

	g.Go(func() error { return a.poll(gctx) })
	g.Go(func() error { return a.prune(gctx) })
	g.Go(func() error { return a.report(gctx) })

	return g.Wait()
}

func (a *app) sources() []delivery.Source {
	var sources []delivery.Source

	if mc, ok := a.cfg.MQTT(); ok {
		src, err := delivery.NewMQTTSource(mc, logger.New())
		if err != nil {
			a.log.Warn().Err(err).Msg("Invalid MQTT source")
		} else {
			sources = append(sources, src)
		}
	}
	if ac, ok := a.cfg.AMQP(); ok {
		src, err := delivery.NewAMQPSource(ac, logger.New())
		if err != nil {
			a.log.Warn().Err(err).Msg("Invalid AMQP source")
		} else {
			sources = append(sources, src)
		}
	}

	return sources
}

// receive persists each live record and hands it to the view.
func (a *app) receive(ctx context.Context) delivery.Handler {
	writer := a.store.NewWriter()
	return func(r measurement.Record) {
		if err := writer.Write(ctx, r); err != nil {
			a.log.Warn().Err(err).Str("sensor_id", r.SensorID).Msg("Failed to store record")
		}
		if err := a.view.Deliver(r); err != nil {
			a.log.Debug().Err(err).Msg("Record not delivered")
		}
	}
}

func (a *app) reload(p config.Provider) {
	settings, err := p.ChartSettings()
	if err != nil {
		a.log.Warn().Err(err).Msg("Ignoring invalid chart settings")
		return
	}
	a.settings.Store(&settings)
	a.showStats.Store(p.IsShowStats())

	if err := a.view.Reload(settings); err != nil {
		a.log.Warn().Err(err).Msg("Failed to reload chart")
	}
}

func (a *app) poll(ctx context.Context) error {
	if a.cfg.GetPollInterval() <= 0 {
		return nil
	}

	ticker := time.NewTicker(time.Duration(a.cfg.GetPollInterval()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.view.Poll(ctx); err != nil && ctx.Err() == nil {
				a.log.Debug().Err(err).Msg("Poll failed")
			}
		}
	}
}

func (a *app) prune(ctx context.Context) error {
	days := a.cfg.GetRetentionDays()
	if days <= 0 {
		return nil
	}

	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		before := time.Now().AddDate(0, 0, -days)
		n, err := a.store.Prune(ctx, before)
		if err != nil && ctx.Err() == nil {
			a.log.Warn().Err(err).Msg("Failed to prune records")
		} else if n > 0 {
			a.log.Info().Int64("records", n).Time("before", before).Msg("Pruned records")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// report logs the visible-range statistics after each change of the view.
func (a *app) report(ctx context.Context) error {
	updates := a.view.Updates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			a.logUpdate(u)
		}
	}
}

func (a *app) logUpdate(u chart.Update) {
	switch u.Type {
	case chart.UpdateFailed:
		return
	case chart.UpdateLoaded:
		if u.NoData {
			a.log.Info().Str("sensor_id", a.settings.Load().SensorID).Msg("No data")
			return
		}
	}
	if !a.showStats.Load() {
		return
	}

	for _, v := range a.settings.Load().Variants {
		stats, ok := a.view.Stats(v)
		if !ok {
			continue
		}
		a.log.Info().
			Str("variant", v.String()).
			Str("min", v.Format(stats.Min)).
			Str("max", v.Format(stats.Max)).
			Str("avg", v.Format(stats.Avg)).
			Msg("Visible range")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

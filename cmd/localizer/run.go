package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/localizer/config"
	"go.viam.com/localizer/localizer"
	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/transport/udp"
	"go.viam.com/localizer/utils"
)

const shutdownTimeout = 5 * time.Second

func runCommand(c *cli.Context, logger logging.Logger) (err error) {
	cfg, err := config.Read(c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	udpCfg, err := cfg.Transport.UDPConfig()
	if err != nil {
		return err
	}
	t, err := udp.NewTransport(*udpCfg, logger.Sublogger("udp"))
	if err != nil {
		return err
	}
	l, err := localizer.NewFromConfig(cfg, t, logger)
	if err != nil {
		return multierr.Combine(err, t.Close(c.Context))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Combine(err, l.Close(closeCtx))
	}()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := l.Start(); err != nil {
		return err
	}

	workers := utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		reportPoses(ctx, l, c.Duration(flagReportInterval), logger)
	})
	defer workers.Stop()

	if addr := c.String(flagMetricsAddress); addr != "" {
		server, err := newMetricsServer(addr, l)
		if err != nil {
			return err
		}
		workers.AddWorkers(func(ctx context.Context) {
			serveMetrics(ctx, server, logger)
		})
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func newMetricsServer(addr string, l *localizer.Localizer) (*http.Server, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(localizer.NewCollector(l)); err != nil {
		return nil, errors.Wrap(err, "failed to register localizer metrics")
	}
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, errors.Wrap(err, "failed to register go metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

func serveMetrics(ctx context.Context, server *http.Server, logger logging.Logger) {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("serving metrics", "address", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("metrics server failed", "error", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("error shutting down metrics server", "error", err)
		}
	}
}

// reportPoses logs the latest pose of every tracked object until ctx ends.
func reportPoses(ctx context.Context, l *localizer.Localizer, interval time.Duration, logger logging.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, name := range l.TrackedObjects() {
			reading, err := l.GetPose(ctx, name, false)
			if err != nil {
				logger.Warnw("could not get pose", "object", name, "error", err)
				continue
			}
			pt := reading.Pose.Point()
			ea := reading.Pose.Orientation().EulerAngles()
			logger.Infow("pose",
				"object", name,
				"x", pt.X, "y", pt.Y, "z", pt.Z,
				"roll", ea.Roll, "pitch", ea.Pitch, "yaw", ea.Yaw,
				"device_time", reading.Time,
				"rate_hz", reading.Rate,
				"zone", l.WhereAmIPose(reading.Pose).String())
		}
	}
}

package main

import (
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/spatialmath"
	"go.viam.com/localizer/transport"
	"go.viam.com/localizer/transport/udp"
)

// secondsPerLap is how long one trip around the circle takes.
const secondsPerLap = 10.0

// maxRate keeps the publish period at one microsecond or longer.
const maxRate = 1e6

// circlePose is the pose at device time t on a circle of the given radius, one meter up and facing
// along the direction of travel.
func circlePose(radius, t float64) spatialmath.Pose {
	theta := 2 * math.Pi * t / secondsPerLap
	return spatialmath.NewPose(
		r3.Vector{X: radius * math.Cos(theta), Y: radius * math.Sin(theta), Z: 1},
		&spatialmath.EulerAngles{Yaw: theta + math.Pi/2},
	)
}

// publishPeriod is the time between samples at the given rate.
func publishPeriod(rate float64) (time.Duration, error) {
	if !(rate > 0 && rate <= maxRate) {
		return 0, errors.Errorf("--%s must be in (0, %g]", flagRate, maxRate)
	}
	return time.Duration(float64(time.Second) / rate), nil
}

func publishCommand(c *cli.Context, logger logging.Logger) error {
	rate := c.Float64(flagRate)
	period, err := publishPeriod(rate)
	if err != nil {
		return err
	}
	uri := c.String(flagURI)
	if _, err := transport.ParseURI(uri); err != nil {
		return err
	}
	count := c.Int(flagCount)
	radius := c.Float64(flagRadius)

	publisher, err := udp.NewPublisher(c.String(flagAddress))
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warnw("error closing publisher", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	start := time.Now()
	for sent := 0; count == 0 || sent < count; sent++ {
		deviceTime := time.Since(start).Seconds()
		sample := transport.SampleFromPose(circlePose(radius, deviceTime), deviceTime)
		if err := publisher.Publish(ctx, uri, sample); err != nil {
			return errors.Wrap(err, "failed to publish pose")
		}
		if sent%int(math.Max(rate, 1)) == 0 {
			logger.Debugw("published", "uri", uri, "samples", sent+1, "device_time", deviceTime)
		}

		select {
		case <-ctx.Done():
			logger.Infow("stopped publishing", "samples", sent+1)
			return nil
		case <-ticker.C:
		}
	}
	logger.Infow("done publishing", "samples", count)
	return nil
}

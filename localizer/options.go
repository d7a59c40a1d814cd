package localizer

import (
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/localizer/spatialmath"
)

// DefaultPollInterval is how long the polling loop rests between cycles.
const DefaultPollInterval = time.Millisecond

type options struct {
	pollInterval    time.Duration
	blockingTimeout time.Duration
	clock           clock.Clock
	classifier      ZoneClassifier
}

func defaultOptions() options {
	return options{
		pollInterval: DefaultPollInterval,
		clock:        clock.New(),
		classifier:   ConstantZoneClassifier{Zone: ZoneAir},
	}
}

// An Option configures a Localizer.
type Option func(*options)

// WithPollInterval sets the rest between polling cycles. Non-positive values keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithBlockingTimeout bounds every blocking GetPose. Zero, the default, waits until an update, Stop,
// or the caller's context ends.
func WithBlockingTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.blockingTimeout = d
		}
	}
}

// WithClock replaces the clock used for pacing the loop and bounding waits.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithZoneClassifier replaces the classifier behind WhereAmI.
func WithZoneClassifier(c ZoneClassifier) Option {
	return func(o *options) {
		if c != nil {
			o.classifier = c
		}
	}
}

type trackConfig struct {
	offset     spatialmath.Pose
	robotFrame bool
}

// A TrackOption configures a single tracked object.
type TrackOption func(*trackConfig)

// WithOffset composes offset with every incoming sample before the frame conversion.
func WithOffset(offset spatialmath.Pose) TrackOption {
	return func(c *trackConfig) {
		if offset != nil {
			c.offset = offset
		}
	}
}

// WithRobotFrame selects the robot body convention (true, the default) or the raw sensor
// convention (false).
func WithRobotFrame(robotFrame bool) TrackOption {
	return func(c *trackConfig) {
		c.robotFrame = robotFrame
	}
}

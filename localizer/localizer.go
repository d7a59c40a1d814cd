// Package localizer keeps live poses for named objects published by a motion capture style
// transport.
//
// Objects are registered with TrackObject, after which Start spawns one background loop that
// subscribes to each object's topic, converts every sample into the configured frame and wakes
// readers. GetPose returns the latest pose, optionally blocking until a fresh one arrives.
package localizer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/localizer/config"
	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/spatialmath"
	"go.viam.com/localizer/transport"
	"go.viam.com/localizer/utils"
)

// Localizer is the public entry point. It is safe for concurrent use, except that Start and Stop
// are meant to be called from one goroutine.
type Localizer struct {
	transport transport.PoseTransport
	logger    logging.Logger
	registry  *registry
	opts      options

	lifecycleMu sync.Mutex
	workers     utils.StoppableWorkers
	running     atomic.Bool
}

// New returns a stopped Localizer reading from t.
func New(t transport.PoseTransport, logger logging.Logger, opts ...Option) *Localizer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Localizer{
		transport: t,
		logger:    logger,
		registry:  newRegistry(),
		opts:      o,
	}
}

// TrackObject registers name, published by host, for polling. The topic is host + "/" + name. By
// default no offset is applied and poses are converted to the robot frame. Tracking a name again,
// even while running, replaces its offset and frame and forces a re-subscribe; the current pose is
// kept until the next sample.
func (l *Localizer) TrackObject(name, host string, opts ...TrackOption) error {
	if name == "" {
		return errors.New("cannot track an object without a name")
	}
	cfg := trackConfig{offset: spatialmath.NewZeroPose(), robotFrame: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	uri := transport.ObjectURI(host, name)
	obj, created := l.registry.register(name, uri, cfg.offset, cfg.robotFrame)
	if !created && obj.uri != uri {
		l.logger.Warnw("object is already tracked on another host, keeping the original topic",
			"object", name, "uri", obj.uri, "requested_uri", uri)
	}
	l.logger.Debugw("tracking object", "object", name, "uri", obj.uri, "robot_frame", cfg.robotFrame, "new", created)
	return nil
}

// TrackedObjects returns the tracked names in registration order.
func (l *Localizer) TrackedObjects() []string {
	return l.registry.names()
}

// Start spawns the polling loop.
func (l *Localizer) Start() error {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()

	if l.running.Load() {
		return ErrAlreadyStarted
	}
	e := &engine{
		registry:     l.registry,
		transport:    l.transport,
		logger:       l.logger.Sublogger("engine"),
		clock:        l.opts.clock,
		pollInterval: l.opts.pollInterval,
	}
	l.workers = utils.NewStoppableWorkers(e.run)
	l.running.Store(true)
	l.logger.Infow("localizer started", "objects", len(l.registry.snapshot()))
	return nil
}

// Stop cancels the polling loop and waits for it to exit. Callers blocked in GetPose are released
// with ErrStopped. Stopping a stopped Localizer does nothing.
func (l *Localizer) Stop() {
	l.lifecycleMu.Lock()
	defer l.lifecycleMu.Unlock()

	if !l.running.Load() {
		return
	}
	l.workers.Stop()
	l.running.Store(false)
	for _, obj := range l.registry.snapshot() {
		obj.interrupt()
	}
	l.logger.Info("localizer stopped")
}

// IsRunning returns whether the polling loop is running.
func (l *Localizer) IsRunning() bool {
	return l.running.Load()
}

// GetPose returns the latest pose of name along with its device time and rate. If blocking is set
// and no update arrived since the previous read, it waits for one. The wait ends early with
// ErrStopped on Stop, with the context's error when ctx ends or the blocking timeout passes, and
// immediately with ErrNotRunning if the loop is not running.
func (l *Localizer) GetPose(ctx context.Context, name string, blocking bool) (PoseReading, error) {
	obj, err := l.registry.lookup(name)
	if err != nil {
		return PoseReading{}, err
	}
	if blocking && l.opts.blockingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = l.opts.clock.WithTimeout(ctx, l.opts.blockingTimeout)
		defer cancel()
	}
	return obj.read(ctx, blocking, l.running.Load)
}

// Stats returns bookkeeping for name.
func (l *Localizer) Stats(name string) (ObjectStats, error) {
	obj, err := l.registry.lookup(name)
	if err != nil {
		return ObjectStats{}, err
	}
	return obj.stats(), nil
}

// WhereAmI classifies a point.
func (l *Localizer) WhereAmI(p r3.Vector) Zone {
	return l.opts.classifier.Classify(p)
}

// WhereAmIPose classifies the translation of a pose.
func (l *Localizer) WhereAmIPose(p spatialmath.Pose) Zone {
	return l.WhereAmI(p.Point())
}

// Close stops the Localizer and closes the transport if it can be closed.
func (l *Localizer) Close(ctx context.Context) error {
	l.Stop()
	var err error
	if closer, ok := l.transport.(interface{ Close(context.Context) error }); ok {
		err = multierr.Combine(err, closer.Close(ctx))
	}
	return multierr.Combine(err, l.logger.Sync())
}

// NewFromConfig returns a stopped Localizer tracking every object in cfg.
func NewFromConfig(cfg *config.Config, t transport.PoseTransport, logger logging.Logger, opts ...Option) (*Localizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	all := append([]Option{
		WithPollInterval(cfg.PollInterval),
		WithBlockingTimeout(cfg.BlockingTimeout),
	}, opts...)
	l := New(t, logger, all...)
	for _, obj := range cfg.Objects {
		if err := l.TrackObject(obj.Name, obj.Host,
			WithOffset(obj.OffsetPose()),
			WithRobotFrame(obj.UseRobotFrame()),
		); err != nil {
			return nil, err
		}
	}
	return l, nil
}

package localizer

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/transport"
)

// Repeated transport failures are only logged this often, the loop retries every cycle.
const failureLogEvery = 1000

func shouldLogFailure(streak uint64) bool {
	return streak == 1 || streak%failureLogEvery == 0
}

// engine is the single background loop that refreshes every tracked object from the transport.
// Objects are polled one after another, so latency grows with the number of objects.
type engine struct {
	registry     *registry
	transport    transport.PoseTransport
	logger       logging.Logger
	clock        clock.Clock
	pollInterval time.Duration
}

// run polls until ctx is cancelled.
func (e *engine) run(ctx context.Context) {
	e.logger.CDebugw(ctx, "polling loop started", "poll_interval", e.pollInterval)
	defer e.logger.CDebugw(ctx, "polling loop stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		e.cycle(ctx)

		// Yield between cycles so an idle transport does not eat up a core.
		timer := e.clock.Timer(e.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// cycle visits every object registered when it begins.
func (e *engine) cycle(ctx context.Context) {
	for _, obj := range e.registry.snapshot() {
		if ctx.Err() != nil {
			return
		}
		e.poll(ctx, obj)
	}
}

// poll refreshes a single object. Transport problems are logged and retried on the next cycle; they
// never stop the loop or affect other objects.
func (e *engine) poll(ctx context.Context, obj *trackedObject) {
	subscribed, generation := obj.subscription()
	if !subscribed {
		if err := e.transport.Subscribe(ctx, obj.uri); err != nil {
			if streak := obj.recordSubscribeFailure(); shouldLogFailure(streak) {
				e.logger.CWarnw(ctx, "could not subscribe",
					"object", obj.name, "uri", obj.uri, "attempts", streak, "error", err)
			}
			return
		}
		if obj.markSubscribed(generation) {
			e.logger.CDebugw(ctx, "subscribed", "object", obj.name, "uri", obj.uri)
		}
	}

	sample, err := e.transport.Receive(ctx, obj.uri)
	switch {
	case err == nil:
		if sample.Type != transport.SampleTypeSE3 {
			obj.recordDropped()
			e.logger.CErrorw(ctx, "incorrect pose message type",
				"object", obj.name, "uri", obj.uri, "type", sample.Type.String())
			return
		}
		e.logger.CDebugw(ctx, "received pose message",
			"object", obj.name, "x", sample.Data[0], "y", sample.Data[1], "z", sample.Data[2])
		obj.publishUpdate(sample)
	case errors.Is(err, transport.ErrNoSample):
		streak := obj.recordEmpty()
		// Nothing arrived. Probe the subscription so a dead one is rebuilt next cycle.
		if err := e.transport.Subscribe(ctx, obj.uri); err != nil {
			if streak := obj.recordSubscribeFailure(); shouldLogFailure(streak) {
				e.logger.CInfow(ctx, "could not re-subscribe", "object", obj.name, "uri", obj.uri, "error", err)
			}
			return
		}
		if streak == 1 {
			e.logger.CDebugw(ctx, "did not get a message", "object", obj.name, "uri", obj.uri)
		}
	default:
		if ctx.Err() != nil {
			return
		}
		if streak := obj.recordReceiveFailure(); shouldLogFailure(streak) {
			e.logger.CWarnw(ctx, "failed to receive pose message",
				"object", obj.name, "uri", obj.uri, "attempts", streak, "error", err)
		}
	}
}

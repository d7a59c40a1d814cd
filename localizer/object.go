package localizer

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"go.viam.com/localizer/spatialmath"
	"go.viam.com/localizer/transport"
)

// rateWindowSeconds is how much device time must pass before the rate is recomputed.
const rateWindowSeconds = 1.0

// robotFrameFlip is a 180 degree rotation about x, which negates y and z. It converts the sensor
// convention into the robot body convention.
var robotFrameFlip = spatialmath.NewPoseFromMat4(mgl64.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, -1, 0,
	0, 0, 0, 1,
})

// fixedFrame returns the transform applied after the object's offset.
func fixedFrame(robotFrame bool) spatialmath.Pose {
	if robotFrame {
		return robotFrameFlip
	}
	return spatialmath.NewZeroPose()
}

// transformSample composes fixedFrame ∘ (offset ∘ raw).
func transformSample(offset spatialmath.Pose, robotFrame bool, raw spatialmath.Pose) spatialmath.Pose {
	return spatialmath.Compose(fixedFrame(robotFrame), spatialmath.Compose(offset, raw))
}

// rateWindow estimates samples per second of device time.
type rateWindow struct {
	started     bool
	windowStart float64
	count       int
	rate        float64
}

func (w *rateWindow) observe(deviceTime float64) {
	switch {
	case !w.started:
		w.started = true
		w.windowStart = deviceTime
		w.count = 0
		w.rate = 0
	case deviceTime-w.windowStart > rateWindowSeconds:
		w.rate = float64(w.count) / (deviceTime - w.windowStart)
		w.windowStart = deviceTime
		w.count = 0
	}
	w.count++
}

// PoseReading is a consistent snapshot of a tracked object.
type PoseReading struct {
	Pose spatialmath.Pose
	// Time is the device time of the sample that produced Pose, zero before the first sample.
	Time float64
	// Rate is samples per second of device time over the last completed window.
	Rate float64
}

// ObjectStats describes the health of a tracked object.
type ObjectStats struct {
	Name              string
	URI               string
	RobotFrame        bool
	Subscribed        bool
	Time              float64
	Rate              float64
	Samples           uint64
	DroppedSamples    uint64
	SubscribeFailures uint64
	EmptyReceives     uint64
	ReceiveFailures   uint64
}

// trackedObject is the state of one tracked name. Every field below mu is guarded by it. The polling
// loop is the only writer of the pose fields and goes through publishUpdate; readers go through
// read.
type trackedObject struct {
	name string
	uri  string

	mu   sync.Mutex
	cond *sync.Cond

	offset     spatialmath.Pose
	robotFrame bool
	// generation changes on every registration so the loop can tell that a subscribe it started
	// raced with a re-registration.
	generation uint64
	subscribed bool

	pose    spatialmath.Pose
	time    float64
	window  rateWindow
	updated bool
	// updates counts published poses so every waiter sees the same update.
	updates uint64
	// interrupts is bumped to release blocked readers without a new pose.
	interrupts uint64

	samples           uint64
	droppedSamples    uint64
	subscribeFailures uint64
	emptyReceives     uint64
	receiveFailures   uint64
	emptyStreak       uint64
	failureStreak     uint64
	receiveStreak     uint64
}

func newTrackedObject(name, uri string, offset spatialmath.Pose, robotFrame bool) *trackedObject {
	obj := &trackedObject{
		name:       name,
		uri:        uri,
		offset:     offset,
		robotFrame: robotFrame,
		pose:       spatialmath.NewZeroPose(),
	}
	obj.cond = sync.NewCond(&obj.mu)
	return obj
}

// configure replaces the offset and frame and forces a fresh subscription. The pose and rate are
// left alone.
func (obj *trackedObject) configure(offset spatialmath.Pose, robotFrame bool) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.offset = offset
	obj.robotFrame = robotFrame
	obj.subscribed = false
	obj.generation++
}

// subscription returns whether the object believes it is subscribed, and the registration generation
// to hand back to markSubscribed.
func (obj *trackedObject) subscription() (bool, uint64) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return obj.subscribed, obj.generation
}

// markSubscribed records a successful subscribe unless the object was re-registered since. It
// reports whether this ends a run of failures or is the first subscription.
func (obj *trackedObject) markSubscribed(generation uint64) bool {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if obj.generation != generation {
		return false
	}
	fresh := obj.failureStreak > 0 || obj.receiveStreak == 0
	obj.subscribed = true
	obj.failureStreak = 0
	return fresh
}

// recordReceiveFailure marks the object unsubscribed and returns how many receives failed in a row.
func (obj *trackedObject) recordReceiveFailure() uint64 {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.subscribed = false
	obj.receiveFailures++
	obj.receiveStreak++
	return obj.receiveStreak
}

// recordSubscribeFailure marks the object unsubscribed and returns how many subscribes failed in a
// row.
func (obj *trackedObject) recordSubscribeFailure() uint64 {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.subscribed = false
	obj.subscribeFailures++
	obj.failureStreak++
	return obj.failureStreak
}

func (obj *trackedObject) recordDropped() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.droppedSamples++
}

// recordEmpty counts a receive that returned nothing and returns how many happened in a row.
func (obj *trackedObject) recordEmpty() uint64 {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.emptyReceives++
	obj.emptyStreak++
	return obj.emptyStreak
}

// publishUpdate stores a new pose and wakes every blocked reader.
func (obj *trackedObject) publishUpdate(sample transport.RawPoseSample) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	obj.pose = transformSample(obj.offset, obj.robotFrame, sample.Pose())
	obj.window.observe(sample.DeviceTime)
	obj.time = sample.DeviceTime
	obj.samples++
	obj.emptyStreak = 0
	obj.receiveStreak = 0
	obj.updated = true
	obj.updates++
	obj.cond.Broadcast()
}

// interrupt releases every reader currently blocked in read.
func (obj *trackedObject) interrupt() {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	obj.interrupts++
	obj.cond.Broadcast()
}

// read returns the current pose and clears the update flag. When blocking and no update is pending it
// first waits for publishUpdate, an interrupt, or ctx to end. running is checked under the object's
// lock so that a concurrent Stop either is observed here or interrupts the wait.
func (obj *trackedObject) read(ctx context.Context, blocking bool, running func() bool) (PoseReading, error) {
	obj.mu.Lock()
	defer obj.mu.Unlock()

	if blocking && !obj.updated {
		if !running() {
			return PoseReading{}, ErrNotRunning
		}
		stopWaking := context.AfterFunc(ctx, func() {
			obj.mu.Lock()
			obj.cond.Broadcast()
			obj.mu.Unlock()
		})
		defer stopWaking()

		interrupts, updates := obj.interrupts, obj.updates
		for obj.updates == updates {
			if obj.interrupts != interrupts {
				return PoseReading{}, ErrStopped
			}
			if err := ctx.Err(); err != nil {
				return PoseReading{}, err
			}
			obj.cond.Wait()
		}
	}

	obj.updated = false
	return PoseReading{Pose: obj.pose, Time: obj.time, Rate: obj.window.rate}, nil
}

func (obj *trackedObject) stats() ObjectStats {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	return ObjectStats{
		Name:              obj.name,
		URI:               obj.uri,
		RobotFrame:        obj.robotFrame,
		Subscribed:        obj.subscribed,
		Time:              obj.time,
		Rate:              obj.window.rate,
		Samples:           obj.samples,
		DroppedSamples:    obj.droppedSamples,
		SubscribeFailures: obj.subscribeFailures,
		EmptyReceives:     obj.emptyReceives,
		ReceiveFailures:   obj.receiveFailures,
	}
}

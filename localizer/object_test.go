package localizer

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/localizer/spatialmath"
	"go.viam.com/localizer/transport"
)

func identitySample(deviceTime float64) transport.RawPoseSample {
	return transport.SampleFromPose(spatialmath.NewZeroPose(), deviceTime)
}

func TestRateWindow(t *testing.T) {
	var w rateWindow
	for i := 0; i < 10; i++ {
		w.observe(float64(i) * 0.1)
		test.That(t, w.rate, test.ShouldEqual, 0.0)
	}
	test.That(t, w.count, test.ShouldEqual, 10)

	// the window only closes once more than a second has passed
	w.observe(1.001)
	test.That(t, w.rate, test.ShouldAlmostEqual, 10/1.001)
	test.That(t, w.windowStart, test.ShouldEqual, 1.001)
	test.That(t, w.count, test.ShouldEqual, 1)

	t.Run("exactly one second does not close the window", func(t *testing.T) {
		var w rateWindow
		w.observe(5)
		w.observe(6)
		test.That(t, w.rate, test.ShouldEqual, 0.0)
		test.That(t, w.count, test.ShouldEqual, 2)
	})
}

func TestTransformSample(t *testing.T) {
	sample := transport.SampleFromPose(spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3}), 0)

	t.Run("robot frame negates y and z", func(t *testing.T) {
		p := transformSample(spatialmath.NewZeroPose(), true, sample.Pose())
		test.That(t, p.Point().X, test.ShouldAlmostEqual, 1)
		test.That(t, p.Point().Y, test.ShouldAlmostEqual, -2)
		test.That(t, p.Point().Z, test.ShouldAlmostEqual, -3)
		aa := p.Orientation().AxisAngles()
		test.That(t, aa.Theta, test.ShouldAlmostEqual, math.Pi)
		test.That(t, math.Abs(aa.RX), test.ShouldAlmostEqual, 1)
	})

	t.Run("sensor frame is the raw sample", func(t *testing.T) {
		p := transformSample(spatialmath.NewZeroPose(), false, sample.Pose())
		test.That(t, spatialmath.PoseAlmostEqual(p, sample.Pose()), test.ShouldBeTrue)
	})

	t.Run("offset is applied before the frame", func(t *testing.T) {
		offset := spatialmath.NewPoseFromPoint(r3.Vector{Z: 10})
		p := transformSample(offset, true, identitySample(0).Pose())
		test.That(t, p.Point().Z, test.ShouldAlmostEqual, -10)

		p = transformSample(offset, false, sample.Pose())
		test.That(t, p.Point().Z, test.ShouldAlmostEqual, 13)
	})
}

func TestTrackedObjectRead(t *testing.T) {
	running := func() bool { return true }
	stopped := func() bool { return false }

	t.Run("non-blocking read of a fresh object", func(t *testing.T) {
		obj := newTrackedObject("car1", "vicon://h/car1", spatialmath.NewZeroPose(), false)
		reading, err := obj.read(context.Background(), false, stopped)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(reading.Pose, spatialmath.NewZeroPose()), test.ShouldBeTrue)
		test.That(t, reading.Time, test.ShouldEqual, 0.0)
		test.That(t, reading.Rate, test.ShouldEqual, 0.0)
	})

	t.Run("blocking read consumes the update", func(t *testing.T) {
		obj := newTrackedObject("car1", "vicon://h/car1", spatialmath.NewZeroPose(), false)
		obj.publishUpdate(identitySample(2.5))

		reading, err := obj.read(context.Background(), true, running)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reading.Time, test.ShouldEqual, 2.5)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = obj.read(ctx, true, running)
		test.That(t, err, test.ShouldBeError, context.DeadlineExceeded)
	})

	t.Run("blocking read while stopped", func(t *testing.T) {
		obj := newTrackedObject("car1", "vicon://h/car1", spatialmath.NewZeroPose(), false)
		_, err := obj.read(context.Background(), true, stopped)
		test.That(t, err, test.ShouldBeError, ErrNotRunning)

		// a pending update is still handed out
		obj.publishUpdate(identitySample(1))
		reading, err := obj.read(context.Background(), true, stopped)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reading.Time, test.ShouldEqual, 1.0)
	})

	t.Run("interrupt releases readers", func(t *testing.T) {
		obj := newTrackedObject("car1", "vicon://h/car1", spatialmath.NewZeroPose(), false)
		errCh := make(chan error, 1)
		go func() {
			_, err := obj.read(context.Background(), true, running)
			errCh <- err
		}()
		select {
		case err := <-errCh:
			t.Fatalf("read returned early: %v", err)
		case <-time.After(20 * time.Millisecond):
		}
		// keep interrupting until the reader is waiting, an interrupt that lands first is not seen
		for {
			obj.interrupt()
			select {
			case err := <-errCh:
				test.That(t, err, test.ShouldBeError, ErrStopped)
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	})
}

func TestTrackedObjectSubscription(t *testing.T) {
	obj := newTrackedObject("car1", "vicon://h/car1", spatialmath.NewZeroPose(), true)
	subscribed, gen := obj.subscription()
	test.That(t, subscribed, test.ShouldBeFalse)

	obj.markSubscribed(gen)
	subscribed, _ = obj.subscription()
	test.That(t, subscribed, test.ShouldBeTrue)

	// a re-registration between subscribing and marking wins
	_, gen = obj.subscription()
	obj.configure(spatialmath.NewZeroPose(), false)
	obj.markSubscribed(gen)
	subscribed, _ = obj.subscription()
	test.That(t, subscribed, test.ShouldBeFalse)

	test.That(t, obj.recordSubscribeFailure(), test.ShouldEqual, uint64(1))
	test.That(t, obj.recordSubscribeFailure(), test.ShouldEqual, uint64(2))
	_, gen = obj.subscription()
	obj.markSubscribed(gen)
	test.That(t, obj.recordSubscribeFailure(), test.ShouldEqual, uint64(1))

	st := obj.stats()
	test.That(t, st.SubscribeFailures, test.ShouldEqual, uint64(3))
	test.That(t, st.RobotFrame, test.ShouldBeFalse)
	test.That(t, st.Subscribed, test.ShouldBeFalse)
}

func TestRegistry(t *testing.T) {
	r := newRegistry()
	_, err := r.lookup("car1")
	test.That(t, IsUnknownObjectError(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "car1")

	obj, created := r.register("car1", "vicon://a/car1", spatialmath.NewZeroPose(), true)
	test.That(t, created, test.ShouldBeTrue)
	r.register("car2", "vicon://a/car2", spatialmath.NewZeroPose(), true)

	snap := r.snapshot()
	r.register("car3", "vicon://a/car3", spatialmath.NewZeroPose(), true)
	test.That(t, len(snap), test.ShouldEqual, 2)
	test.That(t, r.names(), test.ShouldResemble, []string{"car1", "car2", "car3"})

	again, created := r.register("car1", "vicon://b/car1", spatialmath.NewZeroPose(), false)
	test.That(t, created, test.ShouldBeFalse)
	test.That(t, again, test.ShouldEqual, obj)
	test.That(t, again.uri, test.ShouldEqual, "vicon://a/car1")
	test.That(t, again.stats().RobotFrame, test.ShouldBeFalse)

	found, err := r.lookup("car1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found, test.ShouldEqual, obj)
}

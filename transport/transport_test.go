package transport

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/localizer/spatialmath"
)

func TestParseURI(t *testing.T) {
	u, err := ParseURI("vicon://10.0.0.1/car1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u, test.ShouldResemble, URI{Scheme: "vicon", Host: "10.0.0.1", Object: "car1"})
	test.That(t, u.String(), test.ShouldEqual, "vicon://10.0.0.1/car1")
	test.That(t, ObjectURI("vicon://10.0.0.1", "car1"), test.ShouldEqual, u.String())

	for _, bad := range []string{"car1", "vicon://10.0.0.1", "vicon:///car1", "://x/y"} {
		_, err := ParseURI(bad)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestSampleType(t *testing.T) {
	for _, st := range []SampleType{SampleTypeRaw, SampleTypeSE3, SampleTypeSE2} {
		parsed, err := SampleTypeFromString(st.String())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, st)
	}
	test.That(t, SampleType(42).String(), test.ShouldEqual, "unknown(42)")
	_, err := SampleTypeFromString("quaternion")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSamplePose(t *testing.T) {
	s := RawPoseSample{
		Type: SampleTypeSE3,
		// 90 degrees about z, unnormalized on purpose
		Data:       [7]float64{1, 2, 3, 2, 0, 0, 2},
		DeviceTime: 4.5,
	}
	p := s.Pose()
	test.That(t, spatialmath.PoseAlmostCoincidentEps(p, spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3}), 1e-9),
		test.ShouldBeTrue)
	test.That(t, p.Orientation().AxisAngles().Theta, test.ShouldAlmostEqual, math.Pi/2)

	back := SampleFromPose(p, s.DeviceTime)
	test.That(t, back.Type, test.ShouldEqual, SampleTypeSE3)
	test.That(t, back.DeviceTime, test.ShouldEqual, 4.5)
	test.That(t, spatialmath.PoseAlmostEqual(back.Pose(), p), test.ShouldBeTrue)
	test.That(t, back.Data[3], test.ShouldAlmostEqual, math.Sqrt2/2)
}

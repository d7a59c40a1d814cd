package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid body transform: a rotation followed by a translation in 3D space.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return newDualQuaternionFromRotationTranslation(o.Quaternion(), p)
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return newDualQuaternionFromRotationTranslation(quat.Number{Real: 1}, point)
}

// NewPoseFromOrientation takes in an orientation and returns a pose with no translation.
func NewPoseFromOrientation(o Orientation) Pose {
	return newDualQuaternionFromRotationTranslation(o.Quaternion(), r3.Vector{})
}

// NewPoseFromMat4 converts a homogeneous transform matrix into a pose. The upper left 3x3 block
// must be a rotation.
func NewPoseFromMat4(m mgl64.Mat4) Pose {
	return newDualQuaternionFromRotationTranslation(
		QuatFromMat4(m),
		r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)},
	)
}

// Compose takes two poses, converts them to dual quaternions, and multiplies them together. The
// resulting pose applies b first and then a.
func Compose(a, b Pose) Pose {
	result := newDualQuaternionFromPose(a)
	result.Number = result.Transformation(newDualQuaternionFromPose(b).Number)

	// Normalization keeps accumulated floating point error from de-unitizing the rotation.
	if vecLen := quat.Abs(result.Real); vecLen != 1 {
		result.Real = quat.Scale(1/vecLen, result.Real)
		result.Dual = quat.Scale(1/vecLen, result.Dual)
	}
	return result
}

// PoseInverse returns the inverse of a pose.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.Orientation().Quaternion())
	rot := quaternion(inv)
	pt := RotatePoint(&rot, p.Point())
	return newDualQuaternionFromRotationTranslation(inv, pt.Mul(-1))
}

// PoseBetween returns the pose that takes a to b, so that Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same, with
// translation and quaternion components compared against epsilon.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return PoseAlmostCoincidentEps(a, b, epsilon) &&
		OrientationAlmostEqualEps(a.Orientation(), b.Orientation(), epsilon)
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses approximately are at the same
// 3D coordinate location. This uses a passed in epsilon value.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	ap, bp := a.Point(), b.Point()
	return math.Abs(ap.X-bp.X) < epsilon &&
		math.Abs(ap.Y-bp.Y) < epsilon &&
		math.Abs(ap.Z-bp.Z) < epsilon
}

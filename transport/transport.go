// Package transport defines the contract between the localizer and the pub/sub system that
// publishes raw pose samples, along with the sample format itself.
package transport

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/localizer/spatialmath"
)

var (
	// ErrNoSample is returned by Receive when nothing new has arrived for a topic.
	ErrNoSample = errors.New("no pose sample available")
	// ErrSubscribeFailed is returned by Subscribe when delivery for a topic could not be established.
	ErrSubscribeFailed = errors.New("could not subscribe")
)

// A PoseTransport delivers raw pose samples per topic uri.
type PoseTransport interface {
	// Subscribe establishes delivery for the topic. It is idempotent.
	Subscribe(ctx context.Context, uri string) error
	// Receive returns the newest sample for the topic without blocking for long. It returns
	// ErrNoSample when there is nothing to hand out.
	Receive(ctx context.Context, uri string) (RawPoseSample, error)
}

// SampleType tags the kind of pose stored in a RawPoseSample.
type SampleType int

const (
	// SampleTypeRaw is an uninterpreted sensor vector.
	SampleTypeRaw SampleType = iota
	// SampleTypeSE3 is a rigid body pose: position x, y, z followed by quaternion w, x, y, z.
	SampleTypeSE3
	// SampleTypeSE2 is a planar pose.
	SampleTypeSE2
)

func (st SampleType) String() string {
	switch st {
	case SampleTypeRaw:
		return "raw"
	case SampleTypeSE3:
		return "se3"
	case SampleTypeSE2:
		return "se2"
	default:
		return fmt.Sprintf("unknown(%d)", int(st))
	}
}

// SampleTypeFromString parses the names produced by String.
func SampleTypeFromString(s string) (SampleType, error) {
	switch strings.ToLower(s) {
	case "raw":
		return SampleTypeRaw, nil
	case "se3":
		return SampleTypeSE3, nil
	case "se2":
		return SampleTypeSE2, nil
	}
	return SampleTypeRaw, errors.Errorf("unknown sample type %q", s)
}

// RawPoseSample is a single pose message as published on the transport.
type RawPoseSample struct {
	Type SampleType
	// Data is position x, y, z then quaternion w, x, y, z.
	Data [7]float64
	// DeviceTime is the publisher's clock in seconds.
	DeviceTime float64
}

// Pose interprets the sample data as a rigid body transform.
func (s RawPoseSample) Pose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: s.Data[0], Y: s.Data[1], Z: s.Data[2]},
		spatialmath.NewQuaternion(s.Data[3], s.Data[4], s.Data[5], s.Data[6]),
	)
}

// SampleFromPose builds an SE3 sample carrying the given pose.
func SampleFromPose(p spatialmath.Pose, deviceTime float64) RawPoseSample {
	pt := p.Point()
	q := p.Orientation().Quaternion()
	return RawPoseSample{
		Type:       SampleTypeSE3,
		Data:       [7]float64{pt.X, pt.Y, pt.Z, q.Real, q.Imag, q.Jmag, q.Kmag},
		DeviceTime: deviceTime,
	}
}

// URI is a parsed topic uri of the form scheme://host/object.
type URI struct {
	Scheme string
	Host   string
	Object string
}

// ObjectURI builds the topic uri for an object published by host.
func ObjectURI(host, object string) string {
	return host + "/" + object
}

func (u URI) String() string {
	return ObjectURI(u.Scheme+"://"+u.Host, u.Object)
}

// ParseURI splits a topic uri into its parts.
func ParseURI(uri string) (URI, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return URI{}, errors.Wrapf(err, "invalid topic uri %q", uri)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return URI{}, errors.Errorf("topic uri %q must look like scheme://host/object", uri)
	}
	object := strings.Trim(parsed.Path, "/")
	if object == "" {
		return URI{}, errors.Errorf("topic uri %q is missing an object name", uri)
	}
	return URI{Scheme: parsed.Scheme, Host: parsed.Host, Object: object}, nil
}

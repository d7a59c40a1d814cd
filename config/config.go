// Package config defines the on-disk configuration of a localizer process.
package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/localizer/spatialmath"
	"go.viam.com/localizer/transport/udp"
)

// TransportTypeUDP selects the UDP transport.
const TransportTypeUDP = "udp"

// Config describes a localizer process.
type Config struct {
	PollInterval    time.Duration   `json:"poll_interval,omitempty"`
	BlockingTimeout time.Duration   `json:"blocking_timeout,omitempty"`
	Transport       TransportConfig `json:"transport"`
	Objects         []ObjectConfig  `json:"objects,omitempty"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// TransportConfig selects and configures the pose transport.
type TransportConfig struct {
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// ObjectConfig describes one tracked object.
type ObjectConfig struct {
	Name string `json:"name"`
	Host string `json:"host"`
	// RobotFrame defaults to true when unset.
	RobotFrame *bool       `json:"robot_frame,omitempty"`
	Offset     *PoseConfig `json:"offset,omitempty"`
}

// PoseConfig is a pose written as a translation and a quaternion.
type PoseConfig struct {
	Translation TranslationConfig  `json:"translation"`
	Orientation *OrientationConfig `json:"orientation,omitempty"`
}

// TranslationConfig is a point in space.
type TranslationConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// OrientationConfig is a quaternion; it does not need to be normalized.
type OrientationConfig struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if c.PollInterval < 0 {
		return goutils.NewConfigValidationError("poll_interval", errors.New("must not be negative"))
	}
	if c.BlockingTimeout < 0 {
		return goutils.NewConfigValidationError("blocking_timeout", errors.New("must not be negative"))
	}
	if err := c.Transport.Validate("transport"); err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for idx := range c.Objects {
		path := fmt.Sprintf("objects.%d", idx)
		if err := c.Objects[idx].Validate(path); err != nil {
			return err
		}
		if _, ok := seen[c.Objects[idx].Name]; ok {
			return goutils.NewConfigValidationError(path, errors.Errorf("duplicate object name %q", c.Objects[idx].Name))
		}
		seen[c.Objects[idx].Name] = struct{}{}
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (tc *TransportConfig) Validate(path string) error {
	switch tc.Type {
	case "":
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	case TransportTypeUDP:
		udpCfg, err := tc.UDPConfig()
		if err != nil {
			return goutils.NewConfigValidationError(path, err)
		}
		return udpCfg.Validate(path + ".attributes")
	default:
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown transport type %q", tc.Type))
	}
}

// UDPConfig decodes the attributes of a udp transport.
func (tc *TransportConfig) UDPConfig() (*udp.Config, error) {
	var cfg udp.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error creating decoder for udp attributes")
	}
	if err := decoder.Decode(tc.Attributes); err != nil {
		return nil, errors.Wrap(err, "error decoding udp attributes")
	}
	return &cfg, nil
}

// Validate ensures all parts of the config are valid.
func (oc *ObjectConfig) Validate(path string) error {
	if oc.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if oc.Host == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "host")
	}
	return nil
}

// UseRobotFrame returns whether poses are converted to the robot frame.
func (oc *ObjectConfig) UseRobotFrame() bool {
	return oc.RobotFrame == nil || *oc.RobotFrame
}

// OffsetPose returns the configured offset, the identity when none is set.
func (oc *ObjectConfig) OffsetPose() spatialmath.Pose {
	if oc.Offset == nil {
		return spatialmath.NewZeroPose()
	}
	return oc.Offset.Pose()
}

// Pose converts the config to a pose. A missing or zero orientation is the identity.
func (pc *PoseConfig) Pose() spatialmath.Pose {
	pt := r3.Vector{X: pc.Translation.X, Y: pc.Translation.Y, Z: pc.Translation.Z}
	if pc.Orientation == nil {
		return spatialmath.NewPoseFromPoint(pt)
	}
	o := pc.Orientation
	return spatialmath.NewPose(pt, spatialmath.NewQuaternion(o.W, o.X, o.Y, o.Z))
}

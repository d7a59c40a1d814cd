package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/spatialmath"
)

const validConfig = `{
	"poll_interval": "2ms",
	"blocking_timeout": "1s",
	"transport": {"type": "udp", "attributes": {"listen_address": "127.0.0.1:5005"}},
	"objects": [
		{"name": "car1", "host": "vicon://10.0.0.1"},
		{"name": "car2", "host": "vicon://10.0.0.1", "robot_frame": false,
		 "offset": {"translation": {"x": 1, "y": 2, "z": 3}, "orientation": {"w": 0, "x": 1, "y": 0, "z": 0}}}
	]
}`

func TestFromReader(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader("inline", strings.NewReader(validConfig), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "inline")
	test.That(t, cfg.PollInterval, test.ShouldEqual, 2*time.Millisecond)
	test.That(t, cfg.BlockingTimeout, test.ShouldEqual, time.Second)
	test.That(t, cfg.Transport.Type, test.ShouldEqual, TransportTypeUDP)
	test.That(t, len(cfg.Objects), test.ShouldEqual, 2)

	car1 := cfg.Objects[0]
	test.That(t, car1.UseRobotFrame(), test.ShouldBeTrue)
	test.That(t, spatialmath.PoseAlmostEqual(car1.OffsetPose(), spatialmath.NewZeroPose()), test.ShouldBeTrue)

	car2 := cfg.Objects[1]
	test.That(t, car2.UseRobotFrame(), test.ShouldBeFalse)
	offset := car2.OffsetPose()
	test.That(t, offset.Point().Z, test.ShouldAlmostEqual, 3)
	test.That(t, offset.Orientation().Quaternion().Imag, test.ShouldAlmostEqual, 1)

	udpCfg, err := cfg.Transport.UDPConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, udpCfg.ListenAddress, test.ShouldEqual, "127.0.0.1:5005")
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name     string
		config   string
		expected string
	}{
		{"not json", `{`, "cannot parse config"},
		{"unknown key", `{"transport": {"type": "udp", "attributes": {"listen_address": ":1"}}, "pol_interval": "1ms"}`, "pol_interval"},
		{"bad duration", `{"poll_interval": "soon", "transport": {"type": "udp"}}`, "error decoding config"},
		{"missing transport", `{}`, `"type" is required`},
		{"unknown transport", `{"transport": {"type": "carrier-pigeon"}}`, "unknown transport type"},
		{"missing listen address", `{"transport": {"type": "udp", "attributes": {}}}`, `"listen_address" is required`},
		{"unknown udp attribute", `{"transport": {"type": "udp", "attributes": {"listen_address": ":1", "port": 3}}}`, "port"},
		{
			"missing object name",
			`{"transport": {"type": "udp", "attributes": {"listen_address": ":1"}}, "objects": [{"host": "h"}]}`,
			"objects.0",
		},
		{
			"duplicate object",
			`{"transport": {"type": "udp", "attributes": {"listen_address": ":1"}},
			  "objects": [{"name": "a", "host": "h"}, {"name": "a", "host": "h"}]}`,
			"duplicate object name",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("", strings.NewReader(tc.config), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.expected)
		})
	}
}

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("LOCALIZER_TEST_HOST", "vicon://192.168.1.4")

	path := filepath.Join(t.TempDir(), "localizer.json")
	contents := `{
		"transport": {"type": "udp", "attributes": {"listen_address": "127.0.0.1:0"}},
		"objects": [{"name": "drone", "host": "${LOCALIZER_TEST_HOST}"}]
	}`
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)

	cfg, err := Read(path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Objects[0].Host, test.ShouldEqual, "vicon://192.168.1.4")
	test.That(t, cfg.PollInterval, test.ShouldEqual, time.Duration(0))

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPoseConfig(t *testing.T) {
	pc := PoseConfig{Translation: TranslationConfig{X: 1}}
	test.That(t, spatialmath.OrientationAlmostEqual(pc.Pose().Orientation(), spatialmath.NewZeroOrientation()),
		test.ShouldBeTrue)

	// an all zero quaternion is treated as no rotation
	pc.Orientation = &OrientationConfig{}
	test.That(t, spatialmath.OrientationAlmostEqual(pc.Pose().Orientation(), spatialmath.NewZeroOrientation()),
		test.ShouldBeTrue)
	test.That(t, pc.Pose().Point().X, test.ShouldEqual, 1.0)
}

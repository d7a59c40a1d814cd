package udp

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/transport"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	test.That(t, cfg.Validate("transport.attributes"), test.ShouldNotBeNil)
	cfg.ListenAddress = "not an address:xyz"
	test.That(t, cfg.Validate("transport.attributes"), test.ShouldNotBeNil)
	cfg.ListenAddress = "127.0.0.1:5005"
	test.That(t, cfg.Validate("transport.attributes"), test.ShouldBeNil)
	cfg.ReadBufferBytes = -1
	test.That(t, cfg.Validate("transport.attributes"), test.ShouldNotBeNil)
}

func TestDecode(t *testing.T) {
	want := transport.RawPoseSample{
		Type:       transport.SampleTypeSE3,
		Data:       [7]float64{1, 2, 3, 1, 0, 0, 0},
		DeviceTime: 12.5,
	}
	datagram, err := encode("vicon://10.0.0.1/car1", want)
	test.That(t, err, test.ShouldBeNil)

	uri, got, err := decode(datagram)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, uri, test.ShouldEqual, "vicon://10.0.0.1/car1")
	test.That(t, got, test.ShouldResemble, want)

	for _, bad := range []string{
		`not json`,
		`{"type":"se3","pose":[0,0,0,1,0,0,0]}`,
		`{"uri":"vicon://h/o","type":"bogus"}`,
		`{"uri":"vicon://h/o","type":"se3","pose":[0,0,0]}`,
	} {
		_, _, err := decode([]byte(bad))
		test.That(t, err, test.ShouldNotBeNil)
	}

	// non rigid types are passed through so the consumer can reject them
	_, got, err = decode([]byte(`{"uri":"vicon://h/o","type":"raw","pose":[5]}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Type, test.ShouldEqual, transport.SampleTypeRaw)
	test.That(t, got.Data[0], test.ShouldEqual, 5.0)
}

func TestTransportLoopback(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	tr, err := NewTransport(Config{ListenAddress: "127.0.0.1:0"}, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, tr.Close(ctx), test.ShouldBeNil)
	}()

	pub, err := NewPublisher(tr.LocalAddr().String())
	test.That(t, err, test.ShouldBeNil)
	defer pub.Close()

	const uri = "vicon://10.0.0.1/car1"
	const other = "vicon://10.0.0.1/car2"
	test.That(t, tr.Subscribe(ctx, uri), test.ShouldBeNil)
	test.That(t, tr.Subscribe(ctx, "car1"), test.ShouldNotBeNil)

	_, err = tr.Receive(ctx, uri)
	test.That(t, errors.Is(err, transport.ErrNoSample), test.ShouldBeTrue)

	sample := transport.RawPoseSample{Type: transport.SampleTypeSE3, Data: [7]float64{1, 0, 0, 1, 0, 0, 0}, DeviceTime: 1}
	test.That(t, pub.Publish(ctx, other, sample), test.ShouldBeNil)

	// the newest sample wins
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		sample.DeviceTime++
		test.That(tb, pub.Publish(ctx, uri, sample), test.ShouldBeNil)
		got, err := tr.Receive(ctx, uri)
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, got.Data, test.ShouldResemble, sample.Data)
		test.That(tb, got.DeviceTime, test.ShouldBeGreaterThan, 1.0)
	})

	// unsubscribed topics are never stored
	_, err = tr.Receive(ctx, other)
	test.That(t, errors.Is(err, transport.ErrNoSample), test.ShouldBeTrue)

	_, err = pub.conn.Write([]byte("garbage"))
	test.That(t, err, test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, tr.Dropped(), test.ShouldBeGreaterThanOrEqualTo, 1)
	})
}

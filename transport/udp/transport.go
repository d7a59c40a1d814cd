// Package udp implements a pose transport that receives JSON encoded pose samples over UDP, one
// sample per datagram.
package udp

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/localizer/logging"
	"go.viam.com/localizer/transport"
	"go.viam.com/localizer/utils"
)

const (
	defaultReadBufferBytes = 1 << 20
	maxDatagramBytes       = 2048
	readDeadline           = 100 * time.Millisecond
)

// Config describes where the transport listens.
type Config struct {
	ListenAddress   string `json:"listen_address"`
	ReadBufferBytes int    `json:"read_buffer_bytes,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.ListenAddress == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "listen_address")
	}
	if _, err := net.ResolveUDPAddr("udp", cfg.ListenAddress); err != nil {
		return goutils.NewConfigValidationError(path, errors.Wrap(err, "invalid listen_address"))
	}
	if cfg.ReadBufferBytes < 0 {
		return goutils.NewConfigValidationError(path, errors.New("read_buffer_bytes must not be negative"))
	}
	return nil
}

// message is the wire format of a single datagram.
type message struct {
	URI        string    `json:"uri"`
	Type       string    `json:"type"`
	Pose       []float64 `json:"pose"`
	DeviceTime float64   `json:"device_time"`
}

func encode(uri string, sample transport.RawPoseSample) ([]byte, error) {
	return json.Marshal(message{
		URI:        uri,
		Type:       sample.Type.String(),
		Pose:       sample.Data[:],
		DeviceTime: sample.DeviceTime,
	})
}

func decode(datagram []byte) (string, transport.RawPoseSample, error) {
	var msg message
	if err := json.Unmarshal(datagram, &msg); err != nil {
		return "", transport.RawPoseSample{}, errors.Wrap(err, "malformed pose datagram")
	}
	if msg.URI == "" {
		return "", transport.RawPoseSample{}, errors.New("pose datagram is missing a uri")
	}
	st, err := transport.SampleTypeFromString(msg.Type)
	if err != nil {
		return "", transport.RawPoseSample{}, err
	}
	sample := transport.RawPoseSample{Type: st, DeviceTime: msg.DeviceTime}
	if st == transport.SampleTypeSE3 && len(msg.Pose) != len(sample.Data) {
		return "", transport.RawPoseSample{}, errors.Errorf("se3 pose needs %d values, got %d", len(sample.Data), len(msg.Pose))
	}
	copy(sample.Data[:], msg.Pose)
	return msg.URI, sample, nil
}

// Transport listens on a UDP socket and keeps the newest sample for every subscribed uri.
type Transport struct {
	conn    *net.UDPConn
	logger  logging.Logger
	workers utils.StoppableWorkers

	mu         sync.Mutex
	subscribed map[string]bool
	latest     map[string]transport.RawPoseSample
	dropped    int
}

var _ transport.PoseTransport = (*Transport)(nil)

// NewTransport binds the listen address and starts reading datagrams in the background.
func NewTransport(cfg Config, logger logging.Logger) (*Transport, error) {
	if err := cfg.Validate("udp"); err != nil {
		return nil, err
	}
	addr, err := net.ResolveUDPAddr("udp", cfg.ListenAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve UDP address")
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen on UDP address")
	}

	rcvBuf := cfg.ReadBufferBytes
	if rcvBuf == 0 {
		rcvBuf = defaultReadBufferBytes
	}
	if err := conn.SetReadBuffer(rcvBuf); err != nil {
		logger.Warnw("failed to set UDP receive buffer size", "bytes", rcvBuf, "error", err)
	}

	t := &Transport{
		conn:       conn,
		logger:     logger,
		subscribed: map[string]bool{},
		latest:     map[string]transport.RawPoseSample{},
	}
	t.workers = utils.NewStoppableWorkers(t.readLoop)
	logger.Infow("UDP pose transport listening", "address", conn.LocalAddr().String())
	return t, nil
}

// LocalAddr returns the bound address, useful when listening on port 0.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *Transport) readLoop(ctx context.Context) {
	buffer := make([]byte, maxDatagramBytes)
	for {
		if ctx.Err() != nil {
			return
		}
		// A read deadline lets us notice cancellation.
		if err := t.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			t.logger.CWarnw(ctx, "failed to set UDP read deadline", "error", err)
		}
		n, from, err := t.conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			t.logger.CWarnw(ctx, "UDP read error", "error", err)
			continue
		}
		t.handleDatagram(ctx, buffer[:n], from)
	}
}

func (t *Transport) handleDatagram(ctx context.Context, datagram []byte, from *net.UDPAddr) {
	uri, sample, err := decode(datagram)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.dropped++
		t.logger.CDebugw(ctx, "dropping pose datagram", "from", from.String(), "error", err)
		return
	}
	if !t.subscribed[uri] {
		return
	}
	t.latest[uri] = sample
}

// Subscribe starts keeping samples for the uri.
func (t *Transport) Subscribe(ctx context.Context, uri string) error {
	if _, err := transport.ParseURI(uri); err != nil {
		return errors.Wrap(transport.ErrSubscribeFailed, err.Error())
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribed[uri] = true
	return nil
}

// Receive hands out the newest sample seen since the previous call.
func (t *Transport) Receive(ctx context.Context, uri string) (transport.RawPoseSample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sample, ok := t.latest[uri]
	if !ok {
		return transport.RawPoseSample{}, transport.ErrNoSample
	}
	delete(t.latest, uri)
	return sample, nil
}

// Dropped returns how many datagrams could not be decoded.
func (t *Transport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Close stops the read loop and releases the socket.
func (t *Transport) Close(ctx context.Context) error {
	err := t.conn.Close()
	t.workers.Stop()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

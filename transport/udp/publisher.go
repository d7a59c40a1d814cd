package udp

import (
	"context"
	"net"

	"github.com/pkg/errors"

	"go.viam.com/localizer/transport"
)

// Publisher sends pose samples to a UDP transport.
type Publisher struct {
	conn *net.UDPConn
}

// NewPublisher dials the transport's listen address.
func NewPublisher(address string) (*Publisher, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve UDP address %q", address)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial UDP address")
	}
	return &Publisher{conn: conn}, nil
}

// Publish sends one sample for the uri.
func (p *Publisher) Publish(ctx context.Context, uri string, sample transport.RawPoseSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	datagram, err := encode(uri, sample)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := p.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	_, err = p.conn.Write(datagram)
	return err
}

// Close releases the socket.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

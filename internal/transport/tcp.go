package transport

import (
	"context"
	"fmt"
	"net"
	"time"
)

// tcpTransport wraps a raw TCP connection to a serial-over-IP gateway,
// mirroring the source's knxd TCP dial path but without the knxd-specific
// handshake.
type tcpTransport struct {
	conn net.Conn
}

func dialTCP(ctx context.Context, cfg Config) (Transport, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp %q: %w", cfg.Address, err)
	}
	return &tcpTransport{conn: conn}, nil
}

func (t *tcpTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// ReadContext sets a short read deadline and polls, since net.Conn has no
// native context-aware Read either; the same shape as serialTransport so
// the framer's read loop is transport-agnostic.
func (t *tcpTransport) ReadContext(ctx context.Context, buf []byte) (int, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		if err := t.conn.SetReadDeadline(time.Now().Add(defaultSerialPollInterval)); err != nil {
			return 0, err
		}
		n, err := t.conn.Read(buf)
		if n > 0 {
			return n, nil
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return 0, err
		}
	}
}

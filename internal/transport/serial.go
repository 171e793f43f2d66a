package transport

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.bug.st/serial"
)

// serialTransport wraps a go.bug.st/serial port. Reads are done with a
// short poll deadline so ReadContext can observe ctx cancellation promptly
// without the underlying driver supporting true context-aware reads.
type serialTransport struct {
	port      serial.Port
	pollEvery time.Duration
}

const defaultSerialPollInterval = 200 * time.Millisecond

func dialSerial(ctx context.Context, cfg Config) (Transport, error) {
	if err := WaitForPath(ctx, cfg.Path, cfg.DialTimeout); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   parseParity(cfg.Parity),
		StopBits: parseStopBits(cfg.StopBits),
	}
	if mode.BaudRate == 0 {
		mode.BaudRate = 9600
	}
	if mode.DataBits == 0 {
		mode.DataBits = 8
	}

	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %q: %w", cfg.Path, err)
	}

	if err := port.SetReadTimeout(defaultSerialPollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: set read timeout on %q: %w", cfg.Path, err)
	}

	return &serialTransport{port: port, pollEvery: defaultSerialPollInterval}, nil
}

func (s *serialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *serialTransport) Close() error {
	return s.port.Close()
}

// ReadContext polls the serial port with a short per-call deadline,
// rechecking ctx between polls, since go.bug.st/serial has no native
// context-aware Read.
func (s *serialTransport) ReadContext(ctx context.Context, buf []byte) (int, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		n, err := s.port.Read(buf)
		if n > 0 {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		// n == 0, err == nil: read timed out with nothing available; loop.
	}
}

func parseParity(p string) serial.Parity {
	switch strings.ToLower(p) {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func parseStopBits(n int) serial.StopBits {
	switch n {
	case 2:
		return serial.TwoStopBits
	case 1:
		return serial.OneStopBit
	default:
		return serial.OneStopBit
	}
}

// WaitForPath blocks until path exists on disk, ctx is cancelled, or
// timeout elapses, per spec §2.1's SERIAL_PATH_WAIT_TIMEOUT_MS: USB-serial
// adapters can enumerate after the bridge starts (e.g. post-reboot race),
// so port startup tolerates a bounded wait rather than failing immediately.
func WaitForPath(ctx context.Context, path string, timeout time.Duration) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if timeout <= 0 {
		return &WaitTimeoutError{Path: path, Timeout: "0s"}
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
			if time.Now().After(deadline) {
				return &WaitTimeoutError{Path: path, Timeout: timeout.String()}
			}
		}
	}
}

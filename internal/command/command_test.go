package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homenet-bridge/internal/schema"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	mu     sync.Mutex
	writes [][]byte
	failN  int // fail the first failN calls
	calls  int
}

func (f *fakeWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	cp := append([]byte(nil), p...)
	f.writes = append(f.writes, cp)
	if f.calls <= f.failN {
		return 0, errors.New("write failed")
	}
	return len(p), nil
}

func (f *fakeWriter) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func ackSchema(b byte) *schema.Schema {
	return &schema.Schema{Offset: 0, Data: []byte{b}}
}

func TestManager_Send_EmptyPacketIsVirtual(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	res, err := m.Send(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !res.Sent || !res.Acked || res.Attempts != 0 {
		t.Fatalf("Send() = %+v, want virtual success", res)
	}
	if w.writeCount() != 0 {
		t.Fatal("virtual command should not touch the writer")
	}
}

func TestManager_Send_NoAckRequired(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	res, err := m.Send(context.Background(), []byte{0x01, 0x02}, Options{})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !res.Sent || res.Acked {
		t.Fatalf("Send() = %+v, want sent=true acked=false (no ack configured)", res)
	}
	if w.writeCount() != 1 {
		t.Fatalf("writeCount() = %d, want 1", w.writeCount())
	}
}

func TestManager_Send_WithAck_Matched(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.NotifyPacket([]byte{0xAA, 0x00})
	}()

	res, err := m.Send(context.Background(), []byte{0x01}, Options{
		AckMatch:  ackSchema(0xAA),
		TXTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !res.Sent || !res.Acked || res.Attempts != 1 {
		t.Fatalf("Send() = %+v, want sent/acked on first attempt", res)
	}
}

func TestManager_Send_AckTimeout_NoRetry(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	_, err := m.Send(context.Background(), []byte{0x01}, Options{
		AckMatch:  ackSchema(0xAA),
		TXTimeout: 20 * time.Millisecond,
	})
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("err = %v, want ErrAckTimeout", err)
	}
	if w.writeCount() != 1 {
		t.Fatalf("writeCount() = %d, want 1 (no retries configured)", w.writeCount())
	}
}

func TestManager_Send_RetriesThenSucceeds(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	var notified sync.Once
	go func() {
		for {
			if w.writeCount() >= 2 {
				notified.Do(func() { m.NotifyPacket([]byte{0xAA}) })
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	res, err := m.Send(context.Background(), []byte{0x01}, Options{
		AckMatch:     ackSchema(0xAA),
		TXTimeout:    20 * time.Millisecond,
		TXRetryCount: 2,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !res.Acked {
		t.Fatal("expected eventual ack after retry")
	}
	if w.writeCount() != 2 {
		t.Fatalf("writeCount() = %d, want 2", w.writeCount())
	}
}

func TestManager_Send_RetriesExhausted(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	_, err := m.Send(context.Background(), []byte{0x01}, Options{
		AckMatch:     ackSchema(0xAA),
		TXTimeout:    10 * time.Millisecond,
		TXRetryCount: 2,
	})
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Fatalf("err = %v, want ErrMaxRetriesExceeded", err)
	}
	if w.writeCount() != 3 {
		t.Fatalf("writeCount() = %d, want 3 (1 + 2 retries)", w.writeCount())
	}
}

func TestManager_Send_TransportErrorRetries(t *testing.T) {
	w := &fakeWriter{failN: 1}
	m := NewManager(w, testLogger())

	res, err := m.Send(context.Background(), []byte{0x01}, Options{
		TXRetryCount: 1,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !res.Sent {
		t.Fatal("expected second attempt to succeed")
	}
	if w.writeCount() != 2 {
		t.Fatalf("writeCount() = %d, want 2", w.writeCount())
	}
}

func TestManager_NotifyPacket_NoMatchIsNoOp(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())
	m.NotifyPacket([]byte{0xFF})

	_, err := m.Send(context.Background(), []byte{0x01}, Options{
		AckMatch:  ackSchema(0xAA),
		TXTimeout: 15 * time.Millisecond,
	})
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("err = %v, want ErrAckTimeout since only a non-matching packet arrived", err)
	}
}

func TestManager_Send_TxGapPacing(t *testing.T) {
	w := &fakeWriter{}
	m := NewManager(w, testLogger())

	if _, err := m.Send(context.Background(), []byte{0x01}, Options{}); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}

	start := time.Now()
	if _, err := m.Send(context.Background(), []byte{0x02}, Options{TXDelay: 30 * time.Millisecond}); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("second Send() returned after %v, want >= ~30ms gap enforced", elapsed)
	}
}

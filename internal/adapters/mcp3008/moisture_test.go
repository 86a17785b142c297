package mcp3008

import (
	"context"
	"errors"
	"testing"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// fakeConn answers every transfer with a fixed response
type fakeConn struct {
	resp    []byte
	err     error
	written []byte
}

func (c *fakeConn) String() string { return "fake" }

func (c *fakeConn) Duplex() conn.Duplex { return conn.Full }

func (c *fakeConn) TxPackets(p []spi.Packet) error { return errors.New("not supported") }

func (c *fakeConn) Tx(w, r []byte) error {
	c.written = append([]byte(nil), w...)
	if c.err != nil {
		return c.err
	}
	copy(r, c.resp)
	return nil
}

func TestScale(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{raw: 0, want: 0},
		{raw: 512, want: 50},
		{raw: 1023, want: 100},
		{raw: 2000, want: 100},
		{raw: -5, want: 0},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := Scale(tt.raw); got != tt.want {
				t.Errorf("Scale(%d) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestReadRaw_Command(t *testing.T) {
	c := &fakeConn{resp: []byte{0, 0x02, 0x00}}
	s := New(c, 3)

	raw, err := s.ReadRaw()
	if err != nil {
		t.Fatalf("ReadRaw failed: %v", err)
	}
	if raw != 512 {
		t.Errorf("ReadRaw() = %d, want 512", raw)
	}

	want := []byte{1, 0xB0, 0}
	for i := range want {
		if c.written[i] != want[i] {
			t.Errorf("command byte %d = %#x, want %#x", i, c.written[i], want[i])
		}
	}
}

func TestReadMoisture(t *testing.T) {
	// Upper bits beyond the 10-bit result are masked off
	s := New(&fakeConn{resp: []byte{0xFF, 0xFF, 0xFF}}, 0)

	m, err := s.ReadMoisture(context.Background())
	if err != nil {
		t.Fatalf("ReadMoisture failed: %v", err)
	}
	if m != 100 {
		t.Errorf("ReadMoisture() = %d, want 100", m)
	}
}

func TestReadMoisture_TransferError(t *testing.T) {
	s := New(&fakeConn{err: errors.New("bus error")}, 0)

	if _, err := s.ReadMoisture(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestOpen_BadChannel(t *testing.T) {
	if _, err := Open("", Channels); err == nil {
		t.Error("expected error for out of range channel")
	}
}

package mcp3008

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Channels on the chip, and the top of its 10-bit range
const (
	Channels = 8
	maxCount = 1023
)

// busSpeed matches what the chip tolerates at 3.3V
const busSpeed = 1350 * physic.KiloHertz

// MoistureSensor reads a soil moisture probe wired to an MCP3008 channel
// This implements the ports.MoistureSensor interface
type MoistureSensor struct {
	conn    spi.Conn
	port    spi.PortCloser
	channel int
}

// Open initialises the host and connects to the ADC on the given SPI port.
// An empty port name picks the first available port (usually /dev/spidev0.0).
func Open(portName string, channel int) (*MoistureSensor, error) {
	if channel < 0 || channel >= Channels {
		return nil, fmt.Errorf("channel %d out of range 0-%d", channel, Channels-1)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialise host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", portName, err)
	}

	conn, err := port.Connect(busSpeed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect to MCP3008: %w", err)
	}

	s := New(conn, channel)
	s.port = port
	return s, nil
}

// New wraps an already connected SPI device
func New(conn spi.Conn, channel int) *MoistureSensor {
	return &MoistureSensor{conn: conn, channel: channel}
}

// ReadRaw returns the 10-bit conversion of the configured channel
func (s *MoistureSensor) ReadRaw() (int, error) {
	// Start bit, single-ended mode + channel, then clock out the result
	w := []byte{1, byte(8+s.channel) << 4, 0}
	r := make([]byte, len(w))
	if err := s.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("SPI transfer failed: %w", err)
	}
	return int(r[1]&3)<<8 | int(r[2]), nil
}

// ReadMoisture returns the channel scaled to a 0-100 percentage
func (s *MoistureSensor) ReadMoisture(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := s.ReadRaw()
	if err != nil {
		return 0, err
	}
	return Scale(raw), nil
}

// Scale maps a 0-1023 count linearly onto 0-100, truncating
func Scale(raw int) int {
	if raw <= 0 {
		return 0
	}
	if raw >= maxCount {
		return 100
	}
	return raw * 100 / maxCount
}

// Close releases the SPI port if we opened it
func (s *MoistureSensor) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

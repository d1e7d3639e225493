package monitor

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the board's debug channel.
const DefaultBaudRate = 115200

// readTimeout keeps Read responsive to cancellation.
const readTimeout = 100 * time.Millisecond

// Port wraps a serial port opened 8N1 with a short read timeout.
type Port struct {
	port     serial.Port
	portName string
	baudRate int
}

// Open opens a serial port with the specified baud rate.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}, nil
}

// Read returns (0, nil) when the read timeout expires with no data.
func (p *Port) Read(buf []byte) (int, error) { return p.port.Read(buf) }

func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

func (p *Port) PortName() string { return p.portName }
func (p *Port) BaudRate() int    { return p.baudRate }

// ListPorts returns the serial ports present on this host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
